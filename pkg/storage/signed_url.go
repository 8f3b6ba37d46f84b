package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid file token")
	ErrTokenExpired = errors.New("file token expired")
)

// URLSigner issues short-lived tokens that grant read access to a stored file.
type URLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewURLSigner constructs a signer with the provided secret and TTL.
func NewURLSigner(secret string, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &URLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token binding owner and relPath until the signer's TTL elapses.
func (s *URLSigner) Sign(owner, relPath string) (string, time.Time, error) {
	if owner == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("owner and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{owner, ts, encodedPath, s.mac(owner, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Verify validates token and returns the owner and stored path it grants.
func (s *URLSigner) Verify(token string) (owner, relPath string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", ErrInvalidToken
	}
	owner, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(owner, ts, encodedPath)), []byte(signature)) {
		return "", "", ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", "", ErrTokenExpired
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	return owner, string(rawPath), nil
}

func (s *URLSigner) mac(owner, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(owner + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}

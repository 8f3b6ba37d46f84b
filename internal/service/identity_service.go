package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

// IdentityGateway is the contract with the identity provider. The scholar
// writer calls it before opening the local transaction.
type IdentityGateway interface {
	SignUp(ctx context.Context, email, password string) (*models.IdentityHandle, error)
	UpdateEmail(ctx context.Context, accountID, email string) error
	UpdatePassword(ctx context.Context, accountID, password string) error
	Delete(ctx context.Context, accountID string) error
}

// ResetNotifier delivers password reset tokens.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type identityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Identity, error)
	UpdateEmail(ctx context.Context, accountID, email string) error
	UpdatePassword(ctx context.Context, accountID, hash string) error
	Delete(ctx context.Context, accountID string) error
}

type identityAccountReader interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

const passwordResetAudience = "password-reset"

// IdentityConfig configures token issuance.
type IdentityConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
	ResetTTL  time.Duration
}

// IdentityService is the local identity provider: bcrypt credentials and
// HS256 access tokens.
type IdentityService struct {
	repo      identityRepository
	accounts  identityAccountReader
	notifier  ResetNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    IdentityConfig
	now       func() time.Time
}

// NewIdentityService constructs an IdentityService. A nil notifier logs reset tokens.
func NewIdentityService(repo identityRepository, accounts identityAccountReader, notifier ResetNotifier, validate *validator.Validate, logger *zap.Logger, config IdentityConfig) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if notifier == nil {
		notifier = LogResetNotifier{Logger: logger}
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = 24 * time.Hour
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = 15 * time.Minute
	}
	return &IdentityService{
		repo:      repo,
		accounts:  accounts,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SignUp registers a credential and returns the account id the provider assigned.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*models.IdentityHandle, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.From(appErrors.ErrUpstreamAuthFailure, err, "failed to hash password")
	}
	identity := &models.Identity{
		AccountID:    uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		if repository.IsUniqueViolation(err, "identities_email_key") {
			return nil, appErrors.From(appErrors.ErrUpstreamAuthFailure, err, "email already registered")
		}
		return nil, gatewayError(err, "sign up rejected")
	}
	return &models.IdentityHandle{AccountID: identity.AccountID, Email: identity.Email}, nil
}

// UpdateEmail changes the sign-in email of an account.
func (s *IdentityService) UpdateEmail(ctx context.Context, accountID, email string) error {
	if err := s.repo.UpdateEmail(ctx, accountID, email); err != nil {
		if repository.IsUniqueViolation(err, "identities_email_key") {
			return appErrors.From(appErrors.ErrDuplicateEntity, err, "email already registered")
		}
		return gatewayError(err, "email update rejected")
	}
	return nil
}

// UpdatePassword replaces the password of an account.
func (s *IdentityService) UpdatePassword(ctx context.Context, accountID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.From(appErrors.ErrUpstreamAuthFailure, err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return gatewayError(err, "password update rejected")
	}
	return nil
}

// Delete removes the credential of an account. Deleting a missing identity succeeds.
func (s *IdentityService) Delete(ctx context.Context, accountID string) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return gatewayError(err, "identity deletion rejected")
	}
	return nil
}

// SignIn verifies credentials and issues an access token.
func (s *IdentityService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.SignInResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-in payload")
	}
	identity, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, repository.TranslateError(err, "failed to load identity")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	account, err := s.accounts.FindByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("identity without account", zap.String("account_id", identity.AccountID))
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, repository.TranslateError(err, "failed to load account")
	}

	issuedAt := s.now()
	token, err := s.sign(&models.JWTClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Roles:     []string(account.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &dto.SignInResponse{
		Session: models.Session{
			AccessToken: token,
			ExpiresIn:   int64(s.config.AccessTTL.Seconds()),
			IssuedAt:    issuedAt,
		},
		Account: *account,
	}, nil
}

// ChangePassword verifies the current password before replacing it.
func (s *IdentityService) ChangePassword(ctx context.Context, accountID string, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	identity, err := s.repo.FindByAccountID(ctx, accountID)
	if err != nil {
		return repository.TranslateError(err, "failed to load identity")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}
	return s.UpdatePassword(ctx, accountID, req.NewPassword)
}

// RequestPasswordReset issues a reset token for the email. Unknown emails
// succeed silently.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, req dto.PasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset payload")
	}
	identity, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return repository.TranslateError(err, "failed to load identity")
	}

	issuedAt := s.now()
	token, err := s.sign(&models.JWTClaims{
		AccountID: identity.AccountID,
		Email:     identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   identity.AccountID,
			Audience:  jwt.ClaimStrings{passwordResetAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.ResetTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token")
	}
	if err := s.notifier.SendPasswordReset(ctx, identity.Email, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deliver reset token")
	}
	return nil
}

// ResetPassword consumes a reset token.
func (s *IdentityService) ResetPassword(ctx context.Context, req dto.PasswordResetConfirmRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset payload")
	}
	claims, err := s.parse(req.Token, jwt.WithAudience(passwordResetAudience))
	if err != nil {
		return err
	}
	return s.UpdatePassword(ctx, claims.AccountID, req.NewPassword)
}

// ValidateToken parses an access token. Reset tokens are rejected.
func (s *IdentityService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	for _, aud := range claims.Audience {
		if aud == passwordResetAudience {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
		}
	}
	return claims, nil
}

func (s *IdentityService) sign(claims *models.JWTClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func (s *IdentityService) parse(tokenString string, opts ...jwt.ParserOption) (*models.JWTClaims, error) {
	opts = append(opts, jwt.WithTimeFunc(s.now))
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// gatewayError maps a provider failure onto the upstream error kinds.
func gatewayError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.From(appErrors.ErrUpstreamTimeout, err, "")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.From(appErrors.ErrUpstreamAuthFailure, err, "identity not found")
	}
	return appErrors.From(appErrors.ErrUpstreamAuthFailure, err, message)
}

// LogResetNotifier writes reset tokens to the log. Email delivery is out of scope.
type LogResetNotifier struct {
	Logger *zap.Logger
}

// SendPasswordReset logs the token for the email.
func (n LogResetNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.Logger.Info("password reset token issued", zap.String("email", strings.ToLower(email)), zap.String("token", token))
	return nil
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrExtensionNotAllowed is returned for uploads with an unsupported extension.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	// ErrInvalidPath is returned when a name escapes the base directory.
	ErrInvalidPath = errors.New("invalid file path")
)

// Options restrict what LocalStorage accepts.
type Options struct {
	MaxBytes    int64
	AllowedExts []string
}

// LocalStorage persists uploaded files on disk under a base directory.
type LocalStorage struct {
	baseDir  string
	maxBytes int64
	exts     map[string]struct{}
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, opts Options) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	exts := make(map[string]struct{}, len(opts.AllowedExts))
	for _, ext := range opts.AllowedExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: opts.MaxBytes, exts: exts}, nil
}

// Allowed reports whether filename carries an accepted extension.
func (s *LocalStorage) Allowed(filename string) bool {
	if len(s.exts) == 0 {
		return true
	}
	_, ok := s.exts[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Save copies r into name, enforcing the size and extension limits. A partially
// written file is removed on failure.
func (s *LocalStorage) Save(name string, r io.Reader) (string, error) {
	if !s.Allowed(name) {
		return "", ErrExtensionNotAllowed
	}
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", copyErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		_ = os.Remove(path)
		return "", ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close file: %w", closeErr)
	}
	return name, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(name string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(name))
	if clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.baseDir, clean), nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/logger"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
	"github.com/muchasmas/scholarship-api/pkg/storage"
)

type fileStore interface {
	Save(name string, r io.Reader) (string, error)
	Delete(name string) error
}

type urlSigner interface {
	Sign(owner, relPath string) (string, time.Time, error)
}

// UserServiceConfig tunes the user service.
type UserServiceConfig struct {
	// FilesURL prefixes signed file tokens, e.g. "/api/v1/files/".
	FilesURL        string
	IdentityTimeout time.Duration
}

// UserService manages staff and scholar accounts.
type UserService struct {
	uow         unitOfWork
	identity    IdentityGateway
	compensator identityCompensator
	files       fileStore
	signer      urlSigner
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         UserServiceConfig
	salt        func() int
	now         func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(uow unitOfWork, identity IdentityGateway, compensator identityCompensator, files fileStore, signer urlSigner, validate *validator.Validate, logger *zap.Logger, cfg UserServiceConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if cfg.IdentityTimeout <= 0 {
		cfg.IdentityTimeout = 5 * time.Second
	}
	if cfg.FilesURL == "" {
		cfg.FilesURL = "/files/"
	}
	return &UserService{
		uow:         uow,
		identity:    identity,
		compensator: compensator,
		files:       files,
		signer:      signer,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		salt:        func() int { return rand.Intn(10) },
		now:         time.Now,
	}
}

// SignUp provisions a staff account: the identity first, then the account row
// with its roles and reference code. A failed write queues the identity for
// deletion.
func (s *UserService) SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.UserDetail, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-up payload")
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return nil, err
	}

	handle, err := provisionIdentity(ctx, s.identity, s.cfg.IdentityTimeout, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:        handle.AccountID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     models.RolesOf(roles...),
	}
	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		code, err := assignRefCode(ctx, stores.Accounts, req.FirstName, req.LastName, req.DOB.Time, s.salt)
		if err != nil {
			return err
		}
		account.RefCode = code
		return stores.Accounts.Create(ctx, account)
	})
	if err != nil {
		return nil, releaseIdentity(s.compensator, s.logger, handle, "user", repository.TranslateError(err, "failed to create user"))
	}

	logger.FromContext(ctx, s.logger).Info("user signed up", zap.String("account_id", account.ID), zap.Strings("roles", []string(account.Roles)))
	return s.detail(account), nil
}

// EnsureAdmin provisions an ADMIN account when the database has no account
// yet, so a fresh deployment can be administered. It reports whether an
// account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return false, nil
	}
	var total int
	err := s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		var err error
		total, err = stores.Accounts.Count(ctx, models.AccountFilter{})
		return err
	})
	if err != nil {
		return false, repository.TranslateError(err, "failed to count users")
	}
	if total > 0 {
		return false, nil
	}
	y, m, d := s.now().UTC().Date()
	_, err = s.SignUp(ctx, dto.SignUpRequest{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  "Sistema",
		DOB:       dto.NewDate(y, m, d),
		Roles:     []models.Role{models.RoleAdmin},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns one page of accounts. Status filters on a role unless "all".
func (s *UserService) List(ctx context.Context, req pagination.Request) (*pagination.Result[models.Account], error) {
	status := strings.TrimSpace(req.Status)
	if status != "" && !strings.EqualFold(status, pagination.StatusAll) && !models.Role(strings.ToUpper(status)).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Status))
	}

	q, err := pagination.Build(req, pagination.Options[models.AccountFilter]{
		Where: func(query, status string) models.AccountFilter {
			filter := models.AccountFilter{Search: query}
			if !strings.EqualFold(status, pagination.StatusAll) {
				role := models.Role(strings.ToUpper(status))
				filter.Role = &role
			}
			return filter
		},
		Order: columnOrder(repository.AccountSortColumns),
	})
	if err != nil {
		return nil, err
	}

	var (
		rows  []models.Account
		total int
	)
	err = s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		var err error
		if total, err = stores.Accounts.Count(ctx, q.Where); err != nil {
			return err
		}
		rows, err = stores.Accounts.List(ctx, q)
		return err
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list users")
	}
	result := pagination.NewResult(rows, total, q)
	return &result, nil
}

// Get returns an account with a signed URL for its profile image.
func (s *UserService) Get(ctx context.Context, id string) (*dto.UserDetail, error) {
	var account *models.Account
	err := s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		var err error
		account, err = stores.Accounts.FindByID(ctx, id)
		return notFound(err, "user not found")
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to load user")
	}
	return s.detail(account), nil
}

// Update patches contact fields. Email changes reach the identity provider first.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserDetail, error) {
	if email, ok := req.Email.Get(); ok {
		req.Email = models.Some(strings.ToLower(strings.TrimSpace(email)))
	}
	if blank := req.BlankRequiredFields(); len(blank) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fields must not be blank: "+strings.Join(blank, ", "))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	email, emailChanged := req.Email.Get()
	emailChanged = emailChanged && email != current.Email
	if emailChanged {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.IdentityTimeout)
		err := s.identity.UpdateEmail(callCtx, id, email)
		cancel()
		if err != nil {
			return nil, gatewayError(err, "identity provider rejected email change")
		}
	}

	var updated *models.Account
	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		account, err := stores.Accounts.FindByID(ctx, id)
		if err != nil {
			return notFound(err, "user not found")
		}
		req.Email.Apply(&account.Email)
		if v, ok := req.FirstName.Get(); ok {
			account.FirstName = strings.TrimSpace(v)
		}
		if v, ok := req.LastName.Get(); ok {
			account.LastName = strings.TrimSpace(v)
		}
		if err := stores.Accounts.Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		if emailChanged {
			s.restoreEmail(id, current.Email)
		}
		return nil, repository.TranslateError(err, "failed to update user")
	}
	return s.detail(updated), nil
}

func (s *UserService) restoreEmail(id, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.IdentityTimeout)
	defer cancel()
	if err := s.identity.UpdateEmail(ctx, id, email); err != nil {
		s.logger.Error("identity email diverged from account", zap.String("account_id", id), zap.Error(err))
	}
}

// UpdateRoles replaces the roles of an account. Duplicates collapse.
func (s *UserService) UpdateRoles(ctx context.Context, id string, req dto.UpdateRolesRequest) (*dto.UserDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roles payload")
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		if err := notFound(stores.Accounts.UpdateRoles(ctx, id, roles), "user not found"); err != nil {
			return err
		}
		var err error
		account, err = stores.Accounts.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to update roles")
	}
	s.logger.Info("roles updated", zap.String("account_id", id), zap.Strings("roles", []string(account.Roles)))
	return s.detail(account), nil
}

// UploadProfileImage stores the image and points the account at it. The
// previous image is removed once the account is updated.
func (s *UserService) UploadProfileImage(ctx context.Context, id, filename string, r io.Reader) (*dto.UserDetail, error) {
	if s.files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("profiles/%s/%s%s", id, uuid.NewString(), ext)

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := saveImage(s.files, name, r); err != nil {
		return nil, err
	}

	var (
		account  *models.Account
		previous *string
	)
	err := s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		current, err := stores.Accounts.FindByID(ctx, id)
		if err != nil {
			return notFound(err, "user not found")
		}
		previous = current.ProfileImgSrc
		if err := stores.Accounts.UpdateProfileImage(ctx, id, &name); err != nil {
			return err
		}
		current.ProfileImgSrc = &name
		account = current
		return nil
	})
	if err != nil {
		_ = s.files.Delete(name)
		return nil, repository.TranslateError(err, "failed to update profile image")
	}
	if previous != nil && *previous != "" && *previous != name {
		if err := s.files.Delete(*previous); err != nil {
			s.logger.Warn("failed to remove previous profile image", zap.String("path", *previous), zap.Error(err))
		}
	}
	return s.detail(account), nil
}

// Delete removes a staff account with its identity and profile image. Scholar
// accounts go through the scholar endpoints so the aggregate is removed too.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "an account cannot delete itself")
	}
	var image *string
	err := s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		account, err := stores.Accounts.FindByID(ctx, id)
		if err != nil {
			return notFound(err, "user not found")
		}
		_, err = stores.Scholars.FindByAccountID(ctx, id)
		switch {
		case err == nil:
			return appErrors.Clone(appErrors.ErrValidation, "account belongs to a scholar; delete the scholar instead")
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		image = account.ProfileImgSrc
		return stores.Accounts.Delete(ctx, id)
	})
	if err != nil {
		return repository.TranslateError(err, "failed to delete user")
	}

	dropIdentity(ctx, s.identity, s.compensator, s.logger, s.cfg.IdentityTimeout, id, "user deleted")
	if image != nil && *image != "" && s.files != nil {
		if err := s.files.Delete(*image); err != nil {
			s.logger.Warn("failed to remove profile image", zap.String("path", *image), zap.Error(err))
		}
	}
	logger.FromContext(ctx, s.logger).Info("user deleted", zap.String("account_id", id))
	return nil
}

// saveImage stores an upload and maps storage limits onto validation errors.
func saveImage(files fileStore, name string, r io.Reader) error {
	if _, err := files.Save(name, r); err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return appErrors.From(appErrors.ErrValidation, err, "image exceeds the size limit")
		case errors.Is(err, storage.ErrExtensionNotAllowed):
			return appErrors.From(appErrors.ErrValidation, err, fmt.Sprintf("image type %q is not allowed", filepath.Ext(name)))
		}
		return appErrors.From(appErrors.ErrStorageFailure, err, "failed to store image")
	}
	return nil
}

func (s *UserService) detail(account *models.Account) *dto.UserDetail {
	out := &dto.UserDetail{Account: *account}
	if account.ProfileImgSrc == nil || *account.ProfileImgSrc == "" || s.signer == nil {
		return out
	}
	token, _, err := s.signer.Sign(account.ID, *account.ProfileImgSrc)
	if err != nil {
		s.logger.Warn("failed to sign profile image url", zap.String("account_id", account.ID), zap.Error(err))
		return out
	}
	url := s.cfg.FilesURL + token
	out.ProfileImgURL = &url
	return out
}

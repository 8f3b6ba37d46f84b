package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

type catalogRepository interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListMunicipalities(ctx context.Context, departmentID int) ([]models.Municipality, error)
	ListDistricts(ctx context.Context, municipalityID int) ([]models.District, error)
	ListBanks(ctx context.Context) ([]models.Bank, error)
	FindBank(ctx context.Context, id int) (*models.Bank, error)
	CreateBank(ctx context.Context, bank *models.Bank) error
	UpdateBank(ctx context.Context, bank *models.Bank) error
	DeleteBank(ctx context.Context, id int) error
}

const (
	catalogCachePrefix = "catalog:"
	bankLogoOwner      = "banks"
)

// Upload is an uploaded file.
type Upload struct {
	Filename string
	Body     io.Reader
}

// CatalogService serves the geography and bank catalogs through the cache.
type CatalogService struct {
	repo     catalogRepository
	cache    *CacheService
	logger   *zap.Logger
	files    fileStore
	signer   urlSigner
	filesURL string
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(repo catalogRepository, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger}
}

// WithLogos enables bank logo uploads and signed logo URLs.
func (s *CatalogService) WithLogos(files fileStore, signer urlSigner, filesURL string) *CatalogService {
	s.files, s.signer, s.filesURL = files, signer, filesURL
	return s
}

// Departments lists every department.
func (s *CatalogService) Departments(ctx context.Context) ([]models.Department, error) {
	items, err := cached(ctx, s.cache, catalogCachePrefix+"departments", s.repo.ListDepartments)
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list departments")
	}
	return items, nil
}

// Municipalities lists the municipalities of a department.
func (s *CatalogService) Municipalities(ctx context.Context, departmentID int) ([]models.Municipality, error) {
	if departmentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "departmentId is required")
	}
	key := fmt.Sprintf("%smunicipalities:%d", catalogCachePrefix, departmentID)
	items, err := cached(ctx, s.cache, key, func(ctx context.Context) ([]models.Municipality, error) {
		return s.repo.ListMunicipalities(ctx, departmentID)
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list municipalities")
	}
	return items, nil
}

// Districts lists the districts of a municipality.
func (s *CatalogService) Districts(ctx context.Context, municipalityID int) ([]models.District, error) {
	if municipalityID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "municipalityId is required")
	}
	key := fmt.Sprintf("%sdistricts:%d", catalogCachePrefix, municipalityID)
	items, err := cached(ctx, s.cache, key, func(ctx context.Context) ([]models.District, error) {
		return s.repo.ListDistricts(ctx, municipalityID)
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list districts")
	}
	return items, nil
}

// Banks lists the bank catalog.
func (s *CatalogService) Banks(ctx context.Context) ([]models.Bank, error) {
	items, err := cached(ctx, s.cache, catalogCachePrefix+"banks", s.repo.ListBanks)
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list banks")
	}
	for i := range items {
		s.signLogo(&items[i])
	}
	return items, nil
}

// CreateBank adds a bank. A logo is required.
func (s *CatalogService) CreateBank(ctx context.Context, name string, logo *Upload) (*models.Bank, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if logo == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "logo image is required")
	}
	src, err := s.saveLogo(logo)
	if err != nil {
		return nil, err
	}
	bank := &models.Bank{Name: name, LogoSrc: &src}
	if err := s.repo.CreateBank(ctx, bank); err != nil {
		s.removeLogo(src)
		return nil, repository.TranslateError(err, "failed to create bank")
	}
	s.invalidateBanks(ctx)
	s.logger.Info("bank created", zap.Int("bank_id", bank.ID))
	s.signLogo(bank)
	return bank, nil
}

// UpdateBank renames a bank and, when logo is set, replaces its logo.
func (s *CatalogService) UpdateBank(ctx context.Context, id int, name *string, logo *Upload) (*models.Bank, error) {
	bank, err := s.repo.FindBank(ctx, id)
	if err != nil {
		return nil, repository.TranslateError(notFound(err, "bank not found"), "failed to load bank")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be blank")
		}
		bank.Name = trimmed
	}
	var previous *string
	if logo != nil {
		src, err := s.saveLogo(logo)
		if err != nil {
			return nil, err
		}
		previous, bank.LogoSrc = bank.LogoSrc, &src
	}
	if err := s.repo.UpdateBank(ctx, bank); err != nil {
		if logo != nil {
			s.removeLogo(*bank.LogoSrc)
		}
		return nil, repository.TranslateError(notFound(err, "bank not found"), "failed to update bank")
	}
	if previous != nil {
		s.removeLogo(*previous)
	}
	s.invalidateBanks(ctx)
	s.signLogo(bank)
	return bank, nil
}

// DeleteBank removes a bank and its logo. Banks used by a bank account are
// kept and reported as INVALID_REFERENCE.
func (s *CatalogService) DeleteBank(ctx context.Context, id int) error {
	bank, err := s.repo.FindBank(ctx, id)
	if err != nil {
		return repository.TranslateError(notFound(err, "bank not found"), "failed to load bank")
	}
	if err := s.repo.DeleteBank(ctx, id); err != nil {
		return repository.TranslateError(notFound(err, "bank not found"), "failed to delete bank")
	}
	if bank.LogoSrc != nil {
		s.removeLogo(*bank.LogoSrc)
	}
	s.invalidateBanks(ctx)
	s.logger.Info("bank deleted", zap.Int("bank_id", id))
	return nil
}

func (s *CatalogService) saveLogo(logo *Upload) (string, error) {
	if s.files == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}
	name := fmt.Sprintf("banks/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(logo.Filename)))
	if err := saveImage(s.files, name, logo.Body); err != nil {
		return "", err
	}
	return name, nil
}

func (s *CatalogService) removeLogo(src string) {
	if s.files == nil || src == "" {
		return
	}
	if err := s.files.Delete(src); err != nil {
		s.logger.Warn("failed to remove bank logo", zap.String("path", src), zap.Error(err))
	}
}

func (s *CatalogService) signLogo(bank *models.Bank) {
	if s.signer == nil || bank.LogoSrc == nil || *bank.LogoSrc == "" {
		return
	}
	token, _, err := s.signer.Sign(bankLogoOwner, *bank.LogoSrc)
	if err != nil {
		s.logger.Warn("failed to sign bank logo url", zap.Int("bank_id", bank.ID), zap.Error(err))
		return
	}
	url := s.filesURL + token
	bank.LogoURL = &url
}

func (s *CatalogService) invalidateBanks(ctx context.Context) {
	s.cache.Invalidate(ctx, catalogCachePrefix+"banks")
}

// Refresh drops every cached catalog.
func (s *CatalogService) Refresh(ctx context.Context) {
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	s.logger.Info("catalog cache invalidated")
}

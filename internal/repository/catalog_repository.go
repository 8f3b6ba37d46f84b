package repository

import (
	"context"
	"fmt"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// CatalogRepository reads the geography and bank catalogs and writes banks.
type CatalogRepository struct {
	db Queryer
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db Queryer) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListDepartments returns every department ordered by name.
func (r *CatalogRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	items := make([]models.Department, 0)
	if err := r.db.SelectContext(ctx, &items, `SELECT id, name FROM departments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// ListMunicipalities returns the municipalities of a department.
func (r *CatalogRepository) ListMunicipalities(ctx context.Context, departmentID int) ([]models.Municipality, error) {
	items := make([]models.Municipality, 0)
	const query = `SELECT id, name, department_id FROM municipalities WHERE department_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	return items, nil
}

// ListDistricts returns the districts of a municipality.
func (r *CatalogRepository) ListDistricts(ctx context.Context, municipalityID int) ([]models.District, error) {
	items := make([]models.District, 0)
	const query = `SELECT id, name, municipality_id FROM districts WHERE municipality_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &items, query, municipalityID); err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	return items, nil
}

// ListBanks returns the bank catalog.
func (r *CatalogRepository) ListBanks(ctx context.Context) ([]models.Bank, error) {
	items := make([]models.Bank, 0)
	if err := r.db.SelectContext(ctx, &items, `SELECT id, name, logo_src FROM banks ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return items, nil
}

// FindBank fetches one bank.
func (r *CatalogRepository) FindBank(ctx context.Context, id int) (*models.Bank, error) {
	var bank models.Bank
	if err := r.db.GetContext(ctx, &bank, `SELECT id, name, logo_src FROM banks WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &bank, nil
}

// CreateBank inserts a bank and sets its id.
func (r *CatalogRepository) CreateBank(ctx context.Context, bank *models.Bank) error {
	if err := r.db.GetContext(ctx, &bank.ID, `INSERT INTO banks (name, logo_src) VALUES ($1, $2) RETURNING id`, bank.Name, bank.LogoSrc); err != nil {
		return fmt.Errorf("create bank: %w", err)
	}
	return nil
}

// UpdateBank rewrites the name and logo of a bank.
func (r *CatalogRepository) UpdateBank(ctx context.Context, bank *models.Bank) error {
	res, err := r.db.ExecContext(ctx, `UPDATE banks SET name = $2, logo_src = $3 WHERE id = $1`, bank.ID, bank.Name, bank.LogoSrc)
	if err != nil {
		return fmt.Errorf("update bank: %w", err)
	}
	return expectAffected(res, "update bank")
}

// DeleteBank removes a bank. Banks still referenced by bank accounts fail
// with a foreign key violation.
func (r *CatalogRepository) DeleteBank(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM banks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bank: %w", err)
	}
	return expectAffected(res, "delete bank")
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// PooledAddressStore keeps addresses in a shared pool linked to scholars
// through scholar_addresses.
type PooledAddressStore struct {
	db Queryer
}

// NewAddressStore constructs the pooled AddressStore.
func NewAddressStore(db Queryer) *PooledAddressStore {
	return &PooledAddressStore{db: db}
}

// Create inserts an address into the pool and sets its id.
func (s *PooledAddressStore) Create(ctx context.Context, address *models.Address) error {
	if address.CreatedAt.IsZero() {
		address.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO addresses (street_line_1, street_line_2, district_id, is_urban, created_at, created_by)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := s.db.GetContext(ctx, &address.ID, query, address.StreetLine1, address.StreetLine2, address.DistrictID,
		address.IsUrban, address.CreatedAt, address.CreatedBy); err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

// FindByID fetches a pooled address.
func (s *PooledAddressStore) FindByID(ctx context.Context, id int64) (*models.Address, error) {
	var address models.Address
	const query = `SELECT id, street_line_1, street_line_2, district_id, is_urban, created_at, created_by FROM addresses WHERE id = $1`
	if err := s.db.GetContext(ctx, &address, query, id); err != nil {
		return nil, err
	}
	return &address, nil
}

// Update rewrites the street fields of an address.
func (s *PooledAddressStore) Update(ctx context.Context, address *models.Address) error {
	const query = `UPDATE addresses SET street_line_1 = :street_line_1, street_line_2 = :street_line_2,
        district_id = :district_id, is_urban = :is_urban WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, address)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	return expectAffected(res, "update address")
}

// Link attaches an address to a scholar.
func (s *PooledAddressStore) Link(ctx context.Context, link models.AddressLink) error {
	const query = `INSERT INTO scholar_addresses (scholar_id, address_id, is_origin, is_current)
        VALUES (:scholar_id, :address_id, :is_origin, :is_current)
        ON CONFLICT (scholar_id, address_id) DO UPDATE SET is_origin = scholar_addresses.is_origin OR EXCLUDED.is_origin`
	if _, err := s.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("link address: %w", err)
	}
	return nil
}

// CountLinks returns how many scholars link the address.
func (s *PooledAddressStore) CountLinks(ctx context.Context, addressID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM scholar_addresses WHERE address_id = $1`, addressID); err != nil {
		return 0, fmt.Errorf("count address links: %w", err)
	}
	return n, nil
}

// Relink points the scholar's link at another address, keeping its origin and
// current flags.
func (s *PooledAddressStore) Relink(ctx context.Context, scholarID string, fromID, toID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE scholar_addresses SET address_id = $3 WHERE scholar_id = $1 AND address_id = $2`,
		scholarID, fromID, toID)
	if err != nil {
		return fmt.Errorf("relink address: %w", err)
	}
	return expectAffected(res, "relink address")
}

// SetCurrent flips is_current for every link of the scholar in one statement,
// so exactly addressID ends up current.
func (s *PooledAddressStore) SetCurrent(ctx context.Context, scholarID string, addressID int64) error {
	const query = `UPDATE scholar_addresses SET is_current = (address_id = $2)
        WHERE scholar_id = $1 AND (is_current OR address_id = $2)`
	res, err := s.db.ExecContext(ctx, query, scholarID, addressID)
	if err != nil {
		return fmt.Errorf("set current address: %w", err)
	}
	return expectAffected(res, "set current address")
}

// Unlink detaches one address from the scholar.
func (s *PooledAddressStore) Unlink(ctx context.Context, scholarID string, addressID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scholar_addresses WHERE scholar_id = $1 AND address_id = $2`, scholarID, addressID)
	if err != nil {
		return fmt.Errorf("unlink address: %w", err)
	}
	return expectAffected(res, "unlink address")
}

// UnlinkAll detaches every address of the scholar and returns their ids.
func (s *PooledAddressStore) UnlinkAll(ctx context.Context, scholarID string) ([]int64, error) {
	ids := make([]int64, 0)
	if err := s.db.SelectContext(ctx, &ids, `DELETE FROM scholar_addresses WHERE scholar_id = $1 RETURNING address_id`, scholarID); err != nil {
		return nil, fmt.Errorf("unlink addresses: %w", err)
	}
	return ids, nil
}

// ListByScholar returns the linked addresses with their geography resolved.
func (s *PooledAddressStore) ListByScholar(ctx context.Context, scholarID string) ([]models.AddressDetail, error) {
	const query = `SELECT ad.id, ad.street_line_1, ad.street_line_2, ad.district_id, ad.is_urban, ad.created_at, ad.created_by,
        sa.is_origin, sa.is_current, d.name AS district_name, m.id AS municipality_id, m.name AS municipality_name,
        dep.id AS department_id, dep.name AS department_name
        FROM scholar_addresses sa
        JOIN addresses ad ON ad.id = sa.address_id
        JOIN districts d ON d.id = ad.district_id
        JOIN municipalities m ON m.id = d.municipality_id
        JOIN departments dep ON dep.id = m.department_id
        WHERE sa.scholar_id = $1
        ORDER BY sa.is_origin DESC, ad.created_at, ad.id`
	addresses := make([]models.AddressDetail, 0)
	if err := s.db.SelectContext(ctx, &addresses, query, scholarID); err != nil {
		return nil, fmt.Errorf("list scholar addresses: %w", err)
	}
	return addresses, nil
}

// PruneOrphans deletes pooled addresses among ids that lost every link.
func (s *PooledAddressStore) PruneOrphans(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM addresses ad WHERE ad.id = ANY($1)
        AND NOT EXISTS (SELECT 1 FROM scholar_addresses sa WHERE sa.address_id = ad.id)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune addresses: %w", err)
	}
	return nil
}

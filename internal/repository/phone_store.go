package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// PooledPhoneStore keeps phone numbers unique in a shared pool linked to
// scholars through scholar_phone_numbers.
type PooledPhoneStore struct {
	db Queryer
}

// NewPhoneStore constructs the pooled PhoneStore.
func NewPhoneStore(db Queryer) *PooledPhoneStore {
	return &PooledPhoneStore{db: db}
}

// Upsert returns the pool id of number, inserting it when absent.
func (s *PooledPhoneStore) Upsert(ctx context.Context, number string) (int64, error) {
	const query = `INSERT INTO phone_numbers (number) VALUES ($1)
        ON CONFLICT (number) DO UPDATE SET number = EXCLUDED.number RETURNING id`
	var id int64
	if err := s.db.GetContext(ctx, &id, query, strings.TrimSpace(number)); err != nil {
		return 0, fmt.Errorf("upsert phone number: %w", err)
	}
	return id, nil
}

// Link attaches a pooled number to a scholar and sets the link id. Linking the
// same number twice updates the flags of the existing link.
func (s *PooledPhoneStore) Link(ctx context.Context, link *models.ScholarPhone) error {
	const query = `INSERT INTO scholar_phone_numbers (scholar_id, phone_number_id, is_current, is_mobile)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (scholar_id, phone_number_id) DO UPDATE SET is_current = EXCLUDED.is_current, is_mobile = EXCLUDED.is_mobile
        RETURNING id`
	if err := s.db.GetContext(ctx, &link.ID, query, link.ScholarID, link.PhoneNumberID, link.IsCurrent, link.IsMobile); err != nil {
		return fmt.Errorf("link phone number: %w", err)
	}
	return nil
}

// UpdateLink rewrites the number reference and flags of a link.
func (s *PooledPhoneStore) UpdateLink(ctx context.Context, link *models.ScholarPhone) error {
	const query = `UPDATE scholar_phone_numbers SET phone_number_id = $3, is_current = $4, is_mobile = $5
        WHERE id = $1 AND scholar_id = $2`
	res, err := s.db.ExecContext(ctx, query, link.ID, link.ScholarID, link.PhoneNumberID, link.IsCurrent, link.IsMobile)
	if err != nil {
		return fmt.Errorf("update phone link: %w", err)
	}
	return expectAffected(res, "update phone link")
}

// FindLink fetches a link that belongs to the scholar.
func (s *PooledPhoneStore) FindLink(ctx context.Context, scholarID string, linkID int64) (*models.ScholarPhone, error) {
	const query = `SELECT spn.id, spn.scholar_id, spn.phone_number_id, pn.number, spn.is_current, spn.is_mobile
        FROM scholar_phone_numbers spn JOIN phone_numbers pn ON pn.id = spn.phone_number_id
        WHERE spn.id = $1 AND spn.scholar_id = $2`
	var link models.ScholarPhone
	if err := s.db.GetContext(ctx, &link, query, linkID, scholarID); err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteLink removes a single link of the scholar.
func (s *PooledPhoneStore) DeleteLink(ctx context.Context, scholarID string, linkID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scholar_phone_numbers WHERE id = $1 AND scholar_id = $2`, linkID, scholarID)
	if err != nil {
		return fmt.Errorf("delete phone link: %w", err)
	}
	return expectAffected(res, "delete phone link")
}

// DeleteLinks removes every link of the scholar and returns the pooled ids they referenced.
func (s *PooledPhoneStore) DeleteLinks(ctx context.Context, scholarID string) ([]int64, error) {
	ids := make([]int64, 0)
	if err := s.db.SelectContext(ctx, &ids, `DELETE FROM scholar_phone_numbers WHERE scholar_id = $1 RETURNING phone_number_id`, scholarID); err != nil {
		return nil, fmt.Errorf("delete phone links: %w", err)
	}
	return ids, nil
}

// ListByScholar returns the scholar's numbers, current ones first.
func (s *PooledPhoneStore) ListByScholar(ctx context.Context, scholarID string) ([]models.ScholarPhone, error) {
	const query = `SELECT spn.id, spn.scholar_id, spn.phone_number_id, pn.number, spn.is_current, spn.is_mobile
        FROM scholar_phone_numbers spn JOIN phone_numbers pn ON pn.id = spn.phone_number_id
        WHERE spn.scholar_id = $1 ORDER BY spn.is_current DESC, spn.id`
	phones := make([]models.ScholarPhone, 0)
	if err := s.db.SelectContext(ctx, &phones, query, scholarID); err != nil {
		return nil, fmt.Errorf("list scholar phones: %w", err)
	}
	return phones, nil
}

// PruneOrphans deletes pooled numbers among ids that lost every link.
func (s *PooledPhoneStore) PruneOrphans(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM phone_numbers pn WHERE pn.id = ANY($1)
        AND NOT EXISTS (SELECT 1 FROM scholar_phone_numbers spn WHERE spn.phone_number_id = pn.id)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune phone numbers: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// LogbookSortColumns maps the sort keys accepted by logbook lists to columns.
var LogbookSortColumns = map[string]string{
	"date":       "l.date",
	"created_at": "l.created_at",
}

// LogbookRepository manages persistence for logbook entries.
type LogbookRepository struct {
	db Queryer
}

// NewLogbookRepository constructs a LogbookRepository.
func NewLogbookRepository(db Queryer) *LogbookRepository {
	return &LogbookRepository{db: db}
}

// Create appends an entry and sets its id.
func (r *LogbookRepository) Create(ctx context.Context, entry *models.LogbookEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.Date.IsZero() {
		entry.Date = now
	}
	const query = `INSERT INTO scholars_logbook (scholar_id, log, date, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &entry.ID, query, entry.ScholarID, entry.Log, entry.Date, entry.CreatedBy, entry.CreatedAt); err != nil {
		return fmt.Errorf("create logbook entry: %w", err)
	}
	return nil
}

// FindByID fetches an entry.
func (r *LogbookRepository) FindByID(ctx context.Context, id int64) (*models.LogbookEntry, error) {
	var entry models.LogbookEntry
	const query = `SELECT id, scholar_id, log, date, created_by, created_at FROM scholars_logbook WHERE id = $1`
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an entry.
func (r *LogbookRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scholars_logbook WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete logbook entry: %w", err)
	}
	return expectAffected(res, "delete logbook entry")
}

// DeleteByScholar removes every entry of the scholar.
func (r *LogbookRepository) DeleteByScholar(ctx context.Context, scholarID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scholars_logbook WHERE scholar_id = $1`, scholarID); err != nil {
		return fmt.Errorf("delete logbook entries: %w", err)
	}
	return nil
}

// List returns one page of entries with scholar and author names.
func (r *LogbookRepository) List(ctx context.Context, q pagination.Query[models.LogbookFilter]) ([]models.LogbookEntryDetail, error) {
	where, args := logbookWhere(q.Where)
	query := fmt.Sprintf(`SELECT l.id, l.scholar_id, l.log, l.date, l.created_by, l.created_at,
        sa.first_name || ' ' || sa.last_name AS scholar_name,
        NULLIF(TRIM(COALESCE(au.first_name, '') || ' ' || COALESCE(au.last_name, '')), '') AS author_name
        FROM scholars_logbook l
        JOIN scholars s ON s.id = l.scholar_id
        JOIN accounts sa ON sa.id = s.account_id
        LEFT JOIN accounts au ON au.id = l.created_by
        WHERE %s %s %s`, where, orderClause(q.OrderBy, "l.date DESC", "l.id DESC"), limitClause(q.Take, q.Skip))
	entries := make([]models.LogbookEntryDetail, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list logbook entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching filter.
func (r *LogbookRepository) Count(ctx context.Context, filter models.LogbookFilter) (int, error) {
	where, args := logbookWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scholars_logbook l WHERE "+where, args...); err != nil {
		return 0, fmt.Errorf("count logbook entries: %w", err)
	}
	return total, nil
}

func logbookWhere(filter models.LogbookFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.ScholarID != "" {
		args = append(args, filter.ScholarID)
		conditions = append(conditions, fmt.Sprintf("l.scholar_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf("l.log ILIKE $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

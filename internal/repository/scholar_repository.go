package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

const scholarColumns = `s.id, s.account_id, s.dob, s.gender, s.has_disability, s.disability_description, s.number_of_children,
        s.ingress_date, s.egress_date, s.egress_comments, s.emergency_contact_name, s.emergency_contact_phone,
        s.emergency_contact_relationship, s.dui, s.state, s.created_at, s.created_by`

const scholarSummaryColumns = `s.id, s.account_id, a.first_name, a.last_name, a.email, a.ref_code, a.profile_img_src,
        s.dob, s.state, s.ingress_date, s.created_at`

// ScholarSortColumns maps public sort keys onto qualified columns. Account
// fields and scholar fields share one namespace.
var ScholarSortColumns = map[string]string{
	"first_name":         "a.first_name",
	"last_name":          "a.last_name",
	"email":              "a.email",
	"ref_code":           "a.ref_code",
	"dob":                "s.dob",
	"gender":             "s.gender",
	"state":              "s.state",
	"ingress_date":       "s.ingress_date",
	"egress_date":        "s.egress_date",
	"number_of_children": "s.number_of_children",
	"created_at":         "s.created_at",
}

// ScholarRepository manages persistence for scholar rows.
type ScholarRepository struct {
	db Queryer
}

// NewScholarRepository constructs a ScholarRepository.
func NewScholarRepository(db Queryer) *ScholarRepository {
	return &ScholarRepository{db: db}
}

// Create inserts a scholar row.
func (r *ScholarRepository) Create(ctx context.Context, scholar *models.Scholar) error {
	if scholar.ID == "" {
		scholar.ID = uuid.NewString()
	}
	if scholar.CreatedAt.IsZero() {
		scholar.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scholars (id, account_id, dob, gender, has_disability, disability_description, number_of_children,
        ingress_date, egress_date, egress_comments, emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
        dui, state, created_at, created_by)
        VALUES (:id, :account_id, :dob, :gender, :has_disability, :disability_description, :number_of_children,
        :ingress_date, :egress_date, :egress_comments, :emergency_contact_name, :emergency_contact_phone, :emergency_contact_relationship,
        :dui, :state, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, scholar); err != nil {
		return fmt.Errorf("create scholar: %w", err)
	}
	return nil
}

// FindByID fetches a scholar row by id.
func (r *ScholarRepository) FindByID(ctx context.Context, id string) (*models.Scholar, error) {
	var scholar models.Scholar
	if err := r.db.GetContext(ctx, &scholar, "SELECT "+scholarColumns+" FROM scholars s WHERE s.id = $1", id); err != nil {
		return nil, err
	}
	return &scholar, nil
}

// FindByAccountID fetches the scholar row owned by an account.
func (r *ScholarRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Scholar, error) {
	var scholar models.Scholar
	if err := r.db.GetContext(ctx, &scholar, "SELECT "+scholarColumns+" FROM scholars s WHERE s.account_id = $1", accountID); err != nil {
		return nil, err
	}
	return &scholar, nil
}

// Update writes every scalar column of a scholar.
func (r *ScholarRepository) Update(ctx context.Context, scholar *models.Scholar) error {
	const query = `UPDATE scholars SET dob = :dob, gender = :gender, has_disability = :has_disability,
        disability_description = :disability_description, number_of_children = :number_of_children,
        ingress_date = :ingress_date, egress_date = :egress_date, egress_comments = :egress_comments,
        emergency_contact_name = :emergency_contact_name, emergency_contact_phone = :emergency_contact_phone,
        emergency_contact_relationship = :emergency_contact_relationship, dui = :dui, state = :state
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, scholar)
	if err != nil {
		return fmt.Errorf("update scholar: %w", err)
	}
	return expectAffected(res, "update scholar")
}

// Delete removes a scholar row.
func (r *ScholarRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scholars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scholar: %w", err)
	}
	return expectAffected(res, "delete scholar")
}

// List returns one page of scholars joined with their accounts.
func (r *ScholarRepository) List(ctx context.Context, q pagination.Query[models.ScholarFilter]) ([]models.ScholarSummary, error) {
	where, args := scholarWhere(q.Where)
	query := fmt.Sprintf("SELECT %s FROM scholars s JOIN accounts a ON a.id = s.account_id WHERE %s %s %s",
		scholarSummaryColumns, where, orderClause(q.OrderBy, "s.created_at DESC", "s.id"), limitClause(q.Take, q.Skip))
	scholars := make([]models.ScholarSummary, 0)
	if err := r.db.SelectContext(ctx, &scholars, query, args...); err != nil {
		return nil, fmt.Errorf("list scholars: %w", err)
	}
	return scholars, nil
}

// Count returns the number of scholars matching filter.
func (r *ScholarRepository) Count(ctx context.Context, filter models.ScholarFilter) (int, error) {
	where, args := scholarWhere(filter)
	var total int
	query := "SELECT COUNT(*) FROM scholars s JOIN accounts a ON a.id = s.account_id WHERE " + where
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count scholars: %w", err)
	}
	return total, nil
}

// ListIDs returns the id of every scholar.
func (r *ScholarRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM scholars ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("list scholar ids: %w", err)
	}
	return ids, nil
}

func scholarWhere(filter models.ScholarFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(a.first_name ILIKE $%d OR a.last_name ILIKE $%d OR a.ref_code ILIKE $%d)", n, n, n))
	}
	if filter.State != nil {
		args = append(args, string(*filter.State))
		conditions = append(conditions, fmt.Sprintf("s.state = $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

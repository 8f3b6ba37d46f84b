package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

const accountColumns = "a.id, a.email, a.first_name, a.last_name, a.roles, a.ref_code, a.profile_img_src, a.created_at, a.updated_at"

// AccountSortColumns maps the sort keys accepted by account lists to columns.
var AccountSortColumns = map[string]string{
	"email":      "a.email",
	"first_name": "a.first_name",
	"last_name":  "a.last_name",
	"ref_code":   "a.ref_code",
	"created_at": "a.created_at",
}

// AccountRepository manages persistence for accounts.
type AccountRepository struct {
	db Queryer
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(db Queryer) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Email is stored lower-cased.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	const query = `INSERT INTO accounts (id, email, first_name, last_name, roles, ref_code, profile_img_src, created_at, updated_at)
        VALUES (:id, :email, :first_name, :last_name, :roles, :ref_code, :profile_img_src, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// FindByID fetches an account by id.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	query := "SELECT " + accountColumns + " FROM accounts a WHERE a.id = $1"
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail fetches an account by its case-insensitive email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	query := "SELECT " + accountColumns + " FROM accounts a WHERE a.email = $1"
	if err := r.db.GetContext(ctx, &account, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &account, nil
}

// RefCodeExists reports whether a reference code is already assigned.
func (r *AccountRepository) RefCodeExists(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM accounts WHERE ref_code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check ref code: %w", err)
	}
	return true, nil
}

// Update writes the contact fields of an account. Roles and ref code are not touched.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	const query = `UPDATE accounts SET email = :email, first_name = :first_name, last_name = :last_name, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return expectAffected(res, "update account")
}

// UpdateRoles replaces the roles of an account.
func (r *AccountRepository) UpdateRoles(ctx context.Context, id string, roles []models.Role) error {
	values := make([]string, len(roles))
	for i, role := range roles {
		values[i] = string(role)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET roles = $2, updated_at = $3 WHERE id = $1`, id, pq.Array(values), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update roles: %w", err)
	}
	return expectAffected(res, "update roles")
}

// UpdateProfileImage sets or clears the profile image reference.
func (r *AccountRepository) UpdateProfileImage(ctx context.Context, id string, src *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET profile_img_src = $2, updated_at = $3 WHERE id = $1`, id, src, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	return expectAffected(res, "update profile image")
}

// Delete removes an account.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// List returns one page of accounts matching the query predicate.
func (r *AccountRepository) List(ctx context.Context, q pagination.Query[models.AccountFilter]) ([]models.Account, error) {
	where, args := accountWhere(q.Where)
	query := fmt.Sprintf("SELECT %s FROM accounts a WHERE %s %s %s", accountColumns, where,
		orderClause(q.OrderBy, "a.last_name ASC", "a.id"), limitClause(q.Take, q.Skip))
	accounts := make([]models.Account, 0)
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Count returns the number of accounts matching filter.
func (r *AccountRepository) Count(ctx context.Context, filter models.AccountFilter) (int, error) {
	where, args := accountWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM accounts a WHERE "+where, args...); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return total, nil
}

// ListAll returns every account ordered by last name.
func (r *AccountRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	accounts := make([]models.Account, 0)
	query := "SELECT " + accountColumns + " FROM accounts a ORDER BY LOWER(a.last_name), a.id"
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list all accounts: %w", err)
	}
	return accounts, nil
}

func accountWhere(filter models.AccountFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(a.first_name ILIKE $%d OR a.last_name ILIKE $%d OR a.ref_code ILIKE $%d)", n, n, n))
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(a.roles)", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

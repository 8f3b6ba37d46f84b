package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// IdentityRepository is the credential store behind the identity gateway.
// It is written outside the aggregate transaction.
type IdentityRepository struct {
	db Queryer
}

// NewIdentityRepository constructs an IdentityRepository.
func NewIdentityRepository(db Queryer) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create stores a credential.
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	const query = `INSERT INTO identities (account_id, email, password_hash, created_at, updated_at)
        VALUES (:account_id, :email, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// FindByEmail fetches a credential by email.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	const query = `SELECT account_id, email, password_hash, created_at, updated_at FROM identities WHERE email = $1`
	if err := r.db.GetContext(ctx, &identity, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &identity, nil
}

// FindByAccountID fetches the credential of an account.
func (r *IdentityRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Identity, error) {
	var identity models.Identity
	const query = `SELECT account_id, email, password_hash, created_at, updated_at FROM identities WHERE account_id = $1`
	if err := r.db.GetContext(ctx, &identity, query, accountID); err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpdateEmail changes the sign-in email of an account.
func (r *IdentityRepository) UpdateEmail(ctx context.Context, accountID, email string) error {
	const query = `UPDATE identities SET email = $2, updated_at = $3 WHERE account_id = $1`
	res, err := r.db.ExecContext(ctx, query, accountID, strings.ToLower(strings.TrimSpace(email)), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update identity email: %w", err)
	}
	return expectAffected(res, "update identity email")
}

// UpdatePassword replaces the password hash of an account.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, accountID, hash string) error {
	const query = `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE account_id = $1`
	res, err := r.db.ExecContext(ctx, query, accountID, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update identity password: %w", err)
	}
	return expectAffected(res, "update identity password")
}

// Delete removes the credential of an account. Missing rows are not an error.
func (r *IdentityRepository) Delete(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

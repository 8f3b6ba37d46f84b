package repository

import (
	"context"
	"fmt"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// ChildBankAccountStore keeps bank accounts as children of the scholar.
type ChildBankAccountStore struct {
	db Queryer
}

// NewBankAccountStore constructs the BankAccountStore.
func NewBankAccountStore(db Queryer) *ChildBankAccountStore {
	return &ChildBankAccountStore{db: db}
}

// Create inserts a bank account and sets its id.
func (s *ChildBankAccountStore) Create(ctx context.Context, account *models.BankAccount) error {
	const query = `INSERT INTO bank_accounts (scholar_id, bank_id, account_holder, account_number, account_type, is_primary)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := s.db.GetContext(ctx, &account.ID, query, account.ScholarID, account.BankID, account.AccountHolder,
		account.AccountNumber, account.AccountType, account.IsPrimary); err != nil {
		return fmt.Errorf("create bank account: %w", err)
	}
	return nil
}

// FindByID fetches a bank account that belongs to the scholar.
func (s *ChildBankAccountStore) FindByID(ctx context.Context, scholarID string, id int64) (*models.BankAccount, error) {
	const query = `SELECT id, scholar_id, bank_id, account_holder, account_number, account_type, is_primary
        FROM bank_accounts WHERE id = $1 AND scholar_id = $2`
	var account models.BankAccount
	if err := s.db.GetContext(ctx, &account, query, id, scholarID); err != nil {
		return nil, err
	}
	return &account, nil
}

// Update rewrites a bank account. The primary flag is managed by SetPrimary.
func (s *ChildBankAccountStore) Update(ctx context.Context, account *models.BankAccount) error {
	const query = `UPDATE bank_accounts SET bank_id = :bank_id, account_holder = :account_holder,
        account_number = :account_number, account_type = :account_type
        WHERE id = :id AND scholar_id = :scholar_id`
	res, err := s.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return fmt.Errorf("update bank account: %w", err)
	}
	return expectAffected(res, "update bank account")
}

// SetPrimary makes id the only primary account of the scholar.
func (s *ChildBankAccountStore) SetPrimary(ctx context.Context, scholarID string, id int64) error {
	const query = `UPDATE bank_accounts SET is_primary = (id = $2)
        WHERE scholar_id = $1 AND (is_primary OR id = $2)`
	res, err := s.db.ExecContext(ctx, query, scholarID, id)
	if err != nil {
		return fmt.Errorf("set primary bank account: %w", err)
	}
	return expectAffected(res, "set primary bank account")
}

// DeleteByScholar removes every bank account of the scholar.
func (s *ChildBankAccountStore) DeleteByScholar(ctx context.Context, scholarID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE scholar_id = $1`, scholarID); err != nil {
		return fmt.Errorf("delete bank accounts: %w", err)
	}
	return nil
}

// ListByScholar returns the scholar's accounts with bank details, primary first.
func (s *ChildBankAccountStore) ListByScholar(ctx context.Context, scholarID string) ([]models.BankAccountDetail, error) {
	const query = `SELECT ba.id, ba.scholar_id, ba.bank_id, ba.account_holder, ba.account_number, ba.account_type, ba.is_primary,
        b.name AS bank_name, b.logo_src AS bank_logo_src
        FROM bank_accounts ba JOIN banks b ON b.id = ba.bank_id
        WHERE ba.scholar_id = $1 ORDER BY ba.is_primary DESC, ba.id`
	accounts := make([]models.BankAccountDetail, 0)
	if err := s.db.SelectContext(ctx, &accounts, query, scholarID); err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	return accounts, nil
}

package repository

import (
	"context"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// AccountStore persists accounts.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	RefCodeExists(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, account *models.Account) error
	UpdateRoles(ctx context.Context, id string, roles []models.Role) error
	UpdateProfileImage(ctx context.Context, id string, src *string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q pagination.Query[models.AccountFilter]) ([]models.Account, error)
	Count(ctx context.Context, filter models.AccountFilter) (int, error)
}

// ScholarStore persists scholar rows.
type ScholarStore interface {
	Create(ctx context.Context, scholar *models.Scholar) error
	FindByID(ctx context.Context, id string) (*models.Scholar, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Scholar, error)
	Update(ctx context.Context, scholar *models.Scholar) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q pagination.Query[models.ScholarFilter]) ([]models.ScholarSummary, error)
	Count(ctx context.Context, filter models.ScholarFilter) (int, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// AddressStore manages pooled addresses and their scholar links.
type AddressStore interface {
	Create(ctx context.Context, address *models.Address) error
	FindByID(ctx context.Context, id int64) (*models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	Link(ctx context.Context, link models.AddressLink) error
	// CountLinks returns how many scholars share the address.
	CountLinks(ctx context.Context, addressID int64) (int, error)
	// Relink moves the scholar's link from one address to another with its flags intact.
	Relink(ctx context.Context, scholarID string, fromID, toID int64) error
	// SetCurrent makes addressID the only current address of the scholar in a single statement.
	SetCurrent(ctx context.Context, scholarID string, addressID int64) error
	Unlink(ctx context.Context, scholarID string, addressID int64) error
	UnlinkAll(ctx context.Context, scholarID string) ([]int64, error)
	ListByScholar(ctx context.Context, scholarID string) ([]models.AddressDetail, error)
	// PruneOrphans deletes the given addresses when no scholar links them anymore.
	PruneOrphans(ctx context.Context, ids []int64) error
}

// PhoneStore manages pooled phone numbers and their scholar links.
type PhoneStore interface {
	// Upsert returns the id of number in the pool, inserting it when new.
	Upsert(ctx context.Context, number string) (int64, error)
	Link(ctx context.Context, link *models.ScholarPhone) error
	UpdateLink(ctx context.Context, link *models.ScholarPhone) error
	FindLink(ctx context.Context, scholarID string, linkID int64) (*models.ScholarPhone, error)
	DeleteLink(ctx context.Context, scholarID string, linkID int64) error
	DeleteLinks(ctx context.Context, scholarID string) ([]int64, error)
	ListByScholar(ctx context.Context, scholarID string) ([]models.ScholarPhone, error)
	PruneOrphans(ctx context.Context, ids []int64) error
}

// BankAccountStore manages scholar bank accounts.
type BankAccountStore interface {
	Create(ctx context.Context, account *models.BankAccount) error
	FindByID(ctx context.Context, scholarID string, id int64) (*models.BankAccount, error)
	Update(ctx context.Context, account *models.BankAccount) error
	// SetPrimary makes id the only primary account of the scholar in a single statement.
	SetPrimary(ctx context.Context, scholarID string, id int64) error
	DeleteByScholar(ctx context.Context, scholarID string) error
	ListByScholar(ctx context.Context, scholarID string) ([]models.BankAccountDetail, error)
}

// ReportStore bulk-loads the scholars report projections.
type ReportStore interface {
	ScholarRows(ctx context.Context) ([]models.ScholarReportRow, error)
	CurrentPhones(ctx context.Context) (map[string][]string, error)
	OriginAddresses(ctx context.Context) (map[string]models.AddressDetail, error)
	PrimaryBankAccounts(ctx context.Context) (map[string]models.BankAccountDetail, error)
}

// LogbookStore persists logbook entries.
type LogbookStore interface {
	Create(ctx context.Context, entry *models.LogbookEntry) error
	FindByID(ctx context.Context, id int64) (*models.LogbookEntry, error)
	Delete(ctx context.Context, id int64) error
	DeleteByScholar(ctx context.Context, scholarID string) error
	List(ctx context.Context, q pagination.Query[models.LogbookFilter]) ([]models.LogbookEntryDetail, error)
	Count(ctx context.Context, filter models.LogbookFilter) (int, error)
}

package models

// BankAccountType enumerates account kinds.
type BankAccountType string

const (
	BankAccountSavings  BankAccountType = "SAVINGS"
	BankAccountChecking BankAccountType = "CHECKING"
)

// Valid reports whether t is an enumerated type.
func (t BankAccountType) Valid() bool {
	return t == BankAccountSavings || t == BankAccountChecking
}

// Label returns the display name used in reports.
func (t BankAccountType) Label() string {
	if t == BankAccountSavings {
		return "Ahorro"
	}
	return "Corriente"
}

// Bank is a catalog entry.
type Bank struct {
	ID      int     `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	LogoSrc *string `db:"logo_src" json:"logo_src,omitempty"`
	LogoURL *string `db:"-" json:"logo_url,omitempty"`
}

// BankAccount is a scholar's account. At most one per scholar is primary.
type BankAccount struct {
	ID            int64           `db:"id" json:"id"`
	ScholarID     string          `db:"scholar_id" json:"scholar_id"`
	BankID        int             `db:"bank_id" json:"bank_id"`
	AccountHolder string          `db:"account_holder" json:"account_holder"`
	AccountNumber string          `db:"account_number" json:"account_number"`
	AccountType   BankAccountType `db:"account_type" json:"account_type"`
	IsPrimary     bool            `db:"is_primary" json:"is_primary"`
}

// BankAccountDetail adds the bank catalog fields.
type BankAccountDetail struct {
	BankAccount
	BankName    string  `db:"bank_name" json:"bank_name"`
	BankLogoSrc *string `db:"bank_logo_src" json:"bank_logo_src,omitempty"`
}

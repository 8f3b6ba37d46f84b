package models

import "time"

// ScholarState is the lifecycle state of a scholar.
type ScholarState string

const (
	ScholarStateActive    ScholarState = "ACTIVE"
	ScholarStateInactive  ScholarState = "INACTIVE"
	ScholarStateGraduated ScholarState = "GRADUATED"
	ScholarStateSuspended ScholarState = "SUSPENDED"
)

// Valid reports whether s is an enumerated state.
func (s ScholarState) Valid() bool {
	switch s {
	case ScholarStateActive, ScholarStateInactive, ScholarStateGraduated, ScholarStateSuspended:
		return true
	}
	return false
}

// Scholar is a program beneficiary. It always belongs to exactly one account.
type Scholar struct {
	ID                           string       `db:"id" json:"id"`
	AccountID                    string       `db:"account_id" json:"account_id"`
	DOB                          time.Time    `db:"dob" json:"dob"`
	Gender                       *string      `db:"gender" json:"gender,omitempty"`
	HasDisability                bool         `db:"has_disability" json:"has_disability"`
	DisabilityDescription        *string      `db:"disability_description" json:"disability_description,omitempty"`
	NumberOfChildren             int          `db:"number_of_children" json:"number_of_children"`
	IngressDate                  time.Time    `db:"ingress_date" json:"ingress_date"`
	EgressDate                   *time.Time   `db:"egress_date" json:"egress_date,omitempty"`
	EgressComments               *string      `db:"egress_comments" json:"egress_comments,omitempty"`
	EmergencyContactName         string       `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone        string       `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	EmergencyContactRelationship string       `db:"emergency_contact_relationship" json:"emergency_contact_relationship"`
	DUI                          *string      `db:"dui" json:"dui,omitempty"`
	State                        ScholarState `db:"state" json:"state"`
	CreatedAt                    time.Time    `db:"created_at" json:"created_at"`
	CreatedBy                    *string      `db:"created_by" json:"created_by,omitempty"`
}

// ScholarFilter is the list predicate for scholars. A nil State matches every state.
type ScholarFilter struct {
	Search string
	State  *ScholarState
}

// ScholarSummary is a list row: the scholar joined with its account.
type ScholarSummary struct {
	ID            string       `db:"id" json:"id"`
	AccountID     string       `db:"account_id" json:"account_id"`
	FirstName     string       `db:"first_name" json:"first_name"`
	LastName      string       `db:"last_name" json:"last_name"`
	Email         string       `db:"email" json:"email"`
	RefCode       string       `db:"ref_code" json:"ref_code"`
	ProfileImgSrc *string      `db:"profile_img_src" json:"profile_img_src,omitempty"`
	DOB           time.Time    `db:"dob" json:"dob"`
	State         ScholarState `db:"state" json:"state"`
	IngressDate   time.Time    `db:"ingress_date" json:"ingress_date"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// ScholarDetail is the read model of the whole aggregate.
type ScholarDetail struct {
	Scholar
	Account        Account             `json:"account"`
	CurrentAddress *AddressDetail      `json:"current_address"`
	OriginAddress  *AddressDetail      `json:"origin_address"`
	Addresses      []AddressDetail     `json:"addresses"`
	PhoneNumbers   []ScholarPhone      `json:"phone_numbers"`
	BankAccounts   []BankAccountDetail `json:"bank_accounts"`
}

// CurrentPhones returns the numbers flagged current.
func (d ScholarDetail) CurrentPhones() []string {
	numbers := make([]string, 0, len(d.PhoneNumbers))
	for _, p := range d.PhoneNumbers {
		if p.IsCurrent {
			numbers = append(numbers, p.Number)
		}
	}
	return numbers
}

// PrimaryBankAccount returns the primary account, falling back to the first one.
func (d ScholarDetail) PrimaryBankAccount() *BankAccountDetail {
	for i := range d.BankAccounts {
		if d.BankAccounts[i].IsPrimary {
			return &d.BankAccounts[i]
		}
	}
	if len(d.BankAccounts) > 0 {
		return &d.BankAccounts[0]
	}
	return nil
}

// AgeAt returns the completed years between dob and now.
func AgeAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

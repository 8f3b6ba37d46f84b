package dto

import "github.com/muchasmas/scholarship-api/internal/models"

// AddressInput describes an address. ID selects an existing linked address on update.
type AddressInput struct {
	ID          *int64  `json:"id"`
	StreetLine1 string  `json:"streetLine1" validate:"required,max=255"`
	StreetLine2 *string `json:"streetLine2" validate:"omitempty,max=255"`
	DistrictID  int     `json:"districtId" validate:"required,gt=0"`
	IsUrban     bool    `json:"isUrban"`
}

// PhoneInput describes a phone number. ID is the scholar's phone link id.
type PhoneInput struct {
	ID        *int64 `json:"id"`
	Number    string `json:"number" validate:"required,max=20"`
	IsCurrent bool   `json:"isCurrent"`
	IsMobile  bool   `json:"isMobile"`
}

// BankAccountInput describes a bank account. IsPrimary defaults to true.
type BankAccountInput struct {
	ID            *int64                 `json:"id"`
	AccountHolder string                 `json:"accountHolder" validate:"required,max=100"`
	AccountNumber string                 `json:"accountNumber" validate:"required,max=34"`
	AccountType   models.BankAccountType `json:"accountType" validate:"required,oneof=SAVINGS CHECKING"`
	BankID        int                    `json:"bankId" validate:"required,gt=0"`
	IsPrimary     *bool                  `json:"isPrimary"`
}

// Primary resolves the defaulted primary flag.
func (b BankAccountInput) Primary() bool {
	return b.IsPrimary == nil || *b.IsPrimary
}

// CreateScholarRequest provisions an account and a scholar with its sub-entities.
// The first address becomes the origin address and the last one the current
// address unless CurrentAddressID links an existing address instead.
type CreateScholarRequest struct {
	Email                        string              `json:"email" validate:"required,email,max=254"`
	Password                     string              `json:"password" validate:"required,min=8,max=72"`
	FirstName                    string              `json:"firstName" validate:"required,max=100"`
	LastName                     string              `json:"lastName" validate:"required,max=100"`
	DOB                          Date                `json:"dob" validate:"required"`
	Gender                       *string             `json:"gender" validate:"omitempty,max=20"`
	HasDisability                bool                `json:"hasDisability"`
	DisabilityDescription        *string             `json:"disabilityDescription" validate:"omitempty,max=500"`
	NumberOfChildren             int                 `json:"numberOfChildren" validate:"gte=0"`
	IngressDate                  Date                `json:"ingressDate" validate:"required"`
	EmergencyContactName         string              `json:"emergencyContactName" validate:"required,max=100"`
	EmergencyContactPhone        string              `json:"emergencyContactPhone" validate:"required,max=15"`
	EmergencyContactRelationship string              `json:"emergencyContactRelationship" validate:"required,max=30"`
	DUI                          *string             `json:"dui" validate:"omitempty,max=10"`
	State                        models.ScholarState `json:"state" validate:"required,oneof=ACTIVE INACTIVE GRADUATED SUSPENDED"`
	CurrentAddressID             *int64              `json:"currentAddressId" validate:"omitempty,gt=0"`
	Addresses                    []AddressInput      `json:"addresses" validate:"omitempty,dive"`
	PhoneNumbers                 []PhoneInput        `json:"phoneNumbers" validate:"omitempty,dive"`
	BankAccounts                 []BankAccountInput  `json:"bankAccounts" validate:"omitempty,dive"`
}

// UpdateScholarRequest is a partial update. Absent fields are left untouched.
// Sub-entity lists are merged by id: entries with an id are updated in place,
// entries without one are inserted.
type UpdateScholarRequest struct {
	Email                        models.Optional[string]              `json:"email" validate:"omitempty,email,max=254"`
	FirstName                    models.Optional[string]              `json:"firstName" validate:"omitempty,max=100"`
	LastName                     models.Optional[string]              `json:"lastName" validate:"omitempty,max=100"`
	DOB                          models.Optional[Date]                `json:"dob"`
	Gender                       models.Optional[*string]             `json:"gender" validate:"omitempty,max=20"`
	HasDisability                models.Optional[bool]                `json:"hasDisability"`
	DisabilityDescription        models.Optional[*string]             `json:"disabilityDescription" validate:"omitempty,max=500"`
	NumberOfChildren             models.Optional[int]                 `json:"numberOfChildren" validate:"omitempty,gte=0"`
	IngressDate                  models.Optional[Date]                `json:"ingressDate"`
	EgressDate                   models.Optional[*Date]               `json:"egressDate"`
	EgressComments               models.Optional[*string]             `json:"egressComments" validate:"omitempty,max=500"`
	EmergencyContactName         models.Optional[string]              `json:"emergencyContactName" validate:"omitempty,max=100"`
	EmergencyContactPhone        models.Optional[string]              `json:"emergencyContactPhone" validate:"omitempty,max=15"`
	EmergencyContactRelationship models.Optional[string]              `json:"emergencyContactRelationship" validate:"omitempty,max=30"`
	DUI                          models.Optional[*string]             `json:"dui" validate:"omitempty,max=10"`
	State                        models.Optional[models.ScholarState] `json:"state" validate:"omitempty,oneof=ACTIVE INACTIVE GRADUATED SUSPENDED"`
	CurrentAddressID             models.Optional[int64]               `json:"currentAddressId"`
	Addresses                    []AddressInput                       `json:"addresses" validate:"omitempty,dive"`
	PhoneNumbers                 []PhoneInput                         `json:"phoneNumbers" validate:"omitempty,dive"`
	BankAccounts                 []BankAccountInput                   `json:"bankAccounts" validate:"omitempty,dive"`
}

// BlankRequiredFields lists present fields that must not be blank when set.
func (r UpdateScholarRequest) BlankRequiredFields() []string {
	var blank []string
	check := func(name string, o models.Optional[string]) {
		if v, ok := o.Get(); ok && isBlank(v) {
			blank = append(blank, name)
		}
	}
	check("email", r.Email)
	check("firstName", r.FirstName)
	check("lastName", r.LastName)
	check("emergencyContactName", r.EmergencyContactName)
	check("emergencyContactPhone", r.EmergencyContactPhone)
	check("emergencyContactRelationship", r.EmergencyContactRelationship)
	if d, ok := r.DOB.Get(); ok && d.IsZero() {
		blank = append(blank, "dob")
	}
	if d, ok := r.IngressDate.Get(); ok && d.IsZero() {
		blank = append(blank, "ingressDate")
	}
	if s, ok := r.State.Get(); ok && s == "" {
		blank = append(blank, "state")
	}
	return blank
}

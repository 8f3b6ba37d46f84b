package models

import "time"

// ScholarReportRow is the flat scholar+account projection used by the scholars report.
type ScholarReportRow struct {
	ScholarID                    string       `db:"scholar_id"`
	RefCode                      string       `db:"ref_code"`
	FirstName                    string       `db:"first_name"`
	LastName                     string       `db:"last_name"`
	Email                        string       `db:"email"`
	DOB                          time.Time    `db:"dob"`
	DUI                          *string      `db:"dui"`
	State                        ScholarState `db:"state"`
	EmergencyContactName         string       `db:"emergency_contact_name"`
	EmergencyContactPhone        string       `db:"emergency_contact_phone"`
	EmergencyContactRelationship string       `db:"emergency_contact_relationship"`
}

// ScholarPhoneRow is one current number of a scholar.
type ScholarPhoneRow struct {
	ScholarID string `db:"scholar_id"`
	Number    string `db:"number"`
}

// ScholarAddressRow is an address detail tagged with its scholar.
type ScholarAddressRow struct {
	ScholarID string `db:"scholar_id"`
	AddressDetail
}

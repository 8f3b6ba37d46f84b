package models

// PhoneNumber is a pooled number, unique by its raw value.
type PhoneNumber struct {
	ID     int64  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`
}

// ScholarPhone links a scholar to a pooled number. ID is the link id.
type ScholarPhone struct {
	ID            int64  `db:"id" json:"id"`
	ScholarID     string `db:"scholar_id" json:"scholar_id"`
	PhoneNumberID int64  `db:"phone_number_id" json:"phone_number_id"`
	Number        string `db:"number" json:"number"`
	IsCurrent     bool   `db:"is_current" json:"is_current"`
	IsMobile      bool   `db:"is_mobile" json:"is_mobile"`
}

package dto

// CreateLogbookEntryRequest adds a manual note. Date defaults to today.
type CreateLogbookEntryRequest struct {
	Log  string `json:"log" validate:"required,max=2000"`
	Date *Date  `json:"date"`
}

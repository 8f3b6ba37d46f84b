package models

import "time"

// LogbookEntry is an append-only note attached to a scholar.
type LogbookEntry struct {
	ID        int64     `db:"id" json:"id"`
	ScholarID string    `db:"scholar_id" json:"scholar_id"`
	Log       string    `db:"log" json:"log"`
	Date      time.Time `db:"date" json:"date"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LogbookEntryDetail joins the entry with the author and scholar names.
type LogbookEntryDetail struct {
	LogbookEntry
	ScholarName string  `db:"scholar_name" json:"scholar_name"`
	AuthorName  *string `db:"author_name" json:"author_name,omitempty"`
}

// LogbookFilter narrows logbook listings.
type LogbookFilter struct {
	ScholarID string
	Search    string
}

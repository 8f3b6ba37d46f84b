package models

import (
	"strings"
	"time"
)

// Department is the top level of the geography catalog.
type Department struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Municipality belongs to a department.
type Municipality struct {
	ID           int    `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	DepartmentID int    `db:"department_id" json:"department_id"`
}

// District belongs to a municipality.
type District struct {
	ID             int    `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	MunicipalityID int    `db:"municipality_id" json:"municipality_id"`
}

// Address is a pooled street address linked to scholars through scholar_addresses.
type Address struct {
	ID          int64     `db:"id" json:"id"`
	StreetLine1 string    `db:"street_line_1" json:"street_line_1"`
	StreetLine2 *string   `db:"street_line_2" json:"street_line_2,omitempty"`
	DistrictID  int       `db:"district_id" json:"district_id"`
	IsUrban     bool      `db:"is_urban" json:"is_urban"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
}

// AddressLink attaches a pooled address to a scholar. A scholar has at most one
// origin and at most one current address; a single address may be both.
type AddressLink struct {
	ScholarID string `db:"scholar_id"`
	AddressID int64  `db:"address_id"`
	IsOrigin  bool   `db:"is_origin"`
	IsCurrent bool   `db:"is_current"`
}

// AddressDetail is an address linked to a scholar with its geography resolved.
type AddressDetail struct {
	Address
	IsOrigin         bool   `db:"is_origin" json:"is_origin"`
	IsCurrent        bool   `db:"is_current" json:"is_current"`
	DistrictName     string `db:"district_name" json:"district"`
	MunicipalityID   int    `db:"municipality_id" json:"municipality_id"`
	MunicipalityName string `db:"municipality_name" json:"municipality"`
	DepartmentID     int    `db:"department_id" json:"department_id"`
	DepartmentName   string `db:"department_name" json:"department"`
}

// String renders the address on one line.
func (a AddressDetail) String() string {
	parts := []string{a.StreetLine1}
	if a.StreetLine2 != nil && *a.StreetLine2 != "" {
		parts = append(parts, *a.StreetLine2)
	}
	for _, p := range []string{a.DistrictName, a.MunicipalityName, a.DepartmentName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

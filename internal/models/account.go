package models

import (
	"time"

	"github.com/lib/pq"
)

// Role is a tag granting access to parts of the back office.
type Role string

const (
	RoleAcademic Role = "ACADEMIC"
	RoleAdmin    Role = "ADMIN"
	RoleFinance  Role = "FINANCE"
	RolePsy      Role = "PSY"
	RoleScholar  Role = "SCHOLAR"
	RoleSPC      Role = "SPC"
	RoleSPCA     Role = "SPCA"
	RoleTutor    Role = "TUTOR"
)

// StaffRoles are every role except SCHOLAR.
var StaffRoles = []Role{RoleAcademic, RoleAdmin, RoleFinance, RolePsy, RoleSPC, RoleSPCA, RoleTutor}

var roleLabels = map[Role]string{
	RoleAcademic: "Académica",
	RoleAdmin:    "Administradora",
	RoleFinance:  "Financiera",
	RolePsy:      "Psicóloga",
	RoleScholar:  "Becaria",
	RoleSPC:      "Coordinadora de programa",
	RoleSPCA:     "Técnica de programa",
	RoleTutor:    "Tutor/Tutora",
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns the display name used in reports. Unknown roles have no label.
func (r Role) Label() string {
	return roleLabels[r]
}

// Account is the identity and contact record shared by scholars and staff.
type Account struct {
	ID            string         `db:"id" json:"id"`
	Email         string         `db:"email" json:"email"`
	FirstName     string         `db:"first_name" json:"first_name"`
	LastName      string         `db:"last_name" json:"last_name"`
	Roles         pq.StringArray `db:"roles" json:"roles"`
	RefCode       string         `db:"ref_code" json:"ref_code"`
	ProfileImgSrc *string        `db:"profile_img_src" json:"profile_img_src,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// RolesOf builds the stored role array.
func RolesOf(roles ...Role) pq.StringArray {
	out := make(pq.StringArray, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RoleList returns the account roles as typed values.
func (a Account) RoleList() []Role {
	roles := make([]Role, 0, len(a.Roles))
	for _, r := range a.Roles {
		roles = append(roles, Role(r))
	}
	return roles
}

// HasRole reports whether the account carries role.
func (a Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// FullName joins first and last name.
func (a Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// AccountFilter is the predicate used by account lists.
type AccountFilter struct {
	Search string
	Role   *Role
}

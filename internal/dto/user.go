package dto

import (
	"strings"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// UpdateUserRequest patches account contact fields.
type UpdateUserRequest struct {
	Email     models.Optional[string] `json:"email" validate:"omitempty,email,max=254"`
	FirstName models.Optional[string] `json:"firstName" validate:"omitempty,max=100"`
	LastName  models.Optional[string] `json:"lastName" validate:"omitempty,max=100"`
}

// BlankRequiredFields lists present fields that must not be blank when set.
func (r UpdateUserRequest) BlankRequiredFields() []string {
	var blank []string
	for name, o := range map[string]models.Optional[string]{"email": r.Email, "firstName": r.FirstName, "lastName": r.LastName} {
		if v, ok := o.Get(); ok && isBlank(v) {
			blank = append(blank, name)
		}
	}
	return blank
}

// UpdateRolesRequest replaces the roles of an account.
type UpdateRolesRequest struct {
	Roles []models.Role `json:"roles" validate:"required,min=1,dive,required"`
}

// UserDetail is an account with a short-lived URL for its profile image.
type UserDetail struct {
	models.Account
	ProfileImgURL *string `json:"profile_img_url,omitempty"`
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

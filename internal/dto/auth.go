package dto

import "github.com/muchasmas/scholarship-api/internal/models"

// SignInRequest holds credentials for authenticating an account.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse returns the issued session and the account.
type SignInResponse struct {
	models.Session
	Account models.Account `json:"account"`
}

// ChangePasswordRequest updates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// PasswordResetRequest starts the reset flow for an email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest completes the reset flow.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// SignUpRequest provisions a staff account with its roles.
type SignUpRequest struct {
	Email     string        `json:"email" validate:"required,email,max=254"`
	Password  string        `json:"password" validate:"required,min=8,max=72"`
	FirstName string        `json:"firstName" validate:"required,max=100"`
	LastName  string        `json:"lastName" validate:"required,max=100"`
	DOB       Date          `json:"dob" validate:"required"`
	Roles     []models.Role `json:"roles" validate:"required,min=1,dive,required"`
}

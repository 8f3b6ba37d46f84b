package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

// Postgres SQLSTATE codes translated by TranslateError.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgStringTooLong       = "22001"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
	pgInvalidTextRepr     = "22P02"
)

var constraintMessages = map[string]string{
	"accounts_email_key":               "email already registered",
	"accounts_ref_code_key":            "reference code already assigned",
	"identities_email_key":             "email already registered",
	"scholars_account_id_key":          "account already has a scholar profile",
	"phone_numbers_number_key":         "phone number already registered",
	"scholar_phone_numbers_unique":     "phone number already linked to scholar",
	"scholar_addresses_one_current":    "scholar already has a current address",
	"scholar_addresses_one_origin":     "scholar already has an origin address",
	"bank_accounts_one_primary":        "scholar already has a primary bank account",
	"addresses_district_id_fkey":       "district does not exist",
	"bank_accounts_bank_id_fkey":       "bank does not exist",
	"scholar_addresses_address_fkey":   "address does not exist",
	"scholars_logbook_scholar_id_fkey": "scholar does not exist",
}

// TranslateError maps a storage error onto the application error taxonomy.
// Driver details stay in the wrapped cause and never reach the message.
func TranslateError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.From(appErrors.ErrNotFound, err, "")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.From(appErrors.ErrStorageFailure, err, "storage operation timed out")
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return appErrors.From(appErrors.ErrStorageFailure, err, message)
	}
	detail := constraintMessages[pqErr.Constraint]
	switch pqErr.Code {
	case pgUniqueViolation, pgExclusionViolation:
		return appErrors.From(appErrors.ErrDuplicateEntity, err, detail)
	case pgForeignKeyViolation:
		return appErrors.From(appErrors.ErrInvalidReference, err, detail)
	case pgStringTooLong, pgCheckViolation, pgInvalidTextRepr:
		return appErrors.From(appErrors.ErrValidation, err, "value rejected by storage constraints")
	default:
		return appErrors.From(appErrors.ErrStorageFailure, err, message)
	}
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation && pqErr.Constraint == constraint
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/logger"
	"github.com/muchasmas/scholarship-api/pkg/refcode"
)

// provisionIdentity registers credentials with the identity provider under a
// bounded deadline.
func provisionIdentity(ctx context.Context, identity IdentityGateway, timeout time.Duration, email, password string) (*models.IdentityHandle, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	handle, err := identity.SignUp(callCtx, email, password)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, appErrors.From(appErrors.ErrUpstreamTimeout, err, "")
		}
		return nil, gatewayError(err, "identity provider rejected sign up")
	}
	return handle, nil
}

// releaseIdentity queues the deletion of an identity whose account was not
// written. The cause is returned when the job is queued; otherwise the caller
// gets ORPHANED_IDENTITY so the identity can be cleaned up by hand.
func releaseIdentity(compensator identityCompensator, log *zap.Logger, handle *models.IdentityHandle, subject string, cause error) error {
	reason := subject + " create failed"
	if compensator != nil {
		if err := compensator.EnqueueIdentityDeletion(handle.AccountID, reason); err == nil {
			return cause
		}
	}
	log.Error("identity orphaned by failed "+subject+" create",
		zap.String("account_id", handle.AccountID), zap.String("email", handle.Email), zap.Error(cause))
	return appErrors.From(appErrors.ErrOrphanedIdentity, cause,
		fmt.Sprintf("identity %s was provisioned but the %s was not saved: %s", handle.AccountID, subject, appErrors.FromError(cause).Message))
}

// dropIdentity deletes the identity of a removed account. Failures are handed
// to the compensation queue.
func dropIdentity(ctx context.Context, identity IdentityGateway, compensator identityCompensator, base *zap.Logger, timeout time.Duration, accountID, reason string) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	err := identity.Delete(callCtx, accountID)
	if err == nil {
		return
	}
	logger.FromContext(ctx, base).Warn("identity deletion failed, scheduling retry", zap.String("account_id", accountID), zap.Error(err))
	if compensator != nil {
		_ = compensator.EnqueueIdentityDeletion(accountID, reason)
	}
}

// assignRefCode returns the canonical code, or a salted variant when it is taken.
func assignRefCode(ctx context.Context, accounts repository.AccountStore, first, last string, dob time.Time, salt func() int) (string, error) {
	code := refcode.Generate(first, last, dob)
	for attempt := 0; attempt <= maxRefCodeAttempts; attempt++ {
		taken, err := accounts.RefCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		code = refcode.GenerateSalted(first, last, dob, salt())
	}
	return "", appErrors.Clone(appErrors.ErrDuplicateEntity, "could not assign a unique reference code")
}

// normalizeRoles upper-cases roles, rejects unknown ones and collapses duplicates.
func normalizeRoles(in []models.Role) ([]models.Role, error) {
	roles := make([]models.Role, 0, len(in))
	seen := make(map[models.Role]struct{}, len(in))
	for _, r := range in {
		r = models.Role(strings.ToUpper(strings.TrimSpace(string(r))))
		if !r.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", r))
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles, nil
}

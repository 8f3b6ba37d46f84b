package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

type memIdentities struct {
	byAccount map[string]models.Identity
}

func (m *memIdentities) Create(_ context.Context, identity *models.Identity) error {
	for _, existing := range m.byAccount {
		if existing.Email == strings.ToLower(identity.Email) {
			return &pq.Error{Code: "23505", Constraint: "identities_email_key"}
		}
	}
	identity.Email = strings.ToLower(identity.Email)
	m.byAccount[identity.AccountID] = *identity
	return nil
}

func (m *memIdentities) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	for _, i := range m.byAccount {
		if i.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &i, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memIdentities) FindByAccountID(_ context.Context, accountID string) (*models.Identity, error) {
	i, ok := m.byAccount[accountID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &i, nil
}

func (m *memIdentities) UpdateEmail(_ context.Context, accountID, email string) error {
	i, ok := m.byAccount[accountID]
	if !ok {
		return sql.ErrNoRows
	}
	for id, other := range m.byAccount {
		if id != accountID && other.Email == email {
			return &pq.Error{Code: "23505", Constraint: "identities_email_key"}
		}
	}
	i.Email = email
	m.byAccount[accountID] = i
	return nil
}

func (m *memIdentities) UpdatePassword(_ context.Context, accountID, hash string) error {
	i, ok := m.byAccount[accountID]
	if !ok {
		return sql.ErrNoRows
	}
	i.PasswordHash = hash
	m.byAccount[accountID] = i
	return nil
}

func (m *memIdentities) Delete(_ context.Context, accountID string) error {
	delete(m.byAccount, accountID)
	return nil
}

type accountsByID map[string]*models.Account

func (a accountsByID) FindByID(_ context.Context, id string) (*models.Account, error) {
	if acc, ok := a[id]; ok {
		return acc, nil
	}
	return nil, sql.ErrNoRows
}

type capturedReset struct {
	email, token string
}

func (c *capturedReset) SendPasswordReset(_ context.Context, email, token string) error {
	c.email, c.token = email, token
	return nil
}

func newIdentityFixture(t *testing.T) (*IdentityService, *memIdentities, accountsByID, *capturedReset) {
	t.Helper()
	repo := &memIdentities{byAccount: map[string]models.Identity{}}
	accounts := accountsByID{}
	notifier := &capturedReset{}
	svc := NewIdentityService(repo, accounts, notifier, nil, zap.NewNop(), IdentityConfig{
		Secret: "test-secret", Issuer: "scholarship-api", AccessTTL: time.Hour,
	})
	return svc, repo, accounts, notifier
}

func TestIdentityServiceSignUpAndSignIn(t *testing.T) {
	svc, _, accounts, _ := newIdentityFixture(t)
	ctx := context.Background()

	handle, err := svc.SignUp(ctx, "ana@example.com", "password-1")
	require.NoError(t, err)
	require.NotEmpty(t, handle.AccountID)
	accounts[handle.AccountID] = &models.Account{ID: handle.AccountID, Email: "ana@example.com", Roles: models.RolesOf(models.RoleAdmin)}

	res, err := svc.SignIn(ctx, dto.SignInRequest{Email: "ana@example.com", Password: "password-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, handle.AccountID, claims.AccountID)
	assert.True(t, claims.HasAnyRole(models.RoleAdmin))

	_, err = svc.SignIn(ctx, dto.SignInRequest{Email: "ana@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.SignIn(ctx, dto.SignInRequest{Email: "nobody@example.com", Password: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestIdentityServiceSignUpDuplicate(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ana@example.com", "password-1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "ana@example.com", "password-2")
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamAuthFailure))
}

func TestIdentityServiceUpdateEmailConflict(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)
	ctx := context.Background()
	a, err := svc.SignUp(ctx, "a@example.com", "password-1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "b@example.com", "password-1")
	require.NoError(t, err)

	err = svc.UpdateEmail(ctx, a.AccountID, "b@example.com")
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEntity))

	err = svc.UpdateEmail(ctx, "missing", "c@example.com")
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamAuthFailure))
}

func TestIdentityServiceChangePassword(t *testing.T) {
	svc, _, accounts, _ := newIdentityFixture(t)
	ctx := context.Background()
	handle, err := svc.SignUp(ctx, "ana@example.com", "password-1")
	require.NoError(t, err)
	accounts[handle.AccountID] = &models.Account{ID: handle.AccountID, Email: "ana@example.com"}

	err = svc.ChangePassword(ctx, handle.AccountID, dto.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "password-2"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	require.NoError(t, svc.ChangePassword(ctx, handle.AccountID, dto.ChangePasswordRequest{CurrentPassword: "password-1", NewPassword: "password-2"}))
	_, err = svc.SignIn(ctx, dto.SignInRequest{Email: "ana@example.com", Password: "password-2"})
	assert.NoError(t, err)
}

func TestIdentityServicePasswordResetFlow(t *testing.T) {
	svc, _, accounts, notifier := newIdentityFixture(t)
	ctx := context.Background()
	handle, err := svc.SignUp(ctx, "ana@example.com", "password-1")
	require.NoError(t, err)
	accounts[handle.AccountID] = &models.Account{ID: handle.AccountID, Email: "ana@example.com"}

	require.NoError(t, svc.RequestPasswordReset(ctx, dto.PasswordResetRequest{Email: "nobody@example.com"}))
	assert.Empty(t, notifier.token)

	require.NoError(t, svc.RequestPasswordReset(ctx, dto.PasswordResetRequest{Email: "ana@example.com"}))
	require.NotEmpty(t, notifier.token)

	_, err = svc.ValidateToken(notifier.token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	require.NoError(t, svc.ResetPassword(ctx, dto.PasswordResetConfirmRequest{Token: notifier.token, NewPassword: "password-9"}))
	_, err = svc.SignIn(ctx, dto.SignInRequest{Email: "ana@example.com", Password: "password-9"})
	assert.NoError(t, err)
}

func TestIdentityServiceRejectsExpiredToken(t *testing.T) {
	svc, _, accounts, _ := newIdentityFixture(t)
	ctx := context.Background()
	handle, err := svc.SignUp(ctx, "ana@example.com", "password-1")
	require.NoError(t, err)
	accounts[handle.AccountID] = &models.Account{ID: handle.AccountID, Email: "ana@example.com"}

	res, err := svc.SignIn(ctx, dto.SignInRequest{Email: "ana@example.com", Password: "password-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(res.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestGatewayErrorMapping(t *testing.T) {
	assert.True(t, errors.Is(gatewayError(context.DeadlineExceeded, "x"), appErrors.ErrUpstreamTimeout))
	assert.True(t, errors.Is(gatewayError(sql.ErrNoRows, "x"), appErrors.ErrUpstreamAuthFailure))
	assert.True(t, errors.Is(gatewayError(appErrors.ErrDuplicateEntity, "x"), appErrors.ErrDuplicateEntity))
	assert.True(t, errors.Is(gatewayError(errors.New("boom"), "x"), appErrors.ErrUpstreamAuthFailure))
}

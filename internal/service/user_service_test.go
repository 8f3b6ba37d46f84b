package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
	"github.com/muchasmas/scholarship-api/pkg/refcode"
	"github.com/muchasmas/scholarship-api/pkg/storage"
)

type memFiles struct {
	saved   map[string][]byte
	deleted []string
	err     error
}

func (f *memFiles) Save(name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[name] = data
	return name, nil
}

func (f *memFiles) Delete(name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.saved, name)
	return nil
}

type userFixture struct {
	svc         *UserService
	uow         *memUnitOfWork
	gateway     *fakeGateway
	compensator *fakeCompensator
	files       *memFiles
}

func newUserFixture(t *testing.T, accounts ...models.Account) *userFixture {
	t.Helper()
	f := &userFixture{uow: newMemUnitOfWork(), gateway: newFakeGateway(), compensator: &fakeCompensator{}, files: &memFiles{}}
	for _, a := range accounts {
		f.uow.state.accounts[a.ID] = a
		f.gateway.identities[a.ID] = a.Email
	}
	signer := storage.NewURLSigner("secret", time.Hour)
	f.svc = NewUserService(f.uow, f.gateway, f.compensator, f.files, signer, nil, zap.NewNop(), UserServiceConfig{FilesURL: "/api/v1/files/"})
	f.svc.salt = func() int { return 3 }
	return f
}

func staffAccount(id, email, last string, roles ...models.Role) models.Account {
	return models.Account{ID: id, Email: email, FirstName: "Ana", LastName: last, Roles: models.RolesOf(roles...), RefCode: "AL010190"}
}

func TestUserServiceList(t *testing.T) {
	f := newUserFixture(t,
		staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin),
		staffAccount("u2", "b@example.com", "Martinez", models.RoleTutor),
		staffAccount("u3", "c@example.com", "Nuñez", models.RoleScholar),
	)

	page, err := f.svc.List(context.Background(), pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = f.svc.List(context.Background(), pagination.Request{Status: "tutor", SortKey: "lastName"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "u2", page.Data[0].ID)

	_, err = f.svc.List(context.Background(), pagination.Request{Status: "janitor"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.List(context.Background(), pagination.Request{SortKey: "roles"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidSortKey))
}

func TestUserServiceGetSignsProfileImage(t *testing.T) {
	account := staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin)
	src := "profiles/u1/pic.png"
	account.ProfileImgSrc = &src
	f := newUserFixture(t, account)

	got, err := f.svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got.ProfileImgURL)
	assert.True(t, strings.HasPrefix(*got.ProfileImgURL, "/api/v1/files/u1."))

	_, err = f.svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceUpdatePropagatesEmail(t *testing.T) {
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin))

	got, err := f.svc.Update(context.Background(), "u1", dto.UpdateUserRequest{
		Email:    models.Some(" New@Example.com"),
		LastName: models.Some("López"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "López", got.LastName)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "new@example.com", f.gateway.identities["u1"])
}

func TestUserServiceUpdateRestoresEmailOnFailure(t *testing.T) {
	f := newUserFixture(t,
		staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin),
	)
	f.uow.state.fail["accounts.update"] = errors.New("connection reset")

	_, err := f.svc.Update(context.Background(), "u1", dto.UpdateUserRequest{Email: models.Some("b@example.com")})
	require.Error(t, err)
	assert.Equal(t, []string{"b@example.com", "a@example.com"}, f.gateway.emails)
	assert.Equal(t, "a@example.com", f.uow.state.accounts["u1"].Email)
}

func TestUserServiceUpdateRejectsBlank(t *testing.T) {
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin))
	_, err := f.svc.Update(context.Background(), "u1", dto.UpdateUserRequest{FirstName: models.Some(" ")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceUpdateRoles(t *testing.T) {
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin))

	got, err := f.svc.UpdateRoles(context.Background(), "u1", dto.UpdateRolesRequest{
		Roles: []models.Role{"tutor", models.RolePsy, models.RoleTutor},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TUTOR", "PSY"}, []string(got.Roles))

	_, err = f.svc.UpdateRoles(context.Background(), "u1", dto.UpdateRolesRequest{Roles: []models.Role{"JANITOR"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.UpdateRoles(context.Background(), "missing", dto.UpdateRolesRequest{Roles: []models.Role{models.RoleAdmin}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceUploadProfileImage(t *testing.T) {
	account := staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin)
	old := "profiles/u1/old.png"
	account.ProfileImgSrc = &old
	f := newUserFixture(t, account)

	got, err := f.svc.UploadProfileImage(context.Background(), "u1", "me.PNG", bytes.NewBufferString("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, got.ProfileImgSrc)
	assert.True(t, strings.HasPrefix(*got.ProfileImgSrc, "profiles/u1/"))
	assert.True(t, strings.HasSuffix(*got.ProfileImgSrc, ".png"))
	assert.Equal(t, []byte("png-bytes"), f.files.saved[*got.ProfileImgSrc])
	assert.Equal(t, []string{old}, f.files.deleted)
	assert.NotNil(t, got.ProfileImgURL)
}

func TestUserServiceUploadProfileImageRejectsLargeFile(t *testing.T) {
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin))
	f.files.err = storage.ErrTooLarge

	_, err := f.svc.UploadProfileImage(context.Background(), "u1", "me.png", bytes.NewBufferString("x"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, f.uow.state.accounts["u1"].ProfileImgSrc)
}

func staffSignUp(email string, roles ...models.Role) dto.SignUpRequest {
	return dto.SignUpRequest{
		Email:     email,
		Password:  "s3cret-pass",
		FirstName: " Ana ",
		LastName:  "López",
		DOB:       dto.NewDate(1990, time.January, 1),
		Roles:     roles,
	}
}

func TestUserServiceSignUpCreatesStaffAccount(t *testing.T) {
	f := newUserFixture(t)

	got, err := f.svc.SignUp(context.Background(), staffSignUp(" Ana@Example.com", "tutor", models.RoleAdmin, models.RoleTutor))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, []string{"TUTOR", "ADMIN"}, []string(got.Roles))
	assert.Equal(t, refcode.Generate("Ana", "López", time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)), got.RefCode)

	stored, ok := f.uow.state.accounts[got.ID]
	require.True(t, ok)
	assert.Equal(t, got.RefCode, stored.RefCode)
	assert.Equal(t, "ana@example.com", f.gateway.identities[got.ID])
}

func TestUserServiceSignUpSaltsTakenRefCode(t *testing.T) {
	taken := staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin)
	taken.RefCode = refcode.Generate("Ana", "López", time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC))
	f := newUserFixture(t, taken)

	got, err := f.svc.SignUp(context.Background(), staffSignUp("b@example.com", models.RoleSPC))
	require.NoError(t, err)
	assert.NotEqual(t, taken.RefCode, got.RefCode)
	assert.Equal(t, refcode.GenerateSalted("Ana", "López", time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), 3), got.RefCode)
}

func TestUserServiceSignUpRejectsUnknownRoleBeforeProvisioning(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.SignUp(context.Background(), staffSignUp("ana@example.com", "DEAN"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.gateway.identities)

	_, err = f.svc.SignUp(context.Background(), staffSignUp("ana@example.com"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceSignUpReleasesIdentityWhenWriteFails(t *testing.T) {
	f := newUserFixture(t)
	f.uow.state.fail["accounts.create"] = errors.New("connection reset")

	_, err := f.svc.SignUp(context.Background(), staffSignUp("ana@example.com", models.RoleAdmin))
	assert.True(t, errors.Is(err, appErrors.ErrStorageFailure))
	assert.Len(t, f.compensator.enqueued, 1)
	assert.Empty(t, f.uow.state.accounts)

	f.compensator.err = errors.New("queue full")
	f.uow.state.fail["accounts.create"] = errors.New("connection reset")
	_, err = f.svc.SignUp(context.Background(), staffSignUp("ana@example.com", models.RoleAdmin))
	assert.True(t, errors.Is(err, appErrors.ErrOrphanedIdentity))
}

func TestUserServiceEnsureAdminOnlyOnEmptyDatabase(t *testing.T) {
	f := newUserFixture(t)

	created, err := f.svc.EnsureAdmin(context.Background(), "root@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, f.uow.state.accounts, 1)
	for _, a := range f.uow.state.accounts {
		assert.True(t, a.HasRole(models.RoleAdmin))
		assert.Equal(t, "root@example.com", a.Email)
	}

	created, err = f.svc.EnsureAdmin(context.Background(), "other@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, f.uow.state.accounts, 1)

	created, err = newUserFixture(t).svc.EnsureAdmin(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUserServiceDeleteRemovesAccountIdentityAndImage(t *testing.T) {
	target := staffAccount("u2", "b@example.com", "Martinez", models.RoleTutor)
	src := "profiles/u2/pic.png"
	target.ProfileImgSrc = &src
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin), target)

	require.NoError(t, f.svc.Delete(context.Background(), "u2", "u1"))
	assert.NotContains(t, f.uow.state.accounts, "u2")
	assert.Equal(t, []string{"u2"}, f.gateway.deleted)
	assert.Equal(t, []string{src}, f.files.deleted)

	err := f.svc.Delete(context.Background(), "u2", "u1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceDeleteQueuesIdentityOnProviderFailure(t *testing.T) {
	f := newUserFixture(t, staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin), staffAccount("u2", "b@example.com", "Martinez", models.RoleTutor))
	f.gateway.deleteErr = errors.New("provider down")

	require.NoError(t, f.svc.Delete(context.Background(), "u2", "u1"))
	assert.Equal(t, []string{"u2"}, f.compensator.enqueued)
	assert.Empty(t, f.files.deleted)
}

func TestUserServiceDeleteRejectsSelfAndScholarAccounts(t *testing.T) {
	f := newUserFixture(t,
		staffAccount("u1", "a@example.com", "Lopez", models.RoleAdmin),
		staffAccount("u3", "c@example.com", "Nuñez", models.RoleScholar),
	)
	f.uow.state.scholars["s3"] = models.Scholar{ID: "s3", AccountID: "u3"}

	assert.True(t, errors.Is(f.svc.Delete(context.Background(), "u1", "u1"), appErrors.ErrValidation))
	assert.True(t, errors.Is(f.svc.Delete(context.Background(), "u3", "u1"), appErrors.ErrValidation))
	assert.Contains(t, f.uow.state.accounts, "u1")
	assert.Contains(t, f.uow.state.accounts, "u3")
	assert.Empty(t, f.gateway.deleted)
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchasmas/scholarship-api/internal/models"
)

func TestCatalogRepositoryListMunicipalities(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM municipalities WHERE department_id = $1")).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department_id"}).AddRow(1, "San Salvador", 6))

	items, err := repo.ListMunicipalities(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, []models.Municipality{{ID: 1, Name: "San Salvador", DepartmentID: 6}}, items)
}

func TestCatalogRepositoryListBanksEmpty(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, logo_src FROM banks")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "logo_src"}))

	banks, err := repo.ListBanks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, banks)
}

func TestCatalogRepositoryBankWrites(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	logo := "banks/logo.png"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO banks (name, logo_src) VALUES ($1, $2) RETURNING id")).
		WithArgs("Banco Cuscatlan", logo).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	bank := &models.Bank{Name: "Banco Cuscatlan", LogoSrc: &logo}
	require.NoError(t, repo.CreateBank(context.Background(), bank))
	assert.Equal(t, 4, bank.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE banks SET name = $2, logo_src = $3 WHERE id = $1")).
		WithArgs(4, "Banco Cuscatlán", logo).
		WillReturnResult(sqlmock.NewResult(0, 1))
	bank.Name = "Banco Cuscatlán"
	require.NoError(t, repo.UpdateBank(context.Background(), bank))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM banks WHERE id = $1")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteBank(context.Background(), 99), sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, logo_src FROM banks WHERE id = $1")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "logo_src"}).AddRow(4, "Banco Cuscatlán", logo))
	found, err := repo.FindBank(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, found.LogoSrc)
	assert.Equal(t, logo, *found.LogoSrc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryUpdatePasswordMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE identities SET password_hash = $2")).
		WithArgs("acc-1", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "acc-1", "hash")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestIdentityRepositoryFindByEmailNormalizes(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM identities WHERE email = $1")).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "email", "password_hash", "created_at", "updated_at"}).
			AddRow("acc-1", "ana@example.com", "hash", time.Now(), time.Now()))

	identity, err := repo.FindByEmail(context.Background(), " Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", identity.AccountID)
}

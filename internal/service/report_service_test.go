package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

type stubScholarReport struct {
	rows      []models.ScholarReportRow
	phones    map[string][]string
	addresses map[string]models.AddressDetail
	banks     map[string]models.BankAccountDetail
	err       error

	snapshots int
	inTx      bool
	loadedIn  []bool
}

func (s *stubScholarReport) RunReadOnly(_ context.Context, fn func(repository.Stores) error) error {
	s.snapshots++
	s.inTx = true
	defer func() { s.inTx = false }()
	return fn(repository.Stores{Reports: s})
}

func (s *stubScholarReport) ScholarRows(context.Context) ([]models.ScholarReportRow, error) {
	s.loadedIn = append(s.loadedIn, s.inTx)
	return s.rows, s.err
}

func (s *stubScholarReport) CurrentPhones(context.Context) (map[string][]string, error) {
	s.loadedIn = append(s.loadedIn, s.inTx)
	return s.phones, nil
}

func (s *stubScholarReport) OriginAddresses(context.Context) (map[string]models.AddressDetail, error) {
	s.loadedIn = append(s.loadedIn, s.inTx)
	return s.addresses, nil
}

func (s *stubScholarReport) PrimaryBankAccounts(context.Context) (map[string]models.BankAccountDetail, error) {
	s.loadedIn = append(s.loadedIn, s.inTx)
	return s.banks, nil
}

type stubAccountReport []models.Account

func (s stubAccountReport) ListAll(context.Context) ([]models.Account, error) {
	return s, nil
}

func newReportFixture() *ReportService {
	svc, _ := newReportFixtureWithSource()
	return svc
}

func newReportFixtureWithSource() (*ReportService, *stubScholarReport) {
	dui := "01234567-8"
	src := &stubScholarReport{
		rows: []models.ScholarReportRow{{
			ScholarID: "s1", RefCode: "JP150399", FirstName: "José", LastName: "Pérez", Email: "jose@example.com",
			DOB: time.Date(1999, time.March, 15, 0, 0, 0, 0, time.UTC), DUI: &dui, State: models.ScholarStateActive,
			EmergencyContactName: "María", EmergencyContactRelationship: "Madre", EmergencyContactPhone: "7777-0000",
		}},
		phones: map[string][]string{"s1": {"7000-1111", "2200-3333"}},
		addresses: map[string]models.AddressDetail{"s1": {
			Address: models.Address{StreetLine1: "Calle 1"}, DistrictName: "Centro", MunicipalityName: "San Salvador", DepartmentName: "San Salvador",
		}},
		banks: map[string]models.BankAccountDetail{"s1": {
			BankAccount: models.BankAccount{AccountNumber: "001", AccountType: models.BankAccountSavings}, BankName: "Banco Agricola",
		}},
	}
	svc := NewReportService(src, stubAccountReport{
		{RefCode: "AL010190", FirstName: "Ana", LastName: "López", Email: "ana@example.com", Roles: models.RolesOf(models.RoleAdmin, models.RoleTutor)},
	}, nil)
	svc.now = func() time.Time { return time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC) }
	return svc, src
}

func TestReportServiceScholarsDataset(t *testing.T) {
	svc := newReportFixture()

	data, err := svc.ScholarsDataset(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	row := data.Rows[0]
	assert.Equal(t, "15/03/1999", row[colDOB])
	assert.Equal(t, "24", row[colAge])
	assert.Equal(t, "Activa", row[colState])
	assert.Equal(t, "7000-1111, 2200-3333", row[colPhones])
	assert.Equal(t, "Calle 1, Centro, San Salvador, San Salvador", row[colOriginAddress])
	assert.Equal(t, "Banco Agricola Ahorro 001", row[colBankAccount])
	assert.Equal(t, "María (Madre) 7777-0000", row[colEmergencyContact])
}

func TestReportServiceScholarsDatasetUsesOneSnapshot(t *testing.T) {
	svc, src := newReportFixtureWithSource()

	_, err := svc.ScholarsDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.snapshots)
	assert.Equal(t, []bool{true, true, true, true}, src.loadedIn)
}

func TestReportServiceUsersDataset(t *testing.T) {
	svc := newReportFixture()

	data, err := svc.UsersDataset(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "Administradora, Tutor/Tutora", data.Rows[0][colRoles])
}

func TestReportServiceGenerate(t *testing.T) {
	svc := newReportFixture()

	file, err := svc.Generate(context.Background(), ReportUsers, "csv")
	require.NoError(t, err)
	assert.Equal(t, "users-20240314.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, strings.Contains(string(file.Data), "ana@example.com"))

	file, err = svc.Generate(context.Background(), ReportScholars, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))

	_, err = svc.Generate(context.Background(), ReportUsers, "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), "grades", "csv")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceScholarsDatasetStorageFailure(t *testing.T) {
	svc := NewReportService(&stubScholarReport{err: errors.New("boom")}, stubAccountReport{}, nil)

	_, err := svc.ScholarsDataset(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrStorageFailure))
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/export"
)

// ReportKind names a downloadable report.
type ReportKind string

const (
	ReportScholars ReportKind = "scholars"
	ReportUsers    ReportKind = "users"
)

const reportDateLayout = "02/01/2006"

// Column headers of the scholars report.
const (
	colRefCode          = "Código"
	colFirstName        = "Nombres"
	colLastName         = "Apellidos"
	colEmail            = "Correo"
	colRoles            = "Roles"
	colDOB              = "Fecha de nacimiento"
	colAge              = "Edad"
	colDUI              = "DUI"
	colState            = "Estado"
	colPhones           = "Teléfonos"
	colOriginAddress    = "Dirección de origen"
	colEmergencyContact = "Contacto de emergencia"
	colBankAccount      = "Cuenta bancaria"
)

type snapshotReader interface {
	RunReadOnly(ctx context.Context, fn func(repository.Stores) error) error
}

type accountReportSource interface {
	ListAll(ctx context.Context) ([]models.Account, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportFile is a rendered report ready to be streamed.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders the scholars and users reports as CSV or PDF.
type ReportService struct {
	snapshots snapshotReader
	accounts  accountReportSource
	renderers map[export.Format]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(snapshots snapshotReader, accounts accountReportSource, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		snapshots: snapshots,
		accounts:  accounts,
		renderers: map[export.Format]datasetRenderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Generate builds and renders the report.
func (s *ReportService) Generate(ctx context.Context, kind ReportKind, rawFormat string) (*ReportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.From(appErrors.ErrValidation, err, err.Error())
	}

	var data export.Dataset
	switch kind {
	case ReportScholars:
		data, err = s.ScholarsDataset(ctx)
	case ReportUsers:
		data, err = s.UsersDataset(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report %q", kind))
	}
	if err != nil {
		return nil, err
	}

	body, err := s.renderers[format].Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("report generated", zap.String("report", string(kind)), zap.String("format", string(format)), zap.Int("rows", len(data.Rows)))
	return &ReportFile{
		Filename:    fmt.Sprintf("%s-%s%s", kind, s.now().Format("20060102"), format.Extension()),
		ContentType: format.ContentType(),
		Data:        body,
	}, nil
}

// ScholarsDataset loads every scholar with phones, origin address and bank
// account. The four queries share one read-only snapshot.
func (s *ReportService) ScholarsDataset(ctx context.Context) (export.Dataset, error) {
	var (
		rows      []models.ScholarReportRow
		phones    map[string][]string
		addresses map[string]models.AddressDetail
		banks     map[string]models.BankAccountDetail
	)
	err := s.snapshots.RunReadOnly(ctx, func(stores repository.Stores) (err error) {
		if rows, err = stores.Reports.ScholarRows(ctx); err != nil {
			return err
		}
		if phones, err = stores.Reports.CurrentPhones(ctx); err != nil {
			return err
		}
		if addresses, err = stores.Reports.OriginAddresses(ctx); err != nil {
			return err
		}
		banks, err = stores.Reports.PrimaryBankAccounts(ctx)
		return err
	})
	if err != nil {
		return export.Dataset{}, appErrors.From(appErrors.ErrStorageFailure, err, "failed to load scholars report")
	}

	now := s.now()
	data := export.Dataset{
		Title: "Reporte de becarios",
		Headers: []string{colRefCode, colFirstName, colLastName, colEmail, colDOB, colAge, colDUI, colState,
			colPhones, colOriginAddress, colEmergencyContact, colBankAccount},
		Rows: make([]map[string]string, 0, len(rows)),
	}
	for _, r := range rows {
		row := map[string]string{
			colRefCode:   r.RefCode,
			colFirstName: r.FirstName,
			colLastName:  r.LastName,
			colEmail:     r.Email,
			colDOB:       r.DOB.Format(reportDateLayout),
			colAge:       strconv.Itoa(models.AgeAt(r.DOB, now)),
			colDUI:       deref(r.DUI),
			colState:     stateLabel(r.State),
			colPhones:    strings.Join(phones[r.ScholarID], ", "),
			colEmergencyContact: fmt.Sprintf("%s (%s) %s",
				r.EmergencyContactName, r.EmergencyContactRelationship, r.EmergencyContactPhone),
		}
		if a, ok := addresses[r.ScholarID]; ok {
			row[colOriginAddress] = a.String()
		}
		if b, ok := banks[r.ScholarID]; ok {
			row[colBankAccount] = fmt.Sprintf("%s %s %s", b.BankName, b.AccountType.Label(), b.AccountNumber)
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// UsersDataset lists every account with localized role names.
func (s *ReportService) UsersDataset(ctx context.Context) (export.Dataset, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.From(appErrors.ErrStorageFailure, err, "failed to load users report")
	}
	data := export.Dataset{
		Title:   "Reporte de usuarios",
		Headers: []string{colRefCode, colFirstName, colLastName, colEmail, colRoles},
		Rows:    make([]map[string]string, 0, len(accounts)),
	}
	for _, a := range accounts {
		labels := make([]string, 0, len(a.Roles))
		for _, r := range a.RoleList() {
			if label := r.Label(); label != "" {
				labels = append(labels, label)
			}
		}
		data.Rows = append(data.Rows, map[string]string{
			colRefCode:   a.RefCode,
			colFirstName: a.FirstName,
			colLastName:  a.LastName,
			colEmail:     a.Email,
			colRoles:     strings.Join(labels, ", "),
		})
	}
	return data, nil
}

var stateLabels = map[models.ScholarState]string{
	models.ScholarStateActive:    "Activa",
	models.ScholarStateInactive:  "Inactiva",
	models.ScholarStateGraduated: "Graduada",
	models.ScholarStateSuspended: "Suspendida",
}

func stateLabel(s models.ScholarState) string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

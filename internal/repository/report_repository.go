package repository

import (
	"context"
	"fmt"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// ReportRepository bulk-loads the report datasets. Each loader is one query so
// a report needs no per-scholar round trips; bind it to a read-only transaction
// to get a consistent snapshot.
type ReportRepository struct {
	db Queryer
}

// NewReportRepository constructs the repository.
func NewReportRepository(db Queryer) *ReportRepository {
	return &ReportRepository{db: db}
}

// ScholarRows returns every scholar with its account, sorted by last name.
func (r *ReportRepository) ScholarRows(ctx context.Context) ([]models.ScholarReportRow, error) {
	const query = `SELECT s.id AS scholar_id, a.ref_code, a.first_name, a.last_name, a.email, s.dob, s.dui, s.state,
        s.emergency_contact_name, s.emergency_contact_phone, s.emergency_contact_relationship
        FROM scholars s JOIN accounts a ON a.id = s.account_id
        ORDER BY LOWER(a.last_name), LOWER(a.first_name), s.id`
	rows := make([]models.ScholarReportRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load scholar report rows: %w", err)
	}
	return rows, nil
}

// CurrentPhones returns the current numbers of every scholar keyed by scholar id.
func (r *ReportRepository) CurrentPhones(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT spn.scholar_id, pn.number
        FROM scholar_phone_numbers spn JOIN phone_numbers pn ON pn.id = spn.phone_number_id
        WHERE spn.is_current ORDER BY spn.scholar_id, spn.id`
	rows := make([]models.ScholarPhoneRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load report phones: %w", err)
	}
	out := make(map[string][]string)
	for _, row := range rows {
		out[row.ScholarID] = append(out[row.ScholarID], row.Number)
	}
	return out, nil
}

// OriginAddresses returns the origin address of every scholar keyed by scholar id.
func (r *ReportRepository) OriginAddresses(ctx context.Context) (map[string]models.AddressDetail, error) {
	const query = `SELECT sa.scholar_id, ad.id, ad.street_line_1, ad.street_line_2, ad.district_id, ad.is_urban,
        ad.created_at, ad.created_by, sa.is_origin, sa.is_current,
        d.name AS district_name, m.id AS municipality_id, m.name AS municipality_name,
        dep.id AS department_id, dep.name AS department_name
        FROM scholar_addresses sa
        JOIN addresses ad ON ad.id = sa.address_id
        JOIN districts d ON d.id = ad.district_id
        JOIN municipalities m ON m.id = d.municipality_id
        JOIN departments dep ON dep.id = m.department_id
        WHERE sa.is_origin`
	rows := make([]models.ScholarAddressRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load report addresses: %w", err)
	}
	out := make(map[string]models.AddressDetail, len(rows))
	for _, row := range rows {
		out[row.ScholarID] = row.AddressDetail
	}
	return out, nil
}

// PrimaryBankAccounts returns the primary account of every scholar keyed by scholar id.
func (r *ReportRepository) PrimaryBankAccounts(ctx context.Context) (map[string]models.BankAccountDetail, error) {
	const query = `SELECT ba.id, ba.scholar_id, ba.bank_id, ba.account_holder, ba.account_number, ba.account_type, ba.is_primary,
        b.name AS bank_name, b.logo_src AS bank_logo_src
        FROM bank_accounts ba JOIN banks b ON b.id = ba.bank_id
        WHERE ba.is_primary`
	rows := make([]models.BankAccountDetail, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load report bank accounts: %w", err)
	}
	out := make(map[string]models.BankAccountDetail, len(rows))
	for _, row := range rows {
		out[row.ScholarID] = row
	}
	return out, nil
}

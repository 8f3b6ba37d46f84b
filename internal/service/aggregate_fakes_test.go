package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// memState is an in-memory copy of the aggregate tables.
type memState struct {
	seq          int64
	accounts     map[string]models.Account
	scholars     map[string]models.Scholar
	addresses    map[int64]models.Address
	addressLinks map[string]models.AddressLink
	phones       map[int64]string
	phoneLinks   map[int64]models.ScholarPhone
	banks        map[int64]models.BankAccount
	logbook      map[int64]models.LogbookEntry
	districts    map[int]string
	catalogBanks map[int]string
	// fail injects an error the first time an operation named here runs.
	fail map[string]error
	ops  *[]string
}

func newMemState() *memState {
	ops := make([]string, 0)
	return &memState{
		accounts:     map[string]models.Account{},
		scholars:     map[string]models.Scholar{},
		addresses:    map[int64]models.Address{},
		addressLinks: map[string]models.AddressLink{},
		phones:       map[int64]string{},
		phoneLinks:   map[int64]models.ScholarPhone{},
		banks:        map[int64]models.BankAccount{},
		logbook:      map[int64]models.LogbookEntry{},
		districts:    map[int]string{1: "Centro", 2: "Norte"},
		catalogBanks: map[int]string{1: "Banco Agricola", 2: "Banco Cuscatlan"},
		fail:         map[string]error{},
		ops:          &ops,
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		seq:          m.seq,
		accounts:     make(map[string]models.Account, len(m.accounts)),
		scholars:     make(map[string]models.Scholar, len(m.scholars)),
		addresses:    make(map[int64]models.Address, len(m.addresses)),
		addressLinks: make(map[string]models.AddressLink, len(m.addressLinks)),
		phones:       make(map[int64]string, len(m.phones)),
		phoneLinks:   make(map[int64]models.ScholarPhone, len(m.phoneLinks)),
		banks:        make(map[int64]models.BankAccount, len(m.banks)),
		logbook:      make(map[int64]models.LogbookEntry, len(m.logbook)),
		districts:    m.districts,
		catalogBanks: m.catalogBanks,
		fail:         m.fail,
		ops:          m.ops,
	}
	for k, v := range m.accounts {
		v.Roles = append(pq.StringArray(nil), v.Roles...)
		c.accounts[k] = v
	}
	for k, v := range m.scholars {
		c.scholars[k] = v
	}
	for k, v := range m.addresses {
		c.addresses[k] = v
	}
	for k, v := range m.addressLinks {
		c.addressLinks[k] = v
	}
	for k, v := range m.phones {
		c.phones[k] = v
	}
	for k, v := range m.phoneLinks {
		c.phoneLinks[k] = v
	}
	for k, v := range m.banks {
		c.banks[k] = v
	}
	for k, v := range m.logbook {
		c.logbook[k] = v
	}
	return c
}

func (m *memState) next() int64 {
	m.seq++
	return m.seq
}

func (m *memState) check(op string) error {
	*m.ops = append(*m.ops, op)
	if err, ok := m.fail[op]; ok {
		delete(m.fail, op)
		return err
	}
	return nil
}

func (m *memState) stores() repository.Stores {
	return repository.Stores{
		Accounts:     memAccounts{m},
		Scholars:     memScholars{m},
		Addresses:    memAddresses{m},
		Phones:       memPhones{m},
		BankAccounts: memBanks{m},
		Logbook:      memLogbook{m},
	}
}

// memUnitOfWork commits a cloned state only when fn succeeds.
type memUnitOfWork struct {
	mu    sync.Mutex
	state *memState
}

func newMemUnitOfWork() *memUnitOfWork {
	return &memUnitOfWork{state: newMemState()}
}

func (u *memUnitOfWork) RunInTx(_ context.Context, fn func(repository.Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	tx := u.state.clone()
	if err := fn(tx.stores()); err != nil {
		return err
	}
	u.state = tx
	return nil
}

func (u *memUnitOfWork) RunReadOnly(_ context.Context, fn func(repository.Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(u.state.clone().stores())
}

type memAccounts struct{ m *memState }

func (s memAccounts) Create(_ context.Context, a *models.Account) error {
	if err := s.m.check("accounts.create"); err != nil {
		return err
	}
	for _, existing := range s.m.accounts {
		if existing.Email == a.Email {
			return &pq.Error{Code: "23505", Constraint: "accounts_email_key"}
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.m.accounts[a.ID] = *a
	return nil
}

func (s memAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	a, ok := s.m.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (s memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range s.m.accounts {
		if a.Email == strings.ToLower(email) {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memAccounts) RefCodeExists(_ context.Context, code string) (bool, error) {
	for _, a := range s.m.accounts {
		if a.RefCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s memAccounts) Update(_ context.Context, a *models.Account) error {
	if err := s.m.check("accounts.update"); err != nil {
		return err
	}
	if _, ok := s.m.accounts[a.ID]; !ok {
		return sql.ErrNoRows
	}
	s.m.accounts[a.ID] = *a
	return nil
}

func (s memAccounts) UpdateRoles(_ context.Context, id string, roles []models.Role) error {
	a, ok := s.m.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Roles = models.RolesOf(roles...)
	s.m.accounts[id] = a
	return nil
}

func (s memAccounts) UpdateProfileImage(_ context.Context, id string, src *string) error {
	a, ok := s.m.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.ProfileImgSrc = src
	s.m.accounts[id] = a
	return nil
}

func (s memAccounts) Delete(_ context.Context, id string) error {
	if err := s.m.check("accounts.delete"); err != nil {
		return err
	}
	delete(s.m.accounts, id)
	return nil
}

func (s memAccounts) List(_ context.Context, q pagination.Query[models.AccountFilter]) ([]models.Account, error) {
	out := make([]models.Account, 0)
	for _, a := range s.m.accounts {
		if q.Where.Role != nil && !a.HasRole(*q.Where.Role) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return window(out, q.Skip, q.Take), nil
}

func (s memAccounts) Count(ctx context.Context, f models.AccountFilter) (int, error) {
	all, _ := s.List(ctx, pagination.Query[models.AccountFilter]{Where: f, Take: len(s.m.accounts) + 1})
	return len(all), nil
}

type memScholars struct{ m *memState }

func (s memScholars) Create(_ context.Context, sc *models.Scholar) error {
	if err := s.m.check("scholars.create"); err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	s.m.scholars[sc.ID] = *sc
	return nil
}

func (s memScholars) FindByID(_ context.Context, id string) (*models.Scholar, error) {
	if err, ok := s.m.fail["scholars.find"]; ok {
		return nil, err
	}
	sc, ok := s.m.scholars[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sc, nil
}

func (s memScholars) FindByAccountID(_ context.Context, accountID string) (*models.Scholar, error) {
	for _, sc := range s.m.scholars {
		if sc.AccountID == accountID {
			return &sc, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memScholars) Update(_ context.Context, sc *models.Scholar) error {
	if err := s.m.check("scholars.update"); err != nil {
		return err
	}
	s.m.scholars[sc.ID] = *sc
	return nil
}

func (s memScholars) Delete(_ context.Context, id string) error {
	if err := s.m.check("scholars.delete"); err != nil {
		return err
	}
	delete(s.m.scholars, id)
	return nil
}

func (s memScholars) List(_ context.Context, q pagination.Query[models.ScholarFilter]) ([]models.ScholarSummary, error) {
	out := make([]models.ScholarSummary, 0)
	for _, sc := range s.m.scholars {
		if q.Where.State != nil && sc.State != *q.Where.State {
			continue
		}
		a := s.m.accounts[sc.AccountID]
		if q.Where.Search != "" && !strings.Contains(strings.ToLower(a.FirstName+" "+a.LastName), strings.ToLower(q.Where.Search)) {
			continue
		}
		out = append(out, models.ScholarSummary{
			ID: sc.ID, AccountID: sc.AccountID, FirstName: a.FirstName, LastName: a.LastName,
			Email: a.Email, RefCode: a.RefCode, DOB: sc.DOB, State: sc.State, IngressDate: sc.IngressDate,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return window(out, q.Skip, q.Take), nil
}

func (s memScholars) Count(ctx context.Context, f models.ScholarFilter) (int, error) {
	all, _ := s.List(ctx, pagination.Query[models.ScholarFilter]{Where: f, Take: len(s.m.scholars) + 1})
	return len(all), nil
}

func (s memScholars) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.m.scholars))
	for id := range s.m.scholars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memAddresses struct{ m *memState }

func linkKey(scholarID string, addressID int64) string {
	return fmt.Sprintf("%s/%d", scholarID, addressID)
}

func (s memAddresses) Create(_ context.Context, a *models.Address) error {
	if err := s.m.check("addresses.create"); err != nil {
		return err
	}
	if _, ok := s.m.districts[a.DistrictID]; !ok {
		return &pq.Error{Code: "23503", Constraint: "addresses_district_id_fkey"}
	}
	a.ID = s.m.next()
	s.m.addresses[a.ID] = *a
	return nil
}

func (s memAddresses) FindByID(_ context.Context, id int64) (*models.Address, error) {
	a, ok := s.m.addresses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (s memAddresses) Update(_ context.Context, a *models.Address) error {
	if _, ok := s.m.addresses[a.ID]; !ok {
		return sql.ErrNoRows
	}
	s.m.addresses[a.ID] = *a
	return nil
}

func (s memAddresses) Link(_ context.Context, l models.AddressLink) error {
	key := linkKey(l.ScholarID, l.AddressID)
	if prev, ok := s.m.addressLinks[key]; ok {
		l.IsOrigin = l.IsOrigin || prev.IsOrigin
		l.IsCurrent = prev.IsCurrent
	}
	s.m.addressLinks[key] = l
	return nil
}

func (s memAddresses) CountLinks(_ context.Context, addressID int64) (int, error) {
	n := 0
	for _, l := range s.m.addressLinks {
		if l.AddressID == addressID {
			n++
		}
	}
	return n, nil
}

func (s memAddresses) Relink(_ context.Context, scholarID string, fromID, toID int64) error {
	key := linkKey(scholarID, fromID)
	l, ok := s.m.addressLinks[key]
	if !ok {
		return sql.ErrNoRows
	}
	delete(s.m.addressLinks, key)
	l.AddressID = toID
	s.m.addressLinks[linkKey(scholarID, toID)] = l
	return nil
}

func (s memAddresses) SetCurrent(_ context.Context, scholarID string, addressID int64) error {
	for k, l := range s.m.addressLinks {
		if l.ScholarID == scholarID {
			l.IsCurrent = l.AddressID == addressID
			s.m.addressLinks[k] = l
		}
	}
	return nil
}

func (s memAddresses) Unlink(_ context.Context, scholarID string, addressID int64) error {
	key := linkKey(scholarID, addressID)
	if _, ok := s.m.addressLinks[key]; !ok {
		return sql.ErrNoRows
	}
	delete(s.m.addressLinks, key)
	return nil
}

func (s memAddresses) UnlinkAll(_ context.Context, scholarID string) ([]int64, error) {
	if err := s.m.check("addresses.unlink_all"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0)
	for k, l := range s.m.addressLinks {
		if l.ScholarID == scholarID {
			ids = append(ids, l.AddressID)
			delete(s.m.addressLinks, k)
		}
	}
	return ids, nil
}

func (s memAddresses) ListByScholar(_ context.Context, scholarID string) ([]models.AddressDetail, error) {
	out := make([]models.AddressDetail, 0)
	for _, l := range s.m.addressLinks {
		if l.ScholarID != scholarID {
			continue
		}
		a := s.m.addresses[l.AddressID]
		out = append(out, models.AddressDetail{
			Address: a, IsOrigin: l.IsOrigin, IsCurrent: l.IsCurrent, DistrictName: s.m.districts[a.DistrictID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsOrigin != out[j].IsOrigin {
			return out[i].IsOrigin
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s memAddresses) PruneOrphans(_ context.Context, ids []int64) error {
	for _, id := range ids {
		linked := false
		for _, l := range s.m.addressLinks {
			linked = linked || l.AddressID == id
		}
		if !linked {
			delete(s.m.addresses, id)
		}
	}
	return nil
}

type memPhones struct{ m *memState }

func (s memPhones) Upsert(_ context.Context, number string) (int64, error) {
	number = strings.TrimSpace(number)
	for id, n := range s.m.phones {
		if n == number {
			return id, nil
		}
	}
	id := s.m.next()
	s.m.phones[id] = number
	return id, nil
}

func (s memPhones) Link(_ context.Context, l *models.ScholarPhone) error {
	if err := s.m.check("phones.link"); err != nil {
		return err
	}
	for id, existing := range s.m.phoneLinks {
		if existing.ScholarID == l.ScholarID && existing.PhoneNumberID == l.PhoneNumberID {
			existing.IsCurrent, existing.IsMobile = l.IsCurrent, l.IsMobile
			s.m.phoneLinks[id] = existing
			l.ID = id
			return nil
		}
	}
	l.ID = s.m.next()
	l.Number = s.m.phones[l.PhoneNumberID]
	s.m.phoneLinks[l.ID] = *l
	return nil
}

func (s memPhones) UpdateLink(_ context.Context, l *models.ScholarPhone) error {
	if _, ok := s.m.phoneLinks[l.ID]; !ok {
		return sql.ErrNoRows
	}
	l.Number = s.m.phones[l.PhoneNumberID]
	s.m.phoneLinks[l.ID] = *l
	return nil
}

func (s memPhones) FindLink(_ context.Context, scholarID string, linkID int64) (*models.ScholarPhone, error) {
	l, ok := s.m.phoneLinks[linkID]
	if !ok || l.ScholarID != scholarID {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (s memPhones) DeleteLink(_ context.Context, scholarID string, linkID int64) error {
	l, ok := s.m.phoneLinks[linkID]
	if !ok || l.ScholarID != scholarID {
		return sql.ErrNoRows
	}
	delete(s.m.phoneLinks, linkID)
	return nil
}

func (s memPhones) DeleteLinks(_ context.Context, scholarID string) ([]int64, error) {
	if err := s.m.check("phones.delete_links"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0)
	for id, l := range s.m.phoneLinks {
		if l.ScholarID == scholarID {
			ids = append(ids, l.PhoneNumberID)
			delete(s.m.phoneLinks, id)
		}
	}
	return ids, nil
}

func (s memPhones) ListByScholar(_ context.Context, scholarID string) ([]models.ScholarPhone, error) {
	out := make([]models.ScholarPhone, 0)
	for _, l := range s.m.phoneLinks {
		if l.ScholarID == scholarID {
			l.Number = s.m.phones[l.PhoneNumberID]
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memPhones) PruneOrphans(_ context.Context, ids []int64) error {
	for _, id := range ids {
		linked := false
		for _, l := range s.m.phoneLinks {
			linked = linked || l.PhoneNumberID == id
		}
		if !linked {
			delete(s.m.phones, id)
		}
	}
	return nil
}

type memBanks struct{ m *memState }

func (s memBanks) Create(_ context.Context, b *models.BankAccount) error {
	if err := s.m.check("banks.create"); err != nil {
		return err
	}
	if _, ok := s.m.catalogBanks[b.BankID]; !ok {
		return &pq.Error{Code: "23503", Constraint: "bank_accounts_bank_id_fkey"}
	}
	b.ID = s.m.next()
	s.m.banks[b.ID] = *b
	return nil
}

func (s memBanks) FindByID(_ context.Context, scholarID string, id int64) (*models.BankAccount, error) {
	b, ok := s.m.banks[id]
	if !ok || b.ScholarID != scholarID {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (s memBanks) Update(_ context.Context, b *models.BankAccount) error {
	prev, ok := s.m.banks[b.ID]
	if !ok {
		return sql.ErrNoRows
	}
	b.IsPrimary = prev.IsPrimary
	s.m.banks[b.ID] = *b
	return nil
}

func (s memBanks) SetPrimary(_ context.Context, scholarID string, id int64) error {
	for k, b := range s.m.banks {
		if b.ScholarID == scholarID {
			b.IsPrimary = k == id
			s.m.banks[k] = b
		}
	}
	return nil
}

func (s memBanks) DeleteByScholar(_ context.Context, scholarID string) error {
	if err := s.m.check("banks.delete_by_scholar"); err != nil {
		return err
	}
	for k, b := range s.m.banks {
		if b.ScholarID == scholarID {
			delete(s.m.banks, k)
		}
	}
	return nil
}

func (s memBanks) ListByScholar(_ context.Context, scholarID string) ([]models.BankAccountDetail, error) {
	out := make([]models.BankAccountDetail, 0)
	for _, b := range s.m.banks {
		if b.ScholarID == scholarID {
			out = append(out, models.BankAccountDetail{BankAccount: b, BankName: s.m.catalogBanks[b.BankID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memLogbook struct{ m *memState }

func (s memLogbook) Create(_ context.Context, e *models.LogbookEntry) error {
	if err := s.m.check("logbook.create"); err != nil {
		return err
	}
	if _, ok := s.m.scholars[e.ScholarID]; !ok {
		return &pq.Error{Code: "23503", Constraint: "scholars_logbook_scholar_id_fkey"}
	}
	e.ID = s.m.next()
	s.m.logbook[e.ID] = *e
	return nil
}

func (s memLogbook) FindByID(_ context.Context, id int64) (*models.LogbookEntry, error) {
	e, ok := s.m.logbook[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s memLogbook) Delete(_ context.Context, id int64) error {
	if _, ok := s.m.logbook[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.m.logbook, id)
	return nil
}

func (s memLogbook) DeleteByScholar(_ context.Context, scholarID string) error {
	if err := s.m.check("logbook.delete_by_scholar"); err != nil {
		return err
	}
	for k, e := range s.m.logbook {
		if e.ScholarID == scholarID {
			delete(s.m.logbook, k)
		}
	}
	return nil
}

func (s memLogbook) List(_ context.Context, q pagination.Query[models.LogbookFilter]) ([]models.LogbookEntryDetail, error) {
	out := make([]models.LogbookEntryDetail, 0)
	for _, e := range s.m.logbook {
		if q.Where.ScholarID != "" && e.ScholarID != q.Where.ScholarID {
			continue
		}
		if q.Where.Search != "" && !strings.Contains(strings.ToLower(e.Log), strings.ToLower(q.Where.Search)) {
			continue
		}
		sc := s.m.scholars[e.ScholarID]
		out = append(out, models.LogbookEntryDetail{LogbookEntry: e, ScholarName: s.m.accounts[sc.AccountID].FullName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, q.Skip, q.Take), nil
}

func (s memLogbook) Count(ctx context.Context, f models.LogbookFilter) (int, error) {
	all, _ := s.List(ctx, pagination.Query[models.LogbookFilter]{Where: f, Take: len(s.m.logbook) + 1})
	return len(all), nil
}

func window[T any](rows []T, skip, take int) []T {
	if skip >= len(rows) {
		return []T{}
	}
	end := skip + take
	if take <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[skip:end]
}

// fakeGateway is an in-memory identity provider.
type fakeGateway struct {
	mu         sync.Mutex
	identities map[string]string
	signUpErr  error
	emailErr   error
	deleteErr  error
	emails     []string
	deleted    []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{identities: map[string]string{}}
}

func (g *fakeGateway) SignUp(_ context.Context, email, _ string) (*models.IdentityHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.signUpErr != nil {
		return nil, g.signUpErr
	}
	id := uuid.NewString()
	g.identities[id] = email
	return &models.IdentityHandle{AccountID: id, Email: email}, nil
}

func (g *fakeGateway) UpdateEmail(_ context.Context, accountID, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emails = append(g.emails, email)
	if g.emailErr != nil {
		return g.emailErr
	}
	g.identities[accountID] = email
	return nil
}

func (g *fakeGateway) UpdatePassword(context.Context, string, string) error { return nil }

func (g *fakeGateway) Delete(_ context.Context, accountID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, accountID)
	delete(g.identities, accountID)
	return nil
}

// fakeCompensator records queued identity deletions.
type fakeCompensator struct {
	mu       sync.Mutex
	err      error
	enqueued []string
}

func (c *fakeCompensator) EnqueueIdentityDeletion(accountID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.enqueued = append(c.enqueued, accountID)
	return nil
}

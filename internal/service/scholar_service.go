package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/logger"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// UpdateLogMessage is the logbook note appended by every scholar update.
const UpdateLogMessage = "Scholar information updated"

// maxRefCodeAttempts bounds salted retries when a reference code is taken.
const maxRefCodeAttempts = 10

type unitOfWork interface {
	RunInTx(ctx context.Context, fn func(repository.Stores) error) error
	RunReadOnly(ctx context.Context, fn func(repository.Stores) error) error
}

type identityCompensator interface {
	EnqueueIdentityDeletion(accountID, reason string) error
}

// ScholarServiceConfig tunes the scholar writer.
type ScholarServiceConfig struct {
	IdentityTimeout time.Duration
}

// ScholarService reads and writes the scholar aggregate: account, scholar,
// addresses, phone numbers, bank accounts and logbook.
type ScholarService struct {
	uow             unitOfWork
	identity        IdentityGateway
	compensator     identityCompensator
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	identityTimeout time.Duration
	salt            func() int
}

// NewScholarService constructs a ScholarService.
func NewScholarService(uow unitOfWork, identity IdentityGateway, compensator identityCompensator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScholarServiceConfig) *ScholarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if cfg.IdentityTimeout <= 0 {
		cfg.IdentityTimeout = 5 * time.Second
	}
	return &ScholarService{
		uow:             uow,
		identity:        identity,
		compensator:     compensator,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		identityTimeout: cfg.IdentityTimeout,
		salt:            func() int { return rand.Intn(10) },
	}
}

// Create provisions the identity, then writes the whole aggregate in one
// transaction. If the transaction fails the identity is queued for deletion.
func (s *ScholarService) Create(ctx context.Context, req dto.CreateScholarRequest, actorID string) (detail *models.ScholarDetail, err error) {
	defer func() { s.recordWrite("create", err) }()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scholar payload")
	}

	handle, err := provisionIdentity(ctx, s.identity, s.identityTimeout, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		created, err := s.createAggregate(ctx, stores, handle.AccountID, req, actor(actorID))
		if err != nil {
			return err
		}
		detail = created
		return nil
	})
	if err != nil {
		return nil, releaseIdentity(s.compensator, s.logger, handle, "scholar", repository.TranslateError(err, "failed to create scholar"))
	}

	logger.FromContext(ctx, s.logger).Info("scholar created", zap.String("scholar_id", detail.ID), zap.String("account_id", detail.AccountID))
	return detail, nil
}

func (s *ScholarService) createAggregate(ctx context.Context, stores repository.Stores, accountID string, req dto.CreateScholarRequest, createdBy *string) (*models.ScholarDetail, error) {
	code, err := assignRefCode(ctx, stores.Accounts, req.FirstName, req.LastName, req.DOB.Time, s.salt)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:        accountID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     models.RolesOf(models.RoleScholar),
		RefCode:   code,
	}
	if err := stores.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	scholar := &models.Scholar{
		AccountID:                    account.ID,
		DOB:                          req.DOB.Time,
		Gender:                       req.Gender,
		HasDisability:                req.HasDisability,
		DisabilityDescription:        req.DisabilityDescription,
		NumberOfChildren:             req.NumberOfChildren,
		IngressDate:                  req.IngressDate.Time,
		EmergencyContactName:         req.EmergencyContactName,
		EmergencyContactPhone:        req.EmergencyContactPhone,
		EmergencyContactRelationship: req.EmergencyContactRelationship,
		DUI:                          req.DUI,
		State:                        req.State,
		CreatedBy:                    createdBy,
	}
	if err := stores.Scholars.Create(ctx, scholar); err != nil {
		return nil, err
	}

	last := len(req.Addresses) - 1
	for i, in := range req.Addresses {
		address := addressFromInput(in, createdBy)
		if err := stores.Addresses.Create(ctx, address); err != nil {
			return nil, err
		}
		link := models.AddressLink{
			ScholarID: scholar.ID,
			AddressID: address.ID,
			IsOrigin:  i == 0,
			IsCurrent: i == last && req.CurrentAddressID == nil,
		}
		if err := stores.Addresses.Link(ctx, link); err != nil {
			return nil, err
		}
	}
	if req.CurrentAddressID != nil {
		if err := linkExistingCurrent(ctx, stores, scholar.ID, *req.CurrentAddressID, len(req.Addresses) == 0); err != nil {
			return nil, err
		}
	}
	if len(req.Addresses) > 2 || (req.CurrentAddressID != nil && len(req.Addresses) > 1) {
		if err := pruneStaleAddresses(ctx, stores, scholar.ID); err != nil {
			return nil, err
		}
	}

	for _, in := range req.PhoneNumbers {
		if err := linkPhone(ctx, stores, scholar.ID, in); err != nil {
			return nil, err
		}
	}

	hasPrimary := false
	for _, in := range req.BankAccounts {
		account := bankAccountFromInput(in, scholar.ID)
		account.IsPrimary = in.Primary() && !hasPrimary
		hasPrimary = hasPrimary || account.IsPrimary
		if err := stores.BankAccounts.Create(ctx, account); err != nil {
			return nil, err
		}
	}

	return loadDetail(ctx, stores, scholar)
}

// Get returns the aggregate of a scholar.
func (s *ScholarService) Get(ctx context.Context, id string) (*models.ScholarDetail, error) {
	return s.read(ctx, func(ctx context.Context, stores repository.Stores) (*models.Scholar, error) {
		return findScholar(ctx, stores.Scholars, id)
	})
}

// GetByAccount returns the aggregate of the scholar owned by an account.
func (s *ScholarService) GetByAccount(ctx context.Context, accountID string) (*models.ScholarDetail, error) {
	return s.read(ctx, func(ctx context.Context, stores repository.Stores) (*models.Scholar, error) {
		return stores.Scholars.FindByAccountID(ctx, accountID)
	})
}

func (s *ScholarService) read(ctx context.Context, find func(context.Context, repository.Stores) (*models.Scholar, error)) (*models.ScholarDetail, error) {
	var detail *models.ScholarDetail
	err := s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		scholar, err := find(ctx, stores)
		if err != nil {
			return notFound(err, "scholar not found")
		}
		detail, err = loadDetail(ctx, stores, scholar)
		return err
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to load scholar")
	}
	return detail, nil
}

// Update applies a partial update. Only present fields change.
func (s *ScholarService) Update(ctx context.Context, id string, req dto.UpdateScholarRequest, actorID string) (detail *models.ScholarDetail, err error) {
	defer func() { s.recordWrite("update", err) }()

	if email, ok := req.Email.Get(); ok {
		req.Email = models.Some(strings.ToLower(strings.TrimSpace(email)))
	}
	if blank := req.BlankRequiredFields(); len(blank) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fields must not be blank: "+strings.Join(blank, ", "))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scholar payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newEmail, emailChanged := req.Email.Get()
	emailChanged = emailChanged && newEmail != current.Account.Email
	if emailChanged {
		if err := s.updateIdentityEmail(ctx, current.AccountID, newEmail); err != nil {
			return nil, err
		}
	}

	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		updated, err := s.updateAggregate(ctx, stores, id, req, actor(actorID))
		if err != nil {
			return err
		}
		detail = updated
		return nil
	})
	if err != nil {
		if emailChanged {
			s.revertIdentityEmail(current.AccountID, current.Account.Email)
		}
		return nil, repository.TranslateError(err, "failed to update scholar")
	}
	return detail, nil
}

// UpdateByEmail applies a partial update to the scholar whose account uses email.
func (s *ScholarService) UpdateByEmail(ctx context.Context, email string, req dto.UpdateScholarRequest, actorID string) (*models.ScholarDetail, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var scholarID string
	err := s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		account, err := stores.Accounts.FindByEmail(ctx, email)
		if err != nil {
			return notFound(err, "scholar not found")
		}
		scholar, err := stores.Scholars.FindByAccountID(ctx, account.ID)
		if err != nil {
			return notFound(err, "scholar not found")
		}
		scholarID = scholar.ID
		return nil
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to load scholar")
	}
	return s.Update(ctx, scholarID, req, actorID)
}

func (s *ScholarService) updateIdentityEmail(ctx context.Context, accountID, email string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.identityTimeout)
	defer cancel()
	if err := s.identity.UpdateEmail(callCtx, accountID, email); err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return appErrors.From(appErrors.ErrUpstreamTimeout, err, "")
		}
		return gatewayError(err, "identity provider rejected email change")
	}
	return nil
}

func (s *ScholarService) revertIdentityEmail(accountID, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.identityTimeout)
	defer cancel()
	if err := s.identity.UpdateEmail(ctx, accountID, email); err != nil {
		s.logger.Error("identity email diverged from account", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *ScholarService) updateAggregate(ctx context.Context, stores repository.Stores, id string, req dto.UpdateScholarRequest, actorID *string) (*models.ScholarDetail, error) {
	scholar, err := findScholar(ctx, stores.Scholars, id)
	if err != nil {
		return nil, err
	}
	account, err := stores.Accounts.FindByID(ctx, scholar.AccountID)
	if err != nil {
		return nil, notFound(err, "account not found")
	}

	if applyAccountPatch(account, req) {
		if err := stores.Accounts.Update(ctx, account); err != nil {
			return nil, err
		}
	}
	if applyScholarPatch(scholar, req) {
		if err := stores.Scholars.Update(ctx, scholar); err != nil {
			return nil, err
		}
	}
	if err := mergeAddresses(ctx, stores, scholar.ID, req, actorID); err != nil {
		return nil, err
	}
	if err := mergePhones(ctx, stores, scholar.ID, req.PhoneNumbers); err != nil {
		return nil, err
	}
	if err := mergeBankAccounts(ctx, stores, scholar.ID, req.BankAccounts); err != nil {
		return nil, err
	}

	entry := &models.LogbookEntry{ScholarID: scholar.ID, Log: UpdateLogMessage, CreatedBy: actorID}
	if err := stores.Logbook.Create(ctx, entry); err != nil {
		return nil, err
	}

	return loadDetail(ctx, stores, scholar)
}

func applyAccountPatch(account *models.Account, req dto.UpdateScholarRequest) bool {
	changed := false
	if v, ok := req.Email.Get(); ok && v != account.Email {
		account.Email = v
		changed = true
	}
	if v, ok := req.FirstName.Get(); ok {
		account.FirstName = strings.TrimSpace(v)
		changed = true
	}
	if v, ok := req.LastName.Get(); ok {
		account.LastName = strings.TrimSpace(v)
		changed = true
	}
	return changed
}

func applyScholarPatch(scholar *models.Scholar, req dto.UpdateScholarRequest) bool {
	changed := false
	if d, ok := req.DOB.Get(); ok {
		scholar.DOB = d.Time
		changed = true
	}
	if d, ok := req.IngressDate.Get(); ok {
		scholar.IngressDate = d.Time
		changed = true
	}
	if d, ok := req.EgressDate.Get(); ok {
		scholar.EgressDate = nil
		if d != nil {
			t := d.Time
			scholar.EgressDate = &t
		}
		changed = true
	}
	if state, ok := req.State.Get(); ok {
		scholar.State = state
		changed = true
	}
	changed = req.Gender.Apply(&scholar.Gender) || changed
	changed = req.HasDisability.Apply(&scholar.HasDisability) || changed
	changed = req.DisabilityDescription.Apply(&scholar.DisabilityDescription) || changed
	changed = req.NumberOfChildren.Apply(&scholar.NumberOfChildren) || changed
	changed = req.EgressComments.Apply(&scholar.EgressComments) || changed
	changed = req.EmergencyContactName.Apply(&scholar.EmergencyContactName) || changed
	changed = req.EmergencyContactPhone.Apply(&scholar.EmergencyContactPhone) || changed
	changed = req.EmergencyContactRelationship.Apply(&scholar.EmergencyContactRelationship) || changed
	changed = req.DUI.Apply(&scholar.DUI) || changed
	return changed
}

// mergeAddresses updates addresses with an id in place and links new ones as
// current. Links left neither origin nor current are dropped and their
// pooled rows pruned.
func mergeAddresses(ctx context.Context, stores repository.Stores, scholarID string, req dto.UpdateScholarRequest, actorID *string) error {
	currentID, hasCurrentID := req.CurrentAddressID.Get()
	if len(req.Addresses) == 0 && (!hasCurrentID || currentID <= 0) {
		return nil
	}

	existing, err := stores.Addresses.ListByScholar(ctx, scholarID)
	if err != nil {
		return err
	}
	linked := make(map[int64]models.AddressDetail, len(existing))
	hasOrigin := false
	for _, a := range existing {
		linked[a.ID] = a
		hasOrigin = hasOrigin || a.IsOrigin
	}

	for _, in := range req.Addresses {
		if in.ID != nil {
			prev, ok := linked[*in.ID]
			if !ok {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("address %d is not linked to this scholar", *in.ID))
			}
			if err := rewriteAddress(ctx, stores, scholarID, prev, in, actorID); err != nil {
				return err
			}
			continue
		}
		address := addressFromInput(in, actorID)
		if err := stores.Addresses.Create(ctx, address); err != nil {
			return err
		}
		if err := stores.Addresses.Link(ctx, models.AddressLink{ScholarID: scholarID, AddressID: address.ID, IsOrigin: !hasOrigin}); err != nil {
			return err
		}
		hasOrigin = true
		if err := stores.Addresses.SetCurrent(ctx, scholarID, address.ID); err != nil {
			return err
		}
	}

	if hasCurrentID && currentID > 0 {
		if err := linkExistingCurrent(ctx, stores, scholarID, currentID, !hasOrigin); err != nil {
			return err
		}
	}

	return pruneStaleAddresses(ctx, stores, scholarID)
}

// rewriteAddress edits a linked address in place. An address other scholars
// also link is copied first so their rows stay untouched.
func rewriteAddress(ctx context.Context, stores repository.Stores, scholarID string, prev models.AddressDetail, in dto.AddressInput, actorID *string) error {
	links, err := stores.Addresses.CountLinks(ctx, prev.ID)
	if err != nil {
		return err
	}
	if links > 1 {
		address := addressFromInput(in, actorID)
		if err := stores.Addresses.Create(ctx, address); err != nil {
			return err
		}
		return stores.Addresses.Relink(ctx, scholarID, prev.ID, address.ID)
	}
	address := addressFromInput(in, prev.CreatedBy)
	address.ID = prev.ID
	return stores.Addresses.Update(ctx, address)
}

// pruneStaleAddresses unlinks every address that is neither origin nor current
// and deletes the ones no scholar links anymore.
func pruneStaleAddresses(ctx context.Context, stores repository.Stores, scholarID string) error {
	linked, err := stores.Addresses.ListByScholar(ctx, scholarID)
	if err != nil {
		return err
	}
	stale := make([]int64, 0)
	for _, a := range linked {
		if a.IsOrigin || a.IsCurrent {
			continue
		}
		if err := stores.Addresses.Unlink(ctx, scholarID, a.ID); err != nil {
			return err
		}
		stale = append(stale, a.ID)
	}
	return stores.Addresses.PruneOrphans(ctx, stale)
}

// linkExistingCurrent links a pooled address and makes it the current one.
func linkExistingCurrent(ctx context.Context, stores repository.Stores, scholarID string, addressID int64, asOrigin bool) error {
	if _, err := stores.Addresses.FindByID(ctx, addressID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidReference, fmt.Sprintf("address %d does not exist", addressID))
		}
		return err
	}
	if err := stores.Addresses.Link(ctx, models.AddressLink{ScholarID: scholarID, AddressID: addressID, IsOrigin: asOrigin}); err != nil {
		return err
	}
	return stores.Addresses.SetCurrent(ctx, scholarID, addressID)
}

func mergePhones(ctx context.Context, stores repository.Stores, scholarID string, inputs []dto.PhoneInput) error {
	released := make([]int64, 0)
	for _, in := range inputs {
		if in.ID == nil {
			if err := linkPhone(ctx, stores, scholarID, in); err != nil {
				return err
			}
			continue
		}
		link, err := stores.Phones.FindLink(ctx, scholarID, *in.ID)
		if err != nil {
			return notFound(err, fmt.Sprintf("phone number %d is not linked to this scholar", *in.ID))
		}
		numberID, err := stores.Phones.Upsert(ctx, in.Number)
		if err != nil {
			return err
		}
		if numberID != link.PhoneNumberID {
			released = append(released, link.PhoneNumberID)
		}
		link.PhoneNumberID = numberID
		link.IsCurrent = in.IsCurrent
		link.IsMobile = in.IsMobile
		if err := stores.Phones.UpdateLink(ctx, link); err != nil {
			return err
		}
	}
	return stores.Phones.PruneOrphans(ctx, released)
}

func linkPhone(ctx context.Context, stores repository.Stores, scholarID string, in dto.PhoneInput) error {
	numberID, err := stores.Phones.Upsert(ctx, in.Number)
	if err != nil {
		return err
	}
	return stores.Phones.Link(ctx, &models.ScholarPhone{
		ScholarID:     scholarID,
		PhoneNumberID: numberID,
		IsCurrent:     in.IsCurrent,
		IsMobile:      in.IsMobile,
	})
}

// mergeBankAccounts updates accounts with an id and inserts the rest. An input
// marked primary, or the first one when the scholar has no primary, becomes
// the only primary account.
func mergeBankAccounts(ctx context.Context, stores repository.Stores, scholarID string, inputs []dto.BankAccountInput) error {
	if len(inputs) == 0 {
		return nil
	}
	existing, err := stores.BankAccounts.ListByScholar(ctx, scholarID)
	if err != nil {
		return err
	}
	hasPrimary := false
	for _, a := range existing {
		hasPrimary = hasPrimary || a.IsPrimary
	}

	for _, in := range inputs {
		account := bankAccountFromInput(in, scholarID)
		if in.ID != nil {
			if _, err := stores.BankAccounts.FindByID(ctx, scholarID, *in.ID); err != nil {
				return notFound(err, fmt.Sprintf("bank account %d is not linked to this scholar", *in.ID))
			}
			account.ID = *in.ID
			if err := stores.BankAccounts.Update(ctx, account); err != nil {
				return err
			}
		} else if err := stores.BankAccounts.Create(ctx, account); err != nil {
			return err
		}

		explicit := in.IsPrimary != nil && *in.IsPrimary
		if explicit || (in.IsPrimary == nil && !hasPrimary) {
			if err := stores.BankAccounts.SetPrimary(ctx, scholarID, account.ID); err != nil {
				return err
			}
			hasPrimary = true
		}
	}
	return nil
}

// Delete tears the aggregate down in dependency order, then removes the
// identity. Identity failures never undo the local deletion.
func (s *ScholarService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.recordWrite("delete", err) }()

	var accountID string
	err = s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		scholar, err := findScholar(ctx, stores.Scholars, id)
		if err != nil {
			return err
		}
		accountID = scholar.AccountID
		return deleteAggregate(ctx, stores, scholar)
	})
	if err != nil {
		return repository.TranslateError(err, "failed to delete scholar")
	}

	dropIdentity(ctx, s.identity, s.compensator, s.logger, s.identityTimeout, accountID, "scholar deleted")
	logger.FromContext(ctx, s.logger).Info("scholar deleted", zap.String("scholar_id", id), zap.String("account_id", accountID))
	return nil
}

func deleteAggregate(ctx context.Context, stores repository.Stores, scholar *models.Scholar) error {
	numberIDs, err := stores.Phones.DeleteLinks(ctx, scholar.ID)
	if err != nil {
		return err
	}
	if err := stores.Phones.PruneOrphans(ctx, numberIDs); err != nil {
		return err
	}
	addressIDs, err := stores.Addresses.UnlinkAll(ctx, scholar.ID)
	if err != nil {
		return err
	}
	if err := stores.Addresses.PruneOrphans(ctx, addressIDs); err != nil {
		return err
	}
	if err := stores.BankAccounts.DeleteByScholar(ctx, scholar.ID); err != nil {
		return err
	}
	if err := stores.Logbook.DeleteByScholar(ctx, scholar.ID); err != nil {
		return err
	}
	if err := stores.Scholars.Delete(ctx, scholar.ID); err != nil {
		return err
	}
	return stores.Accounts.Delete(ctx, scholar.AccountID)
}

// DeleteAll removes every scholar. Intended for test environments only.
func (s *ScholarService) DeleteAll(ctx context.Context) (int, error) {
	var ids []string
	err := s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		var err error
		ids, err = stores.Scholars.ListIDs(ctx)
		return err
	})
	if err != nil {
		return 0, repository.TranslateError(err, "failed to list scholars")
	}
	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	logger.FromContext(ctx, s.logger).Warn("all scholars deleted", zap.Int("count", deleted))
	return deleted, nil
}

// RemovePhoneNumber unlinks a phone number from the scholar and prunes the
// pooled number when nobody else uses it.
func (s *ScholarService) RemovePhoneNumber(ctx context.Context, scholarID string, linkID int64) error {
	err := s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		if _, err := findScholar(ctx, stores.Scholars, scholarID); err != nil {
			return err
		}
		link, err := stores.Phones.FindLink(ctx, scholarID, linkID)
		if err != nil {
			return notFound(err, "phone number not found")
		}
		if err := stores.Phones.DeleteLink(ctx, scholarID, linkID); err != nil {
			return err
		}
		return stores.Phones.PruneOrphans(ctx, []int64{link.PhoneNumberID})
	})
	if err != nil {
		return repository.TranslateError(err, "failed to remove phone number")
	}
	return nil
}

// List returns one page of scholars. Count and page share a snapshot.
func (s *ScholarService) List(ctx context.Context, req pagination.Request) (*pagination.Result[models.ScholarSummary], error) {
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "" && !strings.EqualFold(status, pagination.StatusAll) && !models.ScholarState(status).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	q, err := pagination.Build(req, pagination.Options[models.ScholarFilter]{
		Where: scholarFilter,
		Order: columnOrder(repository.ScholarSortColumns),
	})
	if err != nil {
		return nil, err
	}

	var (
		rows  []models.ScholarSummary
		total int
	)
	err = s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		var err error
		if total, err = stores.Scholars.Count(ctx, q.Where); err != nil {
			return err
		}
		rows, err = stores.Scholars.List(ctx, q)
		return err
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list scholars")
	}
	result := pagination.NewResult(rows, total, q)
	return &result, nil
}

func scholarFilter(query, status string) models.ScholarFilter {
	filter := models.ScholarFilter{Search: query}
	if !strings.EqualFold(status, pagination.StatusAll) {
		state := models.ScholarState(strings.ToUpper(status))
		filter.State = &state
	}
	return filter
}

// columnOrder resolves sort keys, snake_case or camelCase, against a column map.
func columnOrder(columns map[string]string) pagination.OrderFunc {
	return func(key string, dir pagination.Direction) (*pagination.Order, error) {
		if key == "" {
			return nil, nil
		}
		column, ok := columns[snakeCase(key)]
		if !ok {
			return nil, pagination.InvalidSortKey(key)
		}
		return &pagination.Order{Field: column, Direction: dir}, nil
	}
}

func snakeCase(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func loadDetail(ctx context.Context, stores repository.Stores, scholar *models.Scholar) (*models.ScholarDetail, error) {
	account, err := stores.Accounts.FindByID(ctx, scholar.AccountID)
	if err != nil {
		return nil, notFound(err, "account not found")
	}
	addresses, err := stores.Addresses.ListByScholar(ctx, scholar.ID)
	if err != nil {
		return nil, err
	}
	phones, err := stores.Phones.ListByScholar(ctx, scholar.ID)
	if err != nil {
		return nil, err
	}
	banks, err := stores.BankAccounts.ListByScholar(ctx, scholar.ID)
	if err != nil {
		return nil, err
	}

	detail := &models.ScholarDetail{
		Scholar:      *scholar,
		Account:      *account,
		Addresses:    addresses,
		PhoneNumbers: phones,
		BankAccounts: banks,
	}
	for i := range addresses {
		if addresses[i].IsCurrent {
			detail.CurrentAddress = &addresses[i]
		}
		if addresses[i].IsOrigin {
			detail.OriginAddress = &addresses[i]
		}
	}
	return detail, nil
}

func addressFromInput(in dto.AddressInput, createdBy *string) *models.Address {
	return &models.Address{
		StreetLine1: strings.TrimSpace(in.StreetLine1),
		StreetLine2: in.StreetLine2,
		DistrictID:  in.DistrictID,
		IsUrban:     in.IsUrban,
		CreatedBy:   createdBy,
	}
}

func bankAccountFromInput(in dto.BankAccountInput, scholarID string) *models.BankAccount {
	return &models.BankAccount{
		ScholarID:     scholarID,
		BankID:        in.BankID,
		AccountHolder: strings.TrimSpace(in.AccountHolder),
		AccountNumber: strings.TrimSpace(in.AccountNumber),
		AccountType:   in.AccountType,
	}
}

// notFound maps a missing row onto NOT_FOUND with message.
// findScholar loads a scholar by id. Ids that are not UUIDs cannot exist and
// report NOT_FOUND without a query.
func findScholar(ctx context.Context, scholars repository.ScholarStore, id string) (*models.Scholar, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholar not found")
	}
	scholar, err := scholars.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "scholar not found")
	}
	return scholar, nil
}

func notFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.From(appErrors.ErrNotFound, err, message)
	}
	return err
}

func actor(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (s *ScholarService) recordWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = appErrors.KindOf(err)
	}
	s.metrics.RecordAggregateWrite(operation, result)
}

package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/repository"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// LogbookService manages scholar logbook entries.
type LogbookService struct {
	uow       unitOfWork
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLogbookService constructs a LogbookService.
func NewLogbookService(uow unitOfWork, validate *validator.Validate, logger *zap.Logger) *LogbookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &LogbookService{uow: uow, validator: validate, logger: logger}
}

// List returns entries across every scholar, newest first.
func (s *LogbookService) List(ctx context.Context, req pagination.Request) (*pagination.Result[models.LogbookEntryDetail], error) {
	return s.list(ctx, "", req)
}

// ListByScholar returns the entries of one scholar.
func (s *LogbookService) ListByScholar(ctx context.Context, scholarID string, req pagination.Request) (*pagination.Result[models.LogbookEntryDetail], error) {
	if strings.TrimSpace(scholarID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scholar id is required")
	}
	return s.list(ctx, scholarID, req)
}

func (s *LogbookService) list(ctx context.Context, scholarID string, req pagination.Request) (*pagination.Result[models.LogbookEntryDetail], error) {
	q, err := pagination.Build(req, pagination.Options[models.LogbookFilter]{
		Where: func(query, _ string) models.LogbookFilter {
			return models.LogbookFilter{ScholarID: scholarID, Search: query}
		},
		Order: columnOrder(repository.LogbookSortColumns),
	})
	if err != nil {
		return nil, err
	}

	var (
		rows  []models.LogbookEntryDetail
		total int
	)
	err = s.uow.RunReadOnly(ctx, func(stores repository.Stores) error {
		if scholarID != "" {
			if _, err := findScholar(ctx, stores.Scholars, scholarID); err != nil {
				return err
			}
		}
		var err error
		if total, err = stores.Logbook.Count(ctx, q.Where); err != nil {
			return err
		}
		rows, err = stores.Logbook.List(ctx, q)
		return err
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to list logbook entries")
	}
	result := pagination.NewResult(rows, total, q)
	return &result, nil
}

// Create appends a manual entry written by actorID.
func (s *LogbookService) Create(ctx context.Context, scholarID string, req dto.CreateLogbookEntryRequest, actorID string) (*models.LogbookEntry, error) {
	req.Log = strings.TrimSpace(req.Log)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid logbook entry")
	}

	entry := &models.LogbookEntry{ScholarID: scholarID, Log: req.Log, CreatedBy: actor(actorID)}
	if req.Date != nil && !req.Date.IsZero() {
		entry.Date = req.Date.Time
	}
	err := s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		if _, err := findScholar(ctx, stores.Scholars, scholarID); err != nil {
			return err
		}
		return stores.Logbook.Create(ctx, entry)
	})
	if err != nil {
		return nil, repository.TranslateError(err, "failed to create logbook entry")
	}
	s.logger.Debug("logbook entry created", zap.String("scholar_id", scholarID), zap.Int64("entry_id", entry.ID))
	return entry, nil
}

// Delete removes an entry.
func (s *LogbookService) Delete(ctx context.Context, id int64) error {
	err := s.uow.RunInTx(ctx, func(stores repository.Stores) error {
		return notFound(stores.Logbook.Delete(ctx, id), "logbook entry not found")
	})
	if err != nil {
		return repository.TranslateError(err, "failed to delete logbook entry")
	}
	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/garyjia/office-orders/internal/application/payload"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// DraftingService suggests office-order bodies from the visit details
type DraftingService interface {
	SuggestBody(ctx context.Context, session entity.Session, record port.Record) (document.Document, error)
}

type draftingServiceImpl struct {
	drafter   port.BodyDrafter
	validator *validation.Validator
	logger    Logger
}

// NewDraftingService creates a new DraftingService
func NewDraftingService(drafter port.BodyDrafter, validator *validation.Validator, logger Logger) DraftingService {
	return &draftingServiceImpl{
		drafter:   drafter,
		validator: validator,
		logger:    logger,
	}
}

// SuggestBody needs the visit details the draft profile requires. The
// suggestion never carries the signature block; it is added on rendering.
func (s *draftingServiceImpl) SuggestBody(ctx context.Context, session entity.Session, record port.Record) (document.Document, error) {
	if !session.IsAuthenticated() {
		return document.Document{}, apperr.ErrAuthMissing
	}

	task, err := payload.Parse(record)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %w", apperr.ErrMalformedRecord, err)
	}

	if err := s.validator.ValidateProfile(validation.ProfileDraft, validation.InputFrom(task, session.Role, "")); err != nil {
		return document.Document{}, err
	}

	doc, err := s.drafter.DraftBody(ctx, task)
	if err != nil {
		s.logger.Error("Failed to draft office order body",
			"error", err,
			"cover_page_no", task.CoverPageNo,
			"user_id", session.UserID,
		)
		return document.Document{}, fmt.Errorf("draft body: %w", err)
	}

	doc = document.Cleanup(doc, task.OfficeOrder.SigningAuthority)
	if doc.IsEmpty() {
		return document.Document{}, apperr.ErrEmptyResult
	}

	s.logger.Info("Office order body drafted",
		"cover_page_no", task.CoverPageNo,
		"blocks", len(doc.Blocks),
	)
	return doc, nil
}

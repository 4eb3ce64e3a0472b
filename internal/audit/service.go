package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/logger"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

// Service records and reads audit trail entries.
type Service interface {
	Record(ctx context.Context, input RecordInput)
	ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryList, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*EntryList, error)
}

// RecordInput carries one mutation to be written to the audit trail.
type RecordInput struct {
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	Action     enums.AuditAction
	EntityType enums.AuditEntityType
	EntityID   uuid.UUID
	OldValue   any
	NewValue   any
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds an audit service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Record writes one audit entry after the primary mutation has committed.
// Failures are logged and swallowed: an audit outage never rolls back or fails
// the operation it describes.
func (s *service) Record(ctx context.Context, input RecordInput) {
	entry := &models.AuditLogEntry{
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		Action:     input.Action,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
	}

	if input.OldValue != nil {
		raw, err := json.Marshal(input.OldValue)
		if err != nil {
			s.logg.Error(ctx, "marshaling audit old value", err)
			return
		}
		entry.OldValue = raw
	}
	if input.NewValue != nil {
		raw, err := json.Marshal(input.NewValue)
		if err != nil {
			s.logg.Error(ctx, "marshaling audit new value", err)
			return
		}
		entry.NewValue = raw
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"action":      input.Action,
			"entity_type": input.EntityType,
			"entity_id":   input.EntityID.String(),
		})
		s.logg.Error(logCtx, "writing audit entry", err)
	}
}

func (s *service) ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryList, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entity type")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	list, err := s.repo.ListByEntity(ctx, entityType, entityID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list audit entries")
	}
	return list, nil
}

func (s *service) ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*EntryList, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	list, err := s.repo.ListByActor(ctx, actorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list audit entries")
	}
	return list, nil
}

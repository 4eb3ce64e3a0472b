package disputes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
)

// disputeTargets is the allow-list for dispute progress. Closing is a
// short-circuit available from every non-closed state, so abandoned disputes
// can always be shut without first resolving them.
var disputeTargets = map[enums.DisputeStatus][]enums.DisputeStatus{
	enums.DisputeStatusOpen: {
		enums.DisputeStatusInvestigating,
		enums.DisputeStatusClosed,
	},
	enums.DisputeStatusInvestigating: {
		enums.DisputeStatusResolvedBuyer,
		enums.DisputeStatusResolvedSeller,
		enums.DisputeStatusClosed,
	},
	enums.DisputeStatusResolvedBuyer:  {enums.DisputeStatusClosed},
	enums.DisputeStatusResolvedSeller: {enums.DisputeStatusClosed},
	enums.DisputeStatusClosed:         {},
}

// CanTransition reports whether the dispute flow permits the move.
func CanTransition(from, to enums.DisputeStatus) bool {
	for _, target := range disputeTargets[from] {
		if target == to {
			return true
		}
	}
	return false
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the dispute workflow: buyers open, admins investigate and
// resolve for one side, anyone with authority closes.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Dispute, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*models.Dispute, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error)
	Get(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error)
}

// OpenInput opens a dispute against an order.
type OpenInput struct {
	OrderID     uuid.UUID
	SellerID    uuid.UUID
	Reason      string
	Description string
	Actor       orders.ActorContext
}

// SetStatusInput moves a dispute without recording an outcome, i.e. to
// investigating or closed.
type SetStatusInput struct {
	DisputeID uuid.UUID
	Target    enums.DisputeStatus
	Actor     orders.ActorContext
}

// ResolveInput records the outcome and the one-time resolution text.
type ResolveInput struct {
	DisputeID  uuid.UUID
	Outcome    enums.DisputeStatus
	Resolution string
	Actor      orders.ActorContext
}

// DisputeEvent is the outbox payload for dispute lifecycle changes.
type DisputeEvent struct {
	DisputeID  uuid.UUID           `json:"dispute_id"`
	OrderID    uuid.UUID           `json:"order_id"`
	FromStatus enums.DisputeStatus `json:"from_status"`
	ToStatus   enums.DisputeStatus `json:"to_status"`
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	audit      audit.Service
}

// NewService builds a dispute service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		tx:         tx,
		outbox:     outboxSvc,
		audit:      auditSvc,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Dispute, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute description required")
	}

	dispute := &models.Dispute{
		OrderID:     input.OrderID,
		BuyerID:     input.Actor.UserID,
		SellerID:    input.SellerID,
		Reason:      input.Reason,
		Description: input.Description,
		Status:      enums.DisputeStatusOpen,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ordersRepo.WithTx(tx).FindByID(ctx, input.OrderID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create dispute")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: DisputeEvent{
				DisputeID: dispute.ID,
				OrderID:   dispute.OrderID,
				ToStatus:  dispute.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionDisputeOpened,
		EntityType: enums.AuditEntityDispute,
		EntityID:   dispute.ID,
		NewValue:   map[string]any{"status": dispute.Status},
	})
	return dispute, nil
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown dispute status %q", input.Target))
	}
	if input.Target == enums.DisputeStatusResolvedBuyer || input.Target == enums.DisputeStatusResolvedSeller {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution outcomes require Resolve with resolution text")
	}
	if input.Target == enums.DisputeStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "open is not a valid transition target")
	}

	dispute, fromStatus, err := s.applyTransition(ctx, input.DisputeID, input.Target, input.Actor, nil)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionDisputeStatusSet,
		EntityType: enums.AuditEntityDispute,
		EntityID:   dispute.ID,
		OldValue:   map[string]any{"status": fromStatus},
		NewValue:   map[string]any{"status": dispute.Status},
	})
	return dispute, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can resolve disputes")
	}
	if input.Outcome != enums.DisputeStatusResolvedBuyer && input.Outcome != enums.DisputeStatusResolvedSeller {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be resolved_buyer or resolved_seller")
	}
	if input.Resolution == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution text required")
	}

	dispute, fromStatus, err := s.applyTransition(ctx, input.DisputeID, input.Outcome, input.Actor, &input.Resolution)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionDisputeResolved,
		EntityType: enums.AuditEntityDispute,
		EntityID:   dispute.ID,
		OldValue:   map[string]any{"status": fromStatus},
		NewValue:   map[string]any{"status": dispute.Status, "resolution": input.Resolution},
	})
	return dispute, nil
}

func (s *service) applyTransition(ctx context.Context, disputeID uuid.UUID, target enums.DisputeStatus, actor orders.ActorContext, resolution *string) (*models.Dispute, enums.DisputeStatus, error) {
	var (
		dispute    *models.Dispute
		fromStatus enums.DisputeStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, disputeID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load dispute")
		}
		if resolution != nil && loaded.Resolution != nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "dispute resolution is already recorded")
		}
		if !CanTransition(loaded.Status, target) {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("cannot transition dispute from %s to %s", loaded.Status, target))
		}

		now := time.Now()
		updates := map[string]any{"status": target, "updated_at": now}
		// resolution outcomes and closure both record who acted and when;
		// only investigating leaves the resolved columns alone
		if resolution != nil || target == enums.DisputeStatusClosed {
			updates["resolver_id"] = actor.UserID
			updates["resolved_at"] = now
		}
		if resolution != nil {
			updates["resolution"] = *resolution
		}

		affected, err := repo.UpdateStatusIf(ctx, loaded.ID, loaded.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "update dispute status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "dispute was modified concurrently")
		}

		fromStatus = loaded.Status
		loaded.Status = target
		if resolution != nil || target == enums.DisputeStatusClosed {
			loaded.ResolverID = &actor.UserID
			loaded.ResolvedAt = &now
		}
		if resolution != nil {
			loaded.Resolution = resolution
		}
		dispute = loaded

		// only resolutions fan out as notifications; status-only moves are
		// visible through the audit trail
		if resolution == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   loaded.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: DisputeEvent{
				DisputeID:  loaded.ID,
				OrderID:    loaded.OrderID,
				FromStatus: fromStatus,
				ToStatus:   target,
			},
		})
	})
	if err != nil {
		return nil, fromStatus, err
	}
	return dispute, fromStatus, nil
}

func (s *service) Get(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	if disputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := s.repo.FindByID(ctx, disputeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load dispute")
	}
	return dispute, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	disputes, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list disputes")
	}
	return disputes, nil
}

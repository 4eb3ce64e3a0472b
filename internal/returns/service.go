package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
)

// returnTargets is the allow-list for return progress. A return must first be
// approved before it can be denied; after that, rejection stays available at
// every step until the refund is issued.
var returnTargets = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested: {enums.ReturnStatusApproved},
	enums.ReturnStatusApproved:  {enums.ReturnStatusShipped, enums.ReturnStatusRejected},
	enums.ReturnStatusShipped:   {enums.ReturnStatusReceived, enums.ReturnStatusRejected},
	enums.ReturnStatusReceived:  {enums.ReturnStatusRefunded, enums.ReturnStatusRejected},
	enums.ReturnStatusRefunded:  {},
	enums.ReturnStatusRejected:  {},
}

// CanTransition reports whether the return flow permits the move.
func CanTransition(from, to enums.ReturnStatus) bool {
	for _, target := range returnTargets[from] {
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

// Service defines the physical-goods return workflow. Return progress never
// mutates the owning order's status; the two lifecycles are independent.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.ReturnRequest, error)
	Transition(ctx context.Context, input TransitionInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error)
}

// RequestInput opens a return against a delivered order.
type RequestInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   orders.ActorContext
}

// TransitionInput moves a return along its allow-list. TrackingNumber is
// required when marking shipped; RefundAmount when marking refunded.
type TransitionInput struct {
	ReturnID       uuid.UUID
	Target         enums.ReturnStatus
	TrackingNumber *string
	RefundAmount   *decimal.Decimal
	Actor          orders.ActorContext
}

// ReturnEvent is the outbox payload for return lifecycle changes.
type ReturnEvent struct {
	ReturnID   uuid.UUID          `json:"return_id"`
	OrderID    uuid.UUID          `json:"order_id"`
	FromStatus enums.ReturnStatus `json:"from_status"`
	ToStatus   enums.ReturnStatus `json:"to_status"`
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	audit      audit.Service
}

// NewService builds a returns service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
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

func (s *service) Request(ctx context.Context, input RequestInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	request := &models.ReturnRequest{
		OrderID:     input.OrderID,
		RequesterID: input.Actor.UserID,
		Reason:      input.Reason,
		Status:      enums.ReturnStatusRequested,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.ordersRepo.WithTx(tx).FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "returns require a delivered order")
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create return request")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturn,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: ReturnEvent{
				ReturnID: request.ID,
				OrderID:  request.OrderID,
				ToStatus: request.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionReturnRequested,
		EntityType: enums.AuditEntityReturn,
		EntityID:   request.ID,
		NewValue:   map[string]any{"status": request.Status},
	})
	return request, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.ReturnRequest, error) {
	if input.ReturnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown return status %q", input.Target))
	}
	if input.Target == enums.ReturnStatusRequested {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested is not a valid transition target")
	}
	if input.Target == enums.ReturnStatusShipped && (input.TrackingNumber == nil || *input.TrackingNumber == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required to mark shipped")
	}
	if input.Target == enums.ReturnStatusRefunded {
		if input.RefundAmount == nil || !input.RefundAmount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "positive refund amount required to mark refunded")
		}
	}

	var (
		request    *models.ReturnRequest
		fromStatus enums.ReturnStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, input.ReturnID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load return request")
		}
		if !CanTransition(loaded.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("cannot transition return from %s to %s", loaded.Status, input.Target))
		}

		now := time.Now()
		updates := map[string]any{"status": input.Target, "updated_at": now}
		if input.Target == enums.ReturnStatusShipped {
			updates["tracking_number"] = *input.TrackingNumber
		}
		if input.Target == enums.ReturnStatusRefunded {
			updates["refund_amount"] = *input.RefundAmount
			updates["processed_at"] = now
		}
		if input.Target == enums.ReturnStatusRejected {
			updates["processed_at"] = now
		}

		affected, err := repo.UpdateStatusIf(ctx, loaded.ID, loaded.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "update return status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "return request was modified concurrently")
		}

		fromStatus = loaded.Status
		loaded.Status = input.Target
		if input.Target == enums.ReturnStatusShipped {
			loaded.TrackingNumber = input.TrackingNumber
		}
		if input.Target == enums.ReturnStatusRefunded {
			loaded.RefundAmount = input.RefundAmount
			loaded.ProcessedAt = &now
		}
		if input.Target == enums.ReturnStatusRejected {
			loaded.ProcessedAt = &now
		}
		request = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnTransition,
			AggregateType: enums.AggregateReturn,
			AggregateID:   loaded.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: ReturnEvent{
				ReturnID:   loaded.ID,
				OrderID:    loaded.OrderID,
				FromStatus: fromStatus,
				ToStatus:   input.Target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionReturnTransitioned,
		EntityType: enums.AuditEntityReturn,
		EntityID:   request.ID,
		OldValue:   map[string]any{"status": fromStatus},
		NewValue:   map[string]any{"status": request.Status},
	})
	return request, nil
}

func (s *service) Get(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	request, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load return request")
	}
	return request, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	requests, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list return requests")
	}
	return requests, nil
}

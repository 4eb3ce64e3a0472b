package refunds

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the refund workflow: buyers request, admins resolve.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Refund, error)
	Approve(ctx context.Context, input ResolveInput) (*models.Refund, error)
	Reject(ctx context.Context, input ResolveInput) (*models.Refund, error)
	Get(ctx context.Context, refundID uuid.UUID) (*models.Refund, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)
}

// RequestInput opens a refund against a paid order.
type RequestInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
	Reason  string
	Actor   orders.ActorContext
}

// ResolveInput approves or rejects a pending refund.
type ResolveInput struct {
	RefundID   uuid.UUID
	Resolution string
	Actor      orders.ActorContext
}

// RefundEvent is the outbox payload for refund lifecycle changes.
type RefundEvent struct {
	RefundID uuid.UUID          `json:"refund_id"`
	OrderID  uuid.UUID          `json:"order_id"`
	Amount   decimal.Decimal    `json:"amount"`
	Status   enums.RefundStatus `json:"status"`
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	audit      audit.Service
}

// NewService builds a refund service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
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

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}

	refund := &models.Refund{
		OrderID:     input.OrderID,
		RequesterID: input.Actor.UserID,
		Amount:      input.Amount,
		Reason:      input.Reason,
		Status:      enums.RefundStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.ordersRepo.WithTx(tx).FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
		}
		if order.PaymentStatus != enums.PaymentStatusPaid && order.PaymentStatus != enums.PaymentStatusPartiallyRefunded {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order has no refundable payment")
		}

		repo := s.repo.WithTx(tx)
		approved, err := repo.SumApprovedByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "sum approved refunds")
		}
		remaining := order.Total.Sub(approved)
		if input.Amount.GreaterThan(remaining) {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("refund amount %s exceeds remaining balance %s", input.Amount, remaining))
		}

		if _, err := repo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create refund")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateRefund,
			AggregateID:   refund.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: RefundEvent{
				RefundID: refund.ID,
				OrderID:  refund.OrderID,
				Amount:   refund.Amount,
				Status:   refund.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionRefundRequested,
		EntityType: enums.AuditEntityRefund,
		EntityID:   refund.ID,
		NewValue:   map[string]any{"status": refund.Status, "amount": refund.Amount},
	})
	return refund, nil
}

// Approve settles a pending refund. The amount is checked against the order's
// remaining refundable balance at approval time, and when the approval exhausts
// that balance the order flips to refunded in the same transaction.
func (s *service) Approve(ctx context.Context, input ResolveInput) (*models.Refund, error) {
	return s.resolve(ctx, input, enums.RefundStatusApproved)
}

// Reject closes a pending refund without moving money.
func (s *service) Reject(ctx context.Context, input ResolveInput) (*models.Refund, error) {
	return s.resolve(ctx, input, enums.RefundStatusRejected)
}

func (s *service) resolve(ctx context.Context, input ResolveInput, target enums.RefundStatus) (*models.Refund, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can resolve refunds")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, input.RefundID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load refund")
		}
		if loaded.Status != enums.RefundStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("refund is already %s", loaded.Status))
		}

		if target == enums.RefundStatusApproved {
			if err := s.applyApproval(ctx, tx, repo, loaded); err != nil {
				return err
			}
		}

		now := time.Now()
		updates := map[string]any{
			"status":      target,
			"resolver_id": input.Actor.UserID,
			"resolved_at": now,
			"updated_at":  now,
		}
		if input.Resolution != "" {
			updates["resolution"] = input.Resolution
		}
		affected, err := repo.UpdateStatusIf(ctx, loaded.ID, enums.RefundStatusPending, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "update refund status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "refund was modified concurrently")
		}

		loaded.Status = target
		loaded.ResolverID = &input.Actor.UserID
		loaded.ResolvedAt = &now
		if input.Resolution != "" {
			resolution := input.Resolution
			loaded.Resolution = &resolution
		}
		refund = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundResolved,
			AggregateType: enums.AggregateRefund,
			AggregateID:   loaded.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: RefundEvent{
				RefundID: loaded.ID,
				OrderID:  loaded.OrderID,
				Amount:   loaded.Amount,
				Status:   target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	action := enums.AuditActionRefundApproved
	if target == enums.RefundStatusRejected {
		action = enums.AuditActionRefundRejected
	}
	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     action,
		EntityType: enums.AuditEntityRefund,
		EntityID:   refund.ID,
		OldValue:   map[string]any{"status": enums.RefundStatusPending},
		NewValue:   map[string]any{"status": refund.Status},
	})
	return refund, nil
}

// applyApproval enforces the balance cap and moves the order's payment state
// inside the caller's transaction so refund and order commit or fail together.
func (s *service) applyApproval(ctx context.Context, tx *gorm.DB, repo Repository, refund *models.Refund) error {
	ordersRepo := s.ordersRepo.WithTx(tx)
	order, err := ordersRepo.FindByID(ctx, refund.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
	}

	approved, err := repo.SumApprovedByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "sum approved refunds")
	}
	remaining := order.Total.Sub(approved)
	if refund.Amount.GreaterThan(remaining) {
		return pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("refund amount %s exceeds remaining balance %s", refund.Amount, remaining))
	}

	orderUpdates := map[string]any{"updated_at": time.Now()}
	if approved.Add(refund.Amount).Equal(order.Total) {
		orderUpdates["status"] = enums.OrderStatusRefunded
		orderUpdates["payment_status"] = enums.PaymentStatusRefunded
	} else {
		orderUpdates["payment_status"] = enums.PaymentStatusPartiallyRefunded
	}

	affected, err := ordersRepo.UpdateStatusIf(ctx, order.ID, order.Status, orderUpdates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "update order payment state")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	return nil
}

func (s *service) Get(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	refund, err := s.repo.FindByID(ctx, refundID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load refund")
	}
	return refund, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	refunds, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list refunds")
	}
	return refunds, nil
}

package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	audit  audit.Service
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, auditSvc audit.Service) (Service, error) {
	if repo == nil {
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
	return &service{repo: repo, tx: tx, outbox: outboxSvc, audit: auditSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.ShippingAddress != nil {
		if err := input.ShippingAddress.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, in := range input.Items {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product id required", i))
		}
		if in.SellerID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: seller id required", i))
		}
		if in.ProductName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product name required", i))
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if in.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price must not be negative", i))
		}
		item := models.OrderItem{
			ProductID:    in.ProductID,
			SellerID:     in.SellerID,
			ProductName:  in.ProductName,
			ProductImage: in.ProductImage,
			UnitPrice:    in.UnitPrice,
			Quantity:     in.Quantity,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		BuyerID:         input.BuyerID,
		Currency:        currency,
		Total:           total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		ShippingAddress: input.ShippingAddress,
		Items:           items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
	}
	return order, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	list, err := s.repo.ListByBuyer(ctx, buyerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list orders")
	}
	return list, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.Target))
	}
	if input.Target == enums.OrderStatusPending || input.Target == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not a valid transition target", input.Target))
	}

	var (
		order      *models.Order
		fromStatus enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load order")
		}
		if !CanTransition(loaded.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("cannot transition order from %s to %s", loaded.Status, input.Target))
		}

		now := time.Now()
		updates := map[string]any{"status": input.Target, "updated_at": now}
		switch input.Target {
		case enums.OrderStatusPaid:
			updates["payment_status"] = enums.PaymentStatusPaid
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		}

		affected, err := repo.UpdateStatusIf(ctx, loaded.ID, loaded.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}

		fromStatus = loaded.Status
		loaded.Status = input.Target
		switch input.Target {
		case enums.OrderStatusPaid:
			loaded.PaymentStatus = enums.PaymentStatusPaid
		case enums.OrderStatusDelivered:
			loaded.DeliveredAt = &now
		case enums.OrderStatusCancelled:
			loaded.CancelledAt = &now
		}
		order = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventTypeForTarget(input.Target),
			AggregateType: enums.AggregateOrder,
			AggregateID:   loaded.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStatusEvent{
				OrderID:    loaded.ID,
				BuyerID:    loaded.BuyerID,
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
		Action:     enums.AuditActionOrderStatusChanged,
		EntityType: enums.AuditEntityOrder,
		EntityID:   order.ID,
		OldValue:   map[string]any{"status": fromStatus},
		NewValue:   map[string]any{"status": order.Status},
	})
	return order, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	return s.Transition(ctx, TransitionInput{
		OrderID: input.OrderID,
		Target:  enums.OrderStatusCancelled,
		Actor:   input.Actor,
	})
}

func eventTypeForTarget(target enums.OrderStatus) enums.OutboxEventType {
	switch target {
	case enums.OrderStatusCancelled:
		return enums.EventOrderCancelled
	case enums.OrderStatusDelivered:
		return enums.EventOrderDelivered
	default:
		return enums.EventOrderStateChanged
	}
}

func buildActor(actor ActorContext) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	}
}

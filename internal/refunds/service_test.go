package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

type stubRefundsRepo struct {
	refund         *models.Refund
	created        *models.Refund
	approvedSum    decimal.Decimal
	updates        map[string]any
	updateAffected int64
}

func (s *stubRefundsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRefundsRepo) Create(ctx context.Context, refund *models.Refund) (*models.Refund, error) {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	s.created = refund
	return refund, nil
}

func (s *stubRefundsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	if s.refund == nil || s.refund.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.refund
	return &copied, nil
}

func (s *stubRefundsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	if s.refund != nil && s.refund.OrderID == orderID {
		return []models.Refund{*s.refund}, nil
	}
	return nil, nil
}

func (s *stubRefundsRepo) SumApprovedByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	return s.approvedSum, nil
}

func (s *stubRefundsRepo) UpdateStatusIf(ctx context.Context, refundID uuid.UUID, expected enums.RefundStatus, updates map[string]any) (int64, error) {
	s.updates = updates
	return s.updateAffected, nil
}

type stubOrdersRepo struct {
	order          *models.Order
	updates        map[string]any
	updateAffected int64
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersRepo) UpdateStatusIf(ctx context.Context, orderID uuid.UUID, expected enums.OrderStatus, updates map[string]any) (int64, error) {
	s.updates = updates
	return s.updateAffected, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubAudit struct {
	records []audit.RecordInput
}

func (s *stubAudit) Record(ctx context.Context, input audit.RecordInput) {
	s.records = append(s.records, input)
}

func (s *stubAudit) ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*audit.EntryList, error) {
	return &audit.EntryList{}, nil
}

func (s *stubAudit) ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*audit.EntryList, error) {
	return &audit.EntryList{}, nil
}

func newTestService(t *testing.T, repo *stubRefundsRepo, ordersRepo *stubOrdersRepo) (Service, *stubOutbox, *stubAudit) {
	t.Helper()
	ob := &stubOutbox{}
	au := &stubAudit{}
	svc, err := NewService(repo, ordersRepo, stubTxRunner{}, ob, au)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, ob, au
}

func adminActor() orders.ActorContext {
	return orders.ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func buyerActor() orders.ActorContext {
	return orders.ActorContext{UserID: uuid.New(), Role: enums.ActorRoleBuyer}
}

func paidOrder(total string) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		Total:         decimal.RequireFromString(total),
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
	}
}

func pendingRefund(orderID uuid.UUID, amount string) *models.Refund {
	return &models.Refund{
		ID:          uuid.New(),
		OrderID:     orderID,
		RequesterID: uuid.New(),
		Amount:      decimal.RequireFromString(amount),
		Reason:      "damaged goods",
		Status:      enums.RefundStatusPending,
	}
}

func TestRequestCreatesPendingRefund(t *testing.T) {
	order := paidOrder("100.00")
	ordersRepo := &stubOrdersRepo{order: order}
	repo := &stubRefundsRepo{approvedSum: decimal.Zero}
	svc, ob, au := newTestService(t, repo, ordersRepo)

	refund, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("25.00"),
		Reason:  "damaged goods",
		Actor:   buyerActor(),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if refund.Status != enums.RefundStatusPending {
		t.Errorf("status = %s, want pending", refund.Status)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventRefundRequested {
		t.Errorf("expected refund requested event, got %+v", ob.events)
	}
	if len(au.records) != 1 || au.records[0].Action != enums.AuditActionRefundRequested {
		t.Errorf("expected audit record, got %+v", au.records)
	}
}

func TestRequestRejectsUnpaidOrder(t *testing.T) {
	order := paidOrder("100.00")
	order.PaymentStatus = enums.PaymentStatusPending
	ordersRepo := &stubOrdersRepo{order: order}
	svc, _, _ := newTestService(t, &stubRefundsRepo{}, ordersRepo)

	_, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("25.00"),
		Reason:  "never arrived",
		Actor:   buyerActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestRequestOverRemainingBalanceRejected(t *testing.T) {
	order := paidOrder("100.00")
	order.PaymentStatus = enums.PaymentStatusPartiallyRefunded
	ordersRepo := &stubOrdersRepo{order: order}
	repo := &stubRefundsRepo{approvedSum: decimal.RequireFromString("40.00")}
	svc, _, _ := newTestService(t, repo, ordersRepo)

	_, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("61.00"),
		Reason:  "damaged goods",
		Actor:   buyerActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if repo.created != nil {
		t.Errorf("refund must not be created, got %+v", repo.created)
	}
}

func TestApprovePartialRefund(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "40.00")
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{refund: refund, approvedSum: decimal.Zero, updateAffected: 1}
	svc, ob, au := newTestService(t, repo, ordersRepo)

	resolved, err := svc.Approve(context.Background(), ResolveInput{
		RefundID:   refund.ID,
		Resolution: "approved per policy",
		Actor:      adminActor(),
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if resolved.Status != enums.RefundStatusApproved {
		t.Errorf("status = %s, want approved", resolved.Status)
	}
	if got := ordersRepo.updates["payment_status"]; got != enums.PaymentStatusPartiallyRefunded {
		t.Errorf("order payment_status = %v, want partially_refunded", got)
	}
	if _, ok := ordersRepo.updates["status"]; ok {
		t.Error("partial refund must not change order status")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventRefundResolved {
		t.Errorf("expected refund resolved event, got %+v", ob.events)
	}
	if len(au.records) != 1 || au.records[0].Action != enums.AuditActionRefundApproved {
		t.Errorf("expected approval audit record, got %+v", au.records)
	}
}

func TestApproveFullBalanceFlipsOrderToRefunded(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "60.00")
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{
		refund:         refund,
		approvedSum:    decimal.RequireFromString("40.00"),
		updateAffected: 1,
	}
	svc, _, _ := newTestService(t, repo, ordersRepo)

	_, err := svc.Approve(context.Background(), ResolveInput{
		RefundID: refund.ID,
		Actor:    adminActor(),
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := ordersRepo.updates["status"]; got != enums.OrderStatusRefunded {
		t.Errorf("order status = %v, want refunded", got)
	}
	if got := ordersRepo.updates["payment_status"]; got != enums.PaymentStatusRefunded {
		t.Errorf("order payment_status = %v, want refunded", got)
	}
}

func TestApproveOverBalanceRejected(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "70.00")
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{
		refund:         refund,
		approvedSum:    decimal.RequireFromString("40.00"),
		updateAffected: 1,
	}
	svc, _, _ := newTestService(t, repo, ordersRepo)

	_, err := svc.Approve(context.Background(), ResolveInput{
		RefundID: refund.ID,
		Actor:    adminActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestApproveNonPendingRefund(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "10.00")
	refund.Status = enums.RefundStatusApproved
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{refund: refund, updateAffected: 1}
	svc, _, _ := newTestService(t, repo, ordersRepo)

	_, err := svc.Approve(context.Background(), ResolveInput{
		RefundID: refund.ID,
		Actor:    adminActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t, &stubRefundsRepo{}, &stubOrdersRepo{})

	_, err := svc.Approve(context.Background(), ResolveInput{
		RefundID: uuid.New(),
		Actor:    buyerActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestApproveConcurrencyLoserGetsConflict(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "10.00")
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{refund: refund, approvedSum: decimal.Zero, updateAffected: 0}
	svc, _, _ := newTestService(t, repo, ordersRepo)

	_, err := svc.Approve(context.Background(), ResolveInput{
		RefundID: refund.ID,
		Actor:    adminActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRejectLeavesOrderUntouched(t *testing.T) {
	order := paidOrder("100.00")
	refund := pendingRefund(order.ID, "10.00")
	ordersRepo := &stubOrdersRepo{order: order, updateAffected: 1}
	repo := &stubRefundsRepo{refund: refund, updateAffected: 1}
	svc, _, au := newTestService(t, repo, ordersRepo)

	resolved, err := svc.Reject(context.Background(), ResolveInput{
		RefundID:   refund.ID,
		Resolution: "outside return window",
		Actor:      adminActor(),
	})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if resolved.Status != enums.RefundStatusRejected {
		t.Errorf("status = %s, want rejected", resolved.Status)
	}
	if ordersRepo.updates != nil {
		t.Errorf("order must not be updated on reject, got %v", ordersRepo.updates)
	}
	if len(au.records) != 1 || au.records[0].Action != enums.AuditActionRefundRejected {
		t.Errorf("expected rejection audit record, got %+v", au.records)
	}
}

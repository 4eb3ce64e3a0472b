package returns

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

type stubReturnsRepo struct {
	request        *models.ReturnRequest
	created        *models.ReturnRequest
	updates        map[string]any
	updateAffected int64
}

func (s *stubReturnsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubReturnsRepo) Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.created = request
	return request, nil
}

func (s *stubReturnsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	if s.request == nil || s.request.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.request
	return &copied, nil
}

func (s *stubReturnsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error) {
	return nil, nil
}

func (s *stubReturnsRepo) UpdateStatusIf(ctx context.Context, returnID uuid.UUID, expected enums.ReturnStatus, updates map[string]any) (int64, error) {
	s.updates = updates
	return s.updateAffected, nil
}

type stubOrdersRepo struct {
	order *models.Order
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
	return 1, nil
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

func newTestService(t *testing.T, repo *stubReturnsRepo, ordersRepo *stubOrdersRepo) (Service, *stubOutbox, *stubAudit) {
	t.Helper()
	ob := &stubOutbox{}
	au := &stubAudit{}
	svc, err := NewService(repo, ordersRepo, stubTxRunner{}, ob, au)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, ob, au
}

func testActor() orders.ActorContext {
	return orders.ActorContext{UserID: uuid.New(), Role: enums.ActorRoleBuyer}
}

func deliveredOrder() *models.Order {
	return &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusDelivered,
		Total:  decimal.RequireFromString("75.00"),
	}
}

func returnInStatus(orderID uuid.UUID, status enums.ReturnStatus) *models.ReturnRequest {
	return &models.ReturnRequest{
		ID:          uuid.New(),
		OrderID:     orderID,
		RequesterID: uuid.New(),
		Reason:      "wrong size",
		Status:      status,
	}
}

func TestReturnCanTransition(t *testing.T) {
	cases := []struct {
		from  enums.ReturnStatus
		to    enums.ReturnStatus
		allow bool
	}{
		{enums.ReturnStatusRequested, enums.ReturnStatusApproved, true},
		{enums.ReturnStatusApproved, enums.ReturnStatusShipped, true},
		{enums.ReturnStatusApproved, enums.ReturnStatusRejected, true},
		{enums.ReturnStatusShipped, enums.ReturnStatusReceived, true},
		{enums.ReturnStatusShipped, enums.ReturnStatusRejected, true},
		{enums.ReturnStatusReceived, enums.ReturnStatusRefunded, true},
		{enums.ReturnStatusReceived, enums.ReturnStatusRejected, true},

		{enums.ReturnStatusRequested, enums.ReturnStatusRejected, false},
		{enums.ReturnStatusRequested, enums.ReturnStatusShipped, false},
		{enums.ReturnStatusRequested, enums.ReturnStatusRefunded, false},
		{enums.ReturnStatusRefunded, enums.ReturnStatusRejected, false},
		{enums.ReturnStatusRefunded, enums.ReturnStatusRequested, false},
		{enums.ReturnStatusRejected, enums.ReturnStatusApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allow {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allow)
		}
	}
}

func TestRequestRequiresDeliveredOrder(t *testing.T) {
	order := deliveredOrder()
	order.Status = enums.OrderStatusShipped
	svc, _, _ := newTestService(t, &stubReturnsRepo{}, &stubOrdersRepo{order: order})

	_, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Reason:  "wrong size",
		Actor:   testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestRequestCreatesReturn(t *testing.T) {
	order := deliveredOrder()
	repo := &stubReturnsRepo{}
	svc, ob, au := newTestService(t, repo, &stubOrdersRepo{order: order})

	request, err := svc.Request(context.Background(), RequestInput{
		OrderID: order.ID,
		Reason:  "wrong size",
		Actor:   testActor(),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if request.Status != enums.ReturnStatusRequested {
		t.Errorf("status = %s, want requested", request.Status)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventReturnRequested {
		t.Errorf("expected return requested event, got %+v", ob.events)
	}
	if len(au.records) != 1 || au.records[0].Action != enums.AuditActionReturnRequested {
		t.Errorf("expected audit record, got %+v", au.records)
	}
}

func TestTransitionShippedRequiresTracking(t *testing.T) {
	request := returnInStatus(uuid.New(), enums.ReturnStatusApproved)
	repo := &stubReturnsRepo{request: request, updateAffected: 1}
	svc, _, _ := newTestService(t, repo, &stubOrdersRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID: request.ID,
		Target:   enums.ReturnStatusShipped,
		Actor:    testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionRefundedRequiresAmount(t *testing.T) {
	request := returnInStatus(uuid.New(), enums.ReturnStatusReceived)
	repo := &stubReturnsRepo{request: request, updateAffected: 1}
	svc, _, _ := newTestService(t, repo, &stubOrdersRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID: request.ID,
		Target:   enums.ReturnStatusRefunded,
		Actor:    testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionReceivedToRefunded(t *testing.T) {
	request := returnInStatus(uuid.New(), enums.ReturnStatusReceived)
	repo := &stubReturnsRepo{request: request, updateAffected: 1}
	svc, ob, au := newTestService(t, repo, &stubOrdersRepo{})

	amount := decimal.RequireFromString("30.00")
	updated, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID:     request.ID,
		Target:       enums.ReturnStatusRefunded,
		RefundAmount: &amount,
		Actor:        testActor(),
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != enums.ReturnStatusRefunded {
		t.Errorf("status = %s, want refunded", updated.Status)
	}
	if updated.RefundAmount == nil || !updated.RefundAmount.Equal(amount) {
		t.Errorf("refund amount = %v, want %s", updated.RefundAmount, amount)
	}
	if updated.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventReturnTransition {
		t.Errorf("expected transition event, got %+v", ob.events)
	}
	if len(au.records) != 1 || au.records[0].Action != enums.AuditActionReturnTransitioned {
		t.Errorf("expected audit record, got %+v", au.records)
	}
}

func TestTransitionRejectsDisallowedMove(t *testing.T) {
	request := returnInStatus(uuid.New(), enums.ReturnStatusRequested)
	repo := &stubReturnsRepo{request: request, updateAffected: 1}
	svc, _, _ := newTestService(t, repo, &stubOrdersRepo{})

	amount := decimal.RequireFromString("30.00")
	_, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID:     request.ID,
		Target:       enums.ReturnStatusRefunded,
		RefundAmount: &amount,
		Actor:        testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestTransitionRejectAfterShipment(t *testing.T) {
	for _, status := range []enums.ReturnStatus{enums.ReturnStatusShipped, enums.ReturnStatusReceived} {
		request := returnInStatus(uuid.New(), status)
		repo := &stubReturnsRepo{request: request, updateAffected: 1}
		svc, _, _ := newTestService(t, repo, &stubOrdersRepo{})

		updated, err := svc.Transition(context.Background(), TransitionInput{
			ReturnID: request.ID,
			Target:   enums.ReturnStatusRejected,
			Actor:    testActor(),
		})
		if err != nil {
			t.Fatalf("Transition from %s: %v", status, err)
		}
		if updated.Status != enums.ReturnStatusRejected {
			t.Errorf("status = %s, want rejected", updated.Status)
		}
		if updated.ProcessedAt == nil {
			t.Errorf("rejection from %s must stamp processed_at", status)
		}
	}
}

func TestTransitionConcurrencyLoserGetsConflict(t *testing.T) {
	request := returnInStatus(uuid.New(), enums.ReturnStatusRequested)
	repo := &stubReturnsRepo{request: request, updateAffected: 0}
	svc, _, _ := newTestService(t, repo, &stubOrdersRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID: request.ID,
		Target:   enums.ReturnStatusApproved,
		Actor:    testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestTransitionMissingReturn(t *testing.T) {
	svc, _, _ := newTestService(t, &stubReturnsRepo{}, &stubOrdersRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		ReturnID: uuid.New(),
		Target:   enums.ReturnStatusApproved,
		Actor:    testActor(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

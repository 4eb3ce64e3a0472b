package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/types"
)

// ActorContext identifies who is performing an operation.
type ActorContext struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// CreateOrderInput captures the data required to place a new order.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	Currency        string
	ShippingAddress *types.Address
	Items           []CreateOrderItemInput
}

// CreateOrderItemInput is one purchased line with its price snapshot.
type CreateOrderItemInput struct {
	ProductID    uuid.UUID
	SellerID     uuid.UUID
	ProductName  string
	ProductImage *string
	UnitPrice    decimal.Decimal
	Quantity     int
}

// TransitionInput moves an order one step along its lifecycle.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   ActorContext
}

// CancelInput cancels an order from any non-terminal state.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   ActorContext
}

// OrderStatusEvent is the outbox payload for lifecycle changes.
type OrderStatusEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"buyer_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// Refund is a request to reverse some or all of an order's value. The amount
// may never exceed the order's remaining refundable balance at approval time.
type Refund struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	RequesterID uuid.UUID          `gorm:"column:requester_id;type:uuid;not null"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason      string             `gorm:"column:reason;not null"`
	Status      enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	Resolution  *string            `gorm:"column:resolution"`
	ResolverID  *uuid.UUID         `gorm:"column:resolver_id;type:uuid"`
	ResolvedAt  *time.Time         `gorm:"column:resolved_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

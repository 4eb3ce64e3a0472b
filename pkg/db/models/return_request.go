package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// ReturnRequest is a physical-goods return. Its refund amount stays null until
// the goods are received and the refund is computed; the owning order's status
// is tracked independently.
type ReturnRequest struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	RequesterID    uuid.UUID          `gorm:"column:requester_id;type:uuid;not null"`
	Reason         string             `gorm:"column:reason;not null"`
	Status         enums.ReturnStatus `gorm:"column:status;type:return_status;not null;default:'requested'"`
	RefundAmount   *decimal.Decimal   `gorm:"column:refund_amount;type:numeric(12,2)"`
	TrackingNumber *string            `gorm:"column:tracking_number"`
	ProcessedAt    *time.Time         `gorm:"column:processed_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name clear of the reserved word "return".
func (ReturnRequest) TableName() string {
	return "return_requests"
}

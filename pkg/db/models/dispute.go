package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// Dispute is a buyer/seller escalation over an order, settled by an admin.
// Resolution text is written exactly once.
type Dispute struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Reason      string              `gorm:"column:reason;not null"`
	Description string              `gorm:"column:description;not null"`
	Status      enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	Resolution  *string             `gorm:"column:resolution"`
	ResolverID  *uuid.UUID          `gorm:"column:resolver_id;type:uuid"`
	ResolvedAt  *time.Time          `gorm:"column:resolved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

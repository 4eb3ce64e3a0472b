package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// SellerPayout is a settlement draw against a seller's net earnings.
// NetAmount is what the seller requested and receives; GrossAmount and
// PlatformFeeAmount record the delivered-revenue slice the draw settles, so
// net_amount = gross_amount - platform_fee_amount always holds.
type SellerPayout struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID          uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	GrossAmount       decimal.Decimal    `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	PlatformFeeAmount decimal.Decimal    `gorm:"column:platform_fee_amount;type:numeric(12,2);not null"`
	NetAmount         decimal.Decimal    `gorm:"column:net_amount;type:numeric(12,2);not null"`
	Destination       string             `gorm:"column:destination;not null"`
	Status            enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	FailureReason     *string            `gorm:"column:failure_reason"`
	ProcessedBy       *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	RequestedAt       time.Time          `gorm:"column:requested_at;autoCreateTime"`
	ProcessedAt       *time.Time         `gorm:"column:processed_at"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

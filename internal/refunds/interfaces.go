package refunds

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// Repository defines persistence operations for refunds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) (*models.Refund, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)
	// SumApprovedByOrder totals the approved refund amounts for an order.
	SumApprovedByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	// UpdateStatusIf applies updates only while the row still holds the
	// expected status; zero affected rows means a concurrent writer won.
	UpdateStatusIf(ctx context.Context, refundID uuid.UUID, expected enums.RefundStatus, updates map[string]any) (int64, error)
}

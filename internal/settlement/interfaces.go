package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

// Repository defines persistence operations for settlement and payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindDeliveredItemsBySeller returns the seller's line items belonging to
	// delivered orders. Earnings are derived from these rows on demand; no
	// running balance is stored anywhere.
	FindDeliveredItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.OrderItem, error)
	CreatePayout(ctx context.Context, payout *models.SellerPayout) (*models.SellerPayout, error)
	FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.SellerPayout, error)
	// FindPayoutsBySeller returns every payout row for balance computation.
	FindPayoutsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerPayout, error)
	ListPayoutsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error)
	// UpdatePayoutStatusIf applies updates only while the row still holds the
	// expected status; zero affected rows means a concurrent writer won.
	UpdatePayoutStatusIf(ctx context.Context, payoutID uuid.UUID, expected enums.PayoutStatus, updates map[string]any) (int64, error)
}

// PayoutList is one page of payouts plus the cursor for the next page.
type PayoutList struct {
	Payouts    []models.SellerPayout
	NextCursor string
}

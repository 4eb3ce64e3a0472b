package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  total TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  shipping_address TEXT,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_image TEXT,
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`
	payouts := `
CREATE TABLE IF NOT EXISTS seller_payouts (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  gross_amount TEXT NOT NULL,
  platform_fee_amount TEXT NOT NULL,
  net_amount TEXT NOT NULL,
  destination TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  processed_by TEXT,
  requested_at DATETIME,
  processed_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(payouts).Error)
	return db
}

func seedOrderWithItem(t *testing.T, db *gorm.DB, sellerID uuid.UUID, status enums.OrderStatus, price string) {
	t.Helper()

	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Total:   decimal.RequireFromString(price),
		Status:  status,
		Items: []models.OrderItem{
			{
				ID:          uuid.New(),
				ProductID:   uuid.New(),
				SellerID:    sellerID,
				ProductName: "Test Product",
				UnitPrice:   decimal.RequireFromString(price),
				Quantity:    1,
			},
		},
	}
	require.NoError(t, db.Create(order).Error)
}

func seedPayout(t *testing.T, db *gorm.DB, sellerID uuid.UUID, status enums.PayoutStatus) *models.SellerPayout {
	t.Helper()

	net := decimal.RequireFromString("85.00")
	payout := &models.SellerPayout{
		ID:                uuid.New(),
		SellerID:          sellerID,
		GrossAmount:       decimal.RequireFromString("100.00"),
		PlatformFeeAmount: decimal.RequireFromString("15.00"),
		NetAmount:         net,
		Destination:       "acct_123",
		Status:            status,
	}
	require.NoError(t, db.Create(payout).Error)
	return payout
}

func TestRepoFindDeliveredItemsBySeller(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	seedOrderWithItem(t, db, sellerID, enums.OrderStatusDelivered, "100.00")
	seedOrderWithItem(t, db, sellerID, enums.OrderStatusDelivered, "25.00")
	// undelivered and other-seller rows must not count
	seedOrderWithItem(t, db, sellerID, enums.OrderStatusShipped, "999.00")
	seedOrderWithItem(t, db, uuid.New(), enums.OrderStatusDelivered, "999.00")

	items, err := repo.FindDeliveredItemsBySeller(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	assert.True(t, total.Equal(decimal.RequireFromString("125.00")), "total = %s", total)
}

func TestRepoPayoutRoundTrip(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	payout := seedPayout(t, db, sellerID, enums.PayoutStatusPending)

	found, err := repo.FindPayoutByID(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, payout.ID, found.ID)
	assert.True(t, found.NetAmount.Equal(decimal.RequireFromString("85.00")))

	_, err = repo.FindPayoutByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoUpdatePayoutStatusIf(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payout := seedPayout(t, db, uuid.New(), enums.PayoutStatusPending)

	affected, err := repo.UpdatePayoutStatusIf(ctx, payout.ID, enums.PayoutStatusPending, map[string]any{
		"status": enums.PayoutStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// second claim against the stale status loses
	affected, err = repo.UpdatePayoutStatusIf(ctx, payout.ID, enums.PayoutStatusPending, map[string]any{
		"status": enums.PayoutStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	found, err := repo.FindPayoutByID(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusProcessing, found.Status)
}

func TestRepoListPayoutsPagination(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	for i := 0; i < 3; i++ {
		payout := seedPayout(t, db, sellerID, enums.PayoutStatusPending)
		// stagger requested_at so cursor ordering is deterministic
		require.NoError(t, db.Model(&models.SellerPayout{}).
			Where("id = ?", payout.ID).
			Update("requested_at", time.Now().Add(time.Duration(i)*time.Second)).Error)
	}
	seedPayout(t, db, uuid.New(), enums.PayoutStatusPending)

	page, err := repo.ListPayoutsBySeller(ctx, sellerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Payouts, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListPayoutsBySeller(ctx, sellerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Payouts, 1)
	assert.Empty(t, rest.NextCursor)
}

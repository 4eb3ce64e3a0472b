package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDeliveredItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.seller_id = ? AND orders.status = ?", sellerID, enums.OrderStatusDelivered).
		Order("order_items.created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.SellerPayout) (*models.SellerPayout, error) {
	if err := r.db.WithContext(ctx).Create(payout).Error; err != nil {
		return nil, err
	}
	return payout, nil
}

func (r *repository) FindPayoutByID(ctx context.Context, id uuid.UUID) (*models.SellerPayout, error) {
	var payout models.SellerPayout
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindPayoutsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerPayout, error) {
	var payouts []models.SellerPayout
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("requested_at ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListPayoutsBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SellerPayout{}).
		Where("seller_id = ?", sellerID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(requested_at < ?) OR (requested_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var payouts []models.SellerPayout
	if err := query.
		Order("requested_at DESC, id DESC").
		Limit(limit + 1).
		Find(&payouts).Error; err != nil {
		return nil, err
	}

	list := &PayoutList{Payouts: payouts}
	if len(payouts) > limit {
		list.Payouts = payouts[:limit]
		last := list.Payouts[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.RequestedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) UpdatePayoutStatusIf(ctx context.Context, payoutID uuid.UUID, expected enums.PayoutStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SellerPayout{}).
		Where("id = ? AND status = ?", payoutID, expected).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

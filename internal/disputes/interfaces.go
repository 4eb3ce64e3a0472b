package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// Repository defines persistence operations for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error)
	// UpdateStatusIf applies updates only while the row still holds the
	// expected status; zero affected rows means a concurrent writer won.
	UpdateStatusIf(ctx context.Context, disputeID uuid.UUID, expected enums.DisputeStatus, updates map[string]any) (int64, error)
}

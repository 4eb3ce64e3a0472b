package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// Repository defines persistence operations for return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error)
	// UpdateStatusIf applies updates only while the row still holds the
	// expected status; zero affected rows means a concurrent writer won.
	UpdateStatusIf(ctx context.Context, returnID uuid.UUID, expected enums.ReturnStatus, updates map[string]any) (int64, error)
}

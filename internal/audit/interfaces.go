package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

// Repository defines persistence operations for the audit log. The table is
// insert-only; no update or delete methods exist.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryList, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*EntryList, error)
}

// EntryList is one page of audit entries plus the cursor for the next page.
type EntryList struct {
	Entries    []models.AuditLogEntry
	NextCursor string
}

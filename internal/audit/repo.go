package audit

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

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogEntry{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.page(query, params)
}

func (r *repository) ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*EntryList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogEntry{}).
		Where("actor_id = ?", actorID)
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) (*EntryList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var entries []models.AuditLogEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	list := &EntryList{Entries: entries}
	if len(entries) > limit {
		list.Entries = entries[:limit]
		last := list.Entries[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

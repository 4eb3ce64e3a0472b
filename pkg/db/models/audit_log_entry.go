package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

// AuditLogEntry records one engine mutation. Rows are insert-only; the engine
// exposes no update or delete path for them.
type AuditLogEntry struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.ActorRole       `gorm:"column:actor_role;type:actor_role;not null"`
	Action     enums.AuditAction     `gorm:"column:action;type:audit_action;not null"`
	EntityType enums.AuditEntityType `gorm:"column:entity_type;type:audit_entity_type;not null"`
	EntityID   uuid.UUID             `gorm:"column:entity_id;type:uuid;not null"`
	OldValue   json.RawMessage       `gorm:"column:old_value;type:jsonb"`
	NewValue   json.RawMessage       `gorm:"column:new_value;type:jsonb"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification - одно уведомление для одного получателя.
// Запись неизменяема после создания, кроме единственного перехода is_read.
type Notification struct {
	BaseModel
	Type    string         `gorm:"not null"` // "member_added", "event_updated", "event_deleted"
	Content string         `gorm:"not null"`
	FromID  *string        `gorm:"type:uuid;index"` // nil для системных уведомлений
	ToID    string         `gorm:"type:uuid;not null;index"`
	Data    datatypes.JSON `gorm:"type:jsonb"` // {"project_id": "...", "event_id": "..."}
	IsRead  bool           `gorm:"default:false"`
	ReadAt  *time.Time
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores inbound platform webhook payloads with deduplication
// metadata for idempotent processing.
type WebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Platform        string         `gorm:"type:varchar(20);not null;index:ux_webhook_events_platform_event,unique,priority:1;index" json:"platform"`
	PlatformEventID string         `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_platform_event,unique,priority:2" json:"platform_event_id"`
	EventType       string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:json" json:"payload"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

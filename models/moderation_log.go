package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Moderation actions
const (
	ModerationActionFlagAd    = "flag_ad"
	ModerationActionDeleteAd  = "delete_ad"
	ModerationActionRestoreAd = "restore_ad"
	ModerationActionBanUser   = "ban_user"
	ModerationActionUnbanUser = "unban_user"
)

// ModerationLog records one admin moderation action
type ModerationLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID    uuid.UUID `gorm:"type:uuid;not null" json:"admin_id"`
	Admin      User      `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action     string    `gorm:"not null" json:"action"`
	TargetType string    `gorm:"not null" json:"target_type"` // "ad" or "user"
	TargetID   uuid.UUID `gorm:"type:uuid;not null" json:"target_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the ModerationLog model
func (ModerationLog) TableName() string {
	return "moderation_log"
}

// BeforeCreate assigns a UUID primary key before insert
func (l *ModerationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

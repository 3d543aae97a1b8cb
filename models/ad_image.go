package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdImage represents one stored image of an ad
type AdImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdID      uuid.UUID `gorm:"type:uuid;not null;index" json:"ad_id"`
	URL       string    `gorm:"not null" json:"url"`
	Key       string    `gorm:"not null" json:"-"` // object storage key
	Order     int       `gorm:"not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the AdImage model
func (AdImage) TableName() string {
	return "ad_images"
}

// BeforeCreate assigns a UUID primary key before insert
func (i *AdImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

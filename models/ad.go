package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ad statuses
const (
	AdStatusActive  = "active"
	AdStatusSold    = "sold"
	AdStatusFlagged = "flagged"
	AdStatusDeleted = "deleted"
)

// Ad represents a classified listing
type Ad struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price"`
	Category    string    `gorm:"not null;index" json:"category"`
	Region      string    `gorm:"not null;index" json:"region"`
	Status      string    `gorm:"not null;default:'active';index" json:"status"`
	ViewCount   int       `gorm:"not null;default:0" json:"view_count"`
	Images      []AdImage `gorm:"foreignKey:AdID" json:"images,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Ad model
func (Ad) TableName() string {
	return "ads"
}

// BeforeCreate assigns a UUID primary key before insert
func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Categories lists the accepted ad categories
var Categories = []string{
	"smartphones",
	"laptops",
	"desktops",
	"tablets",
	"monitors",
	"peripherals",
	"components",
	"networking",
	"audio",
	"wearables",
	"gaming",
	"other",
}

// Regions lists the accepted regions (Austrian states)
var Regions = []string{
	"wien",
	"niederoesterreich",
	"oberoesterreich",
	"salzburg",
	"tirol",
	"vorarlberg",
	"kaernten",
	"steiermark",
	"burgenland",
}

// IsValidCategory reports whether the given category is accepted
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// IsValidRegion reports whether the given region is accepted
func IsValidRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

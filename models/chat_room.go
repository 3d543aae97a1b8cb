package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom represents one buyer-seller conversation scoped to a single ad.
// The unique index on (ad_id, buyer_id) guarantees at most one room per
// ad and buyer, even under concurrent first-contact requests.
type ChatRoom struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_rooms_ad_buyer" json:"ad_id"`
	Ad        Ad        `gorm:"foreignKey:AdID;constraint:OnDelete:CASCADE" json:"ad,omitempty"`
	BuyerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_rooms_ad_buyer" json:"buyer_id"`
	Buyer     User      `gorm:"foreignKey:BuyerID" json:"-"`
	SellerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`
	Seller    User      `gorm:"foreignKey:SellerID" json:"-"`
	Messages  []Message `gorm:"foreignKey:ChatRoomID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ChatRoom model
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// BeforeCreate assigns a UUID primary key before insert
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsMember reports whether the given user participates in the room
func (r *ChatRoom) IsMember(userID uuid.UUID) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// CounterpartID returns the other participant relative to the given member
func (r *ChatRoom) CounterpartID(userID uuid.UUID) uuid.UUID {
	if r.BuyerID == userID {
		return r.SellerID
	}
	return r.BuyerID
}

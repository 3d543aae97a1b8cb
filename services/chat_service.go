package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/models"
	"gorm.io/gorm"
)

// Typed outcomes of chat operations. Controllers map these to HTTP codes;
// anything else is a storage failure and surfaces unchanged.
var (
	ErrAdNotFound     = errors.New("ad not found")
	ErrRoomNotFound   = errors.New("chat room not found")
	ErrNotMember      = errors.New("caller is not a member of this chat room")
	ErrSelfChat       = errors.New("cannot open a chat on your own ad")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content exceeds the maximum length")
)

// ChatService implements the buyer-seller chat core: room lookup and
// creation, the message ledger with per-direction read tracking, and the
// inbox aggregation.
type ChatService struct {
	db               *gorm.DB
	maxMessageLength int // 0 disables the cap
}

// NewChatService creates a new chat service instance
func NewChatService(db *gorm.DB, maxMessageLength int) *ChatService {
	return &ChatService{
		db:               db,
		maxMessageLength: maxMessageLength,
	}
}

// AdPreview is the slice of an ad shown in chat views
type AdPreview struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Price    float64   `json:"price"`
	ImageURL string    `json:"image_url,omitempty"`
}

// RoomView is a chat room enriched with its ad preview and the counterpart
// of the caller
type RoomView struct {
	Room      models.ChatRoom    `json:"room"`
	Ad        AdPreview          `json:"ad"`
	OtherUser models.UserSummary `json:"other_user"`
}

// InboxEntry is the per-room projection shown in the caller's inbox
type InboxEntry struct {
	Room        models.ChatRoom    `json:"room"`
	Ad          AdPreview          `json:"ad"`
	OtherUser   models.UserSummary `json:"other_user"`
	LastMessage *models.Message    `json:"last_message"`
	UnreadCount int64              `json:"unread_count"`
}

// GetOrCreateRoom resolves the room for (ad, buyer), creating it on first
// contact. Idempotent: an existing room is returned unchanged. The
// (ad_id, buyer_id) unique index makes concurrent first contacts safe; a
// duplicate-key insert means another request just created the room, so it
// is re-fetched instead of surfacing an error.
func (s *ChatService) GetOrCreateRoom(buyerID, adID uuid.UUID) (*models.ChatRoom, error) {
	var ad models.Ad
	if err := s.db.First(&ad, "id = ?", adID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdNotFound
		}
		return nil, err
	}

	if ad.UserID == buyerID {
		return nil, ErrSelfChat
	}

	var room models.ChatRoom
	err := s.db.Where("ad_id = ? AND buyer_id = ?", adID, buyerID).First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = models.ChatRoom{
		AdID:     adID,
		BuyerID:  buyerID,
		SellerID: ad.UserID,
	}
	if err := s.db.Create(&room).Error; err != nil {
		if IsUniqueViolation(err) {
			// Lost the race: fetch the row the other request created
			var existing models.ChatRoom
			if err := s.db.Where("ad_id = ? AND buyer_id = ?", adID, buyerID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}

	return &room, nil
}

// GetRoom returns the room with its ad preview and the caller's counterpart.
// Room membership is the sole access-control check.
func (s *ChatService) GetRoom(callerID, roomID uuid.UUID) (*RoomView, error) {
	var room models.ChatRoom
	err := s.db.
		Preload("Ad.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Preload("Buyer").
		Preload("Seller").
		First(&room, "id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	if !room.IsMember(callerID) {
		return nil, ErrNotMember
	}

	other := room.Seller
	if room.SellerID == callerID {
		other = room.Buyer
	}

	view := &RoomView{
		Room:      room,
		Ad:        adPreview(&room.Ad),
		OtherUser: other.Summary(),
	}
	view.Room.Ad = models.Ad{}
	view.Room.Buyer = models.User{}
	view.Room.Seller = models.User{}

	return view, nil
}

// SendMessage appends a message to the room and bumps the room's
// updated_at. Both writes happen in one transaction so inbox readers never
// observe a touched-but-empty room or a message without the bump.
func (s *ChatService) SendMessage(callerID, roomID uuid.UUID, content string) (*models.Message, error) {
	room, err := s.memberRoom(callerID, roomID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.maxMessageLength > 0 && len([]rune(content)) > s.maxMessageLength {
		return nil, ErrMessageTooLong
	}

	message := models.Message{
		ChatRoomID: room.ID,
		SenderID:   callerID,
		Content:    content,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", room.ID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &message, nil
}

// ListAndMarkRead returns the room's messages newest-first. As a side
// effect, every unread message authored by the caller's counterpart is
// flipped to read; the caller's own messages are never touched.
func (s *ChatService) ListAndMarkRead(callerID, roomID uuid.UUID) ([]models.Message, error) {
	room, err := s.memberRoom(callerID, roomID)
	if err != nil {
		return nil, err
	}

	counterpartID := room.CounterpartID(callerID)
	err = s.db.Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id = ? AND is_read = ?", room.ID, counterpartID, false).
		Update("is_read", true).Error
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}

	var messages []models.Message
	err = s.db.
		Where("chat_room_id = ?", room.ID).
		Order("created_at DESC, id").
		Preload("Sender", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "avatar_url")
		}).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// CountUnread returns the number of unread messages in the room authored
// by the given counterpart. Pure query: the inbox badge must never mark
// anything read.
func (s *ChatService) CountUnread(roomID, counterpartID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id = ? AND is_read = ?", roomID, counterpartID, false).
		Count(&count).Error
	return count, err
}

// GetInbox returns every room the caller participates in, most recently
// active first, each enriched with the counterpart, the ad preview, the
// latest message and the unread count. Read-only: no read flags change.
func (s *ChatService) GetInbox(callerID uuid.UUID) ([]InboxEntry, error) {
	var rooms []models.ChatRoom
	err := s.db.
		Where("buyer_id = ? OR seller_id = ?", callerID, callerID).
		Order("updated_at DESC").
		Preload("Ad.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Preload("Buyer").
		Preload("Seller").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	entries := make([]InboxEntry, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]

		other := room.Seller
		if room.SellerID == callerID {
			other = room.Buyer
		}

		var lastMessage *models.Message
		var latest []models.Message
		err := s.db.
			Where("chat_room_id = ?", room.ID).
			Order("created_at DESC, id").
			Limit(1).
			Find(&latest).Error
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			lastMessage = &latest[0]
		}

		unread, err := s.CountUnread(room.ID, room.CounterpartID(callerID))
		if err != nil {
			return nil, err
		}

		entry := InboxEntry{
			Room:        *room,
			Ad:          adPreview(&room.Ad),
			OtherUser:   other.Summary(),
			LastMessage: lastMessage,
			UnreadCount: unread,
		}
		entry.Room.Ad = models.Ad{}
		entry.Room.Buyer = models.User{}
		entry.Room.Seller = models.User{}

		entries = append(entries, entry)
	}

	return entries, nil
}

// memberRoom loads the room and enforces membership
func (s *ChatService) memberRoom(callerID, roomID uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := s.db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if !room.IsMember(callerID) {
		return nil, ErrNotMember
	}
	return &room, nil
}

func adPreview(ad *models.Ad) AdPreview {
	preview := AdPreview{
		ID:    ad.ID,
		Title: ad.Title,
		Price: ad.Price,
	}
	if len(ad.Images) > 0 {
		preview.ImageURL = ad.Images[0].URL
	}
	return preview
}

// IsUniqueViolation reports whether err is a duplicate-key error, matching
// gorm's translated error and the raw PostgreSQL and SQLite driver messages.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "unique constraint failed")
}

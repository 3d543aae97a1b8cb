package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupChatTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate all models involved in chat
	err = db.AutoMigrate(
		&models.User{},
		&models.Ad{},
		&models.AdImage{},
		&models.ChatRoom{},
		&models.Message{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Name:         name,
		Role:         "user",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user
}

func createTestAd(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Ad {
	t.Helper()
	ad := models.Ad{
		UserID:      owner.ID,
		Title:       title,
		Description: "A perfectly fine description of the item on offer.",
		Price:       150,
		Category:    "laptops",
		Region:      "wien",
		Status:      models.AdStatusActive,
	}
	if err := db.Create(&ad).Error; err != nil {
		t.Fatalf("Failed to create test ad: %v", err)
	}
	return &ad
}

func TestGetOrCreateRoom(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	otherBuyer := createTestUser(t, db, "Other Buyer", "other@example.com")
	ad := createTestAd(t, db, seller, "ThinkPad X1 Carbon")

	t.Run("First contact creates a room", func(t *testing.T) {
		room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, room.ID)
		assert.Equal(t, ad.ID, room.AdID)
		assert.Equal(t, buyer.ID, room.BuyerID)
		assert.Equal(t, seller.ID, room.SellerID)
	})

	t.Run("Repeated contact returns the same room", func(t *testing.T) {
		first, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
		assert.NoError(t, err)
		second, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&models.ChatRoom{}).
			Where("ad_id = ? AND buyer_id = ?", ad.ID, buyer.ID).
			Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Different buyer gets a different room", func(t *testing.T) {
		existing, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
		assert.NoError(t, err)
		other, err := service.GetOrCreateRoom(otherBuyer.ID, ad.ID)
		assert.NoError(t, err)
		assert.NotEqual(t, existing.ID, other.ID)
	})

	t.Run("Seller cannot open a chat on their own ad", func(t *testing.T) {
		room, err := service.GetOrCreateRoom(seller.ID, ad.ID)
		assert.ErrorIs(t, err, ErrSelfChat)
		assert.Nil(t, room)
	})

	t.Run("Unknown ad is rejected", func(t *testing.T) {
		room, err := service.GetOrCreateRoom(buyer.ID, uuid.New())
		assert.ErrorIs(t, err, ErrAdNotFound)
		assert.Nil(t, room)
	})

	t.Run("Duplicate insert is blocked by the unique index", func(t *testing.T) {
		room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
		assert.NoError(t, err)

		duplicate := models.ChatRoom{
			AdID:     room.AdID,
			BuyerID:  room.BuyerID,
			SellerID: room.SellerID,
		}
		err = db.Create(&duplicate).Error
		assert.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})
}

func TestSendMessage(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	outsider := createTestUser(t, db, "Outsider", "outsider@example.com")
	ad := createTestAd(t, db, seller, "iPhone 14 Pro")

	room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
	assert.NoError(t, err)

	t.Run("Member sends a message", func(t *testing.T) {
		message, err := service.SendMessage(buyer.ID, room.ID, "Is this still available?")
		assert.NoError(t, err)
		assert.Equal(t, room.ID, message.ChatRoomID)
		assert.Equal(t, buyer.ID, message.SenderID)
		assert.Equal(t, "Is this still available?", message.Content)
		assert.False(t, message.IsRead)
	})

	t.Run("Content is trimmed before storing", func(t *testing.T) {
		message, err := service.SendMessage(seller.ID, room.ID, "  Yes, it is!  ")
		assert.NoError(t, err)
		assert.Equal(t, "Yes, it is!", message.Content)
	})

	t.Run("Sending bumps the room's updated_at", func(t *testing.T) {
		before := time.Now().Add(-time.Hour)
		err := db.Model(&models.ChatRoom{}).
			Where("id = ?", room.ID).
			Update("updated_at", before).Error
		assert.NoError(t, err)

		_, err = service.SendMessage(buyer.ID, room.ID, "Can you do 120?")
		assert.NoError(t, err)

		var reloaded models.ChatRoom
		assert.NoError(t, db.First(&reloaded, "id = ?", room.ID).Error)
		assert.True(t, reloaded.UpdatedAt.After(before))
	})

	t.Run("Non-member cannot send", func(t *testing.T) {
		message, err := service.SendMessage(outsider.ID, room.ID, "Let me in")
		assert.ErrorIs(t, err, ErrNotMember)
		assert.Nil(t, message)
	})

	t.Run("Unknown room is rejected", func(t *testing.T) {
		message, err := service.SendMessage(buyer.ID, uuid.New(), "Hello?")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.Nil(t, message)
	})

	t.Run("Whitespace-only content is rejected", func(t *testing.T) {
		message, err := service.SendMessage(buyer.ID, room.ID, "   \n\t  ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Nil(t, message)
	})

	t.Run("Content over the cap is rejected", func(t *testing.T) {
		message, err := service.SendMessage(buyer.ID, room.ID, strings.Repeat("a", 2001))
		assert.ErrorIs(t, err, ErrMessageTooLong)
		assert.Nil(t, message)
	})

	t.Run("The cap counts runes, not bytes", func(t *testing.T) {
		capped := NewChatService(db, 10)
		// 10 two-byte runes: 20 bytes but exactly at the limit
		message, err := capped.SendMessage(buyer.ID, room.ID, strings.Repeat("ü", 10))
		assert.NoError(t, err)
		assert.NotNil(t, message)

		message, err = capped.SendMessage(buyer.ID, room.ID, strings.Repeat("ü", 11))
		assert.ErrorIs(t, err, ErrMessageTooLong)
		assert.Nil(t, message)
	})

	t.Run("A zero cap disables the length check", func(t *testing.T) {
		unlimited := NewChatService(db, 0)
		message, err := unlimited.SendMessage(buyer.ID, room.ID, strings.Repeat("a", 5000))
		assert.NoError(t, err)
		assert.NotNil(t, message)
	})
}

func TestListAndMarkRead(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	outsider := createTestUser(t, db, "Outsider", "outsider@example.com")
	ad := createTestAd(t, db, seller, "Dell UltraSharp 27")

	room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
	assert.NoError(t, err)

	// Seed a conversation with explicit timestamps so the order is unambiguous
	base := time.Now().Add(-time.Hour)
	seed := []models.Message{
		{ChatRoomID: room.ID, SenderID: buyer.ID, Content: "Hi, still available?", CreatedAt: base},
		{ChatRoomID: room.ID, SenderID: seller.ID, Content: "Yes it is", CreatedAt: base.Add(time.Minute)},
		{ChatRoomID: room.ID, SenderID: seller.ID, Content: "Want to pick it up?", CreatedAt: base.Add(2 * time.Minute)},
		{ChatRoomID: room.ID, SenderID: buyer.ID, Content: "Tomorrow works", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		assert.NoError(t, db.Create(&seed[i]).Error)
	}

	t.Run("Messages come back newest first with sender loaded", func(t *testing.T) {
		messages, err := service.ListAndMarkRead(buyer.ID, room.ID)
		assert.NoError(t, err)
		assert.Len(t, messages, 4)
		assert.Equal(t, "Tomorrow works", messages[0].Content)
		assert.Equal(t, "Want to pick it up?", messages[1].Content)
		assert.Equal(t, "Yes it is", messages[2].Content)
		assert.Equal(t, "Hi, still available?", messages[3].Content)
		assert.Equal(t, "Seller", messages[1].Sender.Name)
	})

	t.Run("Viewing flips only the counterpart's messages", func(t *testing.T) {
		_, err := service.ListAndMarkRead(buyer.ID, room.ID)
		assert.NoError(t, err)

		var fromSeller []models.Message
		db.Where("chat_room_id = ? AND sender_id = ?", room.ID, seller.ID).Find(&fromSeller)
		for _, m := range fromSeller {
			assert.True(t, m.IsRead, "seller's messages should be read after the buyer views the thread")
		}

		var fromBuyer []models.Message
		db.Where("chat_room_id = ? AND sender_id = ?", room.ID, buyer.ID).Find(&fromBuyer)
		for _, m := range fromBuyer {
			assert.False(t, m.IsRead, "the buyer's own messages must stay unread until the seller views them")
		}
	})

	t.Run("Non-member cannot view the thread", func(t *testing.T) {
		messages, err := service.ListAndMarkRead(outsider.ID, room.ID)
		assert.ErrorIs(t, err, ErrNotMember)
		assert.Nil(t, messages)
	})

	t.Run("Unknown room is rejected", func(t *testing.T) {
		messages, err := service.ListAndMarkRead(buyer.ID, uuid.New())
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.Nil(t, messages)
	})
}

func TestCountUnread(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	ad := createTestAd(t, db, seller, "Sony WH-1000XM5")

	room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
	assert.NoError(t, err)

	_, err = service.SendMessage(buyer.ID, room.ID, "One from the buyer")
	assert.NoError(t, err)
	_, err = service.SendMessage(seller.ID, room.ID, "One from the seller")
	assert.NoError(t, err)
	_, err = service.SendMessage(seller.ID, room.ID, "Two from the seller")
	assert.NoError(t, err)

	// Each side only counts what the other side wrote
	unreadForBuyer, err := service.CountUnread(room.ID, seller.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), unreadForBuyer)

	unreadForSeller, err := service.CountUnread(room.ID, buyer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), unreadForSeller)

	// The buyer views the thread; only their side of the count resets
	_, err = service.ListAndMarkRead(buyer.ID, room.ID)
	assert.NoError(t, err)

	unreadForBuyer, err = service.CountUnread(room.ID, seller.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), unreadForBuyer)

	unreadForSeller, err = service.CountUnread(room.ID, buyer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), unreadForSeller)
}

func TestGetRoom(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	outsider := createTestUser(t, db, "Outsider", "outsider@example.com")
	ad := createTestAd(t, db, seller, "Nintendo Switch OLED")

	image := models.AdImage{AdID: ad.ID, URL: "https://images.test/switch.jpg", Key: "uploads/switch.jpg", Order: 0}
	assert.NoError(t, db.Create(&image).Error)

	room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
	assert.NoError(t, err)

	t.Run("Buyer sees the seller as counterpart", func(t *testing.T) {
		view, err := service.GetRoom(buyer.ID, room.ID)
		assert.NoError(t, err)
		assert.Equal(t, room.ID, view.Room.ID)
		assert.Equal(t, seller.ID, view.OtherUser.ID)
		assert.Equal(t, "Seller", view.OtherUser.Name)
		assert.Equal(t, ad.ID, view.Ad.ID)
		assert.Equal(t, "Nintendo Switch OLED", view.Ad.Title)
		assert.Equal(t, "https://images.test/switch.jpg", view.Ad.ImageURL)
	})

	t.Run("Seller sees the buyer as counterpart", func(t *testing.T) {
		view, err := service.GetRoom(seller.ID, room.ID)
		assert.NoError(t, err)
		assert.Equal(t, buyer.ID, view.OtherUser.ID)
	})

	t.Run("Non-member is rejected", func(t *testing.T) {
		view, err := service.GetRoom(outsider.ID, room.ID)
		assert.ErrorIs(t, err, ErrNotMember)
		assert.Nil(t, view)
	})

	t.Run("Unknown room is rejected", func(t *testing.T) {
		view, err := service.GetRoom(buyer.ID, uuid.New())
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.Nil(t, view)
	})
}

func TestGetInbox(t *testing.T) {
	db := setupChatTestDB(t)
	service := NewChatService(db, 2000)

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	carol := createTestUser(t, db, "Carol", "carol@example.com")

	aliceAd := createTestAd(t, db, alice, "MacBook Air M2")
	bobAd := createTestAd(t, db, bob, "Pixel 8")

	// Alice is the seller in roomOne and the buyer in roomTwo
	roomOne, err := service.GetOrCreateRoom(carol.ID, aliceAd.ID)
	assert.NoError(t, err)
	roomTwo, err := service.GetOrCreateRoom(alice.ID, bobAd.ID)
	assert.NoError(t, err)

	_, err = service.SendMessage(carol.ID, roomOne.ID, "Hi Alice, is the MacBook still for sale?")
	assert.NoError(t, err)
	_, err = service.SendMessage(carol.ID, roomOne.ID, "I could pick it up today")
	assert.NoError(t, err)
	_, err = service.SendMessage(bob.ID, roomTwo.ID, "Hi Alice, yes the Pixel is available")
	assert.NoError(t, err)

	// Pin activity times so the expected order is unambiguous
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-time.Hour)
	assert.NoError(t, db.Model(&models.ChatRoom{}).Where("id = ?", roomOne.ID).Update("updated_at", older).Error)
	assert.NoError(t, db.Model(&models.ChatRoom{}).Where("id = ?", roomTwo.ID).Update("updated_at", newer).Error)

	t.Run("Rooms are ordered by most recent activity", func(t *testing.T) {
		entries, err := service.GetInbox(alice.ID)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, roomTwo.ID, entries[0].Room.ID)
		assert.Equal(t, roomOne.ID, entries[1].Room.ID)
	})

	t.Run("Entries carry counterpart, last message and unread count", func(t *testing.T) {
		entries, err := service.GetInbox(alice.ID)
		assert.NoError(t, err)

		// roomTwo: Alice is the buyer, Bob the counterpart
		assert.Equal(t, bob.ID, entries[0].OtherUser.ID)
		assert.Equal(t, "Pixel 8", entries[0].Ad.Title)
		assert.NotNil(t, entries[0].LastMessage)
		assert.Equal(t, "Hi Alice, yes the Pixel is available", entries[0].LastMessage.Content)
		assert.Equal(t, int64(1), entries[0].UnreadCount)

		// roomOne: Alice is the seller, Carol the counterpart
		assert.Equal(t, carol.ID, entries[1].OtherUser.ID)
		assert.Equal(t, "I could pick it up today", entries[1].LastMessage.Content)
		assert.Equal(t, int64(2), entries[1].UnreadCount)
	})

	t.Run("Opening the inbox marks nothing read", func(t *testing.T) {
		_, err := service.GetInbox(alice.ID)
		assert.NoError(t, err)
		_, err = service.GetInbox(alice.ID)
		assert.NoError(t, err)

		unread, err := service.CountUnread(roomOne.ID, carol.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), unread)
	})

	t.Run("Reading the thread clears the badge", func(t *testing.T) {
		_, err := service.ListAndMarkRead(alice.ID, roomOne.ID)
		assert.NoError(t, err)

		entries, err := service.GetInbox(alice.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), entries[1].UnreadCount)
		// Carol still sees nothing read on her side of roomOne
		unreadForCarol, err := service.CountUnread(roomOne.ID, alice.ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), unreadForCarol)
	})

	t.Run("A user with no chats gets an empty inbox", func(t *testing.T) {
		stranger := createTestUser(t, db, "Stranger", "stranger@example.com")
		entries, err := service.GetInbox(stranger.ID)
		assert.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestGetOrCreateRoomSurvivesLostRace(t *testing.T) {
	// SkipDefaultTransaction lets the rival row planted by the create hook
	// below commit on its own, instead of rolling back with the losing insert
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Ad{},
		&models.AdImage{},
		&models.ChatRoom{},
		&models.Message{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	service := NewChatService(db, 2000)

	seller := createTestUser(t, db, "Seller", "seller@example.com")
	buyer := createTestUser(t, db, "Buyer", "buyer@example.com")
	ad := createTestAd(t, db, seller, "Garmin Forerunner 255")

	// Insert a rival room after the service's lookup has missed but before
	// its own insert runs, the way a second request from another tab would.
	// The losing insert then hits the unique index and must recover by
	// returning the rival row instead of an error.
	rivalID := uuid.New()
	planted := false
	err = db.Callback().Create().Before("gorm:create").Register("plant_rival_room", func(tx *gorm.DB) {
		if planted {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.ChatRoom); !ok {
			return
		}
		planted = true
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO chat_rooms (id, ad_id, buyer_id, seller_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			rivalID, ad.ID, buyer.ID, seller.ID, now, now,
		)
	})
	assert.NoError(t, err)

	room, err := service.GetOrCreateRoom(buyer.ID, ad.ID)
	assert.NoError(t, err)
	assert.True(t, planted, "the rival insert should have fired")
	assert.Equal(t, rivalID, room.ID, "the surviving row should be returned")

	var count int64
	db.Model(&models.ChatRoom{}).
		Where("ad_id = ? AND buyer_id = ?", ad.ID, buyer.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "gorm translated duplicate key",
			err:      gorm.ErrDuplicatedKey,
			expected: true,
		},
		{
			name:     "postgres duplicate key message",
			err:      errors.New(`ERROR: duplicate key value violates unique constraint "idx_chat_rooms_ad_buyer" (SQLSTATE 23505)`),
			expected: true,
		},
		{
			name:     "sqlite duplicate key message",
			err:      errors.New("UNIQUE constraint failed: chat_rooms.ad_id, chat_rooms.buyer_id"),
			expected: true,
		},
		{
			name:     "record not found is not a duplicate",
			err:      gorm.ErrRecordNotFound,
			expected: false,
		},
		{
			name:     "unrelated error mentioning unique is not a duplicate",
			err:      errors.New(`ERROR: column "unique_tag" does not exist (SQLSTATE 42703)`),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUniqueViolation(tt.err))
		})
	}
}

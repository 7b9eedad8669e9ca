package models

import (
	"time"

	"gorm.io/datatypes"
)

type MessageType = string

const (
	MessageTypeText   = MessageType("text")
	MessageTypeImage  = MessageType("image")
	MessageTypeFile   = MessageType("file")
	MessageTypeSystem = MessageType("system")
)

// MessageTombstone replaces the content of a deleted message.
const MessageTombstone = "[deleted]"

type Attachment struct {
	Filename string `json:"filename" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Size     int64  `json:"size" validate:"gte=0"`
	MimeType string `json:"mime_type"`
}

type Message struct {
	BaseModel

	ConversationID uint                            `json:"conversation_id" gorm:"index"`
	SenderID       uint                            `json:"sender_id" gorm:"index"`
	Content        string                          `json:"content"`
	Type           MessageType                     `json:"type" gorm:"size:16"`
	Attachments    datatypes.JSONSlice[Attachment] `json:"attachments"`
	ReplyToID      *uint                           `json:"reply_to_id"`
	ReplyTo        *Message                        `json:"reply_to,omitempty" gorm:"foreignKey:ReplyToID"`
	IsEdited       bool                            `json:"is_edited"`
	EditedAt       *time.Time                      `json:"edited_at"`
	IsDeleted      bool                            `json:"is_deleted" gorm:"index"`
	DeletedAt      *time.Time                      `json:"deleted_at"`
	Metadata       datatypes.JSONMap               `json:"metadata"`

	Reactions []Reaction `json:"reactions" gorm:"foreignKey:MessageID"`
}

// Redacted hides everything a deleted message used to carry.
// Identity, ordering and reply linkage stay untouched.
func (v Message) Redacted() Message {
	if !v.IsDeleted {
		return v
	}
	v.Content = MessageTombstone
	v.Attachments = nil
	v.Metadata = nil
	return v
}

type Reaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"message_id" gorm:"uniqueIndex:idx_reaction_unique"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_reaction_unique"`
	Emoji     string    `json:"emoji" gorm:"size:64;uniqueIndex:idx_reaction_unique"`
	CreatedAt time.Time `json:"created_at"`
}

type ReadReceipt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"message_id" gorm:"uniqueIndex:idx_receipt_unique"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_receipt_unique"`
	ReadAt    time.Time `json:"read_at"`
}

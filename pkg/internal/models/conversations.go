package models

import (
	"fmt"
	"time"
)

type ConversationKind = string

const (
	ConversationKindDirect = ConversationKind("direct")
	ConversationKindGroup  = ConversationKind("group")
)

type Conversation struct {
	BaseModel

	Kind        ConversationKind `json:"kind" gorm:"size:16;index"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CreatorID   uint             `json:"creator_id"`

	// DirectKey is the normalized unordered pair of a direct conversation,
	// unique across the table. Groups leave it empty.
	DirectKey *string `json:"-" gorm:"uniqueIndex"`

	Participants []Participant `json:"participants,omitempty"`
}

func (v Conversation) IsDirect() bool {
	return v.Kind == ConversationKindDirect
}

// DirectKeyOf returns the same key for (a, b) and (b, a).
func DirectKeyOf(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

type ParticipantRole = string

const (
	ParticipantRoleAdmin  = ParticipantRole("admin")
	ParticipantRoleMember = ParticipantRole("member")
)

type Participant struct {
	BaseModel

	ConversationID uint            `json:"conversation_id" gorm:"uniqueIndex:idx_participant_member"`
	UserID         uint            `json:"user_id" gorm:"uniqueIndex:idx_participant_member;index"`
	Nick           string          `json:"nick"`
	Role           ParticipantRole `json:"role" gorm:"size:16"`
	JoinedAt       time.Time       `json:"joined_at"`
	LeftAt         *time.Time      `json:"left_at"`
	LastReadAt     *time.Time      `json:"last_read_at"`
	IsMuted        bool            `json:"is_muted"`
}

func (v Participant) IsActive() bool {
	return v.LeftAt == nil
}

func (v Participant) IsAdmin() bool {
	return v.Role == ParticipantRoleAdmin
}

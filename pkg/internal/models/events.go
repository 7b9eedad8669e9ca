package models

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Client to server actions
const (
	ActionJoinUser          = "join_user"
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionSendMessage       = "send_message"
	ActionTypingStart       = "typing_start"
	ActionTypingStop        = "typing_stop"
	ActionMarkRead          = "mark_read"
	ActionMarkMessageRead   = "mark_message_read"
	ActionAddReaction       = "add_reaction"
	ActionRemoveReaction    = "remove_reaction"
)

// Server to client events
const (
	EventNewMessage          = "new_message"
	EventMessageSent         = "message_sent"
	EventMessageUpdated      = "message_updated"
	EventMessageDeleted      = "message_deleted"
	EventUserTyping          = "user_typing"
	EventMessagesRead        = "messages_read"
	EventMessageRead         = "message_read"
	EventReactionAdded       = "reaction_added"
	EventReactionRemoved     = "reaction_removed"
	EventConversationUpdated = "conversation_updated"
	EventConversationJoined  = "conversation_joined"
	EventConversationLeft    = "conversation_left"
	EventError               = "error"
)

type WebSocketPackage struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (v WebSocketPackage) Marshal() []byte {
	raw, _ := jsoniter.Marshal(v)
	return raw
}

func WebSocketPackageFromError(err error) WebSocketPackage {
	return WebSocketPackage{
		Action:  EventError,
		Message: err.Error(),
		Payload: map[string]any{"message": err.Error()},
	}
}

// InboundPackage is a client frame before its payload gets decoded
// into the shape its action expects.
type InboundPackage struct {
	Action  string              `json:"action"`
	Payload jsoniter.RawMessage `json:"payload"`
}

func ConversationRoom(id uint) string {
	return fmt.Sprintf("conversation:%d", id)
}

func UserRoom(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// Delivery is one broadcast handed to the fan-out layer.
// A session joined to several of the rooms receives the body once.
// When Evict is set the delivery carries no body and instead takes every
// session of that user out of the rooms.
type Delivery struct {
	Rooms      []string            `json:"rooms"`
	ExceptUser uint                `json:"except_user,omitempty"`
	Evict      uint                `json:"evict,omitempty"`
	Body       jsoniter.RawMessage `json:"body,omitempty"`
}

func NewDelivery(pkg WebSocketPackage, rooms ...string) Delivery {
	return Delivery{
		Rooms: rooms,
		Body:  pkg.Marshal(),
	}
}

func NewEviction(userId uint, rooms ...string) Delivery {
	return Delivery{
		Rooms: rooms,
		Evict: userId,
	}
}

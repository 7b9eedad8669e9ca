package services

import (
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
)

// MarkConversationRead moves the user's watermark to now. The watermark only
// ever moves forward, and per-message receipts are left alone.
func (v *Service) MarkConversationRead(conversationId, userId uint) (time.Time, error) {
	if _, _, err := v.RequireParticipant(conversationId, userId); err != nil {
		return time.Time{}, err
	}

	readAt, err := retryOnce(func() (time.Time, error) {
		return v.store.AdvanceWatermark(conversationId, userId, database.Now())
	})
	if err != nil {
		return readAt, storeError(err, "participant")
	}

	v.broadcast(models.EventMessagesRead, map[string]any{
		"conversation_id": conversationId,
		"user_id":         userId,
		"read_at":         readAt,
	}, models.ConversationRoom(conversationId))
	return readAt, nil
}

// MarkMessageRead records one receipt per user and message. The first
// read_at wins and only that first call is broadcast.
func (v *Service) MarkMessageRead(messageId, userId uint) (models.ReadReceipt, error) {
	message, err := v.getMessage(messageId)
	if err != nil {
		return models.ReadReceipt{}, err
	}
	if _, _, err := v.RequireParticipant(message.ConversationID, userId); err != nil {
		return models.ReadReceipt{}, err
	}

	type outcome struct {
		receipt models.ReadReceipt
		created bool
	}
	out, err := retryOnce(func() (outcome, error) {
		receipt, created, err := v.store.MarkMessageRead(messageId, userId)
		return outcome{receipt, created}, err
	})
	if err != nil {
		return out.receipt, storeError(err, "read receipt")
	}

	if out.created {
		v.broadcast(models.EventMessageRead, map[string]any{
			"message_id":      messageId,
			"conversation_id": message.ConversationID,
			"user_id":         userId,
			"read_at":         out.receipt.ReadAt,
		}, models.ConversationRoom(message.ConversationID))
	}
	return out.receipt, nil
}

// SetTyping relays a typing indicator to everyone else in the room.
// Nothing about it is stored.
func (v *Service) SetTyping(conversationId, userId uint, isTyping bool) error {
	if _, _, err := v.RequireParticipant(conversationId, userId); err != nil {
		return err
	}

	v.broadcastExcept(models.EventUserTyping, map[string]any{
		"conversation_id": conversationId,
		"user_id":         userId,
		"is_typing":       isTyping,
	}, userId, models.ConversationRoom(conversationId))
	return nil
}

// UnreadCounts lists conversations holding messages from others that
// arrived after the user's watermark.
func (v *Service) UnreadCounts(userId uint) ([]store.UnreadCount, error) {
	counts, err := retryOnce(func() ([]store.UnreadCount, error) {
		return v.store.CountUnread(userId)
	})
	if err != nil {
		return nil, storeError(err, "unread counts")
	}
	if counts == nil {
		counts = []store.UnreadCount{}
	}
	return counts, nil
}

package services

import (
	"strings"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/samber/lo"
)

type MessageInput struct {
	ConversationID *uint               `json:"conversation_id"`
	ReceiverID     *uint               `json:"receiver_id"`
	Content        string              `json:"content" validate:"max=8192"`
	Type           models.MessageType  `json:"type" validate:"omitempty,oneof=text image file system"`
	Attachments    []models.Attachment `json:"attachments" validate:"omitempty,max=16,dive"`
	ReplyToID      *uint               `json:"reply_to_id"`
	Metadata       map[string]any      `json:"metadata"`
}

type MessageQuery struct {
	Take   int
	Offset int
	Before *time.Time
	After  *time.Time
}

func (v *Service) getMessage(id uint) (models.Message, error) {
	message, err := retryOnce(func() (models.Message, error) {
		return v.store.GetMessage(id)
	})
	return message, storeError(err, "message")
}

// SendMessage persists the message first and only then tells anybody about
// it. A rejected send leaves nothing behind.
func (v *Service) SendMessage(senderId uint, input MessageInput) (MessageView, error) {
	if err := v.validateStruct(input); err != nil {
		return MessageView{}, err
	}
	input.Content = strings.TrimSpace(input.Content)
	if len(input.Content) == 0 && len(input.Attachments) == 0 {
		return MessageView{}, newError(ErrValidation, "message must have content or attachments")
	}
	if len(input.Type) == 0 {
		input.Type = lo.Ternary(len(input.Attachments) > 0, models.MessageTypeFile, models.MessageTypeText)
	}

	// A receiver id may create the direct conversation, so its reply target
	// is checked first. An explicit conversation checks membership first.
	explicit := input.ConversationID != nil && *input.ConversationID > 0
	if !explicit {
		if err := v.checkReplyTarget(senderId, input); err != nil {
			return MessageView{}, err
		}
	}

	conversation, created, err := v.resolveTarget(senderId, input.ConversationID, input.ReceiverID)
	if err != nil {
		return MessageView{}, err
	}
	if explicit {
		if err := v.checkReplyTarget(senderId, input); err != nil {
			return MessageView{}, err
		}
	}

	message := models.Message{
		ConversationID: conversation.ID,
		SenderID:       senderId,
		Content:        input.Content,
		Type:           input.Type,
		Attachments:    input.Attachments,
		ReplyToID:      input.ReplyToID,
		Metadata:       input.Metadata,
	}
	if err := retryOnceErr(func() error {
		message.ID = 0
		return v.store.CreateMessage(&message)
	}); err != nil {
		return MessageView{}, storeError(err, "message")
	}

	if message, err = v.getMessage(message.ID); err != nil {
		return MessageView{}, err
	}
	members := membersByUser(conversation.Participants)
	view := viewOf(message, members)

	if created {
		v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
	}
	v.broadcast(models.EventNewMessage, view, audienceOf(conversation)...)
	v.notifyMessage(conversation, view)

	return view, nil
}

func (v *Service) GetMessage(messageId, userId uint) (MessageView, error) {
	message, err := v.getMessage(messageId)
	if err != nil {
		return MessageView{}, err
	}
	if _, _, err := v.RequireParticipant(message.ConversationID, userId); err != nil {
		return MessageView{}, err
	}
	return v.viewOne(message)
}

// ListMessages returns a page in ascending creation order and the total
// number of messages in the conversation.
func (v *Service) ListMessages(conversationId, userId uint, query MessageQuery) (int64, []MessageView, error) {
	if _, _, err := v.RequireParticipant(conversationId, userId); err != nil {
		return 0, nil, err
	}

	count, err := retryOnce(func() (int64, error) {
		return v.store.CountMessages(conversationId)
	})
	if err != nil {
		return 0, nil, storeError(err, "messages")
	}

	messages, err := retryOnce(func() ([]models.Message, error) {
		return v.store.ListMessages(conversationId, store.MessageQuery{
			Take:   normalizeTake(query.Take),
			Offset: max(query.Offset, 0),
			Before: query.Before,
			After:  query.After,
		})
	})
	if err != nil {
		return 0, nil, storeError(err, "messages")
	}

	views, err := v.viewsOf(conversationId, messages)
	return count, views, err
}

// CheckHasNewMessages counts messages newer than the pivot message id.
func (v *Service) CheckHasNewMessages(conversationId, userId, pivot uint) (int64, error) {
	if _, _, err := v.RequireParticipant(conversationId, userId); err != nil {
		return 0, err
	}

	count, err := retryOnce(func() (int64, error) {
		return v.store.CountMessagesAfter(conversationId, pivot)
	})
	return count, storeError(err, "messages")
}

func (v *Service) UpdateMessage(messageId, editorId uint, content *string, metadata map[string]any) (MessageView, error) {
	message, err := v.getMessage(messageId)
	if err != nil {
		return MessageView{}, err
	}
	if message.SenderID != editorId {
		return MessageView{}, newError(ErrForbidden, "only the sender can edit this message")
	}
	if message.IsDeleted {
		return MessageView{}, newError(ErrValidation, "message has been deleted")
	}
	if content == nil && metadata == nil {
		return MessageView{}, newError(ErrValidation, "nothing to update")
	}
	if content != nil {
		trimmed := strings.TrimSpace(*content)
		if len(trimmed) == 0 && len(message.Attachments) == 0 {
			return MessageView{}, newError(ErrValidation, "message must have content or attachments")
		}
		if len(trimmed) > 8192 {
			return MessageView{}, newError(ErrValidation, "content is too long")
		}
		content = &trimmed
	}

	message, err = retryOnce(func() (models.Message, error) {
		return v.store.UpdateMessage(message, content, metadata)
	})
	if err != nil {
		return MessageView{}, storeError(err, "message")
	}

	conversation, err := v.getConversation(message.ConversationID)
	if err != nil {
		return MessageView{}, err
	}
	view, err := v.viewOne(message)
	if err != nil {
		return view, err
	}

	v.broadcast(models.EventMessageUpdated, view, audienceOf(conversation)...)
	return view, nil
}

// DeleteMessage tombstones the message. Deleting twice is a no-op.
func (v *Service) DeleteMessage(messageId, requesterId uint) (MessageView, error) {
	message, err := v.getMessage(messageId)
	if err != nil {
		return MessageView{}, err
	}
	if message.SenderID != requesterId {
		return MessageView{}, newError(ErrForbidden, "only the sender can delete this message")
	}
	if message.IsDeleted {
		return v.viewOne(message)
	}

	message, err = retryOnce(func() (models.Message, error) {
		return v.store.SoftDeleteMessage(message)
	})
	if err != nil {
		return MessageView{}, storeError(err, "message")
	}

	conversation, err := v.getConversation(message.ConversationID)
	if err != nil {
		return MessageView{}, err
	}
	view, err := v.viewOne(message)
	if err != nil {
		return view, err
	}

	v.broadcast(models.EventMessageDeleted, map[string]any{
		"message_id":      view.ID,
		"conversation_id": view.ConversationID,
		"message":         view,
	}, audienceOf(conversation)...)
	return view, nil
}

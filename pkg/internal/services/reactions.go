package services

import (
	"strings"
	"unicode/utf8"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
)

type ReactionInput struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (v *Service) reactable(messageId, userId uint, emoji string) (models.Message, models.Conversation, string, error) {
	emoji = strings.TrimSpace(emoji)
	if len(emoji) == 0 || utf8.RuneCountInString(emoji) > 32 {
		return models.Message{}, models.Conversation{}, emoji, newError(ErrValidation, "emoji must be between 1 and 32 characters")
	}

	message, err := v.getMessage(messageId)
	if err != nil {
		return message, models.Conversation{}, emoji, err
	}
	conversation, _, err := v.RequireParticipant(message.ConversationID, userId)
	if err != nil {
		return message, conversation, emoji, err
	}
	if message.IsDeleted {
		return message, conversation, emoji, newError(ErrValidation, "message has been deleted")
	}

	return message, conversation, emoji, nil
}

type reactionOutcome struct {
	changed   bool
	reactions []models.Reaction
}

// AddReaction is idempotent. Only the call that actually inserted the row
// broadcasts, and the event carries the whole reaction list.
func (v *Service) AddReaction(messageId, userId uint, emoji string) (MessageView, error) {
	message, conversation, emoji, err := v.reactable(messageId, userId, emoji)
	if err != nil {
		return MessageView{}, err
	}

	out, err := retryOnce(func() (reactionOutcome, error) {
		changed, reactions, err := v.store.AddReaction(message, userId, emoji)
		return reactionOutcome{changed, reactions}, err
	})
	if err != nil {
		return MessageView{}, storeError(err, "reaction")
	}

	message.Reactions = out.reactions
	view := viewOf(message, membersByUser(conversation.Participants))
	if out.changed {
		v.broadcast(models.EventReactionAdded, map[string]any{
			"message_id": message.ID,
			"user_id":    userId,
			"emoji":      emoji,
			"message":    view,
		}, models.ConversationRoom(conversation.ID))
	}

	return view, nil
}

func (v *Service) RemoveReaction(messageId, userId uint, emoji string) (MessageView, error) {
	message, conversation, emoji, err := v.reactable(messageId, userId, emoji)
	if err != nil {
		return MessageView{}, err
	}

	out, err := retryOnce(func() (reactionOutcome, error) {
		changed, reactions, err := v.store.RemoveReaction(message, userId, emoji)
		return reactionOutcome{changed, reactions}, err
	})
	if err != nil {
		return MessageView{}, storeError(err, "reaction")
	}

	message.Reactions = out.reactions
	view := viewOf(message, membersByUser(conversation.Participants))
	if out.changed {
		v.broadcast(models.EventReactionRemoved, map[string]any{
			"message_id": message.ID,
			"user_id":    userId,
			"emoji":      emoji,
			"message":    view,
		}, models.ConversationRoom(conversation.ID))
	}

	return view, nil
}

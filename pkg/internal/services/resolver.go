package services

import (
	"errors"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
)

func (v *Service) getConversation(id uint) (models.Conversation, error) {
	conversation, err := retryOnce(func() (models.Conversation, error) {
		return v.store.GetConversation(id)
	})
	return conversation, storeError(err, "conversation")
}

// RequireParticipant returns the conversation together with the acting
// user's active membership. Users who never joined or already left are
// refused, never added.
func (v *Service) RequireParticipant(conversationId, userId uint) (models.Conversation, models.Participant, error) {
	conversation, err := v.getConversation(conversationId)
	if err != nil {
		return conversation, models.Participant{}, err
	}

	for _, member := range conversation.Participants {
		if member.UserID == userId {
			return conversation, member, nil
		}
	}
	return conversation, models.Participant{}, newError(ErrForbidden, "you are not a participant of this conversation")
}

func (v *Service) IsParticipant(conversationId, userId uint) (bool, error) {
	_, err := retryOnce(func() (models.Participant, error) {
		return v.store.GetActiveParticipant(conversationId, userId)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	} else if err != nil {
		return false, storeError(err, "participant")
	}
	return true, nil
}

// ResolveDirect is the only self-healing path: it finds or creates the
// direct conversation of the pair and makes sure both users are active in it.
func (v *Service) ResolveDirect(senderId, receiverId uint) (models.Conversation, bool, error) {
	if receiverId == 0 || receiverId == senderId {
		return models.Conversation{}, false, newError(ErrValidation, "receiver must be another user")
	}

	type outcome struct {
		conversation models.Conversation
		created      bool
	}
	out, err := retryOnce(func() (outcome, error) {
		conversation, created, err := v.store.FindOrCreateDirect(senderId, receiverId)
		return outcome{conversation, created}, err
	})
	if err != nil {
		return out.conversation, false, storeError(err, "direct conversation")
	}
	return out.conversation, out.created, nil
}

// resolveTarget picks the conversation a message goes to. An explicit
// conversation id always wins over a receiver id. The caller announces a
// newly created direct conversation once its message is committed.
func (v *Service) resolveTarget(senderId uint, conversationId, receiverId *uint) (models.Conversation, bool, error) {
	switch {
	case conversationId != nil && *conversationId > 0:
		conversation, _, err := v.RequireParticipant(*conversationId, senderId)
		return conversation, false, err
	case receiverId != nil:
		return v.ResolveDirect(senderId, *receiverId)
	default:
		return models.Conversation{}, false, newError(ErrValidation, "either conversation_id or receiver_id is required")
	}
}

// checkReplyTarget makes sure the message being replied to exists, is not
// deleted and can be quoted from where the new message is going. On the
// receiver path the target must already sit in the pair's direct conversation.
func (v *Service) checkReplyTarget(senderId uint, input MessageInput) error {
	if input.ReplyToID == nil {
		return nil
	}

	target, err := v.getMessage(*input.ReplyToID)
	if err != nil {
		return newError(ErrValidation, "reply target does not exist")
	}
	if target.IsDeleted {
		return newError(ErrValidation, "reply target has been deleted")
	}

	switch {
	case input.ConversationID != nil && *input.ConversationID > 0:
		if target.ConversationID != *input.ConversationID {
			return newError(ErrValidation, "reply target belongs to another conversation")
		}
	case input.ReceiverID != nil:
		conversation, err := v.getConversation(target.ConversationID)
		if err != nil {
			return newError(ErrValidation, "reply target does not exist")
		}
		key := models.DirectKeyOf(senderId, *input.ReceiverID)
		if conversation.DirectKey == nil || *conversation.DirectKey != key {
			return newError(ErrValidation, "reply target belongs to another conversation")
		}
	}
	return nil
}

func canManage(conversation models.Conversation, member models.Participant) bool {
	return member.IsAdmin() || conversation.CreatorID == member.UserID
}

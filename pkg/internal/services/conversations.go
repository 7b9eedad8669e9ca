package services

import (
	"strings"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
)

type ConversationInput struct {
	Kind           models.ConversationKind `json:"kind" validate:"required,oneof=direct group"`
	ParticipantIDs []uint                  `json:"participant_ids" validate:"required,min=1"`
	Name           *string                 `json:"name" validate:"omitempty,max=256"`
	Description    *string                 `json:"description" validate:"omitempty,max=4096"`
}

// CreateConversation makes the creator an admin of the new conversation.
// Direct conversations are found or created, never duplicated.
func (v *Service) CreateConversation(creatorId uint, input ConversationInput) (models.Conversation, error) {
	if err := v.validateStruct(input); err != nil {
		return models.Conversation{}, err
	}

	others := lo.Without(lo.Uniq(input.ParticipantIDs), creatorId, 0)

	switch input.Kind {
	case models.ConversationKindDirect:
		if len(others) != 1 {
			return models.Conversation{}, newError(ErrValidation, "direct conversation needs exactly one other participant")
		}
		conversation, created, err := v.ResolveDirect(creatorId, others[0])
		if err != nil {
			return conversation, err
		}
		if created {
			v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
		}
		return conversation, nil
	default:
		name := strings.TrimSpace(lo.FromPtr(input.Name))
		if len(name) == 0 {
			return models.Conversation{}, newError(ErrValidation, "group conversation requires a name")
		}
		if len(others) == 0 {
			return models.Conversation{}, newError(ErrValidation, "group conversation requires at least one other participant")
		}

		now := database.Now()
		participants := []models.Participant{{UserID: creatorId, Role: models.ParticipantRoleAdmin, JoinedAt: now}}
		for _, userId := range others {
			participants = append(participants, models.Participant{
				UserID:   userId,
				Role:     models.ParticipantRoleMember,
				JoinedAt: now,
			})
		}

		conversation, err := retryOnce(func() (models.Conversation, error) {
			return v.store.CreateGroup(models.Conversation{
				Kind:         models.ConversationKindGroup,
				Name:         name,
				Description:  lo.FromPtr(input.Description),
				CreatorID:    creatorId,
				Participants: participants,
			})
		})
		if err != nil {
			return conversation, storeError(err, "conversation")
		}

		v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
		return conversation, nil
	}
}

func (v *Service) GetConversation(conversationId, userId uint) (models.Conversation, error) {
	conversation, _, err := v.RequireParticipant(conversationId, userId)
	return conversation, err
}

func (v *Service) ListConversations(userId uint, take, offset int) (int64, []models.Conversation, error) {
	count, err := retryOnce(func() (int64, error) {
		return v.store.CountConversations(userId)
	})
	if err != nil {
		return 0, nil, storeError(err, "conversations")
	}

	conversations, err := retryOnce(func() ([]models.Conversation, error) {
		return v.store.ListConversations(userId, normalizeTake(take), max(offset, 0))
	})
	if err != nil {
		return 0, nil, storeError(err, "conversations")
	}

	return count, conversations, nil
}

func (v *Service) UpdateConversation(conversationId, actorId uint, name, description *string) (models.Conversation, error) {
	conversation, member, err := v.RequireParticipant(conversationId, actorId)
	if err != nil {
		return conversation, err
	}
	if conversation.IsDirect() {
		return conversation, newError(ErrValidation, "direct conversations cannot be renamed")
	}
	if !canManage(conversation, member) {
		return conversation, newError(ErrForbidden, "only admins can edit this conversation")
	}

	conversation, err = retryOnce(func() (models.Conversation, error) {
		return v.store.UpdateConversation(conversation, name, description)
	})
	if err != nil {
		return conversation, storeError(err, "conversation")
	}

	v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
	return conversation, nil
}

func (v *Service) AddParticipant(conversationId, actorId, userId uint) (models.Conversation, error) {
	conversation, member, err := v.RequireParticipant(conversationId, actorId)
	if err != nil {
		return conversation, err
	}
	if conversation.IsDirect() {
		return conversation, newError(ErrValidation, "direct conversations have a fixed pair of participants")
	}
	if !canManage(conversation, member) {
		return conversation, newError(ErrForbidden, "only admins can add participants")
	}
	if userId == 0 {
		return conversation, newError(ErrValidation, "user id is required")
	}
	if lo.ContainsBy(conversation.Participants, func(item models.Participant) bool {
		return item.UserID == userId
	}) {
		return conversation, newError(ErrConflict, "user is already a participant")
	}

	if _, err := retryOnce(func() (models.Participant, error) {
		return v.store.AddParticipant(conversationId, userId, models.ParticipantRoleMember)
	}); err != nil {
		return conversation, storeError(err, "participant")
	}

	if conversation, err = v.getConversation(conversationId); err != nil {
		return conversation, err
	}

	v.broadcast(models.EventConversationJoined, map[string]any{
		"conversation_id": conversationId,
		"user_id":         userId,
	}, audienceOf(conversation)...)
	v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
	return conversation, nil
}

func (v *Service) RemoveParticipant(conversationId, actorId, userId uint) (models.Conversation, error) {
	conversation, member, err := v.RequireParticipant(conversationId, actorId)
	if err != nil {
		return conversation, err
	}
	if conversation.IsDirect() {
		return conversation, newError(ErrValidation, "direct conversations have a fixed pair of participants")
	}
	if actorId != userId && !canManage(conversation, member) {
		return conversation, newError(ErrForbidden, "only admins can remove participants")
	}
	if userId == conversation.CreatorID {
		return conversation, newError(ErrForbidden, "the creator cannot leave the conversation")
	}

	return v.detach(conversation, userId)
}

// LeaveConversation is the self-service form of RemoveParticipant.
func (v *Service) LeaveConversation(conversationId, userId uint) error {
	_, err := v.RemoveParticipant(conversationId, userId, userId)
	return err
}

func (v *Service) detach(conversation models.Conversation, userId uint) (models.Conversation, error) {
	before := audienceOf(conversation)

	if err := retryOnceErr(func() error {
		return v.store.RemoveParticipant(conversation.ID, userId)
	}); err != nil {
		return conversation, storeError(err, "participant")
	}

	conversation, err := v.getConversation(conversation.ID)
	if err != nil {
		return conversation, err
	}

	v.broadcast(models.EventConversationLeft, map[string]any{
		"conversation_id": conversation.ID,
		"user_id":         userId,
	}, before...)
	v.evict(userId, models.ConversationRoom(conversation.ID))
	v.broadcast(models.EventConversationUpdated, conversation, audienceOf(conversation)...)
	return conversation, nil
}

func (v *Service) UpdateMyParticipant(conversationId, userId uint, nick *string, isMuted *bool) (models.Participant, error) {
	_, member, err := v.RequireParticipant(conversationId, userId)
	if err != nil {
		return member, err
	}
	if nick != nil && len(*nick) > 256 {
		return member, newError(ErrValidation, "nick is too long")
	}

	member, err = retryOnce(func() (models.Participant, error) {
		return v.store.UpdateParticipant(member, nick, isMuted)
	})
	return member, storeError(err, "participant")
}

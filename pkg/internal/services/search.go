package services

import (
	"strings"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
)

// SearchMessages is restricted to conversations the user is active in.
// Deleted messages never match.
func (v *Service) SearchMessages(userId uint, query string, conversationId *uint, take int) ([]MessageView, error) {
	query = strings.TrimSpace(query)
	if len(query) == 0 {
		return nil, newError(ErrValidation, "search query is required")
	}
	if conversationId != nil {
		if _, _, err := v.RequireParticipant(*conversationId, userId); err != nil {
			return nil, err
		}
	}

	messages, err := retryOnce(func() ([]models.Message, error) {
		return v.store.SearchMessages(userId, query, conversationId, normalizeTake(take))
	})
	if err != nil {
		return nil, storeError(err, "messages")
	}

	grouped := lo.GroupBy(messages, func(item models.Message) uint {
		return item.ConversationID
	})
	members := make(map[uint]map[uint]models.Participant, len(grouped))
	for id := range grouped {
		if members[id], err = v.membersOf(id); err != nil {
			return nil, err
		}
	}

	return lo.Map(messages, func(item models.Message, _ int) MessageView {
		return viewOf(item, members[item.ConversationID])
	}), nil
}

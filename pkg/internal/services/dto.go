package services

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
)

// SenderSummary is the slice of the sender's membership shipped with every
// message so clients do not need a second lookup.
type SenderSummary struct {
	UserID uint   `json:"user_id"`
	Nick   string `json:"nick,omitempty"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

type MessageView struct {
	models.Message
	Sender SenderSummary `json:"sender"`
}

func summaryOf(userId uint, members map[uint]models.Participant) SenderSummary {
	summary := SenderSummary{UserID: userId}
	if member, ok := members[userId]; ok {
		summary.Nick = member.Nick
		summary.Role = member.Role
		summary.Active = member.IsActive()
	}
	return summary
}

func viewOf(message models.Message, members map[uint]models.Participant) MessageView {
	message = message.Redacted()
	if message.ReplyTo != nil {
		reply := message.ReplyTo.Redacted()
		message.ReplyTo = &reply
	}
	if message.Reactions == nil {
		message.Reactions = []models.Reaction{}
	}
	return MessageView{
		Message: message,
		Sender:  summaryOf(message.SenderID, members),
	}
}

func membersByUser(members []models.Participant) map[uint]models.Participant {
	return lo.SliceToMap(members, func(item models.Participant) (uint, models.Participant) {
		return item.UserID, item
	})
}

func (v *Service) membersOf(conversationId uint) (map[uint]models.Participant, error) {
	members, err := retryOnce(func() ([]models.Participant, error) {
		return v.store.ListParticipants(conversationId)
	})
	if err != nil {
		return nil, storeError(err, "participants")
	}
	return membersByUser(members), nil
}

func (v *Service) viewsOf(conversationId uint, messages []models.Message) ([]MessageView, error) {
	members, err := v.membersOf(conversationId)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(item models.Message, _ int) MessageView {
		return viewOf(item, members)
	}), nil
}

func (v *Service) viewOne(message models.Message) (MessageView, error) {
	views, err := v.viewsOf(message.ConversationID, []models.Message{message})
	if err != nil {
		return MessageView{}, err
	}
	return views[0], nil
}

package services

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Broadcaster delivers already committed state changes to connected clients.
type Broadcaster interface {
	Broadcast(delivery models.Delivery)
}

// Service is the single code path for every messaging mutation, whether it
// arrives over HTTP or over the realtime gateway.
type Service struct {
	store    *store.Store
	gateway  Broadcaster
	notifier Notifier
	uploader Uploader
	validate *validator.Validate
}

func NewService(st *store.Store, gateway Broadcaster) *Service {
	return &Service{
		store:    st,
		gateway:  gateway,
		notifier: nopNotifier{},
		validate: validator.New(),
	}
}

func (v *Service) UseNotifier(notifier Notifier) *Service {
	v.notifier = notifier
	return v
}

func (v *Service) UseUploader(uploader Uploader) *Service {
	v.uploader = uploader
	return v
}

func (v *Service) Store() *store.Store {
	return v.store
}

func (v *Service) validateStruct(data any) error {
	if err := v.validate.Struct(data); err != nil {
		return newError(ErrValidation, "%v", err)
	}
	return nil
}

// audienceOf is the conversation room plus the personal room of every
// active participant, so users who have not joined the room still hear it.
func audienceOf(conversation models.Conversation) []string {
	rooms := []string{models.ConversationRoom(conversation.ID)}
	rooms = append(rooms, lo.Map(conversation.Participants, func(item models.Participant, _ int) string {
		return models.UserRoom(item.UserID)
	})...)
	return lo.Uniq(rooms)
}

func (v *Service) broadcast(action string, payload any, rooms ...string) {
	if v.gateway == nil {
		return
	}
	v.gateway.Broadcast(models.NewDelivery(models.WebSocketPackage{
		Action:  action,
		Payload: payload,
	}, rooms...))
}

func (v *Service) broadcastExcept(action string, payload any, except uint, rooms ...string) {
	if v.gateway == nil {
		return
	}
	delivery := models.NewDelivery(models.WebSocketPackage{
		Action:  action,
		Payload: payload,
	}, rooms...)
	delivery.ExceptUser = except
	v.gateway.Broadcast(delivery)
}

// evict takes the user's live sessions out of the rooms on every gateway
// process. It travels the same path as broadcasts so it lands before any
// later event for those rooms.
func (v *Service) evict(userId uint, rooms ...string) {
	if v.gateway == nil {
		return
	}
	v.gateway.Broadcast(models.NewEviction(userId, rooms...))
}

func normalizeTake(take int) int {
	switch {
	case take <= 0:
		return 20
	case take > 100:
		return 100
	default:
		return take
	}
}

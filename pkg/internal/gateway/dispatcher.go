package gateway

import (
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// Operations is the slice of the service layer reachable over the socket.
type Operations interface {
	IsParticipant(conversationId, userId uint) (bool, error)
	SendMessage(senderId uint, input services.MessageInput) (services.MessageView, error)
	SetTyping(conversationId, userId uint, isTyping bool) error
	MarkConversationRead(conversationId, userId uint) (time.Time, error)
	MarkMessageRead(messageId, userId uint) (models.ReadReceipt, error)
	AddReaction(messageId, userId uint, emoji string) (services.MessageView, error)
	RemoveReaction(messageId, userId uint, emoji string) (services.MessageView, error)
}

// Dispatcher turns inbound frames into service calls. It owns no state
// changes of its own; every mutation is the same call the HTTP side makes.
type Dispatcher struct {
	gateway  *Gateway
	ops      Operations
	validate *validator.Validate
}

func NewDispatcher(gateway *Gateway, ops Operations) *Dispatcher {
	return &Dispatcher{gateway: gateway, ops: ops, validate: validator.New()}
}

type conversationPayload struct {
	ConversationID uint `json:"conversation_id" validate:"required"`
	UserID         uint `json:"user_id"`
}

type messagePayload struct {
	MessageID uint   `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji"`
}

type sendPayload struct {
	services.MessageInput
	ClientID string `json:"client_id"`
	SenderID uint   `json:"sender_id"`
	UserID   uint   `json:"user_id"`
}

func (v *Dispatcher) decode(pkg models.InboundPackage, out any) error {
	if len(pkg.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", services.ErrValidation)
	}
	if err := models.FitStruct(pkg.Payload, out); err != nil {
		return fmt.Errorf("%w: unable to parse payload: %v", services.ErrValidation, err)
	}
	if err := v.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}

// claimsSelf rejects payloads speaking for somebody other than the session.
func claimsSelf(s *Session, ids ...uint) error {
	for _, id := range ids {
		if id != 0 && id != s.UserID() {
			return fmt.Errorf("%w: payload user does not match the connection", services.ErrForbidden)
		}
	}
	return nil
}

// Handle processes one raw frame and returns the package to answer the
// sender with, nil when there is nothing to say.
func (v *Dispatcher) Handle(s *Session, raw []byte) *models.WebSocketPackage {
	s.Touch()

	var pkg models.InboundPackage
	if err := jsoniter.Unmarshal(raw, &pkg); err != nil {
		return &models.WebSocketPackage{
			Action:  models.EventError,
			Message: "unable to unmarshal your command, requires json request",
			Payload: map[string]any{"message": "unable to unmarshal your command, requires json request"},
		}
	}
	if s.State() == SessionConnecting || s.State() == SessionDisconnected {
		return lo.ToPtr(models.WebSocketPackageFromError(services.ErrUnauthorized))
	}

	reply, err := v.dispatch(s, pkg)
	if err != nil {
		return lo.ToPtr(models.WebSocketPackageFromError(err))
	}
	return reply
}

func (v *Dispatcher) dispatch(s *Session, pkg models.InboundPackage) (*models.WebSocketPackage, error) {
	switch pkg.Action {
	case models.ActionJoinUser:
		var req struct {
			UserID uint `json:"user_id"`
		}
		if len(pkg.Payload) > 0 {
			if err := v.decode(pkg, &req); err != nil {
				return nil, err
			}
		}
		if err := claimsSelf(s, req.UserID); err != nil {
			return nil, err
		}
		v.gateway.Join(s, models.UserRoom(s.UserID()))
		return nil, nil
	case models.ActionJoinConversation:
		var req conversationPayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		if err := claimsSelf(s, req.UserID); err != nil {
			return nil, err
		}
		if ok, err := v.ops.IsParticipant(req.ConversationID, s.UserID()); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("%w: you are not a participant of this conversation", services.ErrForbidden)
		}
		v.gateway.Join(s, models.ConversationRoom(req.ConversationID))
		return &models.WebSocketPackage{
			Action:  models.EventConversationJoined,
			Payload: map[string]any{"conversation_id": req.ConversationID},
		}, nil
	case models.ActionLeaveConversation:
		var req conversationPayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		v.gateway.Leave(s, models.ConversationRoom(req.ConversationID))
		return &models.WebSocketPackage{
			Action:  models.EventConversationLeft,
			Payload: map[string]any{"conversation_id": req.ConversationID},
		}, nil
	case models.ActionSendMessage:
		var req sendPayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		if err := claimsSelf(s, req.SenderID, req.UserID); err != nil {
			return nil, err
		}
		message, err := v.ops.SendMessage(s.UserID(), req.MessageInput)
		if err != nil {
			return nil, err
		}
		return &models.WebSocketPackage{
			Action: models.EventMessageSent,
			Payload: map[string]any{
				"client_id": req.ClientID,
				"message":   message,
			},
		}, nil
	case models.ActionTypingStart, models.ActionTypingStop:
		var req conversationPayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		if err := claimsSelf(s, req.UserID); err != nil {
			return nil, err
		}
		return nil, v.ops.SetTyping(req.ConversationID, s.UserID(), pkg.Action == models.ActionTypingStart)
	case models.ActionMarkRead:
		var req conversationPayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		if err := claimsSelf(s, req.UserID); err != nil {
			return nil, err
		}
		_, err := v.ops.MarkConversationRead(req.ConversationID, s.UserID())
		return nil, err
	case models.ActionMarkMessageRead:
		var req messagePayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		_, err := v.ops.MarkMessageRead(req.MessageID, s.UserID())
		return nil, err
	case models.ActionAddReaction, models.ActionRemoveReaction:
		var req messagePayload
		if err := v.decode(pkg, &req); err != nil {
			return nil, err
		}
		var err error
		if pkg.Action == models.ActionAddReaction {
			_, err = v.ops.AddReaction(req.MessageID, s.UserID(), req.Emoji)
		} else {
			_, err = v.ops.RemoveReaction(req.MessageID, s.UserID(), req.Emoji)
		}
		return nil, err
	default:
		return &models.WebSocketPackage{
			Action:  models.EventError,
			Message: "command not found",
			Payload: map[string]any{"message": "command not found"},
		}, nil
	}
}

package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
)

// Notification is the hand-off to the push/email delivery collaborator.
type Notification struct {
	UserID         uint           `json:"user_id"`
	ConversationID uint           `json:"conversation_id"`
	MessageID      uint           `json:"message_id"`
	Topic          string         `json:"topic"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Metadata       map[string]any `json:"metadata"`
}

type Notifier interface {
	Notify(ctx context.Context, notifications []Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, []Notification) error {
	return nil
}

// KafkaNotifier publishes one record per recipient, keyed by user id so a
// user's notifications stay ordered within a partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (v *KafkaNotifier) Notify(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	records := make([]kafka.Message, 0, len(notifications))
	for _, item := range notifications {
		raw, err := jsoniter.Marshal(item)
		if err != nil {
			return err
		}
		records = append(records, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(item.UserID), 10)),
			Value: raw,
			Time:  time.Now(),
		})
	}

	return v.writer.WriteMessages(ctx, records...)
}

func (v *KafkaNotifier) Close() error {
	return v.writer.Close()
}

func displayTextOf(message MessageView) string {
	if len(message.Content) > 0 {
		return message.Content
	}
	return fmt.Sprintf("%d attachment(s)", len(message.Attachments))
}

// notifyMessage tells the offline side about a new message. It never blocks
// or fails the send.
func (v *Service) notifyMessage(conversation models.Conversation, message MessageView) {
	recipients := lo.Filter(conversation.Participants, func(item models.Participant, _ int) bool {
		return item.UserID != message.SenderID && !item.IsMuted
	})
	if len(recipients) == 0 {
		return
	}

	title := lo.Ternary(conversation.IsDirect(), "New message", fmt.Sprintf("New message in %s", conversation.Name))
	if len(message.Sender.Nick) > 0 {
		title = fmt.Sprintf("%s: %s", message.Sender.Nick, title)
	}

	var pending []Notification
	for _, member := range recipients {
		metadata := map[string]any{
			"sender_id":       message.SenderID,
			"conversation_id": conversation.ID,
		}
		if token, err := CreateReplyToken(conversation.ID, message.ID, member.UserID); err != nil {
			log.Warn().Err(err).Uint("user", member.UserID).Msg("An error occurred when signing a reply token...")
		} else {
			metadata["reply_token"] = token
		}

		pending = append(pending, Notification{
			UserID:         member.UserID,
			ConversationID: conversation.ID,
			MessageID:      message.ID,
			Topic:          "messaging.message",
			Title:          title,
			Body:           displayTextOf(message),
			Metadata:       metadata,
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := v.notifier.Notify(ctx, pending); err != nil {
			log.Warn().Err(err).Msg("An error occurred when trying notify user.")
		}
	}()
}

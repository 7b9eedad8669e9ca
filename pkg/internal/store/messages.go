package store

import (
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageQuery struct {
	Take   int
	Offset int
	Before *time.Time
	After  *time.Time
}

func preloadMessageRelations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Reactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("ReplyTo")
}

func (s *Store) GetMessage(id uint) (models.Message, error) {
	var message models.Message
	if err := preloadMessageRelations(s.db).
		Where("id = ?", id).
		First(&message).Error; err != nil {
		return message, wrapError(err)
	}

	return message, nil
}

func (s *Store) CountMessages(conversationId uint) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Message{}).
		Where("conversation_id = ?", conversationId).
		Count(&count).Error; err != nil {
		return 0, wrapError(err)
	}

	return count, nil
}

func (s *Store) CountMessagesAfter(conversationId, pivot uint) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND id > ?", conversationId, pivot).
		Count(&count).Error; err != nil {
		return 0, wrapError(err)
	}

	return count, nil
}

// ListMessages always returns the page in creation order. With a Before
// bound the page is the newest slice older than it, so clients can walk
// a long thread backwards.
func (s *Store) ListMessages(conversationId uint, query MessageQuery) ([]models.Message, error) {
	tx := preloadMessageRelations(s.db).Where("conversation_id = ?", conversationId)
	if query.Before != nil {
		tx = tx.Where("created_at < ?", *query.Before)
	}
	if query.After != nil {
		tx = tx.Where("created_at > ?", *query.After)
	}

	backwards := query.Before != nil && query.After == nil
	if backwards {
		tx = tx.Order("created_at DESC").Order("id DESC")
	} else {
		tx = tx.Order("created_at ASC").Order("id ASC")
	}

	var messages []models.Message
	if err := tx.Limit(query.Take).Offset(query.Offset).Find(&messages).Error; err != nil {
		return messages, wrapError(err)
	}

	if backwards {
		messages = lo.Reverse(messages)
	}

	return messages, nil
}

// CreateMessage locks the conversation row before it stamps the message,
// so per conversation the creation order is the commit order.
func (s *Store) CreateMessage(message *models.Message) error {
	return s.transaction(func(tx *gorm.DB) error {
		if err := touchConversation(tx, message.ConversationID); err != nil {
			return err
		}

		now := database.Now()
		message.CreatedAt, message.UpdatedAt = now, now
		return tx.Omit("ReplyTo", "Reactions").Create(message).Error
	})
}

func (s *Store) UpdateMessage(message models.Message, content *string, metadata map[string]any) (models.Message, error) {
	now := database.Now()
	changes := map[string]any{
		"is_edited":  true,
		"edited_at":  now,
		"updated_at": now,
	}
	if content != nil {
		changes["content"] = *content
	}
	if metadata != nil {
		changes["metadata"] = datatypes.JSONMap(metadata)
	}

	if err := s.transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("id = ? AND is_deleted = ?", message.ID, false).
			Updates(changes).Error; err != nil {
			return err
		}
		return touchConversation(tx, message.ConversationID)
	}); err != nil {
		return message, err
	}

	return s.GetMessage(message.ID)
}

// SoftDeleteMessage tombstones the message in place.
func (s *Store) SoftDeleteMessage(message models.Message) (models.Message, error) {
	now := database.Now()
	if err := s.transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("id = ?", message.ID).
			Updates(map[string]any{
				"is_deleted":  true,
				"deleted_at":  now,
				"content":     models.MessageTombstone,
				"attachments": datatypes.JSONSlice[models.Attachment]{},
				"metadata":    datatypes.JSONMap{},
				"updated_at":  now,
			}).Error; err != nil {
			return err
		}
		return touchConversation(tx, message.ConversationID)
	}); err != nil {
		return message, err
	}

	return s.GetMessage(message.ID)
}

func escapeLike(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(query)
}

// SearchMessages matches content case-insensitively inside conversations
// the user is still part of. Deleted messages never match.
func (s *Store) SearchMessages(userId uint, query string, conversationId *uint, take int) ([]models.Message, error) {
	pattern := fmt.Sprintf("%%%s%%", escapeLike(strings.ToLower(query)))

	tx := preloadMessageRelations(s.db).
		Where("conversation_id IN (?)", s.activeConversationIds(userId)).
		Where("is_deleted = ?", false).
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, pattern)
	if conversationId != nil {
		tx = tx.Where("conversation_id = ?", *conversationId)
	}

	var messages []models.Message
	if err := tx.
		Order("created_at DESC").Order("id DESC").
		Limit(take).
		Find(&messages).Error; err != nil {
		return messages, wrapError(err)
	}

	return messages, nil
}

type UnreadCount struct {
	ConversationID uint  `json:"conversation_id"`
	Count          int64 `json:"count"`
}

// CountUnread counts, per conversation, the messages of other users created
// after the user's watermark.
func (s *Store) CountUnread(userId uint) ([]UnreadCount, error) {
	participants := s.tableOf(&models.Participant{})
	messages := s.tableOf(&models.Message{})

	var result []UnreadCount
	if err := s.db.Table(participants+" AS p").
		Select("p.conversation_id AS conversation_id, COUNT(m.id) AS count").
		Joins(fmt.Sprintf("JOIN %s AS m ON m.conversation_id = p.conversation_id", messages)).
		Where("p.user_id = ? AND p.left_at IS NULL", userId).
		Where("m.sender_id <> ? AND m.is_deleted = ?", userId, false).
		Where("(p.last_read_at IS NULL OR m.created_at > p.last_read_at)").
		Group("p.conversation_id").
		Order("p.conversation_id ASC").
		Scan(&result).Error; err != nil {
		return result, wrapError(err)
	}

	return result, nil
}

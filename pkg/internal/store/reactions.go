package store

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) ListReactions(messageId uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	if err := s.db.
		Where("message_id = ?", messageId).
		Order("id ASC").
		Find(&reactions).Error; err != nil {
		return reactions, wrapError(err)
	}

	return reactions, nil
}

// AddReaction relies on the unique (message, user, emoji) index, so two
// racing identical requests still end with one row. The bool reports
// whether this call inserted it.
func (s *Store) AddReaction(message models.Message, userId uint, emoji string) (bool, []models.Reaction, error) {
	var created bool
	if err := s.transaction(func(tx *gorm.DB) error {
		reaction := models.Reaction{
			MessageID: message.ID,
			UserID:    userId,
			Emoji:     emoji,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		if !created {
			return nil
		}
		return touchConversation(tx, message.ConversationID)
	}); err != nil {
		return false, nil, err
	}

	reactions, err := s.ListReactions(message.ID)
	return created, reactions, err
}

func (s *Store) RemoveReaction(message models.Message, userId uint, emoji string) (bool, []models.Reaction, error) {
	var removed bool
	if err := s.transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("message_id = ? AND user_id = ? AND emoji = ?", message.ID, userId, emoji).
			Delete(&models.Reaction{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected > 0
		if !removed {
			return nil
		}
		return touchConversation(tx, message.ConversationID)
	}); err != nil {
		return false, nil, err
	}

	reactions, err := s.ListReactions(message.ID)
	return removed, reactions, err
}

package store

import (
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertParticipant inserts the membership row or brings a departed one back.
func upsertParticipant(tx *gorm.DB, conversationId, userId uint, role models.ParticipantRole) error {
	now := database.Now()
	member := models.Participant{
		ConversationID: conversationId,
		UserID:         userId,
		Role:           role,
		JoinedAt:       now,
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"left_at":    nil,
			"role":       role,
			"joined_at":  now,
			"updated_at": now,
		}),
	}).Create(&member).Error
}

func (s *Store) GetParticipant(conversationId, userId uint) (models.Participant, error) {
	var member models.Participant
	if err := s.db.
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&member).Error; err != nil {
		return member, wrapError(err)
	}

	return member, nil
}

func (s *Store) GetActiveParticipant(conversationId, userId uint) (models.Participant, error) {
	var member models.Participant
	if err := s.db.
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationId, userId).
		First(&member).Error; err != nil {
		return member, wrapError(err)
	}

	return member, nil
}

// ListParticipants returns every row of the conversation, departed users included.
func (s *Store) ListParticipants(conversationId uint) ([]models.Participant, error) {
	var members []models.Participant
	if err := s.db.
		Where("conversation_id = ?", conversationId).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return members, wrapError(err)
	}

	return members, nil
}

func (s *Store) AddParticipant(conversationId, userId uint, role models.ParticipantRole) (models.Participant, error) {
	if err := s.transaction(func(tx *gorm.DB) error {
		if err := upsertParticipant(tx, conversationId, userId, role); err != nil {
			return err
		}
		return touchConversation(tx, conversationId)
	}); err != nil {
		return models.Participant{}, err
	}

	return s.GetActiveParticipant(conversationId, userId)
}

// RemoveParticipant soft-leaves the membership. The row stays for history.
func (s *Store) RemoveParticipant(conversationId, userId uint) error {
	return s.transaction(func(tx *gorm.DB) error {
		now := database.Now()
		result := tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationId, userId).
			Updates(map[string]any{"left_at": now, "updated_at": now})
		if result.Error != nil {
			return result.Error
		} else if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return touchConversation(tx, conversationId)
	})
}

func (s *Store) UpdateParticipant(member models.Participant, nick *string, isMuted *bool) (models.Participant, error) {
	changes := map[string]any{}
	if nick != nil {
		changes["nick"] = *nick
	}
	if isMuted != nil {
		changes["is_muted"] = *isMuted
	}
	if len(changes) == 0 {
		return member, nil
	}
	changes["updated_at"] = database.Now()

	if err := s.transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Participant{}).
			Where("id = ?", member.ID).
			Updates(changes).Error
	}); err != nil {
		return member, err
	}

	return s.GetParticipant(member.ConversationID, member.UserID)
}

// AdvanceWatermark moves last_read_at forward to at and never backwards.
// The returned time is the watermark after the call.
func (s *Store) AdvanceWatermark(conversationId, userId uint, at time.Time) (time.Time, error) {
	var watermark time.Time
	err := s.transaction(func(tx *gorm.DB) error {
		var member models.Participant
		if err := tx.
			Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationId, userId).
			First(&member).Error; err != nil {
			return err
		}
		if member.LastReadAt != nil && !at.After(*member.LastReadAt) {
			watermark = *member.LastReadAt
			return nil
		}

		watermark = at
		return tx.Model(&models.Participant{}).
			Where("id = ?", member.ID).
			Updates(map[string]any{"last_read_at": at, "updated_at": database.Now()}).Error
	})

	return watermark, err
}

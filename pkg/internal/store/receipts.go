package store

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkMessageRead stores a per-message receipt once. Repeated calls keep the
// first read_at and report created as false.
func (s *Store) MarkMessageRead(messageId, userId uint) (models.ReadReceipt, bool, error) {
	receipt := models.ReadReceipt{
		MessageID: messageId,
		UserID:    userId,
		ReadAt:    database.Now(),
	}

	var created bool
	if err := s.transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipt)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		return nil
	}); err != nil {
		return receipt, false, err
	}

	if created {
		return receipt, true, nil
	}

	var existing models.ReadReceipt
	if err := s.db.
		Where("message_id = ? AND user_id = ?", messageId, userId).
		First(&existing).Error; err != nil {
		return existing, false, wrapError(err)
	}

	return existing, false, nil
}

func (s *Store) ListReadReceipts(messageId uint) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	if err := s.db.
		Where("message_id = ?", messageId).
		Order("read_at ASC").
		Find(&receipts).Error; err != nil {
		return receipts, wrapError(err)
	}

	return receipts, nil
}

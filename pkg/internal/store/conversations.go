package store

import (
	"errors"
	"strings"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func preloadActiveParticipants(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Where("left_at IS NULL").Order("id ASC")
	})
}

func (s *Store) GetConversation(id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := preloadActiveParticipants(s.db).
		Where("id = ?", id).
		First(&conversation).Error; err != nil {
		return conversation, wrapError(err)
	}

	return conversation, nil
}

func (s *Store) findDirect(tx *gorm.DB, key string) (models.Conversation, error) {
	var conversation models.Conversation
	if err := preloadActiveParticipants(tx).
		Where("direct_key = ?", key).
		First(&conversation).Error; err != nil {
		return conversation, err
	}

	return conversation, nil
}

// FindOrCreateDirect returns the one direct conversation between the two users,
// creating it on first use. A conversation that already exists gets both
// participant rows repaired, so the pair is always active afterwards.
func (s *Store) FindOrCreateDirect(creatorId, otherId uint) (models.Conversation, bool, error) {
	if creatorId == otherId || creatorId == 0 || otherId == 0 {
		return models.Conversation{}, false, ErrDirectPairInvalid
	}

	key := models.DirectKeyOf(creatorId, otherId)
	if conversation, err := s.findDirect(s.db, key); err == nil {
		if err := s.repairDirect(conversation, creatorId, otherId); err != nil {
			return conversation, false, err
		}
		conversation, err = s.GetConversation(conversation.ID)
		return conversation, false, err
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return conversation, false, wrapError(err)
	}

	now := database.Now()
	conversation := models.Conversation{
		Kind:      models.ConversationKindDirect,
		CreatorID: creatorId,
		DirectKey: &key,
		Participants: []models.Participant{
			{UserID: creatorId, Role: models.ParticipantRoleAdmin, JoinedAt: now},
			{UserID: otherId, Role: models.ParticipantRoleMember, JoinedAt: now},
		},
	}

	if err := s.transaction(func(tx *gorm.DB) error {
		return tx.Create(&conversation).Error
	}); err != nil {
		// Somebody else created the pair in the meantime
		if existing, ferr := s.findDirect(s.db, key); ferr == nil {
			return existing, false, nil
		}
		return conversation, false, err
	}

	conversation, err := s.GetConversation(conversation.ID)
	return conversation, true, err
}

func (s *Store) repairDirect(conversation models.Conversation, creatorId, otherId uint) error {
	active := lo.Map(conversation.Participants, func(item models.Participant, _ int) uint {
		return item.UserID
	})
	missing := lo.Without([]uint{creatorId, otherId}, active...)
	if len(missing) == 0 {
		return nil
	}

	return s.transaction(func(tx *gorm.DB) error {
		for _, userId := range missing {
			if err := upsertParticipant(tx, conversation.ID, userId, models.ParticipantRoleMember); err != nil {
				return err
			}
		}
		return touchConversation(tx, conversation.ID)
	})
}

// CreateGroup persists a group with its initial participant rows.
func (s *Store) CreateGroup(conversation models.Conversation) (models.Conversation, error) {
	conversation.Name = strings.TrimSpace(conversation.Name)
	if len(conversation.Name) == 0 {
		return conversation, ErrGroupNameRequired
	}
	others := lo.Filter(conversation.Participants, func(item models.Participant, _ int) bool {
		return item.UserID != conversation.CreatorID
	})
	if len(others) == 0 {
		return conversation, ErrParticipantRequired
	}

	conversation.Kind = models.ConversationKindGroup
	conversation.DirectKey = nil

	if err := s.transaction(func(tx *gorm.DB) error {
		return tx.Create(&conversation).Error
	}); err != nil {
		return conversation, err
	}

	return s.GetConversation(conversation.ID)
}

func (s *Store) UpdateConversation(conversation models.Conversation, name, description *string) (models.Conversation, error) {
	changes := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if conversation.Kind == models.ConversationKindGroup && len(trimmed) == 0 {
			return conversation, ErrGroupNameRequired
		}
		changes["name"] = trimmed
	}
	if description != nil {
		changes["description"] = *description
	}
	if len(changes) == 0 {
		return conversation, nil
	}
	changes["updated_at"] = database.Now()

	if err := s.transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversation.ID).
			Updates(changes).Error
	}); err != nil {
		return conversation, err
	}

	return s.GetConversation(conversation.ID)
}

func (s *Store) activeConversationIds(userId uint) *gorm.DB {
	return s.db.Model(&models.Participant{}).
		Select("conversation_id").
		Where("user_id = ? AND left_at IS NULL", userId)
}

func (s *Store) CountConversations(userId uint) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Conversation{}).
		Where("id IN (?)", s.activeConversationIds(userId)).
		Count(&count).Error; err != nil {
		return 0, wrapError(err)
	}

	return count, nil
}

// ListConversations puts the most recently active conversation first.
func (s *Store) ListConversations(userId uint, take, offset int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := preloadActiveParticipants(s.db).
		Where("id IN (?)", s.activeConversationIds(userId)).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "updated_at"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Limit(take).Offset(offset).
		Find(&conversations).Error; err != nil {
		return conversations, wrapError(err)
	}

	return conversations, nil
}

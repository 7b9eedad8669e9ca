package store

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
)

// Store owns every durable messaging entity. Each exported mutation runs
// in its own transaction and bumps the owning conversation's updated_at.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) transaction(fn func(tx *gorm.DB) error) error {
	return wrapError(s.db.Transaction(fn))
}

func (s *Store) tableOf(model any) string {
	stmt := &gorm.Statement{DB: s.db}
	_ = stmt.Parse(model)
	return stmt.Schema.Table
}

func touchConversation(tx *gorm.DB, conversationId uint) error {
	return tx.Model(&models.Conversation{}).
		Where("id = ?", conversationId).
		UpdateColumn("updated_at", database.Now()).Error
}

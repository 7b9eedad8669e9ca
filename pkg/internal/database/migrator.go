package database

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Conversation{},
	&models.Participant{},
	&models.Message{},
	&models.Reaction{},
	&models.ReadReceipt{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}

package migration

import (
	"gorm.io/gorm"

	"github.com/petgourmet/ledgersync/internal/infrastructure/persistence/models"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

// AutoMigrateModels returns every persistence model in dependency order.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.OrderModel{},
		&models.SubscriptionModel{},
		&models.WebhookEventModel{},
		&models.BillingEntryModel{},
	}
}

// AutoMigrate lets gorm derive the schema from the models. It is the path
// used with the sqlite driver, where the versioned MySQL DDL does not apply.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AutoMigrateModels()...); err != nil {
		return err
	}
	logger.Info("database schema auto-migrated")
	return nil
}

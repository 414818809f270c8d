package migrations

import (
	"github.com/fixtureops/contact-monitor/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_fixtures",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.FixtureModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_fixtures_plant ON fixtures (plant)`,
					`CREATE INDEX IF NOT EXISTS idx_fixtures_warning_band ON fixtures (contacts) WHERE warning_at IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_fixtures_limit_band ON fixtures (contacts) WHERE contacts_limit IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.FixtureModel{})
			},
		},
		{
			ID: "000002_create_fixture_resets",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ResetEventModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_resets_fixture_created ON fixture_resets (plant, adapter_code, fixture_type, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ResetEventModel{})
			},
		},
		{
			ID: "000003_create_notification_log",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationRecordModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_log_fixture_sent_created ON notification_log (plant, adapter_code, fixture_type, created_at) WHERE status = 'SENT'`,
					`CREATE INDEX IF NOT EXISTS idx_log_plant_created ON notification_log (plant, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationRecordModel{})
			},
		},
		{
			ID: "000004_create_group_members",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.GroupMemberModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_members_email ON group_members (email)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.GroupMemberModel{})
			},
		},
		{
			ID: "000005_create_fixture_probes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ProbeModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProbeModel{})
			},
		},
	})

	return m.Migrate()
}

package infra

import (
	"fmt"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate for
// every model and then applies the idempotent SQL patches GORM cannot express.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every table owned by the backend, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Company{},
		&model.Province{},
		&model.User{},
		&model.Role{},
		&model.RoleHasPermission{},
		&model.Production{},
		&model.ProductionRegister{},
		&model.Complaint{},
		&model.Investigation{},
	}
}

// RunMigrations creates / updates all tables and applies the schema patches.
// Integration tests call it directly against a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that AutoMigrate cannot
// handle (partial indexes, check constraints). Each statement is guarded so
// re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// listing "not generated yet" lots is the operators' default view
		`CREATE INDEX IF NOT EXISTS idx_productions_pending_generation
		    ON productions (created_at)
		    WHERE import_qr_at IS NULL`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productions_lot_total_positive') THEN
		    ALTER TABLE productions ADD CONSTRAINT chk_productions_lot_total_positive CHECK (lot_total > 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_complaints_status') THEN
		    ALTER TABLE complaints ADD CONSTRAINT chk_complaints_status
		      CHECK (status IN ('submitted','in_review','investigating','resolved','rejected','closed'));
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

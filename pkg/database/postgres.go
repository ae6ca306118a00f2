package database

import (
	"fmt"
	"time"

	"helplink/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Dialector picks the gorm driver for config.Driver ("postgres" when empty).
func Dialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "", "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			config.User, config.Password, config.Host, config.Port, config.DBName,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}

func Connect(config Config, debug bool, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(config)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected",
		zap.String("driver", dialector.Name()),
		zap.String("host", config.Host),
		zap.String("database", config.DBName))
	return db, nil
}

// Migrate creates the HelpLink tables and the export log.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(models.Migratable()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Info("database migration completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// Status filter and the recent-first donation listing
	if !db.Migrator().HasIndex(&models.Donation{}, "idx_doacao_status") {
		if err := db.Exec("CREATE INDEX idx_doacao_status ON tb_helplink_doacao(status)").Error; err != nil {
			return err
		}
	}
	if !db.Migrator().HasIndex(&models.ExportRecord{}, "idx_export_log_created_at") {
		if err := db.Exec("CREATE INDEX idx_export_log_created_at ON helplink_export_log(created_at DESC)").Error; err != nil {
			return err
		}
	}
	return nil
}

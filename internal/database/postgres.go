package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"volunteerhub/internal/log"
	"volunteerhub/internal/models"
)

// Connection retry policy shared by the postgres and mongo openers
const (
	maxRetries = 5
	retryDelay = 5 * time.Second
)

// reminderScanQuery is issued by every scheduler tick and would drown the SQL log
const reminderScanQuery = `SELECT * FROM "event" WHERE status = 'approved' AND start_date >`

// OpenPostgres connects to PostgreSQL, retrying while the server comes up,
// and configures the connection pool.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	logger := log.WithComponent("postgres")

	baseLogger := gormlogger.New(
		zerologWriter{logger: logger},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gormConfig := &gorm.Config{
		Logger: NewFilteredLogger(baseLogger, reminderScanQuery),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt:    true,
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Database connection attempt failed")
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info().Msg("Database connection established")
	return db, nil
}

// AutoMigrate creates or updates the tables used by the gorm store
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Event{},
		&models.Registration{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

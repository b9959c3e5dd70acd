package main

import (
	"context"
	"fmt"
	"time"

	"volunteerhub/internal/config"
	"volunteerhub/internal/database"
	"volunteerhub/internal/log"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/services"
	"volunteerhub/internal/store"
)

// openStore connects the backend selected by STORE_DRIVER and prepares its schema
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		db, err := database.OpenMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if err != nil {
			return nil, err
		}
		st := store.NewMongoStore(db)
		if err := st.EnsureIndexes(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return st, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return store.NewGormStore(db), nil

	case config.DriverBolt:
		return store.NewBoltStore(cfg.Store.BoltPath)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// newSender returns SendGrid when an API key is configured, otherwise a
// sender that only logs
func newSender(cfg *config.Config) notify.Notifier {
	if cfg.Email.SendGridAPIKey == "" {
		log.Warn("SENDGRID_API_KEY not set, notifications will only be logged")
		return notify.NewLogSender()
	}
	return notify.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
}

func newReminderWorker(cfg *config.Config, st store.Store, sender notify.Notifier) (*services.ReminderWorker, error) {
	loc, err := cfg.ReminderLocation()
	if err != nil {
		return nil, err
	}
	return services.NewReminderWorker(st, sender, cfg.Reminders.Offsets, loc), nil
}

const connectTimeout = 2 * time.Minute

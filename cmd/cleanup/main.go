package main

import (
	"context"
	"log"
	"time"

	"homecare/internal/config"
	"homecare/internal/database"
	"homecare/internal/domain/notification"
)

// Deletes notifications that were read longer ago than
// NOTIFICATION_RETENTION. Meant to run from cron.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	cutoff := time.Now().UTC().Add(-cfg.NotificationRetention)
	purged, err := notification.NewRepository(db).PurgeRead(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("purge notifications failed: %v", err)
	}

	log.Printf("cleanup completed: notifications=%d read_before=%s", purged, cutoff.Format(time.RFC3339))
}

// Connectivity check for the submissions database
// cmd/check-db/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"submission-portal-api/config"
	"submission-portal-api/models"
	"submission-portal-api/services"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Printf("Connecting to %s at %s:%s/%s ...", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	db, err := config.InitDB(cfg.Database, "production")
	if err != nil {
		return err
	}
	defer config.CloseDB(db)
	log.Println("✅ Connected")

	tables, err := db.Migrator().GetTables()
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	log.Printf("Tables: %v", tables)

	if !db.Migrator().HasTable(&models.Submission{}) {
		log.Println("⚠️  submissions table does not exist yet (run the API with DB_AUTO_MIGRATE=true)")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	total, err := services.NewSubmissionStore(db, cfg.Database.QueryTimeout).Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("✅ submissions: %d rows", total)
	return nil
}

// Removes every submission. Intended for resetting an event between rounds.
// cmd/clear-submissions/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"submission-portal-api/config"
	"submission-portal-api/services"
)

func main() {
	confirm := flag.Bool("confirm", false, "actually delete every submission")
	flag.Parse()

	if err := run(*confirm); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func run(confirm bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := config.InitDB(cfg.Database, "production")
	if err != nil {
		return err
	}
	defer config.CloseDB(db)

	store := services.NewSubmissionStore(db, cfg.Database.QueryTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if !confirm {
		log.Printf("%d submissions would be deleted. Re-run with -confirm to proceed.", total)
		return nil
	}

	deleted, err := store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("✅ Deleted %d submissions", deleted)
	return nil
}

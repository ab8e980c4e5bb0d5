// migrate applies the embedded SQL migrations to DATABASE_URL.
//
// Usage: go run ./cmd/migrate [-status]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"coconut-erp/internal/config"
	"coconut-erp/internal/db"
	"coconut-erp/internal/observability/logging"
	"coconut-erp/migrations"
)

func main() {
	status := flag.Bool("status", false, "list embedded migrations without applying them")
	flag.Parse()

	if *status {
		list, err := db.Discover(migrations.FS)
		if err != nil {
			log.Fatalf("[DISCOVER] %v", err)
		}
		for _, m := range list {
			fmt.Printf("%s  %s  %s\n", m.Version, m.Checksum[:12], m.Filename)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx := context.Background()
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := db.NewPool(connCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS, logger)
	if errors.Is(err, db.ErrMigrationLocked) {
		pool.Close()
		log.Fatal("[LOCK] failed: another migrator is currently running")
	}
	if err != nil {
		pool.Close()
		log.Fatalf("[ERROR] %v", err)
	}

	logger.Info("all migrations processed", "applied", len(applied))
}

// app runs one-shot ERP reports against the configured store and issues API tokens.
// Without arguments it starts the interactive operator shell.
//
// Usage:
//
//	go run ./cmd/app
//	go run ./cmd/app low-stock | expiring [days] | overdue | cash-flow | quality [start] [end] [--json]
//	go run ./cmd/app token <subject> <role> [ttl]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"coconut-erp/internal/adapters/cli"
	"coconut-erp/internal/adapters/repl"
	webAdapter "coconut-erp/internal/adapters/web"
	"coconut-erp/internal/app"
	"coconut-erp/internal/config"
	"coconut-erp/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		issueToken(cfg, os.Args[2:])
		return
	}

	// Reports go to stdout; keep logs on stderr.
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Unable to start application: %v", err)
	}
	defer a.Close()

	if len(os.Args) < 2 {
		if err := repl.Run(ctx, a, os.Stdin, os.Stdout, os.Getenv("USER")); err != nil {
			a.Close()
			log.Fatal(err)
		}
		return
	}
	if err := cli.Run(ctx, a, os.Args[1:], os.Stdout); err != nil {
		a.Close()
		log.Fatal(err)
	}
}

func issueToken(cfg *config.Config, args []string) {
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if len(args) < 2 {
		log.Fatal("Usage: app token <subject> <role> [ttl]")
	}
	ttl := 12 * time.Hour
	if len(args) > 2 {
		d, err := time.ParseDuration(args[2])
		if err != nil {
			log.Fatalf("Invalid ttl %q: %v", args[2], err)
		}
		ttl = d
	}
	token, err := webAdapter.IssueToken(cfg.JWTSecret, args[0], args[1], ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

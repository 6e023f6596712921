// Command migrate runs goose migrations against the configured database.
//
// Usage:
//
//	migrate -command up
//	migrate -command down
//	migrate -command status
//	migrate -command create -name add_indexes
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/migrate"
)

func main() {
	command := flag.String("command", "up", "goose command: up, down, status, version, create")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	name := flag.String("name", "", "migration name (create only)")
	flag.Parse()

	if err := run(*command, *dir, *name); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(command, dir, name string) error {
	_ = godotenv.Load()

	if command == "create" {
		path, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", path)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return migrate.Run(ctx, db, dir, command, flag.Args()...)
}

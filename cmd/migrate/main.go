package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/database"
	"github.com/Chochanguk/Yoribogo/server/internal/logger"
	"github.com/Chochanguk/Yoribogo/server/internal/model"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	rollback := fs.Bool("rollback", false, "Drop the recipes table instead of migrating it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	zl, err := logger.New(cfg.LogLevel, config.IsProduction())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if *rollback {
		if err := db.Migrator().DropTable(&model.Recipe{}); err != nil {
			return fmt.Errorf("failed to drop recipes: %w", err)
		}
		log.Println("Dropped recipes table")
		return nil
	}

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Migrations applied")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/database"
	"github.com/Chochanguk/Yoribogo/server/internal/logger"
	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/store"
)

// RecipeData is one entry of the seed file.
type RecipeData struct {
	Name        string  `json:"name"`
	Ingredients string  `json:"ingredients"`
	ImageURL    *string `json:"image_url,omitempty"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("seed_recipes: %v", err)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string) error {
	fs := flag.NewFlagSet("seed_recipes", flag.ContinueOnError)
	file := fs.String("file", "", "JSON file holding an array of recipes")
	source := fs.String("source", string(model.SourceCatalog), "target store: catalog or public_data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		return errors.New("-file is required")
	}
	src, err := model.ParseSource(*source)
	if err != nil || src == model.SourceGenerated {
		return fmt.Errorf("invalid -source %q: must be catalog or public_data", *source)
	}

	recipes, err := readRecipes(*file)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	zl, err := logger.New(cfg.LogLevel, config.IsProduction())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	created, skipped, err := seed(context.Background(), store.New(db).Collection(src), recipes, cfg.SystemUserID)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	zl.Info("seeding complete",
		zap.String("source", string(src)),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return nil
}

func readRecipes(path string) ([]RecipeData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recipes []RecipeData
	if err := json.Unmarshal(raw, &recipes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recipes, nil
}

// seed inserts every recipe that the collection does not already hold by
// exact name.
func seed(ctx context.Context, col *store.Collection, recipes []RecipeData, owner uuid.UUID) (created, skipped int, err error) {
	for _, r := range recipes {
		name := strings.TrimSpace(r.Name)
		if name == "" || strings.TrimSpace(r.Ingredients) == "" {
			skipped++
			continue
		}
		existing, err := col.FindByName(ctx, name)
		if err != nil {
			return created, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}
		if _, err := col.Create(ctx, &model.Recipe{
			Name:        name,
			Ingredients: strings.TrimSpace(r.Ingredients),
			ImageURL:    r.ImageURL,
			UserID:      owner,
		}); err != nil {
			return created, skipped, fmt.Errorf("create %q: %w", name, err)
		}
		created++
	}
	return created, skipped, nil
}

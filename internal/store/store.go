// Package store persists recipes. The three recipe stores share one table and
// are kept disjoint by the source column; every Collection query is scoped to
// a single source.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned by Get when no live recipe has the requested id.
var ErrNotFound = errors.New("recipe not found")

// Store is the façade over the catalog, public-data and generated collections.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Catalog returns the pre-seeded recipe collection.
func (s *Store) Catalog() *Collection { return s.Collection(model.SourceCatalog) }

// PublicData returns the imported public-dataset collection.
func (s *Store) PublicData() *Collection { return s.Collection(model.SourcePublicData) }

// Generated returns the collection written by the recommendation pipeline.
func (s *Store) Generated() *Collection { return s.Collection(model.SourceGenerated) }

// Collection returns the collection for source.
func (s *Store) Collection(source model.Source) *Collection {
	return &Collection{db: s.db, source: source}
}

// Transaction runs fn against a Store bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// Get loads a recipe from any collection.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// ListOptions narrows a listing across all collections.
type ListOptions struct {
	Page     int // 1-based
	PageSize int
	Query    string
	Source   model.Source
}

// List returns one page of recipes, newest first, and the total number of
// recipes matching the filter.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]model.Recipe, int64, error) {
	if opts.Page < 1 || opts.PageSize < 1 {
		return nil, 0, fmt.Errorf("invalid page %d of size %d", opts.Page, opts.PageSize)
	}

	query := s.db.WithContext(ctx).Model(&model.Recipe{})
	if opts.Source != "" {
		query = query.Where("source = ?", opts.Source)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		query = query.Where(`name LIKE ? ESCAPE '\'`, containsPattern(q))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []model.Recipe
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((opts.Page - 1) * opts.PageSize).
		Limit(opts.PageSize).
		Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// AttachImage records the rendered image of a recipe. The image is written at
// most once; it reports false when the recipe is gone or already has one.
func (s *Store) AttachImage(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Recipe{}).
		Where("id = ? AND image_url IS NULL", id).
		Update("image_url", url)
	if result.Error != nil {
		return false, fmt.Errorf("failed to attach image: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Delete soft-deletes a recipe. It reports false when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&model.Recipe{}, "id = ?", id)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete recipe: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Collection is one of the three recipe stores.
type Collection struct {
	db     *gorm.DB
	source model.Source
}

// Source reports which store the collection reads and writes.
func (c *Collection) Source() model.Source { return c.source }

func (c *Collection) scoped(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Model(&model.Recipe{}).Where("source = ?", c.source)
}

// FindByNameContains returns every recipe whose name contains substr, in
// insertion order. An empty substr matches nothing.
func (c *Collection) FindByNameContains(ctx context.Context, substr string) ([]model.Recipe, error) {
	if substr == "" {
		return nil, nil
	}
	var recipes []model.Recipe
	if err := c.scoped(ctx).
		Where(`name LIKE ? ESCAPE '\'`, containsPattern(substr)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to search %s recipes: %w", c.source, err)
	}
	return recipes, nil
}

// FindByName returns the recipe named exactly name, or nil when there is none.
func (c *Collection) FindByName(ctx context.Context, name string) (*model.Recipe, error) {
	var recipes []model.Recipe
	if err := c.scoped(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		Limit(1).
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to find %s recipe: %w", c.source, err)
	}
	if len(recipes) == 0 {
		return nil, nil
	}
	return &recipes[0], nil
}

// Create inserts recipe into the collection, overriding any source it carries.
func (c *Collection) Create(ctx context.Context, recipe *model.Recipe) (*model.Recipe, error) {
	recipe.Source = c.source
	if err := c.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s recipe: %w", c.source, err)
	}
	return recipe, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

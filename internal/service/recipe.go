package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/store"
)

// RecipesPerPage is the size of one listing page.
const RecipesPerPage = 12

// RecipePage is one page of a recipe listing.
type RecipePage struct {
	Recipes    []model.Recipe
	Page       int
	TotalPages int
	Total      int64
}

// CreateRecipeInput describes a recipe added by an administrator.
type CreateRecipeInput struct {
	Name        string
	Ingredients string
	ImageURL    *string
	Source      model.Source
	UserID      uuid.UUID
}

// RecipeService handles recipe operations
type RecipeService struct {
	store *store.Store
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(st *store.Store) *RecipeService {
	return &RecipeService{store: st}
}

// ListRecipes returns page (1-based) of all recipes, newest first, optionally
// narrowed to names containing query.
func (s *RecipeService) ListRecipes(ctx context.Context, page int, query string) (*RecipePage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}

	recipes, total, err := s.store.List(ctx, store.ListOptions{
		Page:     page,
		PageSize: RecipesPerPage,
		Query:    query,
	})
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("%w: no recipes on page %d", ErrNotFound, page)
	}

	return &RecipePage{
		Recipes:    recipes,
		Page:       page,
		TotalPages: int((total + RecipesPerPage - 1) / RecipesPerPage),
		Total:      total,
	}, nil
}

// GetRecipe retrieves a recipe by ID
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	recipe, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, id)
	}
	return recipe, err
}

// CreateRecipe adds a catalog or public-data recipe. Generated recipes are
// only ever created by the recommendation pipeline.
func (s *RecipeService) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*model.Recipe, error) {
	name := strings.TrimSpace(input.Name)
	ingredients := strings.TrimSpace(input.Ingredients)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case ingredients == "":
		return nil, fmt.Errorf("%w: ingredients are required", ErrValidation)
	case input.Source != model.SourceCatalog && input.Source != model.SourcePublicData:
		return nil, fmt.Errorf("%w: source must be %q or %q", ErrValidation, model.SourceCatalog, model.SourcePublicData)
	case input.UserID == uuid.Nil:
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	return s.store.Collection(input.Source).Create(ctx, &model.Recipe{
		Name:        name,
		Ingredients: ingredients,
		ImageURL:    input.ImageURL,
		UserID:      input.UserID,
	})
}

// DeleteRecipe deletes a recipe
func (s *RecipeService) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: recipe %s", ErrNotFound, id)
	}
	return nil
}

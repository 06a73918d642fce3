package api

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/service"
)

// RecipeResponse represents the response structure for recipe-related API endpoints
type RecipeResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Ingredients string    `json:"ingredients"`
	ImageURL    *string   `json:"image_url"`
	Source      string    `json:"source"`
	UserID      uuid.UUID `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecipeListResponse is one page of recipes
type RecipeListResponse struct {
	Recipes    []RecipeResponse `json:"recipes"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int64            `json:"total"`
}

// RecommendRequest is the body of POST /recipes/recommend. The positional
// first..fifth names are accepted for older clients.
type RecommendRequest struct {
	Weather    string `json:"weather"`
	Mood       string `json:"mood"`
	Headcount  string `json:"headcount"`
	Vegetarian string `json:"vegetarian"`
	Extra      string `json:"extra"`

	First  string `json:"first"`
	Second string `json:"second"`
	Third  string `json:"third"`
	Fourth string `json:"fourth"`
	Fifth  string `json:"fifth"`
}

// CreateRecipeRequest is the body of POST /recipes
type CreateRecipeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Ingredients string  `json:"ingredients" binding:"required"`
	ImageURL    *string `json:"image_url"`
	Source      string  `json:"source" binding:"required"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func toRecommendRequest(r RecommendRequest) service.RecommendRequest {
	return service.RecommendRequest{
		Weather:    firstNonEmpty(r.Weather, r.First),
		Mood:       firstNonEmpty(r.Mood, r.Second),
		Headcount:  firstNonEmpty(r.Headcount, r.Third),
		Vegetarian: firstNonEmpty(r.Vegetarian, r.Fourth),
		Extra:      firstNonEmpty(r.Extra, r.Fifth),
	}
}

func toRecipeResponse(r *model.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Name:        r.Name,
		Ingredients: r.Ingredients,
		ImageURL:    r.ImageURL,
		Source:      string(r.Source),
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
	}
}

func toRecipeListResponse(p *service.RecipePage) RecipeListResponse {
	out := RecipeListResponse{
		Recipes:    make([]RecipeResponse, 0, len(p.Recipes)),
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
	for i := range p.Recipes {
		out.Recipes = append(out.Recipes, toRecipeResponse(&p.Recipes[i]))
	}
	return out
}

package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
)

// AIGateway sends a single prompt to the text model and returns its answer.
type AIGateway interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ImageRenderer accepts image jobs for recipes. Enqueue returns once the job
// is accepted; rendering happens in the background.
type ImageRenderer interface {
	Enqueue(ctx context.Context, description string, recipeID uuid.UUID) (*ImageJob, error)
}

// ImageGenerator turns a prompt into encoded image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ObjectStorage stores bytes under key and returns a public reference to them.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Rand draws uniform integers in [0, n). Implementations must be safe for
// concurrent use.
type Rand interface {
	IntN(n int) int
}

// IRecommendService defines the interface for dish recommendations
type IRecommendService interface {
	Recommend(ctx context.Context, req RecommendRequest) (*model.Recipe, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	ListRecipes(ctx context.Context, page int, query string) (*RecipePage, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, input CreateRecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID) error
}

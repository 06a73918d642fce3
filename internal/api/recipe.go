package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/internal/middleware"
	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/service"
)

const errInvalidRequestBody = "invalid request body"

// RecipeHandler serves recipe listing, management and recommendations.
type RecipeHandler struct {
	recipes          service.IRecipeService
	recommender      service.IRecommendService
	recommendTimeout time.Duration
	log              *zap.Logger
}

// NewRecipeHandler creates a new RecipeHandler instance
func NewRecipeHandler(recipes service.IRecipeService, recommender service.IRecommendService, recommendTimeout time.Duration, log *zap.Logger) *RecipeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecipeHandler{
		recipes:          recipes,
		recommender:      recommender,
		recommendTimeout: recommendTimeout,
		log:              log.Named("api"),
	}
}

// RouteGuards are the middleware chains protecting the write endpoints.
// Nil entries are skipped.
type RouteGuards struct {
	Auth      gin.HandlerFunc
	Admin     gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts the recipe endpoints on router
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, guards RouteGuards) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.POST("/recommend", chain(guards.Auth, guards.RateLimit, h.Recommend)...)
		recipes.POST("", chain(guards.Auth, guards.Admin, h.CreateRecipe)...)
		recipes.DELETE("/:id", chain(guards.Auth, guards.Admin, h.DeleteRecipe)...)
	}
}

// Recommend suggests a dish for the caller's situation
func (h *RecipeHandler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequestBody})
		return
	}
	input := toRecommendRequest(req)
	if input.Vegetarian == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequestBody})
		return
	}

	ctx := c.Request.Context()
	if h.recommendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.recommendTimeout)
		defer cancel()
	}

	recipe, err := h.recommender.Recommend(ctx, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": toRecipeResponse(recipe)})
}

// ListRecipes returns one page of recipes, newest first
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	result, err := h.recipes.ListRecipes(c.Request.Context(), page, c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecipeListResponse(result))
}

// GetRecipe returns a single recipe
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe ID"})
		return
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": toRecipeResponse(recipe)})
}

// CreateRecipe adds a catalog or public-data recipe
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequestBody})
		return
	}
	userID, ok := c.Get(middleware.ContextUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	owner, _ := userID.(uuid.UUID)

	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), service.CreateRecipeInput{
		Name:        req.Name,
		Ingredients: req.Ingredients,
		ImageURL:    req.ImageURL,
		Source:      model.Source(req.Source),
		UserID:      owner,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": toRecipeResponse(recipe)})
}

// DeleteRecipe removes a recipe
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe ID"})
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe deleted"})
}

// writeError maps service errors to responses. Recommendation failures all
// look the same to the client.
func (h *RecipeHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRecommendationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequestBody})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
	default:
		_ = c.Error(err)
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

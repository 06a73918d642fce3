package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Chochanguk/Yoribogo/server/internal/metrics"
	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/store"
	"github.com/Chochanguk/Yoribogo/server/internal/textnorm"
)

const (
	enqueueTimeout        = 5 * time.Second
	defaultResolveTimeout = 2 * time.Minute
)

// RecommendRequest carries the user's context for a recommendation.
type RecommendRequest struct {
	Weather    string
	Mood       string
	Headcount  string
	Vegetarian string
	Extra      string
}

// Plain reports whether the request has no dietary restriction and no extra
// note. Only plain requests may be answered from the catalog. A note made of
// whitespace still counts as a note.
func (r RecommendRequest) Plain() bool {
	return isNotVegetarian(r.Vegetarian) && r.Extra == ""
}

func isNotVegetarian(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "아니요", "아니오", "no", "n", "false":
		return true
	}
	return false
}

// RecommendDeps lists everything RecommendService needs.
type RecommendDeps struct {
	AI           AIGateway
	Store        *store.Store
	Images       ImageRenderer
	Rand         Rand
	SystemUserID uuid.UUID
	Logger       *zap.Logger
	// ResolveTimeout bounds the lookup and generation shared by concurrent
	// requests for the same dish. Defaults to two minutes.
	ResolveTimeout time.Duration
}

// RecommendService resolves a dish suggestion from the text model against
// the catalog, public-data and generated stores, generating a new recipe
// when none of them has it.
type RecommendService struct {
	ai             AIGateway
	store          *store.Store
	images         ImageRenderer
	rand           Rand
	systemUserID   uuid.UUID
	log            *zap.Logger
	group          singleflight.Group
	resolveTimeout time.Duration
}

// NewRecommendService creates a new RecommendService instance
func NewRecommendService(deps RecommendDeps) (*RecommendService, error) {
	switch {
	case deps.AI == nil:
		return nil, errors.New("recommend service: AI gateway is required")
	case deps.Store == nil:
		return nil, errors.New("recommend service: store is required")
	case deps.Images == nil:
		return nil, errors.New("recommend service: image renderer is required")
	case deps.SystemUserID == uuid.Nil:
		return nil, errors.New("recommend service: system user id is required")
	}
	if deps.Rand == nil {
		deps.Rand = DefaultRand()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ResolveTimeout <= 0 {
		deps.ResolveTimeout = defaultResolveTimeout
	}
	return &RecommendService{
		ai:             deps.AI,
		store:          deps.Store,
		images:         deps.Images,
		rand:           deps.Rand,
		systemUserID:   deps.SystemUserID,
		log:            deps.Logger.Named("recommend"),
		resolveTimeout: deps.ResolveTimeout,
	}, nil
}

// Recommend runs the recommendation pipeline. Every error it returns is a
// *PipelineError matching ErrRecommendationFailed.
func (s *RecommendService) Recommend(ctx context.Context, req RecommendRequest) (*model.Recipe, error) {
	start := time.Now()
	recipe, err := s.recommend(ctx, req)
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("failed").Inc()
		fields := []zap.Field{zap.Error(err), zap.Duration("elapsed", time.Since(start))}
		var perr *PipelineError
		if errors.As(err, &perr) {
			fields = append(fields, zap.String("stage", string(perr.Stage)))
		}
		s.log.Warn("recommendation failed", fields...)
		return nil, err
	}

	metrics.RecommendationsTotal.WithLabelValues(string(recipe.Source)).Inc()
	s.log.Info("recommendation served",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("name", recipe.Name),
		zap.String("source", string(recipe.Source)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return recipe, nil
}

func (s *RecommendService) recommend(ctx context.Context, req RecommendRequest) (*model.Recipe, error) {
	answer, err := s.ai.Ask(ctx, BuildDishPrompt(req))
	if err != nil {
		return nil, stageErr(StagePrompt, err)
	}
	if IsRejection(answer) {
		return nil, stageErr(StageRejected, ErrRejected)
	}
	candidate, err := textnorm.ParseDishAnswer(answer)
	if err != nil {
		return nil, stageErr(StageParse, err)
	}
	s.log.Debug("candidate parsed",
		zap.String("name", candidate.Name),
		zap.String("description", candidate.Description),
	)

	if req.Plain() {
		recipe, err := s.pickFromCatalog(ctx, candidate.Name)
		if err != nil {
			return nil, err
		}
		if recipe != nil {
			return recipe, nil
		}
	}

	// The shared work outlives any single caller; each caller only waits on
	// its own context.
	ch := s.group.DoChan(candidate.Name, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.resolveTimeout)
		defer cancel()
		return s.resolve(rctx, candidate)
	})
	select {
	case <-ctx.Done():
		return nil, stageErr(StageLookup, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.RecommendationsShared.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		recipe := *res.Val.(*model.Recipe)
		return &recipe, nil
	}
}

// pickFromCatalog draws idx uniformly from [0, n] over the n catalog matches.
// idx 0 stands for the model's own suggestion and falls through to the next
// store even when matches exist.
func (s *RecommendService) pickFromCatalog(ctx context.Context, name string) (*model.Recipe, error) {
	matches, err := s.store.Catalog().FindByNameContains(ctx, name)
	if err != nil {
		return nil, stageErr(StageLookup, err)
	}
	idx := s.rand.IntN(len(matches) + 1)
	if idx == 0 {
		return nil, nil
	}
	return &matches[idx-1], nil
}

func (s *RecommendService) resolve(ctx context.Context, candidate textnorm.CandidateName) (*model.Recipe, error) {
	for _, c := range []*store.Collection{s.store.PublicData(), s.store.Generated()} {
		recipe, err := c.FindByName(ctx, candidate.Name)
		if err != nil {
			return nil, stageErr(StageLookup, err)
		}
		if recipe != nil {
			return recipe, nil
		}
	}
	return s.generate(ctx, candidate)
}

func (s *RecommendService) generate(ctx context.Context, candidate textnorm.CandidateName) (*model.Recipe, error) {
	answer, err := s.ai.Ask(ctx, BuildIngredientsPrompt(candidate.Name))
	if err != nil {
		return nil, stageErr(StageIngredients, err)
	}
	ingredients := textnorm.StripEdgePunctuation(textnorm.StripLabelPrefix(answer))
	if strings.TrimSpace(ingredients) == "" {
		return nil, stageErr(StageIngredients, ErrEmptyIngredients)
	}

	recipe := &model.Recipe{
		Name:        candidate.Name,
		Ingredients: ingredients,
		Source:      model.SourceGenerated,
		UserID:      s.systemUserID,
	}
	if err := s.store.Transaction(ctx, func(tx *store.Store) error {
		_, err := tx.Generated().Create(ctx, recipe)
		return err
	}); err != nil {
		return nil, stageErr(StagePersist, err)
	}

	// the row is committed; a lost image job leaves it without a picture
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if _, err := s.images.Enqueue(enqueueCtx, candidate.Description, recipe.ID); err != nil {
		s.log.Error("failed to enqueue image job",
			zap.String("recipe_id", recipe.ID.String()),
			zap.Error(err),
		)
	}
	return recipe, nil
}

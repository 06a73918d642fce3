package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/Chochanguk/Yoribogo/server/internal/store"
	"github.com/Chochanguk/Yoribogo/server/internal/testhelpers"
)

var systemUser = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const (
	dishAnswer  = "김치볶음밥(Kimchi fried rice with vegetables)"
	dishName    = "김치볶음밥"
	description = "Kimchi fried rice with vegetables"
)

// maxRand always draws the largest allowed value.
type maxRand struct{}

func (maxRand) IntN(n int) int { return n - 1 }

type fakeRenderer struct {
	mu   sync.Mutex
	jobs []*ImageJob
	err  error
}

func (f *fakeRenderer) Enqueue(ctx context.Context, desc string, id uuid.UUID) (*ImageJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	job := &ImageJob{RecipeID: id, Description: desc, done: make(chan struct{})}
	f.jobs = append(f.jobs, job)
	return job, nil
}

func (f *fakeRenderer) Jobs() []*ImageJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ImageJob(nil), f.jobs...)
}

type recommendFixture struct {
	db       *gorm.DB
	store    *store.Store
	ai       *testhelpers.MockAIGateway
	renderer *fakeRenderer
	svc      *RecommendService
}

func newRecommendFixture(t *testing.T, r Rand) *recommendFixture {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	st := store.New(db)
	ai := new(testhelpers.MockAIGateway)
	renderer := &fakeRenderer{}
	svc, err := NewRecommendService(RecommendDeps{
		AI:           ai,
		Store:        st,
		Images:       renderer,
		Rand:         r,
		SystemUserID: systemUser,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	return &recommendFixture{db: db, store: st, ai: ai, renderer: renderer, svc: svc}
}

func (f *recommendFixture) seed(t *testing.T, source model.Source, name string, at time.Time) model.Recipe {
	t.Helper()
	r := model.Recipe{Name: name, Ingredients: "재료", Source: source, UserID: systemUser, CreatedAt: at}
	require.NoError(t, f.db.Create(&r).Error)
	return r
}

func (f *recommendFixture) count(t *testing.T, source model.Source) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Recipe{}).Where("source = ?", source).Count(&n).Error)
	return n
}

func plainRequest() RecommendRequest {
	return RecommendRequest{Weather: "비", Mood: "우울", Headcount: "2", Vegetarian: "아니요", Extra: ""}
}

func vegetarianRequest() RecommendRequest {
	return RecommendRequest{Weather: "맑음", Mood: "행복", Headcount: "1", Vegetarian: "네", Extra: ""}
}

func TestRecommendRequestPlain(t *testing.T) {
	assert.True(t, plainRequest().Plain())
	assert.True(t, RecommendRequest{Vegetarian: " No "}.Plain())
	assert.False(t, RecommendRequest{Vegetarian: "아니요", Extra: "  "}.Plain())
	assert.False(t, vegetarianRequest().Plain())
	assert.False(t, RecommendRequest{Vegetarian: "아니요", Extra: "매운 음식 싫어요"}.Plain())
}

func TestNewRecommendServiceRequiresDeps(t *testing.T) {
	_, err := NewRecommendService(RecommendDeps{})
	assert.Error(t, err)
}

func TestRecommendGeneratesWhenAllStoresMiss(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	req := plainRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()
	f.ai.On("Ask", mock.Anything, BuildIngredientsPrompt(dishName)).
		Return("재료: 김치 1컵, 밥 1공기, 식용유 1스푼.", nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, dishName, recipe.Name)
	assert.Equal(t, "김치 1컵, 밥 1공기, 식용유 1스푼", recipe.Ingredients)
	assert.Equal(t, model.SourceGenerated, recipe.Source)
	assert.Equal(t, systemUser, recipe.UserID)
	assert.Nil(t, recipe.ImageURL)
	assert.NotEqual(t, uuid.Nil, recipe.ID)

	assert.EqualValues(t, 1, f.count(t, model.SourceGenerated))
	jobs := f.renderer.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, recipe.ID, jobs[0].RecipeID)
	assert.Equal(t, description, jobs[0].Description)
	f.ai.AssertExpectations(t)
}

func TestRecommendZeroCatalogMatchesAlwaysProceeds(t *testing.T) {
	for _, r := range []Rand{maxRand{}, NewSeededRand(1), NewSeededRand(42), DefaultRand()} {
		f := newRecommendFixture(t, r)
		f.seed(t, model.SourceCatalog, "된장찌개", time.Now())
		pub := f.seed(t, model.SourcePublicData, dishName, time.Now())
		req := plainRequest()
		f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil)

		recipe, err := f.svc.Recommend(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, pub.ID, recipe.ID)
		assert.Equal(t, model.SourcePublicData, recipe.Source)
	}
}

func TestRecommendCatalogHit(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	base := time.Now().Add(-time.Hour)
	f.seed(t, model.SourceCatalog, "김치볶음밥", base)
	second := f.seed(t, model.SourceCatalog, "참치 김치볶음밥", base.Add(time.Second))
	req := plainRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	// maxRand draws idx == n, the last match in insertion order
	assert.Equal(t, second.ID, recipe.ID)
	assert.Equal(t, model.SourceCatalog, recipe.Source)
	assert.EqualValues(t, 0, f.count(t, model.SourceGenerated))
	assert.Empty(t, f.renderer.Jobs())
	f.ai.AssertExpectations(t)
}

func TestRecommendCatalogIndexZeroFallsThrough(t *testing.T) {
	f := newRecommendFixture(t, zeroRand{})
	f.seed(t, model.SourceCatalog, dishName, time.Now())
	gen := f.seed(t, model.SourceGenerated, dishName, time.Now())
	req := plainRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, gen.ID, recipe.ID)
	assert.Equal(t, model.SourceGenerated, recipe.Source)
	assert.Empty(t, f.renderer.Jobs())
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func TestRecommendVegetarianSkipsCatalog(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	f.seed(t, model.SourceCatalog, dishName, time.Now())
	pub := f.seed(t, model.SourcePublicData, dishName, time.Now())
	req := vegetarianRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, recipe.ID)
}

func TestRecommendExtraSkipsCatalog(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	f.seed(t, model.SourceCatalog, dishName, time.Now())
	req := plainRequest()
	req.Extra = "새우 알레르기"
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()
	f.ai.On("Ask", mock.Anything, BuildIngredientsPrompt(dishName)).Return("김치 1컵, 밥 1공기", nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SourceGenerated, recipe.Source)
}

func TestRecommendPublicDataHitCreatesNothing(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	pub := f.seed(t, model.SourcePublicData, dishName, time.Now())
	req := vegetarianRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, recipe.ID)
	assert.Equal(t, model.SourcePublicData, recipe.Source)

	var total int64
	require.NoError(t, f.db.Model(&model.Recipe{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, f.renderer.Jobs())
	f.ai.AssertExpectations(t)
}

func TestRecommendFailures(t *testing.T) {
	aiDown := errors.New("connection refused")

	tests := []struct {
		name      string
		dish      string
		dishErr   error
		ingr      string
		ingrErr   error
		askIngr   bool
		wantStage Stage
	}{
		{name: "dish prompt fails", dishErr: aiDown, wantStage: StagePrompt},
		{name: "rejected", dish: "'에러'", wantStage: StageRejected},
		{name: "no separator", dish: "김치볶음밥", wantStage: StageParse},
		{name: "empty name", dish: "!!(Kimchi fried rice)", wantStage: StageParse},
		{name: "ingredient prompt fails", dish: dishAnswer, askIngr: true, ingrErr: aiDown, wantStage: StageIngredients},
		{name: "blank ingredients", dish: dishAnswer, askIngr: true, ingr: "재료: ...", wantStage: StageIngredients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecommendFixture(t, maxRand{})
			req := vegetarianRequest()
			f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(tt.dish, tt.dishErr).Once()
			if tt.askIngr {
				f.ai.On("Ask", mock.Anything, BuildIngredientsPrompt(dishName)).Return(tt.ingr, tt.ingrErr).Once()
			}

			recipe, err := f.svc.Recommend(context.Background(), req)
			assert.Nil(t, recipe)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRecommendationFailed)

			var perr *PipelineError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantStage, perr.Stage)
			if tt.dishErr != nil {
				assert.ErrorIs(t, err, tt.dishErr)
			}

			var total int64
			require.NoError(t, f.db.Model(&model.Recipe{}).Count(&total).Error)
			assert.Zero(t, total)
			assert.Empty(t, f.renderer.Jobs())
			f.ai.AssertExpectations(t)
		})
	}
}

func TestRecommendPersistFailureRollsBack(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	req := vegetarianRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()
	f.ai.On("Ask", mock.Anything, BuildIngredientsPrompt(dishName)).Return("김치 1컵", nil).Once()
	require.NoError(t, f.db.Exec(
		`CREATE TRIGGER reject_generated BEFORE INSERT ON recipes
		 WHEN NEW.source = 'generated'
		 BEGIN SELECT RAISE(ABORT, 'read only'); END`).Error)

	_, err := f.svc.Recommend(context.Background(), req)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StagePersist, perr.Stage)
	assert.EqualValues(t, 0, f.count(t, model.SourceGenerated))
	assert.Empty(t, f.renderer.Jobs())
}

func TestRecommendEnqueueFailureStillReturnsRecipe(t *testing.T) {
	f := newRecommendFixture(t, maxRand{})
	f.renderer.err = ErrQueueClosed
	req := vegetarianRequest()
	f.ai.On("Ask", mock.Anything, BuildDishPrompt(req)).Return(dishAnswer, nil).Once()
	f.ai.On("Ask", mock.Anything, BuildIngredientsPrompt(dishName)).Return("김치 1컵", nil).Once()

	recipe, err := f.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SourceGenerated, recipe.Source)
	assert.EqualValues(t, 1, f.count(t, model.SourceGenerated))
}

// blockingAI answers dish prompts at once and holds ingredient prompts until
// release is closed.
type blockingAI struct {
	dishes      chan struct{}
	release     chan struct{}
	mu          sync.Mutex
	ingredients int
}

func (b *blockingAI) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt == BuildIngredientsPrompt(dishName) {
		b.mu.Lock()
		b.ingredients++
		b.mu.Unlock()
		<-b.release
		return "김치 1컵, 밥 1공기", nil
	}
	b.dishes <- struct{}{}
	return dishAnswer, nil
}

func (b *blockingAI) ingredientCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingredients
}

func TestRecommendConcurrentIdenticalRequestsShareOneRecipe(t *testing.T) {
	const callers = 5
	db := testhelpers.SetupSQLite(t)
	ai := &blockingAI{dishes: make(chan struct{}, callers), release: make(chan struct{})}
	renderer := &fakeRenderer{}
	svc, err := NewRecommendService(RecommendDeps{
		AI: ai, Store: store.New(db), Images: renderer, SystemUserID: systemUser,
	})
	require.NoError(t, err)

	results := make([]*model.Recipe, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Recommend(context.Background(), vegetarianRequest())
		}(i)
	}
	for i := 0; i < callers; i++ {
		<-ai.dishes
	}
	// let every caller reach the in-flight lookup before the leader finishes
	time.Sleep(100 * time.Millisecond)
	close(ai.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, ai.ingredients)
	assert.Len(t, renderer.Jobs(), 1)

	var n int64
	require.NoError(t, db.Model(&model.Recipe{}).Where("source = ?", model.SourceGenerated).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRecommendCancelledLeaderDoesNotFailWaiters(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	ai := &blockingAI{dishes: make(chan struct{}, 2), release: make(chan struct{})}
	renderer := &fakeRenderer{}
	svc, err := NewRecommendService(RecommendDeps{
		AI: ai, Store: store.New(db), Images: renderer, SystemUserID: systemUser,
	})
	require.NoError(t, err)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Recommend(leaderCtx, vegetarianRequest())
		leaderErr <- err
	}()
	<-ai.dishes
	require.Eventually(t, func() bool { return ai.ingredientCalls() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		recipe *model.Recipe
		err    error
	}
	waiter := make(chan result, 1)
	go func() {
		r, err := svc.Recommend(context.Background(), vegetarianRequest())
		waiter <- result{r, err}
	}()
	<-ai.dishes
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, ErrRecommendationFailed)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(ai.release)
	select {
	case res := <-waiter:
		require.NoError(t, res.err)
		assert.Equal(t, dishName, res.recipe.Name)
		assert.Equal(t, model.SourceGenerated, res.recipe.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.Equal(t, 1, ai.ingredientCalls())

	var n int64
	require.NoError(t, db.Model(&model.Recipe{}).Where("source = ?", model.SourceGenerated).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRecommendWaiterHonoursOwnDeadline(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	ai := &blockingAI{dishes: make(chan struct{}, 2), release: make(chan struct{})}
	svc, err := NewRecommendService(RecommendDeps{
		AI: ai, Store: store.New(db), Images: &fakeRenderer{}, SystemUserID: systemUser,
	})
	require.NoError(t, err)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := svc.Recommend(context.Background(), vegetarianRequest())
		leaderDone <- err
	}()
	<-ai.dishes
	require.Eventually(t, func() bool { return ai.ingredientCalls() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = svc.Recommend(ctx, vegetarianRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageLookup, perr.Stage)

	close(ai.release)
	require.NoError(t, <-leaderDone)
}

package story

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-studio/internal/application/plan"
	"story-studio/internal/domain/entity"
	"story-studio/internal/infrastructure/persistence/memory"
	apperrors "story-studio/pkg/errors"
)

func resolve(t *testing.T, names ...string) []plan.NamedConfig {
	t.Helper()
	plans, err := plan.NewRegistry().Resolve(names)
	require.NoError(t, err)
	return plans
}

func newOrchestrator(t *testing.T, stories *fakeStories, names ...string) (*Orchestrator, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore(time.Hour)
	return NewOrchestrator(stories, store, resolve(t, names...)), store
}

func TestSubmitAppendsCreatedStory(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{created("abc123")}}
	o, _ := newOrchestrator(t, stories, plan.Abstract)

	sub, err := o.Submit(context.Background(), "sid", "Draft Q3 report")
	require.NoError(t, err)

	require.Len(t, stories.calls, 1)
	assert.Equal(t, "Draft Q3 report", stories.calls[0].UserPrompt)
	assert.NotEmpty(t, stories.calls[0].StoryID)

	require.Len(t, sub.State.Stories, 1)
	link := sub.State.Stories[0]
	assert.Equal(t, "Edit Story: abc123", link.Label())
	assert.Equal(t, "/story/abc123", link.Path())
	assert.False(t, sub.State.InFlight)
	assert.Empty(t, sub.State.Notice)
}

func TestSubmitEmptyResultLeavesListingUnchanged(t *testing.T) {
	stories := &fakeStories{}
	o, store := newOrchestrator(t, stories, plan.Abstract)

	sub, err := o.Submit(context.Background(), "sid", "Draft Q3 report")
	require.NoError(t, err)

	assert.Empty(t, sub.State.Stories)
	assert.False(t, sub.State.InFlight)
	assert.Equal(t, entity.AttemptStatusEmpty, sub.Attempts[0].Status)

	state, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, state.InFlight)
}

func TestSubmitRunsPlansSequentiallyInOrder(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{
		func(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error) {
			time.Sleep(10 * time.Millisecond)
			return &entity.GenerationResult{Created: &entity.CreatedStory{ID: "first"}}, nil
		},
		created("second"),
	}}
	o, _ := newOrchestrator(t, stories, plan.Abstract, plan.Technical)

	sub, err := o.Submit(context.Background(), "sid", "Grant proposal")
	require.NoError(t, err)

	require.Len(t, stories.calls, 2)
	assert.Equal(t, 1, stories.maxSeen)
	assert.Equal(t, "1 page", stories.calls[0].StoryPlanConfig.ResponseLength)
	assert.False(t, stories.calls[0].StoryPlanConfig.Cot)
	assert.True(t, stories.calls[1].StoryPlanConfig.Cot)
	assert.NotEqual(t, stories.calls[0].StoryID, stories.calls[1].StoryID)
	for _, call := range stories.calls {
		assert.Equal(t, "Grant proposal", call.UserPrompt)
	}

	require.Len(t, sub.State.Stories, 2)
	assert.Equal(t, "first", sub.State.Stories[0].ID)
	assert.Equal(t, plan.Abstract, sub.State.Stories[0].Plan)
	assert.Equal(t, "second", sub.State.Stories[1].ID)
}

func TestSubmitContinuesAfterFailure(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{
		failing(errors.New("upstream 500")),
		created("tech-1"),
	}}
	o, _ := newOrchestrator(t, stories, plan.Abstract, plan.Technical)

	sub, err := o.Submit(context.Background(), "sid", "Grant proposal")
	require.NoError(t, err)

	assert.Len(t, stories.calls, 2)
	assert.Equal(t, 1, sub.Failed())
	assert.Equal(t, 1, sub.Created())
	require.Len(t, sub.State.Stories, 1)
	assert.Equal(t, "tech-1", sub.State.Stories[0].ID)
	assert.Equal(t, "1 of 2 story requests failed.", sub.State.Notice)
	assert.False(t, sub.State.InFlight)
}

func TestSubmitAllFailedClearsInFlight(t *testing.T) {
	boom := errors.New("network down")
	stories := &fakeStories{handlers: []generateFunc{failing(boom), failing(boom)}}
	o, store := newOrchestrator(t, stories, plan.Abstract, plan.Technical)

	sub, err := o.Submit(context.Background(), "sid", "Grant proposal")
	require.NoError(t, err)

	assert.Len(t, stories.calls, 2)
	assert.Equal(t, 2, sub.Failed())
	assert.NotEmpty(t, sub.State.Notice)

	state, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, state.InFlight)
	assert.Empty(t, state.Stories)
}

func TestSubmitEmptyPromptMakesNoCall(t *testing.T) {
	stories := &fakeStories{}
	o, store := newOrchestrator(t, stories, plan.Abstract)

	_, err := o.Submit(context.Background(), "sid", "   ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyPrompt)
	assert.Empty(t, stories.calls)

	state, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, state.InFlight)
}

func TestSubmitInFlightVisibleAndExclusive(t *testing.T) {
	var (
		o         *Orchestrator
		store     *memory.SessionStore
		seen      entity.ListingState
		secondErr error
	)
	stories := &fakeStories{handlers: []generateFunc{
		func(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error) {
			seen, _ = store.Load(ctx, "sid")
			_, secondErr = o.Submit(ctx, "sid", "another prompt")
			return &entity.GenerationResult{Created: &entity.CreatedStory{ID: "abc123"}}, nil
		},
	}}
	o, store = newOrchestrator(t, stories, plan.Abstract)

	sub, err := o.Submit(context.Background(), "sid", "Draft Q3 report")
	require.NoError(t, err)

	assert.True(t, seen.InFlight)
	assert.Equal(t, "Draft Q3 report", seen.Prompt)
	assert.ErrorIs(t, secondErr, apperrors.ErrInFlight)
	assert.Len(t, stories.calls, 1)
	assert.False(t, sub.State.InFlight)
}

func TestSubmitSessionsAreIndependent(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{created("a"), created("b")}}
	o, _ := newOrchestrator(t, stories, plan.Abstract)

	first, err := o.Submit(context.Background(), "one", "prompt")
	require.NoError(t, err)
	second, err := o.Submit(context.Background(), "two", "prompt")
	require.NoError(t, err)

	assert.Equal(t, "a", first.State.Stories[0].ID)
	require.Len(t, second.State.Stories, 1)
	assert.Equal(t, "b", second.State.Stories[0].ID)
}

func TestSubmitCancelledContextSkipsRemainingCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stories := &fakeStories{handlers: []generateFunc{
		func(context.Context, entity.GenerationRequest) (*entity.GenerationResult, error) {
			cancel()
			return nil, context.Canceled
		},
	}}
	o, store := newOrchestrator(t, stories, plan.Abstract, plan.Technical)

	sub, err := o.Submit(ctx, "sid", "prompt")
	require.NoError(t, err)

	assert.Len(t, stories.calls, 1)
	assert.Equal(t, 2, sub.Failed())

	state, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, state.InFlight)
}

func TestSubmitPublishesOutcomes(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{created("abc123"), failing(errors.New("boom"))}}
	events := &fakeEvents{}
	ids := []string{"req-1", "req-2"}
	o := NewOrchestrator(stories, memory.NewSessionStore(time.Hour), resolve(t, plan.Abstract, plan.Technical),
		WithEventPublisher(events),
		WithIDGenerator(func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}),
	)

	_, err := o.Submit(context.Background(), "sid", "prompt")
	require.NoError(t, err)

	require.Len(t, events.attempts, 2)
	assert.Equal(t, "req-1", events.attempts[0].RequestID)
	assert.Equal(t, entity.AttemptStatusCreated, events.attempts[0].Status)
	assert.Equal(t, entity.AttemptStatusFailed, events.attempts[1].Status)
	assert.Equal(t, "req-2", stories.calls[1].StoryID)
}

func TestSubmitPanicStillClearsInFlight(t *testing.T) {
	stories := &fakeStories{handlers: []generateFunc{
		created("abc123"),
		func(context.Context, entity.GenerationRequest) (*entity.GenerationResult, error) {
			panic("upstream exploded")
		},
	}}
	o, store := newOrchestrator(t, stories, plan.Abstract, plan.Technical)

	assert.PanicsWithValue(t, "upstream exploded", func() {
		_, _ = o.Submit(context.Background(), "sid", "Draft Q3 report")
	})

	state, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, state.InFlight)
	assert.Equal(t, "1 of 2 story requests failed.", state.Notice)
	require.Len(t, state.Stories, 1)
	assert.Equal(t, "abc123", state.Stories[0].ID)

	_, err = o.Submit(context.Background(), "sid", "Draft Q3 report")
	assert.NoError(t, err)
}

func TestSubmitReclaimsStaleInFlight(t *testing.T) {
	ctx := context.Background()
	stories := &fakeStories{handlers: []generateFunc{created("abc123")}}
	store := memory.NewSessionStore(time.Hour)
	o := NewOrchestrator(stories, store, resolve(t, plan.Abstract), WithAttemptTimeout(time.Minute))

	_, err := store.Update(ctx, "sid", func(cur entity.ListingState) (entity.ListingState, error) {
		cur.InFlight = true
		cur.InFlightSince = time.Now().Add(-time.Hour)
		return cur, nil
	})
	require.NoError(t, err)

	sub, err := o.Submit(ctx, "sid", "Draft Q3 report")
	require.NoError(t, err)
	assert.False(t, sub.State.InFlight)
	require.Len(t, sub.State.Stories, 1)
	assert.Equal(t, "abc123", sub.State.Stories[0].ID)
}

func TestSubmitRecentInFlightIsNotReclaimed(t *testing.T) {
	ctx := context.Background()
	stories := &fakeStories{}
	store := memory.NewSessionStore(time.Hour)
	o := NewOrchestrator(stories, store, resolve(t, plan.Abstract, plan.Technical), WithAttemptTimeout(time.Minute))

	_, err := store.Update(ctx, "sid", func(cur entity.ListingState) (entity.ListingState, error) {
		return cur.Begin("earlier prompt"), nil
	})
	require.NoError(t, err)

	_, err = o.Submit(ctx, "sid", "Draft Q3 report")
	assert.ErrorIs(t, err, apperrors.ErrInFlight)
	assert.Empty(t, stories.calls)
}

package story

import (
	"context"
	"sync"

	"story-studio/internal/domain/entity"
)

type generateFunc func(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error)

// fakeStories 记录调用并按顺序返回预设结果
type fakeStories struct {
	mu       sync.Mutex
	calls    []entity.GenerationRequest
	handlers []generateFunc
	active   int
	maxSeen  int

	stories  map[string]*entity.Story
	updates  []entity.StoryPatch
	getErr   error
	getHook  func(ctx context.Context, id string) error
	getCalls int
}

func (f *fakeStories) Generate(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, req)
	f.active++
	f.maxSeen = max(f.maxSeen, f.active)
	var h generateFunc
	if idx < len(f.handlers) {
		h = f.handlers[idx]
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if h == nil {
		return &entity.GenerationResult{}, nil
	}
	return h(ctx, req)
}

func (f *fakeStories) GetStory(ctx context.Context, id string) (*entity.Story, error) {
	f.mu.Lock()
	f.getCalls++
	hook := f.getHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return nil, err
		}
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stories[id], nil
}

func (f *fakeStories) UpdateStory(_ context.Context, id string, patch entity.StoryPatch) (*entity.Story, error) {
	f.updates = append(f.updates, patch)
	return &entity.Story{ID: id, Content: patch.Content}, nil
}

func created(id string) generateFunc {
	return func(context.Context, entity.GenerationRequest) (*entity.GenerationResult, error) {
		return &entity.GenerationResult{Created: &entity.CreatedStory{ID: id}}, nil
	}
}

func failing(err error) generateFunc {
	return func(context.Context, entity.GenerationRequest) (*entity.GenerationResult, error) {
		return nil, err
	}
}

type fakeEvents struct {
	mu       sync.Mutex
	attempts []entity.GenerationAttempt
}

func (f *fakeEvents) PublishGenerationOutcome(_ context.Context, _ string, a *entity.GenerationAttempt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, *a)
	return "1-0", nil
}

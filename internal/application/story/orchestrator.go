// Package story 编排故事生成、编辑与聊天
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/application/plan"
	"story-studio/internal/domain/entity"
	"story-studio/internal/domain/repository"
	"story-studio/internal/domain/service"
	apperrors "story-studio/pkg/errors"
	"story-studio/pkg/logger"
	"story-studio/pkg/metrics"
)

var tracer = otel.Tracer("story")

const defaultAttemptTimeout = 5 * time.Minute

// EventPublisher 生成结果事件发布
type EventPublisher interface {
	PublishGenerationOutcome(ctx context.Context, sessionID string, attempt *entity.GenerationAttempt) (string, error)
}

// Submission 一次提交的结果
type Submission struct {
	Attempts []*entity.GenerationAttempt `json:"attempts"`
	State    entity.ListingState         `json:"state"`
}

// Created 本次提交新建的故事数
func (s *Submission) Created() int {
	n := 0
	for _, a := range s.Attempts {
		if a.Status == entity.AttemptStatusCreated {
			n++
		}
	}
	return n
}

// Failed 本次提交失败的调用数
func (s *Submission) Failed() int {
	n := 0
	for _, a := range s.Attempts {
		if a.Status == entity.AttemptStatusFailed {
			n++
		}
	}
	return n
}

// Option 编排器可选项
type Option func(*Orchestrator)

// WithEventPublisher 每次调用结束后发布事件
func WithEventPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithAttemptTimeout 单次外部调用的超时，用于判定遗留的生成中标记
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithIDGenerator 替换本地故事标识生成方式
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator 按顺序对每个预设发起生成并维护列表页状态
type Orchestrator struct {
	stories  service.StoryService
	sessions repository.SessionStore
	plans    []plan.NamedConfig
	events   EventPublisher
	newID    func() string

	attemptTimeout time.Duration
}

// NewOrchestrator 创建编排器
func NewOrchestrator(stories service.StoryService, sessions repository.SessionStore, plans []plan.NamedConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stories:  stories,
		sessions: sessions,
		plans:    plans,
		newID:    uuid.NewString,

		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plans 当前使用的预设名
func (o *Orchestrator) Plans() []string {
	names := make([]string, len(o.plans))
	for i, p := range o.plans {
		names[i] = p.Name
	}
	return names
}

// State 读取会话的列表页状态
func (o *Orchestrator) State(ctx context.Context, sessionID string) (entity.ListingState, error) {
	state, err := o.sessions.Load(ctx, sessionID)
	if err != nil {
		return entity.ListingState{}, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load session")
	}
	return state, nil
}

// Submit 提交一次生成
// 每个预设依次调用外部服务，前一次调用结束后才发起下一次；
// 单次失败不影响后续调用，最后一次调用结束后总会清除生成中标记。
// 进程退出遗留的标记超过 预设数 × 单次超时 后视为过期，可重新提交。
func (o *Orchestrator) Submit(ctx context.Context, sessionID, prompt string) (*Submission, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperrors.ErrEmptyPrompt
	}

	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
	ctx, span := tracer.Start(ctx, "story.Submit",
		trace.WithAttributes(attribute.Int("story.plan_count", len(o.plans))))
	defer span.End()

	if _, err := o.sessions.Update(ctx, sessionID, func(cur entity.ListingState) (entity.ListingState, error) {
		if cur.InFlight {
			if !cur.ClaimExpired(time.Now(), o.claimTTL()) {
				return cur, apperrors.ErrInFlight
			}
			logger.Warn(ctx, "reclaiming stale in-flight claim", "in_flight_since", cur.InFlightSince)
		}
		return cur.Begin(prompt), nil
	}); err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to claim session")
	}

	metrics.SubmissionsInFlight.Inc()
	defer metrics.SubmissionsInFlight.Dec()

	sub := &Submission{Attempts: make([]*entity.GenerationAttempt, 0, len(o.plans))}
	defer func() {
		if r := recover(); r != nil {
			// 未执行的预设按失败计
			failed := sub.Failed() + len(o.plans) - len(sub.Attempts)
			if _, err := o.settle(ctx, sessionID, failureNotice(failed, len(o.plans))); err != nil {
				logger.Error(ctx, "failed to settle session after panic", err)
			}
			panic(r)
		}
	}()

	for _, p := range o.plans {
		attempt := o.generate(ctx, sessionID, prompt, p)
		sub.Attempts = append(sub.Attempts, attempt)
	}

	state, err := o.settle(ctx, sessionID, settleNotice(sub))
	if err != nil {
		logger.Error(ctx, "failed to settle session", err)
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to settle session")
	}
	sub.State = state

	span.SetAttributes(
		attribute.Int("story.created", sub.Created()),
		attribute.Int("story.failed", sub.Failed()),
	)
	logger.Info(ctx, "submission settled",
		"plans", len(o.plans),
		"created", sub.Created(),
		"failed", sub.Failed(),
	)
	return sub, nil
}

// settle 清除生成中标记；请求被取消时也要落盘
func (o *Orchestrator) settle(ctx context.Context, sessionID, notice string) (entity.ListingState, error) {
	return o.sessions.Update(context.WithoutCancel(ctx), sessionID, func(cur entity.ListingState) (entity.ListingState, error) {
		return cur.Settle(notice), nil
	})
}

func (o *Orchestrator) claimTTL() time.Duration {
	return time.Duration(len(o.plans)) * o.attemptTimeout
}

func (o *Orchestrator) generate(ctx context.Context, sessionID, prompt string, p plan.NamedConfig) *entity.GenerationAttempt {
	attempt := entity.NewGenerationAttempt(p.Name, o.newID())
	ctx = logger.WithContext(ctx, logger.StoryIDKey, attempt.RequestID)

	attempt.Start()
	if err := ctx.Err(); err != nil {
		attempt.Fail(err.Error())
	} else {
		result, err := o.stories.Generate(ctx, entity.GenerationRequest{
			StoryID:         attempt.RequestID,
			UserPrompt:      prompt,
			StoryPlanConfig: p.Config.Clone(),
		})
		if err != nil {
			attempt.Fail(err.Error())
		} else {
			attempt.Complete(result)
		}
	}

	if attempt.Status == entity.AttemptStatusCreated {
		link := entity.StoryLink{ID: attempt.StoryID, Plan: p.Name}
		if _, err := o.sessions.Update(context.WithoutCancel(ctx), sessionID, func(cur entity.ListingState) (entity.ListingState, error) {
			return cur.Append(link), nil
		}); err != nil {
			attempt.Fail(fmt.Sprintf("story %s created but not recorded: %v", attempt.StoryID, err))
		}
	}

	metrics.StoryGenerationTotal.WithLabelValues(p.Name, string(attempt.Status)).Inc()
	metrics.StoryGenerationDuration.WithLabelValues(p.Name).Observe(attempt.Duration().Seconds())

	switch attempt.Status {
	case entity.AttemptStatusFailed:
		logger.Warn(ctx, "story generation failed", "plan", p.Name, "error", attempt.ErrorMessage)
	case entity.AttemptStatusEmpty:
		logger.Warn(ctx, "story generation returned no id", "plan", p.Name)
	default:
		logger.Info(ctx, "story generated", "plan", p.Name, "created_id", attempt.StoryID, "duration_ms", attempt.DurationMs)
	}

	o.publish(ctx, sessionID, attempt)
	return attempt
}

func (o *Orchestrator) publish(ctx context.Context, sessionID string, attempt *entity.GenerationAttempt) {
	if o.events == nil {
		return
	}
	if _, err := o.events.PublishGenerationOutcome(context.WithoutCancel(ctx), sessionID, attempt); err != nil {
		logger.Warn(ctx, "failed to publish generation outcome", "error", err.Error())
	}
}

// settleNotice 失败时给用户的提示，全部成功时为空
func settleNotice(sub *Submission) string {
	return failureNotice(sub.Failed(), len(sub.Attempts))
}

func failureNotice(failed, total int) string {
	switch {
	case failed == 0:
		return ""
	case failed == total:
		return "Story generation failed. Please try again."
	default:
		return fmt.Sprintf("%d of %d story requests failed.", failed, total)
	}
}

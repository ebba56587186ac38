package plan

import (
	"fmt"
	"sort"
	"strings"

	"story-studio/internal/domain/entity"
	apperrors "story-studio/pkg/errors"
)

// Registry 按名称解析预设，返回值均为副本
type Registry struct {
	presets map[string]entity.StoryPlanConfig
}

// NewRegistry 创建包含内置预设的注册表
func NewRegistry() *Registry {
	return &Registry{
		presets: map[string]entity.StoryPlanConfig{
			Abstract:  AbstractConfig(),
			Technical: TechnicalConfig(),
		},
	}
}

// Get 获取预设副本
func (r *Registry) Get(name string) (entity.StoryPlanConfig, error) {
	cfg, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return entity.StoryPlanConfig{}, apperrors.ErrPlanNotFound.WithDetail(fmt.Sprintf("unknown plan %q", name))
	}
	return cfg.Clone(), nil
}

// Resolve 按顺序解析多个预设，任一未知即失败
func (r *Registry) Resolve(names []string) ([]NamedConfig, error) {
	out := make([]NamedConfig, 0, len(names))
	for _, name := range names {
		cfg, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedConfig{Name: strings.ToLower(strings.TrimSpace(name)), Config: cfg})
	}
	return out, nil
}

// Names 已注册的预设名，按字母序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedConfig 带名称的预设
type NamedConfig struct {
	Name   string                 `json:"name" yaml:"name"`
	Config entity.StoryPlanConfig `json:"config" yaml:"config"`
}

// Package registry 过滤器与步骤注册表
//
// 进程启动时由静态表填充，自定义过滤器配置可以从目录发现。
package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
)

// FilterFactory 创建新的过滤器实例
type FilterFactory func() filter.Filter

// StepFactory 创建新的步骤实例
type StepFactory func() (pipeline.Step, error)

// StepInfo 已注册步骤的说明
type StepInfo struct {
	ID          string
	Description string
}

type stepEntry struct {
	info    StepInfo
	factory StepFactory
}

// Registry 注册表
type Registry struct {
	mu         sync.RWMutex
	filters    map[string]FilterFactory
	configs    map[string]filter.Configuration
	extensions map[string]string
	steps      map[string]stepEntry
	logger     *zap.Logger
}

// New 创建空注册表
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		filters:    make(map[string]FilterFactory),
		configs:    make(map[string]filter.Configuration),
		extensions: make(map[string]string),
		steps:      make(map[string]stepEntry),
		logger:     logger,
	}
}

// RegisterFilter 注册过滤器及其预置配置
func (r *Registry) RegisterFilter(factory FilterFactory) error {
	f := factory()
	name := f.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.filters[name]; exists {
		return errs.BadParameters("registry.RegisterFilter", fmt.Sprintf("filter %s already registered", name), nil)
	}
	r.filters[name] = factory
	for _, c := range f.Configurations() {
		r.addConfiguration(c)
	}
	r.logger.Debug("registered filter", zap.String("filter", name))
	return nil
}

// RegisterConfiguration 添加或替换一个配置，其过滤器必须已注册
func (r *Registry) RegisterConfiguration(c filter.Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	factory, ok := r.filters[c.FilterName]
	if !ok {
		return errs.BadParameters("registry.RegisterConfiguration", fmt.Sprintf("configuration %s uses unknown filter %s", c.ID, c.FilterName), nil)
	}
	if err := c.Apply(factory()); err != nil {
		return err
	}
	r.addConfiguration(c)
	return nil
}

func (r *Registry) addConfiguration(c filter.Configuration) {
	r.configs[c.ID] = c
	for _, ext := range c.Extensions {
		ext = normalizeExt(ext)
		// 扩展名只映射到第一个声明它的配置
		if _, taken := r.extensions[ext]; !taken {
			r.extensions[ext] = c.ID
		}
	}
}

// RemoveCustomConfigurations 删除所有自定义配置
func (r *Registry) RemoveCustomConfigurations() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.configs {
		if c.Custom {
			delete(r.configs, id)
		}
	}
}

// Configuration 按标识查找配置
func (r *Registry) Configuration(id string) (filter.Configuration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[id]
	return c, ok
}

// Configurations 按标识排序的全部配置
func (r *Registry) Configurations() []filter.Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]filter.Configuration, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConfigurationForPath 按扩展名推断配置
func (r *Registry) ConfigurationForPath(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.extensions[normalizeExt(filepath.Ext(path))]
	return id, ok
}

// CreateFilter 按配置标识创建过滤器并加载配置参数
func (r *Registry) CreateFilter(configID string) (filter.Filter, error) {
	r.mu.RLock()
	c, ok := r.configs[configID]
	var factory FilterFactory
	if ok {
		factory = r.filters[c.FilterName]
	}
	r.mu.RUnlock()

	if !ok || factory == nil {
		return nil, errs.BadParameters("registry.CreateFilter", fmt.Sprintf("unknown filter configuration %q", configID), nil)
	}
	f := factory()
	if err := c.Apply(f); err != nil {
		return nil, err
	}
	return f, nil
}

// RegisterStep 注册步骤
func (r *Registry) RegisterStep(id, description string, factory StepFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		return errs.BadParameters("registry.RegisterStep", fmt.Sprintf("step %s already registered", id), nil)
	}
	r.steps[id] = stepEntry{info: StepInfo{ID: id, Description: description}, factory: factory}
	return nil
}

// Steps 按标识排序的步骤说明
func (r *Registry) Steps() []StepInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepInfo, 0, len(r.steps))
	for _, e := range r.steps {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateStep 创建步骤，parameters 非空时按 name=value 文本加载参数
func (r *Registry) CreateStep(id, parameters string) (pipeline.Step, error) {
	r.mu.RLock()
	e, ok := r.steps[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.BadParameters("registry.CreateStep", fmt.Sprintf("unknown step %q", id), nil)
	}
	step, err := e.factory()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(parameters) == "" {
		return step, nil
	}
	c, ok := step.(pipeline.Configurable)
	if !ok || c.Parameters() == nil {
		return nil, errs.BadParameters("registry.CreateStep", fmt.Sprintf("step %s takes no parameters", id), nil)
	}
	p := c.Parameters()
	if err := p.FromString(parameters); err != nil {
		return nil, err
	}
	if err := c.SetParameters(p); err != nil {
		return nil, err
	}
	return step, nil
}

// BuildPipeline 按定义实例化管道
func (r *Registry) BuildPipeline(def *pipeline.Definition, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if def == nil {
		return nil, errs.BadParameters("registry.BuildPipeline", "nil pipeline definition", nil)
	}
	if def.Name != "" {
		opts = append([]pipeline.Option{pipeline.WithName(def.Name)}, opts...)
	}
	p := pipeline.New(opts...)
	for i, sd := range def.Steps {
		step, err := r.CreateStep(sd.ID, sd.Parameters)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("step %d (%s): %w", i, sd.ID, err)
		}
		if err := p.AddStep(step); err != nil {
			p.Destroy()
			return nil, err
		}
	}
	r.logger.Debug("pipeline built", zap.String("pipeline", def.Name), zap.Int("steps", len(def.Steps)))
	return p, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Package pipeline 步骤链与批处理执行
//
// 每个步骤把一个输入事件转换为一个事件序列，管道把前一步的每个输出事件
// 继续送入下一步，多事件在步骤之间展开。执行是单线程的，取消标志可以
// 在任意 goroutine 中设置，并在两次步骤调用之间检查。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// State 管道状态
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
	StateDestroyed
)

var stateNames = map[State]string{
	StateIdle:      "IDLE",
	StateRunning:   "RUNNING",
	StateCompleted: "COMPLETED",
	StateCancelled: "CANCELLED",
	StateFailed:    "FAILED",
	StateDestroyed: "DESTROYED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Observer 接收离开最后一个步骤的事件
type Observer interface {
	OnEvent(ev *event.Event)
}

// ObserverFunc 函数形式的观察者
type ObserverFunc func(ev *event.Event)

// OnEvent 调用函数
func (f ObserverFunc) OnEvent(ev *event.Event) { f(ev) }

// Option 管道选项
type Option func(*Pipeline)

// WithLogger 设置日志器，同时传给实现了 LoggerAware 的步骤
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithName 设置名称
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// WithObserver 添加观察者
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// Pipeline 有序的步骤链
type Pipeline struct {
	name   string
	logger *zap.Logger

	mu        sync.Mutex
	steps     []Step
	observers []Observer
	started   bool

	// runMu 在执行期间持有
	runMu       sync.Mutex
	state       atomic.Int32
	canceled    atomic.Bool
	destroyOnce sync.Once
}

// New 创建空管道
func New(opts ...Option) *Pipeline {
	p := &Pipeline{name: "pipeline", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 名称
func (p *Pipeline) Name() string { return p.name }

// State 当前状态，可在任意 goroutine 中读取
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// AddStep 追加步骤；开始处理之后步骤链不能再改变
func (p *Pipeline) AddStep(step Step) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.State() == StateDestroyed {
		return errs.IllegalState("pipeline.AddStep", "steps cannot be added once processing has started")
	}
	if step == nil {
		return errs.BadParameters("pipeline.AddStep", "step is nil", nil)
	}
	if la, ok := step.(LoggerAware); ok {
		la.SetLogger(p.logger)
	}
	p.steps = append(p.steps, step)
	return nil
}

// Steps 步骤列表的副本
func (p *Pipeline) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Step(nil), p.steps...)
}

// AddObserver 添加观察者
func (p *Pipeline) AddObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Cancel 请求取消，可在任意 goroutine 中调用
//
// 正在执行的步骤调用完成后管道发出 CANCELED 事件并进入 CANCELLED 状态。
// 在空闲时调用会取消下一次处理。
func (p *Pipeline) Cancel() {
	if p.canceled.CompareAndSwap(false, true) {
		p.logger.Info("cancel requested", zap.String("pipeline", p.name))
	}
}

// Destroy 释放所有步骤的资源，可重复调用；正在执行时先取消并等待结束
func (p *Pipeline) Destroy() {
	p.destroyOnce.Do(func() {
		if p.State() == StateRunning {
			p.Cancel()
		}
		p.runMu.Lock()
		defer p.runMu.Unlock()
		for _, step := range p.Steps() {
			step.Destroy()
		}
		p.state.Store(int32(StateDestroyed))
		p.logger.Debug("pipeline destroyed", zap.String("pipeline", p.name))
	})
}

// Process 把一个文档作为单项批处理执行
func (p *Pipeline) Process(ctx context.Context, doc *resource.RawDocument) error {
	return p.ProcessBatch(ctx, []*BatchItemContext{NewBatchItem(doc)})
}

// ProcessBatch 依次处理批处理项
//
// 步骤返回的错误原样（附带步骤名）返回并中止整个批处理。
// 取消时返回 errs.ErrCanceled 类别的错误。
func (p *Pipeline) ProcessBatch(ctx context.Context, items []*BatchItemContext) error {
	if !p.runMu.TryLock() {
		return errs.IllegalState("pipeline.Process", "pipeline is already running")
	}
	defer p.runMu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	p.logger.Info("batch started", zap.String("pipeline", p.name), zap.Int("items", len(items)))
	return p.finish(p.runBatch(ctx, items))
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() == StateDestroyed {
		return errs.IllegalState("pipeline.Process", "pipeline has been destroyed")
	}
	if len(p.steps) == 0 {
		return errs.IllegalState("pipeline.Process", "pipeline has no steps")
	}
	p.started = true
	p.state.Store(int32(StateRunning))
	return nil
}

func (p *Pipeline) runBatch(ctx context.Context, items []*BatchItemContext) error {
	if err := p.send(ctx, event.NewStartBatch()); err != nil {
		return err
	}
	for i, item := range items {
		if item == nil || item.Main() == nil {
			return errs.BadInput("pipeline.Process", fmt.Sprintf("batch item %d has no input", i), nil)
		}
		main := item.Main()
		p.logger.Info("processing batch item",
			zap.Int("index", i),
			zap.String("input", main.Name()),
			zap.String("filter", main.FilterConfigID),
			zap.String("output", item.OutputPath))
		for _, step := range p.steps {
			if aware, ok := step.(BatchItemAware); ok {
				aware.SetBatchItemContext(item)
			}
		}
		for _, ev := range []*event.Event{
			event.NewStartBatchItem(),
			event.NewRawDocument(main),
			event.NewEndBatchItem(),
		} {
			if err := p.send(ctx, ev); err != nil {
				return err
			}
		}
	}
	return p.send(ctx, event.NewEndBatch())
}

func (p *Pipeline) finish(err error) error {
	switch {
	case err == nil:
		p.state.Store(int32(StateCompleted))
		p.logger.Info("batch completed", zap.String("pipeline", p.name))
	case errors.Is(err, errs.ErrCanceled):
		// 让步骤有机会关闭输出
		if cerr := p.feed(context.Background(), 0, event.NewCanceled(), false); cerr != nil {
			p.logger.Warn("step failed while handling cancellation", zap.Error(cerr))
		}
		p.canceled.Store(false)
		p.state.Store(int32(StateCancelled))
		p.logger.Info("batch canceled", zap.String("pipeline", p.name))
	default:
		p.state.Store(int32(StateFailed))
		p.logger.Error("batch failed", zap.String("pipeline", p.name), zap.Error(err))
	}
	return err
}

func (p *Pipeline) send(ctx context.Context, ev *event.Event) error {
	return p.feed(ctx, 0, ev, true)
}

// feed 把事件送入第 i 个步骤，输出继续送入后续步骤
func (p *Pipeline) feed(ctx context.Context, i int, ev *event.Event, check bool) error {
	if check {
		if err := p.checkCanceled(ctx); err != nil {
			return err
		}
	}
	if i == len(p.steps) {
		p.notify(ev)
		return nil
	}
	step := p.steps[i]
	for out, err := range step.HandleEvent(ev) {
		if err != nil {
			if errors.Is(err, errs.ErrCanceled) {
				return err
			}
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
		if out == nil || out.IsNoop() {
			continue
		}
		if m := out.Multi(); m != nil && !m.PropagateAsSingle {
			for _, sub := range m.Events {
				if err := p.feed(ctx, i+1, sub, check); err != nil {
					return err
				}
			}
			continue
		}
		if err := p.feed(ctx, i+1, out, check); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) checkCanceled(ctx context.Context) error {
	if p.canceled.Load() {
		return errs.Canceled("pipeline", nil)
	}
	if err := ctx.Err(); err != nil {
		return errs.Canceled("pipeline", err)
	}
	return nil
}

func (p *Pipeline) notify(ev *event.Event) {
	if ev.IsNoop() {
		return
	}
	p.mu.Lock()
	observers := p.observers
	p.mu.Unlock()
	for _, o := range observers {
		o.OnEvent(ev)
	}
}

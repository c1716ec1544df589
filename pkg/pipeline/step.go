package pipeline

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Step 管道中的一个处理步骤
//
// HandleEvent 对每个输入事件返回一个惰性序列，序列可以为空，也可以产出
// 多个事件；需要缓冲整篇文档的步骤在 EndDocument 时一次产出。
// 调用方可能提前停止遍历（例如取消），步骤应在序列函数中用 defer 释放资源。
type Step interface {
	Name() string
	Description() string
	HandleEvent(ev *event.Event) event.Seq
	// Destroy 释放资源，可重复调用
	Destroy()
}

// Configurable 带参数的步骤
type Configurable interface {
	Parameters() params.Parameters
	SetParameters(p params.Parameters) error
}

// BatchItemAware 需要批处理项上下文的步骤，在 START_BATCH_ITEM 之前收到上下文
type BatchItemAware interface {
	SetBatchItemContext(item *BatchItemContext)
}

// LoggerAware 接收管道日志器的步骤
type LoggerAware interface {
	SetLogger(logger *zap.Logger)
}

// BasicStep 步骤的公共部分，默认原样传递事件
type BasicStep struct {
	name        string
	description string
	logger      *zap.Logger
}

// NewBasicStep 创建公共部分
func NewBasicStep(name, description string) BasicStep {
	return BasicStep{name: name, description: description, logger: zap.NewNop()}
}

// Name 步骤标识
func (s *BasicStep) Name() string { return s.name }

// Description 描述
func (s *BasicStep) Description() string { return s.description }

// SetLogger 设置日志器
func (s *BasicStep) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.logger = logger.With(zap.String("step", s.name))
}

// Logger 日志器
func (s *BasicStep) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

// HandleEvent 原样传递
func (s *BasicStep) HandleEvent(ev *event.Event) event.Seq {
	return event.Of(ev)
}

// Destroy 没有需要释放的资源
func (s *BasicStep) Destroy() {}

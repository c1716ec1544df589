package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Driver 持有一个管道与待处理的批处理项
type Driver struct {
	pipeline *Pipeline
	items    []*BatchItemContext
	logger   *zap.Logger
}

// NewDriver 创建驱动器，p 为 nil 时创建空管道
func NewDriver(p *Pipeline, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = New(WithLogger(logger))
	}
	return &Driver{pipeline: p, logger: logger}
}

// Pipeline 当前管道
func (d *Driver) Pipeline() *Pipeline { return d.pipeline }

// SetPipeline 替换管道，旧管道不会被销毁
func (d *Driver) SetPipeline(p *Pipeline) { d.pipeline = p }

// AddStep 向管道追加步骤
func (d *Driver) AddStep(step Step) error {
	return d.pipeline.AddStep(step)
}

// AddObserver 添加观察者
func (d *Driver) AddObserver(o Observer) {
	d.pipeline.AddObserver(o)
}

// AddBatchItem 追加批处理项
func (d *Driver) AddBatchItem(items ...*BatchItemContext) {
	d.items = append(d.items, items...)
}

// AddInput 以单个输入追加批处理项
func (d *Driver) AddInput(doc *resource.RawDocument, outputPath, outputEncoding string) *BatchItemContext {
	item := NewBatchItem(doc)
	item.OutputPath = outputPath
	item.OutputEncoding = outputEncoding
	d.items = append(d.items, item)
	return item
}

// Items 已添加的批处理项
func (d *Driver) Items() []*BatchItemContext {
	return d.items
}

// ClearItems 清空批处理项
func (d *Driver) ClearItems() {
	d.items = nil
}

// ProcessBatch 处理全部批处理项
func (d *Driver) ProcessBatch(ctx context.Context) error {
	d.logger.Debug("driver processing batch", zap.Int("items", len(d.items)))
	return d.pipeline.ProcessBatch(ctx, d.items)
}

// Cancel 取消正在进行的处理
func (d *Driver) Cancel() {
	d.pipeline.Cancel()
}

// Destroy 销毁管道
func (d *Driver) Destroy() {
	d.pipeline.Destroy()
}

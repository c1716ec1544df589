package filter

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// FillFunc 解析下一段输入并把事件放入队列
// 输入解析完毕时应调用 Base.EndDocument
type FillFunc func() error

// Base 过滤器的公共部分：事件队列、取消标志、ID 生成与骨架累积
//
// 具体过滤器嵌入 Base，在 Open 中调用 Begin，在 Next 中调用 Pull。
type Base struct {
	name        string
	displayName string
	mimeType    string

	logger   *zap.Logger
	encoders *encoder.Manager

	doc          *resource.RawDocument
	input        *Input
	withSkeleton bool
	opened       bool
	done         bool
	canceled     atomic.Bool
	cancelSent   bool

	queue   []*event.Event
	ids     map[string]int
	pending *resource.Skeleton
	groups  []string
}

// NewBase 创建过滤器公共部分
func NewBase(name, displayName, mimeType string) *Base {
	return &Base{
		name:        name,
		displayName: displayName,
		mimeType:    mimeType,
		logger:      zap.NewNop(),
		encoders:    encoder.NewManager(),
	}
}

// Name 过滤器标识
func (b *Base) Name() string { return b.name }

// DisplayName 显示名称
func (b *Base) DisplayName() string { return b.displayName }

// MimeType 文档 MIME 类型
func (b *Base) MimeType() string { return b.mimeType }

// SetLogger 设置日志
func (b *Base) SetLogger(logger *zap.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Logger 当前日志
func (b *Base) Logger() *zap.Logger { return b.logger }

// EncoderManager 过滤器使用的编码器
func (b *Base) EncoderManager() *encoder.Manager { return b.encoders }

// CreateSkeletonWriter 默认使用通用骨架写出器
func (b *Base) CreateSkeletonWriter() resource.SkeletonWriter {
	return filterwriter.NewGenericSkeletonWriter(filterwriter.WithSkeletonLogger(b.logger))
}

// CreateFilterWriter 默认使用通用写出器
func (b *Base) CreateFilterWriter() filterwriter.Writer {
	w := filterwriter.NewGenericFilterWriter(b.CreateSkeletonWriter(), b.encoders)
	w.SetLogger(b.logger)
	return w
}

// Begin 重置状态并解码输入
func (b *Base) Begin(doc *resource.RawDocument, generateSkeleton bool) (*Input, error) {
	if b.opened {
		_ = b.Close()
	}
	in, err := DecodeInput(doc)
	if err != nil {
		if doc != nil {
			_ = doc.Close()
		}
		return nil, err
	}
	b.doc = doc
	b.input = in
	b.withSkeleton = generateSkeleton
	b.opened = true
	b.done = false
	b.cancelSent = false
	b.canceled.Store(false)
	b.queue = b.queue[:0]
	b.ids = make(map[string]int)
	b.pending = nil
	b.groups = b.groups[:0]
	b.logger.Debug("打开输入",
		zap.String("filter", b.name),
		zap.String("document", doc.Name()),
		zap.String("encoding", in.Encoding),
		zap.Bool("bom", in.HasBOM))
	return in, nil
}

// Input 当前输入
func (b *Base) Input() *Input { return b.input }

// Document 当前原始文档
func (b *Base) Document() *resource.RawDocument { return b.doc }

// GenerateSkeleton 是否生成骨架
func (b *Base) GenerateSkeleton() bool { return b.withSkeleton }

// HasNext 是否还有事件
func (b *Base) HasNext() bool {
	if !b.opened || b.cancelSent {
		return false
	}
	if b.canceled.Load() {
		return true
	}
	return len(b.queue) > 0 || !b.done
}

// Pull 返回下一个事件，队列为空时调用 fill 继续解析
func (b *Base) Pull(fill FillFunc) (*event.Event, error) {
	if !b.HasNext() {
		return nil, errs.IllegalState(b.name+".Next", "no more events")
	}
	if b.canceled.Load() {
		b.cancelSent = true
		b.done = true
		b.queue = b.queue[:0]
		b.logger.Debug("过滤器已取消", zap.String("filter", b.name))
		return event.NewCanceled(), nil
	}
	for len(b.queue) == 0 && !b.done {
		if err := fill(); err != nil {
			b.done = true
			b.queue = b.queue[:0]
			return nil, err
		}
	}
	if len(b.queue) == 0 {
		return nil, errs.IllegalState(b.name+".Next", "no more events")
	}
	ev := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return ev, nil
}

// Cancel 请求取消，可以在其它 goroutine 中调用
func (b *Base) Cancel() {
	b.canceled.Store(true)
}

// Close 释放输入，可以重复调用
func (b *Base) Close() error {
	if !b.opened {
		return nil
	}
	b.opened = false
	b.queue = b.queue[:0]
	b.pending = nil
	doc := b.doc
	b.doc = nil
	if doc == nil {
		return nil
	}
	return doc.Close()
}

// NextID 生成带前缀的 ID，例如 tu1、dp2
func (b *Base) NextID(prefix string) string {
	b.ids[prefix]++
	return fmt.Sprintf("%s%d", prefix, b.ids[prefix])
}

// Queue 把事件放入队列
func (b *Base) Queue(events ...*event.Event) {
	b.queue = append(b.queue, events...)
}

// Queued 队列中的事件数
func (b *Base) Queued() int { return len(b.queue) }

// StartDocument 创建并排队文档开始事件
func (b *Base) StartDocument(p params.Parameters) *resource.StartDocument {
	sd := resource.NewStartDocument(b.NextID("sd"))
	sd.SetName(b.doc.Name())
	sd.SetMimeType(b.mimeType)
	sd.Locale = b.doc.SourceLocale
	sd.Encoding = b.input.Encoding
	sd.HasBOM = b.input.HasBOM
	sd.LineBreak = b.input.LineBreak
	sd.FilterID = b.name
	sd.FilterParams = p
	sd.Encoders = b.encoders
	sd.SkeletonWriter = b.CreateSkeletonWriter()
	b.encoders.SetDefaultMimeType(b.mimeType)
	b.Queue(event.NewStartDocument(sd))
	return sd
}

// Skeleton 当前累积中的骨架，没有时创建
func (b *Base) Skeleton() *resource.Skeleton {
	if b.pending == nil {
		b.pending = resource.NewSkeleton()
	}
	return b.pending
}

// AddSkeleton 追加骨架文本
func (b *Base) AddSkeleton(text string) {
	if text == "" {
		return
	}
	b.Skeleton().Append(text)
}

// takeSkeleton 取出累积的骨架，不生成骨架时返回 nil
func (b *Base) takeSkeleton() *resource.Skeleton {
	skel := b.pending
	b.pending = nil
	if !b.withSkeleton || skel == nil || skel.IsEmpty(false) {
		return nil
	}
	return skel
}

// FlushDocumentPart 把累积的骨架作为文档片段排队
func (b *Base) FlushDocumentPart() {
	skel := b.takeSkeleton()
	if skel == nil {
		return
	}
	b.Queue(event.NewDocumentPart(resource.NewDocumentPart(b.NextID("dp"), skel)))
}

// TextUnit 排队文本单元，之前累积的骨架先作为文档片段输出
func (b *Base) TextUnit(tu *resource.TextUnit) {
	b.FlushDocumentPart()
	if tu.ID() == "" {
		tu.SetID(b.NextID("tu"))
	}
	if tu.MimeType() == "" {
		tu.SetMimeType(b.mimeType)
	}
	if !b.withSkeleton {
		tu.SetSkeleton(nil)
	}
	b.Queue(event.NewTextUnit(tu))
}

// StartGroup 开始分组，累积的骨架成为分组开始的骨架
func (b *Base) StartGroup(typ string) *resource.StartGroup {
	parent := ""
	if len(b.groups) > 0 {
		parent = b.groups[len(b.groups)-1]
	}
	sg := resource.NewStartGroup(parent, b.NextID("sg"))
	sg.SetType(typ)
	sg.SetSkeleton(b.takeSkeleton())
	b.groups = append(b.groups, sg.ID())
	b.Queue(event.NewStartGroup(sg))
	return sg
}

// EndGroup 结束最近的分组，结束资源与分组开始使用相同 ID
func (b *Base) EndGroup() error {
	if len(b.groups) == 0 {
		return errs.IllegalState(b.name, "end of group without start")
	}
	id := b.groups[len(b.groups)-1]
	b.groups = b.groups[:len(b.groups)-1]
	ending := resource.NewEnding(id)
	ending.SetSkeleton(b.takeSkeleton())
	b.Queue(event.NewEndGroup(ending))
	return nil
}

// GroupDepth 当前分组嵌套深度
func (b *Base) GroupDepth() int { return len(b.groups) }

// EndDocument 关闭未结束的分组并排队文档结束事件，剩余骨架放入结束资源
func (b *Base) EndDocument() {
	for len(b.groups) > 0 {
		_ = b.EndGroup()
	}
	ending := resource.NewEnding(b.NextID("ed"))
	ending.SetSkeleton(b.takeSkeleton())
	b.Queue(event.NewEndDocument(ending))
	b.done = true
}

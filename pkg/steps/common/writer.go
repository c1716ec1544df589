package common

import (
	"io"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// FilterEventsWriterName 步骤标识
const FilterEventsWriterName = "filter-events-writer"

// WriterParameters 写出步骤参数
type WriterParameters struct {
	// Fallback 没有译文时的处理方式：source、empty 或 skip
	Fallback string
}

// NewWriterParameters 默认参数
func NewWriterParameters() *WriterParameters {
	p := &WriterParameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *WriterParameters) Reset() {
	p.Fallback = "source"
}

// FromString 从 name=value 文本加载
func (p *WriterParameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.Fallback = buf.GetString("fallback", p.Fallback)
	_, err := filterwriter.ParseFallbackPolicy(p.Fallback)
	return err
}

// String 序列化
func (p *WriterParameters) String() string {
	buf := params.NewBuffer()
	buf.SetString("fallback", p.Fallback)
	return buf.String()
}

// FilterEventsWriterStep 用文档自带的骨架写出器把事件写回文档
//
// 输出位置与编码来自批处理项；设置了 SetOutput 时写入该流。
type FilterEventsWriterStep struct {
	pipeline.BasicStep
	params *WriterParameters
	item   *pipeline.BatchItemContext
	output io.Writer
	locale resource.LocaleID
	writer filterwriter.Writer
}

// NewFilterEventsWriterStep 创建写出步骤
func NewFilterEventsWriterStep() *FilterEventsWriterStep {
	return &FilterEventsWriterStep{
		BasicStep: pipeline.NewBasicStep(FilterEventsWriterName, "Writes filter events back into the original format"),
		params:    NewWriterParameters(),
	}
}

// Parameters 当前参数
func (s *FilterEventsWriterStep) Parameters() params.Parameters { return s.params }

// SetParameters 设置参数
func (s *FilterEventsWriterStep) SetParameters(p params.Parameters) error {
	pp, ok := p.(*WriterParameters)
	if !ok {
		return errs.BadParameters(FilterEventsWriterName, "expected writer parameters", nil)
	}
	if _, err := filterwriter.ParseFallbackPolicy(pp.Fallback); err != nil {
		return err
	}
	s.params = pp
	return nil
}

// SetBatchItemContext 接收输出设置
func (s *FilterEventsWriterStep) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetOutput 写入到流，优先于批处理项的输出路径
func (s *FilterEventsWriterStep) SetOutput(w io.Writer) {
	s.output = w
}

// SetTargetLocale 指定输出语言，默认取批处理项的目标语言
func (s *FilterEventsWriterStep) SetTargetLocale(locale resource.LocaleID) {
	s.locale = locale
}

// HandleEvent 写出文档事件，事件本身继续向下游传递
func (s *FilterEventsWriterStep) HandleEvent(ev *event.Event) event.Seq {
	switch ev.Type {
	case event.StartDocument:
		if err := s.open(ev.StartDocument()); err != nil {
			return event.Fail(err)
		}
	case event.Canceled:
		s.abortWriter()
		return event.Of(ev)
	case event.EndDocument, event.StartSubDocument, event.EndSubDocument, event.StartGroup,
		event.EndGroup, event.TextUnit, event.DocumentPart, event.MultiEvent:
	default:
		return event.Of(ev)
	}

	if s.writer == nil {
		return event.Fail(errs.StepInput(FilterEventsWriterName, ev.Type.String()+" received before START_DOCUMENT"))
	}
	if err := s.writer.HandleEvent(ev); err != nil {
		s.abortWriter()
		return event.Fail(err)
	}
	if ev.Type == event.EndDocument {
		// 写出器在文档结束时已关闭输出
		s.writer = nil
	}
	return event.Of(ev)
}

func (s *FilterEventsWriterStep) open(sd *resource.StartDocument) error {
	s.abortWriter()
	w := filterwriter.NewFromStartDocument(sd)
	w.SetLogger(s.Logger())
	if sw, ok := sd.SkeletonWriter.(*filterwriter.GenericSkeletonWriter); ok {
		policy, err := filterwriter.ParseFallbackPolicy(s.params.Fallback)
		if err != nil {
			return err
		}
		sw.SetFallback(policy)
	}

	locale := s.locale
	encoding := ""
	path := ""
	if s.item != nil {
		if locale.IsEmpty() {
			locale = s.item.TargetLocale
		}
		encoding = s.item.OutputEncoding
		path = s.item.OutputPath
	}
	w.SetOptions(locale, encoding)
	switch {
	case s.output != nil:
		w.SetOutput(s.output)
	case path != "":
		w.SetOutputPath(path)
	default:
		return errs.BadParameters(FilterEventsWriterName, "no output path or stream for "+sd.Name(), nil)
	}
	s.Logger().Debug("writing document", zap.String("output", path), zap.String("locale", locale.String()))
	s.writer = w
	return nil
}

// abortWriter 丢弃没有收到 END_DOCUMENT 的输出，已有文件保持原样
func (s *FilterEventsWriterStep) abortWriter() {
	if s.writer == nil {
		return
	}
	s.Logger().Warn("discarding incomplete output")
	s.writer.Abort()
	s.writer = nil
}

// Destroy 放弃未完成的输出
func (s *FilterEventsWriterStep) Destroy() {
	s.abortWriter()
}

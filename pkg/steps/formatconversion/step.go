package formatconversion

import (
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// StepName 步骤标识
const StepName = "format-conversion"

// 写入 TMX 头部的工具信息
var (
	ToolName    = "go-okapi"
	ToolVersion = "dev"
)

// Step 把文本单元写成 TMX
//
// 事件原样向下游传递，因此可以与其它写出步骤串联。
type Step struct {
	pipeline.BasicStep
	params *Parameters
	item   *pipeline.BatchItemContext
	output io.Writer
	source resource.LocaleID
	target resource.LocaleID

	writer   *filterwriter.TMXWriter
	trgLoc   resource.LocaleID
	document string
	written  int
}

// NewStep 创建转换步骤
func NewStep() *Step {
	return &Step{
		BasicStep: pipeline.NewBasicStep(StepName, "Converts filter events into a TMX document"),
		params:    NewParameters(),
	}
}

// Parameters 当前参数
func (s *Step) Parameters() params.Parameters { return s.params }

// SetParameters 设置参数
func (s *Step) SetParameters(p params.Parameters) error {
	pp, ok := p.(*Parameters)
	if !ok {
		return errs.BadParameters(StepName, "expected format conversion parameters", nil)
	}
	if err := pp.Validate(); err != nil {
		return err
	}
	s.params = pp
	return nil
}

// SetBatchItemContext 接收输出路径与语言
func (s *Step) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetOutput 写入到流，优先于任何输出路径
func (s *Step) SetOutput(w io.Writer) {
	s.output = w
}

// SetLocales 指定源语言与目标语言，空值取自文档与批处理项
func (s *Step) SetLocales(source, target resource.LocaleID) {
	s.source = source
	s.target = target
}

// ItemCount 当前（或最近完成的）输出写出的条目数
func (s *Step) ItemCount() int {
	if s.writer == nil {
		return s.written
	}
	return s.writer.ItemCount()
}

// HandleEvent 处理事件
func (s *Step) HandleEvent(ev *event.Event) event.Seq {
	var err error
	switch ev.Type {
	case event.StartDocument:
		err = s.startDocument(ev.StartDocument())
	case event.TextUnit, event.MultiEvent:
		err = s.write(ev)
	case event.EndDocument:
		if !s.params.SingleOutput {
			err = s.finish()
		}
	case event.EndBatch:
		err = s.finish()
	case event.Canceled:
		s.abort()
	}
	if err != nil {
		s.abort()
		return event.Fail(err)
	}
	return event.Of(ev)
}

func (s *Step) startDocument(sd *resource.StartDocument) error {
	s.document = sd.Name()
	if s.item != nil && s.item.Main() != nil && s.item.Main().Path() != "" {
		s.document = filepath.Base(s.item.Main().Path())
	}
	if s.writer != nil {
		return nil
	}
	w, path, err := s.createWriter()
	if err != nil {
		return err
	}
	w.SetQuoteMode(s.params.QuoteMode)
	w.SetEscapeGT(s.params.EscapeGT)
	if err := w.SetExclusionPattern(s.params.ExclusionPattern); err != nil {
		_ = w.Close()
		return err
	}

	src, trg := s.locales(sd)
	s.trgLoc = trg
	if err := w.WriteStartDocument(src, trg, ToolName, ToolVersion, "paragraph", sd.FilterID, sd.MimeType()); err != nil {
		_ = w.Close()
		return err
	}
	s.Logger().Debug("tmx output started", zap.String("output", path), zap.String("source", src.String()), zap.String("target", trg.String()))
	s.writer = w
	return nil
}

func (s *Step) createWriter() (*filterwriter.TMXWriter, string, error) {
	if s.output != nil {
		return filterwriter.NewTMXWriter(s.output), "", nil
	}
	path := s.params.OutputPath
	if !s.params.SingleOutput && s.item != nil && s.item.OutputPath != "" {
		path = s.item.OutputPath
	}
	if path == "" {
		return nil, "", errs.BadParameters(StepName, "no output path for the TMX document", nil)
	}
	w, err := filterwriter.CreateTMXWriter(path)
	return w, path, err
}

func (s *Step) locales(sd *resource.StartDocument) (resource.LocaleID, resource.LocaleID) {
	src, trg := s.source, s.target
	if src.IsEmpty() {
		src = sd.Locale
	}
	if s.item != nil {
		if src.IsEmpty() {
			src = s.item.SourceLocale
		}
		if trg.IsEmpty() {
			trg = s.item.TargetLocale
		}
	}
	return src, trg
}

func (s *Step) write(ev *event.Event) error {
	if s.writer == nil {
		return errs.StepInput(StepName, ev.Type.String()+" received before START_DOCUMENT")
	}
	if ev.Type == event.MultiEvent {
		for _, sub := range ev.Multi().Events {
			if sub.Type == event.TextUnit || sub.Type == event.MultiEvent {
				if err := s.write(sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return s.writeUnit(ev.TextUnit())
}

func (s *Step) writeUnit(tu *resource.TextUnit) error {
	if !tu.IsTranslatable() || !tu.Source().HasText() {
		return nil
	}
	trg := tu.Target(s.trgLoc)
	if trg == nil && s.params.TargetsOnly {
		return nil
	}

	attrs := map[string]string{}
	if s.document != "" {
		attrs["filename"] = s.document
	}
	src := tu.Source()
	switch {
	case trg == nil && src.IsSegmented():
		for i, seg := range src.Segments() {
			if err := s.writer.WriteTU(seg.Content, nil, fmt.Sprintf("%s_s%02d", unitID(tu), i+1), attrs); err != nil {
				return err
			}
		}
		return nil
	case trg != nil && src.IsSegmented() && !trg.IsSegmented():
		// 译文没有分段时按整段对齐
		return s.writer.WriteTU(src.Unsegmented(), trg.Unsegmented(), unitID(tu), attrs)
	default:
		return s.writer.WriteItem(tu, attrs)
	}
}

func unitID(tu *resource.TextUnit) string {
	if tu.Name() != "" {
		return tu.Name()
	}
	return tu.ID()
}

func (s *Step) finish() error {
	if s.writer == nil {
		return nil
	}
	w := s.writer
	s.writer = nil
	s.written = w.ItemCount()
	s.Logger().Debug("tmx output done", zap.Int("items", s.written))
	if err := w.WriteEndDocument(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *Step) abort() {
	if s.writer == nil {
		return
	}
	s.written = s.writer.ItemCount()
	if err := s.writer.Close(); err != nil {
		s.Logger().Warn("failed to close tmx output", zap.Error(err))
	}
	s.writer = nil
}

// Destroy 关闭未完成的输出
func (s *Step) Destroy() {
	s.abort()
}

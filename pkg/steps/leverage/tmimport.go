package leverage

import (
	"context"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// ImportStepName 导入步骤标识
const ImportStepName = "tm-import"

// ImportStep 把已翻译的文本单元写入记忆库
//
// 源文与译文的分段数相同时逐段导入，否则整段导入。
type ImportStep struct {
	pipeline.BasicStep
	sink   Sink
	ctx    context.Context
	item   *pipeline.BatchItemContext
	source resource.LocaleID
	target resource.LocaleID
	// Origin 写入条目的来源，为空时使用文档名
	Origin string

	srcLoc   resource.LocaleID
	trgLoc   resource.LocaleID
	document string
	stored   int
	total    int
}

// NewImportStep 创建导入步骤
func NewImportStep(sink Sink) *ImportStep {
	return &ImportStep{
		BasicStep: pipeline.NewBasicStep(ImportStepName, "Imports translated text units into a translation memory"),
		sink:      sink,
		ctx:       context.Background(),
	}
}

// SetContext 写入记忆库使用的上下文
func (s *ImportStep) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// SetBatchItemContext 接收语言
func (s *ImportStep) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetLocales 指定源语言与目标语言
func (s *ImportStep) SetLocales(source, target resource.LocaleID) {
	s.source = source
	s.target = target
}

// Stored 累计写入的条目数
func (s *ImportStep) Stored() int { return s.total }

// HandleEvent 处理事件
func (s *ImportStep) HandleEvent(ev *event.Event) event.Seq {
	var err error
	switch ev.Type {
	case event.StartDocument:
		err = s.startDocument(ev.StartDocument())
	case event.TextUnit:
		err = s.store(ev.TextUnit())
	case event.EndDocument:
		s.Logger().Info("tm import done", zap.String("document", s.document), zap.Int("entries", s.stored))
	}
	if err != nil {
		return event.Fail(err)
	}
	return event.Of(ev)
}

func (s *ImportStep) startDocument(sd *resource.StartDocument) error {
	if s.sink == nil {
		return errs.BadParameters(ImportStepName, "no translation memory", nil)
	}
	s.stored = 0
	s.document = sd.Name()
	s.srcLoc, s.trgLoc = s.source, s.target
	if s.srcLoc.IsEmpty() {
		s.srcLoc = sd.Locale
	}
	if s.item != nil {
		if s.srcLoc.IsEmpty() {
			s.srcLoc = s.item.SourceLocale
		}
		if s.trgLoc.IsEmpty() {
			s.trgLoc = s.item.TargetLocale
		}
	}
	if s.srcLoc.IsEmpty() || s.trgLoc.IsEmpty() {
		return errs.BadParameters(ImportStepName, "source and target locales are required", nil)
	}
	return nil
}

func (s *ImportStep) store(tu *resource.TextUnit) error {
	if s.trgLoc.IsEmpty() {
		return errs.StepInput(ImportStepName, "TEXT_UNIT received before START_DOCUMENT")
	}
	if !tu.IsTranslatable() {
		return nil
	}
	trg := tu.Target(s.trgLoc)
	if trg == nil || !trg.HasText() {
		return nil
	}
	origin := s.Origin
	if origin == "" {
		origin = s.document
	}

	src := tu.Source()
	srcSegs, trgSegs := src.Segments(), trg.Segments()
	if len(srcSegs) != len(trgSegs) {
		return s.put(src.Unsegmented(), trg.Unsegmented(), origin)
	}
	for i := range srcSegs {
		if err := s.put(srcSegs[i].Content, trgSegs[i].Content, origin); err != nil {
			return err
		}
	}
	return nil
}

func (s *ImportStep) put(src, trg *resource.TextFragment, origin string) error {
	if !src.HasText() || !trg.HasText() {
		return nil
	}
	if err := s.sink.Store(s.ctx, src, trg, s.srcLoc, s.trgLoc, origin); err != nil {
		return err
	}
	s.stored++
	s.total++
	return nil
}

package leverage

import (
	"context"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// StepName 步骤标识
const StepName = "leverage"

// PropertyApproved 译文已审核的属性名，值为 "yes" 时不再复用
const PropertyApproved = "approved"

// 复用 TMX 的工具信息
var (
	ToolName    = "go-okapi"
	ToolVersion = "dev"
)

// Step 从记忆库查询候选译文
//
// 已有译文、不可翻译或已带分数的文本单元不处理。
type Step struct {
	pipeline.BasicStep
	params *Parameters
	memory Memory
	ctx    context.Context
	item   *pipeline.BatchItemContext
	source resource.LocaleID
	target resource.LocaleID

	srcLoc   resource.LocaleID
	trgLoc   resource.LocaleID
	tmx      *filterwriter.TMXWriter
	total    int
	exact    int
	fuzzy    int
	filled   int
	segments int
}

// NewStep 创建复用步骤
func NewStep(memory Memory) *Step {
	return &Step{
		BasicStep: pipeline.NewBasicStep(StepName, "Leverages translations from a translation memory"),
		params:    NewParameters(),
		memory:    memory,
		ctx:       context.Background(),
	}
}

// Parameters 当前参数
func (s *Step) Parameters() params.Parameters { return s.params }

// SetParameters 设置参数
func (s *Step) SetParameters(p params.Parameters) error {
	pp, ok := p.(*Parameters)
	if !ok {
		return errs.BadParameters(StepName, "expected leverage parameters", nil)
	}
	if err := pp.Validate(); err != nil {
		return err
	}
	s.params = pp
	return nil
}

// SetContext 查询记忆库使用的上下文
func (s *Step) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// SetBatchItemContext 接收语言
func (s *Step) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetLocales 指定源语言与目标语言
func (s *Step) SetLocales(source, target resource.LocaleID) {
	s.source = source
	s.target = target
}

// HandleEvent 处理事件
func (s *Step) HandleEvent(ev *event.Event) event.Seq {
	var err error
	switch ev.Type {
	case event.StartDocument:
		err = s.startDocument(ev.StartDocument())
	case event.TextUnit:
		err = s.leverage(ev.TextUnit())
	case event.EndDocument:
		s.Logger().Info("leverage done",
			zap.Int("units", s.total),
			zap.Int("segments", s.segments),
			zap.Int("exact", s.exact),
			zap.Int("fuzzy", s.fuzzy),
			zap.Int("filled", s.filled))
		err = s.closeTMX(true)
	case event.Canceled:
		_ = s.closeTMX(false)
	}
	if err != nil {
		_ = s.closeTMX(false)
		return event.Fail(err)
	}
	return event.Of(ev)
}

func (s *Step) startDocument(sd *resource.StartDocument) error {
	if s.memory == nil {
		return errs.BadParameters(StepName, "no translation memory", nil)
	}
	s.total, s.exact, s.fuzzy, s.filled, s.segments = 0, 0, 0, 0, 0
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
		return errs.BadParameters(StepName, "source and target locales are required", nil)
	}
	if s.params.TMXPath == "" {
		return nil
	}
	_ = s.closeTMX(false)
	w, err := filterwriter.CreateTMXWriter(s.params.TMXPath)
	if err != nil {
		return err
	}
	if err := w.WriteStartDocument(s.srcLoc, s.trgLoc, ToolName, ToolVersion, "sentence", sd.FilterID, sd.MimeType()); err != nil {
		_ = w.Close()
		return err
	}
	s.tmx = w
	return nil
}

func (s *Step) leverage(tu *resource.TextUnit) error {
	if s.trgLoc.IsEmpty() {
		return errs.StepInput(StepName, "TEXT_UNIT received before START_DOCUMENT")
	}
	if !tu.IsTranslatable() || !tu.Source().HasText() {
		return nil
	}
	if trg := tu.Target(s.trgLoc); trg != nil {
		if trg.Properties.Value(PropertyApproved) == "yes" || trg.Scores != nil || trg.HasText() {
			return nil
		}
	}
	s.total++

	segs := tu.Source().Segments()
	results := make([][]Candidate, len(segs))
	found := false
	for i, seg := range segs {
		s.segments++
		if !seg.Content.HasText() {
			continue
		}
		cands, err := s.memory.Lookup(s.ctx, Query{
			Source:       seg.Content,
			SourceLocale: s.srcLoc,
			TargetLocale: s.trgLoc,
			Threshold:    s.params.Threshold,
			Limit:        s.params.MaxHits,
		})
		if err != nil {
			return err
		}
		if len(cands) == 0 {
			continue
		}
		found = true
		results[i] = cands
		if cands[0].Type == resource.MatchExact {
			s.exact++
		} else {
			s.fuzzy++
		}
	}
	if !found {
		return nil
	}

	alts := &resource.AltTranslationsAnnotation{}
	for _, cands := range results {
		for _, c := range cands {
			alts.Add(&resource.AltTranslation{
				SourceLocale: s.srcLoc,
				TargetLocale: s.trgLoc,
				Source:       c.Source,
				Target:       c.Target,
				MatchType:    c.Type,
				Score:        c.Score,
				Origin:       c.Origin,
			})
		}
	}
	tu.SetAnnotation(alts)

	if !s.params.FillTarget {
		return nil
	}
	filled := false
	prev := tu.Target(s.trgLoc)
	trg := tu.CreateTarget(s.trgLoc, true)
	scores := &resource.ScoresAnnotation{}
	for i, seg := range trg.Segments() {
		if i >= len(results) || len(results[i]) == 0 || results[i][0].Score < s.params.FillTargetThreshold {
			scores.Add(0, "")
			continue
		}
		best := results[i][0]
		seg.Content = best.Target.Clone()
		scores.Add(best.Score, best.Origin)
		filled = true
	}
	if !filled {
		if prev != nil {
			tu.SetTarget(s.trgLoc, prev)
		} else {
			tu.RemoveTarget(s.trgLoc)
		}
		return nil
	}
	trg.SetAnnotation(scores)
	s.filled++
	if s.tmx != nil {
		return s.tmx.WriteItem(tu, nil)
	}
	return nil
}

func (s *Step) closeTMX(complete bool) error {
	if s.tmx == nil {
		return nil
	}
	w := s.tmx
	s.tmx = nil
	if complete {
		if err := w.WriteEndDocument(); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// Destroy 关闭未完成的 TMX 输出
func (s *Step) Destroy() {
	_ = s.closeTMX(false)
}

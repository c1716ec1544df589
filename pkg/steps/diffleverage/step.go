package diffleverage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/common"
)

// StepName 步骤标识
const StepName = "diff-leverage"

// Result 一次复用的统计
type Result struct {
	Matches int
	Copied  int
}

// Leverage 对齐新旧文本单元，把旧译文复制到匹配的新文本单元上
func Leverage(oldUnits, newUnits []*resource.TextUnit, target resource.LocaleID, p *Parameters) Result {
	cmp := NewComparator(p.CodeSensitive, p.FuzzyThreshold)
	matches := Diff(oldUnits, newUnits, func(a, b *resource.TextUnit) bool {
		_, ok := cmp.Compare(a, b)
		return ok
	})

	var res Result
	for _, m := range matches {
		oldTU, newTU := oldUnits[m.Old], newUnits[m.New]
		tc := oldTU.Target(target)
		if tc == nil {
			continue
		}
		res.Matches++
		if !p.DiffOnly {
			newTU.SetTarget(target, tc.Clone())
			res.Copied++
		}
		score, _ := cmp.Compare(oldTU, newTU)
		newTU.SetAnnotation(&resource.DiffLeverageAnnotation{
			CodeSensitive:  p.CodeSensitive,
			FuzzyThreshold: p.FuzzyThreshold,
			Score:          score,
		})
	}
	return res
}

// Step 缓冲新文档，在文档结束时与批处理项的第二个输入（旧文档）对齐
//
// 第三个输入存在时视为旧文档的译文，按文本单元顺序与旧文档配对。
// 没有旧文档时事件原样通过。
type Step struct {
	pipeline.BasicStep
	params  *Parameters
	factory common.FilterFactory
	fixed   filter.Filter

	item   *pipeline.BatchItemContext
	target resource.LocaleID

	active   bool
	oldUnits []*resource.TextUnit
	newUnits []*resource.TextUnit
	buffered []*event.Event
}

// NewStep 旧文档按其 FilterConfigID 选择过滤器
func NewStep(factory common.FilterFactory) *Step {
	return &Step{
		BasicStep: pipeline.NewBasicStep(StepName,
			"Copies the translations of an old document into the matching text units of a new document"),
		params:  NewParameters(),
		factory: factory,
	}
}

// NewStepWithFilter 旧文档使用固定的过滤器，该实例不能与抽取新文档的步骤共用
func NewStepWithFilter(f filter.Filter) *Step {
	s := NewStep(nil)
	s.fixed = f
	return s
}

// Parameters 当前参数
func (s *Step) Parameters() params.Parameters { return s.params }

// SetParameters 设置参数
func (s *Step) SetParameters(p params.Parameters) error {
	pp, ok := p.(*Parameters)
	if !ok {
		return errs.BadParameters(StepName, "expected diff leverage parameters", nil)
	}
	if err := pp.Validate(); err != nil {
		return err
	}
	s.params = pp
	return nil
}

// SetBatchItemContext 接收旧文档与目标语言
func (s *Step) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetTargetLocale 指定目标语言，默认取批处理项的目标语言
func (s *Step) SetTargetLocale(locale resource.LocaleID) {
	s.target = locale
}

// HandleEvent 处理事件
func (s *Step) HandleEvent(ev *event.Event) event.Seq {
	switch ev.Type {
	case event.RawDocument:
		return event.Fail(errs.StepInput(StepName, "received RAW_DOCUMENT, expected a filtered event stream"))
	case event.StartDocument:
		if err := s.start(); err != nil {
			return event.Fail(err)
		}
		return event.Of(ev)
	case event.EndDocument:
		if !s.active {
			return event.Of(ev)
		}
		return event.Of(s.finish(ev))
	case event.Canceled:
		s.reset()
		return event.Of(ev)
	case event.TextUnit, event.DocumentPart, event.StartGroup, event.EndGroup,
		event.StartSubDocument, event.EndSubDocument, event.MultiEvent:
		if !s.active {
			return event.Of(ev)
		}
		if ev.Type == event.TextUnit {
			s.newUnits = append(s.newUnits, ev.TextUnit())
		}
		s.buffered = append(s.buffered, ev)
		return event.Empty()
	}
	return event.Of(ev)
}

func (s *Step) start() error {
	s.reset()
	if s.item == nil || s.item.Input(1) == nil {
		return nil
	}
	oldUnits, err := s.extract(s.item.Input(1))
	if err != nil {
		return err
	}
	if translated := s.item.Input(2); translated != nil {
		trgUnits, err := s.extract(translated)
		if err != nil {
			return err
		}
		if err := pair(oldUnits, trgUnits, s.targetLocale()); err != nil {
			return err
		}
	}
	s.oldUnits = oldUnits
	s.active = true
	return nil
}

func (s *Step) finish(ed *event.Event) *event.Event {
	res := Leverage(s.oldUnits, s.newUnits, s.targetLocale(), s.params)
	s.Logger().Debug("diff leverage done",
		zap.Int("old", len(s.oldUnits)),
		zap.Int("new", len(s.newUnits)),
		zap.Int("matches", res.Matches),
		zap.Int("copied", res.Copied))

	m := event.NewMulti(append(s.buffered, ed)...)
	s.reset()
	return event.NewMultiEvent(m)
}

func (s *Step) reset() {
	s.active = false
	s.oldUnits = nil
	s.newUnits = nil
	s.buffered = nil
}

func (s *Step) targetLocale() resource.LocaleID {
	if !s.target.IsEmpty() || s.item == nil {
		return s.target
	}
	return s.item.TargetLocale
}

// extract 读取旧文档中的全部文本单元
func (s *Step) extract(doc *resource.RawDocument) ([]*resource.TextUnit, error) {
	f := s.fixed
	if f == nil {
		if s.factory == nil {
			return nil, errs.BadParameters(StepName, "no filter for the old document", nil)
		}
		var err error
		if f, err = s.factory.CreateFilter(doc.FilterConfigID); err != nil {
			return nil, err
		}
	}
	if err := f.Open(doc, false); err != nil {
		return nil, err
	}
	defer f.Close()

	var units []*resource.TextUnit
	for f.HasNext() {
		ev, err := f.Next()
		if err != nil {
			return nil, err
		}
		collectUnits(ev, &units)
	}
	return units, nil
}

func collectUnits(ev *event.Event, units *[]*resource.TextUnit) {
	switch ev.Type {
	case event.TextUnit:
		*units = append(*units, ev.TextUnit())
	case event.MultiEvent:
		for _, sub := range ev.Multi().Events {
			collectUnits(sub, units)
		}
	}
}

// pair 把译文文档的源文作为旧文档对应文本单元的译文
func pair(oldUnits, trgUnits []*resource.TextUnit, target resource.LocaleID) error {
	if len(oldUnits) != len(trgUnits) {
		return errs.BadInput(StepName,
			fmt.Sprintf("old document has %d text units but its translation has %d", len(oldUnits), len(trgUnits)), nil)
	}
	for i, tu := range oldUnits {
		tu.SetTarget(target, trgUnits[i].Source().Clone())
	}
	return nil
}

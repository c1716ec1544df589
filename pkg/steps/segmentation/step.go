package segmentation

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// StepName 步骤标识
const StepName = "segmentation"

// Step 对文本单元的源文（以及可选的译文）分段
type Step struct {
	pipeline.BasicStep
	params    *Parameters
	segmenter *Segmenter
	item      *pipeline.BatchItemContext
	target    resource.LocaleID

	units    int
	segments int
}

// NewStep 创建分段步骤
func NewStep() *Step {
	return &Step{
		BasicStep: pipeline.NewBasicStep(StepName, "Applies sentence segmentation rules to text units"),
		params:    NewParameters(),
	}
}

// Parameters 当前参数
func (s *Step) Parameters() params.Parameters { return s.params }

// SetParameters 设置参数，规则在下一次批处理开始时重新加载
func (s *Step) SetParameters(p params.Parameters) error {
	pp, ok := p.(*Parameters)
	if !ok {
		return errs.BadParameters(StepName, "expected segmentation parameters", nil)
	}
	s.params = pp
	s.segmenter = nil
	return nil
}

// SetSegmenter 直接指定分段器，忽略 RulesPath
func (s *Step) SetSegmenter(seg *Segmenter) {
	s.segmenter = seg
}

// SetBatchItemContext 接收目标语言
func (s *Step) SetBatchItemContext(item *pipeline.BatchItemContext) {
	s.item = item
}

// SetTargetLocale 指定目标语言
func (s *Step) SetTargetLocale(locale resource.LocaleID) {
	s.target = locale
}

// HandleEvent 处理事件
func (s *Step) HandleEvent(ev *event.Event) event.Seq {
	switch ev.Type {
	case event.StartDocument:
		if err := s.init(); err != nil {
			return event.Fail(err)
		}
		s.units, s.segments = 0, 0
	case event.TextUnit:
		if s.segmenter == nil {
			if err := s.init(); err != nil {
				return event.Fail(err)
			}
		}
		s.process(ev.TextUnit())
	case event.EndDocument:
		s.Logger().Debug("segmentation done", zap.Int("units", s.units), zap.Int("segments", s.segments))
	}
	return event.Of(ev)
}

func (s *Step) init() error {
	if s.segmenter != nil {
		return nil
	}
	rules := DefaultRules()
	if s.params.RulesPath != "" {
		var err error
		if rules, err = LoadRules(s.params.RulesPath); err != nil {
			return err
		}
	}
	seg, err := NewSegmenter(rules)
	if err != nil {
		return err
	}
	s.Logger().Debug("segmentation rules loaded", zap.String("rules", seg.Name()))
	s.segmenter = seg
	return nil
}

func (s *Step) process(tu *resource.TextUnit) {
	if !tu.IsTranslatable() {
		return
	}
	s.units++
	if s.params.SegmentSource && (s.params.Overwrite || !tu.Source().IsSegmented()) {
		s.segments += s.segmenter.Segment(tu.Source())
	}

	target := s.targetLocale()
	if target.IsEmpty() {
		return
	}
	if tc := tu.Target(target); tc != nil {
		if s.params.SegmentTarget && (s.params.Overwrite || !tc.IsSegmented()) {
			s.segmenter.Segment(tc)
		}
		return
	}
	if s.params.CopySource {
		tu.CreateTarget(target, false)
	}
}

func (s *Step) targetLocale() resource.LocaleID {
	if !s.target.IsEmpty() || s.item == nil {
		return s.target
	}
	return s.item.TargetLocale
}

package registry

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/filters/html"
	"github.com/nerdneilsfield/go-okapi/pkg/filters/markdown"
	"github.com/nerdneilsfield/go-okapi/pkg/filters/plaintext"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/common"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/diffleverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/formatconversion"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/segmentation"
)

// Dependencies 步骤需要的外部资源，可以为空
type Dependencies struct {
	Memory leverage.Memory
	Sink   leverage.Sink
}

// NewDefault 创建包含内置过滤器与步骤的注册表
func NewDefault(logger *zap.Logger, deps Dependencies) *Registry {
	r := New(logger)
	for _, factory := range []FilterFactory{
		func() filter.Filter { return plaintext.New() },
		func() filter.Filter { return html.New() },
		func() filter.Filter { return markdown.New() },
	} {
		// 静态表内没有重名
		_ = r.RegisterFilter(factory)
	}

	steps := []struct {
		id, desc string
		factory  StepFactory
	}{
		{common.RawDocumentToFilterEventsName, "Extracts filter events from raw documents", func() (pipeline.Step, error) {
			return common.NewRawDocumentToFilterEventsStep(r), nil
		}},
		{common.FilterEventsWriterName, "Writes filter events back to the original format", func() (pipeline.Step, error) {
			return common.NewFilterEventsWriterStep(), nil
		}},
		{segmentation.StepName, "Applies sentence segmentation rules to text units", func() (pipeline.Step, error) {
			return segmentation.NewStep(), nil
		}},
		{diffleverage.StepName, "Copies translations from an older version of the document", func() (pipeline.Step, error) {
			return diffleverage.NewStep(r), nil
		}},
		{formatconversion.StepName, "Converts filter events into a TMX document", func() (pipeline.Step, error) {
			return formatconversion.NewStep(), nil
		}},
		{leverage.StepName, "Leverages translations from a translation memory", func() (pipeline.Step, error) {
			if deps.Memory == nil {
				return nil, errs.BadParameters("registry", "leverage step needs a translation memory", nil)
			}
			return leverage.NewStep(deps.Memory), nil
		}},
		{leverage.ImportStepName, "Imports translated text units into a translation memory", func() (pipeline.Step, error) {
			if deps.Sink == nil {
				return nil, errs.BadParameters("registry", "tm import step needs a translation memory", nil)
			}
			return leverage.NewImportStep(deps.Sink), nil
		}},
	}
	for _, s := range steps {
		_ = r.RegisterStep(s.id, s.desc, s.factory)
	}
	return r
}

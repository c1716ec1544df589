// Package common 提供把原始文档转为事件、把事件写回文档的基础步骤
package common

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// RawDocumentToFilterEventsName 步骤标识
const RawDocumentToFilterEventsName = "raw-document-to-filter-events"

// FilterFactory 按配置标识创建过滤器
type FilterFactory interface {
	CreateFilter(configID string) (filter.Filter, error)
}

// FilterFactoryFunc 函数形式的 FilterFactory
type FilterFactoryFunc func(configID string) (filter.Filter, error)

// CreateFilter 调用函数
func (f FilterFactoryFunc) CreateFilter(configID string) (filter.Filter, error) {
	return f(configID)
}

// RawDocumentToFilterEventsStep 用过滤器把 RAW_DOCUMENT 展开为过滤事件
type RawDocumentToFilterEventsStep struct {
	pipeline.BasicStep
	factory FilterFactory
	fixed   filter.Filter
}

// NewRawDocumentToFilterEventsStep 按文档的 FilterConfigID 选择过滤器
func NewRawDocumentToFilterEventsStep(factory FilterFactory) *RawDocumentToFilterEventsStep {
	return &RawDocumentToFilterEventsStep{
		BasicStep: pipeline.NewBasicStep(RawDocumentToFilterEventsName, "Converts raw documents into filter events"),
		factory:   factory,
	}
}

// NewRawDocumentToFilterEventsStepWithFilter 所有文档使用同一个过滤器
func NewRawDocumentToFilterEventsStepWithFilter(f filter.Filter) *RawDocumentToFilterEventsStep {
	s := NewRawDocumentToFilterEventsStep(nil)
	s.fixed = f
	return s
}

// HandleEvent 展开 RAW_DOCUMENT，其它事件原样传递
func (s *RawDocumentToFilterEventsStep) HandleEvent(ev *event.Event) event.Seq {
	if ev.Type != event.RawDocument {
		return event.Of(ev)
	}
	return s.extract(ev.RawDocument())
}

func (s *RawDocumentToFilterEventsStep) extract(doc *resource.RawDocument) event.Seq {
	return func(yield func(*event.Event, error) bool) {
		f, err := s.filterFor(doc)
		if err != nil {
			yield(nil, err)
			return
		}
		if err := f.Open(doc, true); err != nil {
			yield(nil, err)
			return
		}
		// 下游停止遍历时同样要关闭过滤器
		defer func() {
			if err := f.Close(); err != nil {
				s.Logger().Warn("failed to close filter", zap.String("filter", f.Name()), zap.Error(err))
			}
		}()
		s.Logger().Debug("extracting", zap.String("input", doc.Name()), zap.String("filter", f.Name()))
		for f.HasNext() {
			ev, err := f.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (s *RawDocumentToFilterEventsStep) filterFor(doc *resource.RawDocument) (filter.Filter, error) {
	if s.fixed != nil {
		return s.fixed, nil
	}
	if s.factory == nil {
		return nil, errs.BadParameters(RawDocumentToFilterEventsName, "no filter factory configured", nil)
	}
	if doc.FilterConfigID == "" {
		return nil, errs.BadParameters(RawDocumentToFilterEventsName, "document has no filter configuration: "+doc.Name(), nil)
	}
	return s.factory.CreateFilter(doc.FilterConfigID)
}

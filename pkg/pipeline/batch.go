package pipeline

import (
	"github.com/google/uuid"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// BatchItemContext 一个批处理项：有序的输入文档与输出设置
type BatchItemContext struct {
	ID string
	// Inputs 第一个为主输入，其余为辅助输入（例如差异复用的旧文档）
	Inputs         []*resource.RawDocument
	OutputPath     string
	OutputEncoding string
	SourceLocale   resource.LocaleID
	TargetLocale   resource.LocaleID
}

// NewBatchItem 创建批处理项，语言取自主输入
func NewBatchItem(inputs ...*resource.RawDocument) *BatchItemContext {
	item := &BatchItemContext{ID: uuid.NewString(), Inputs: inputs}
	if len(inputs) > 0 && inputs[0] != nil {
		item.SourceLocale = inputs[0].SourceLocale
		item.TargetLocale = inputs[0].TargetLocale
	}
	return item
}

// Main 主输入
func (b *BatchItemContext) Main() *resource.RawDocument {
	return b.Input(0)
}

// Input 第 i 个输入，不存在时返回 nil
func (b *BatchItemContext) Input(i int) *resource.RawDocument {
	if i < 0 || i >= len(b.Inputs) {
		return nil
	}
	return b.Inputs[i]
}

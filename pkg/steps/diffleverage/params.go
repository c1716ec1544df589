package diffleverage

import (
	"fmt"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters 差异复用参数
type Parameters struct {
	// FuzzyThreshold 0 到 100，100 表示只接受精确匹配
	FuzzyThreshold int
	CodeSensitive  bool
	// DiffOnly 只标注匹配，不复制译文
	DiffOnly bool
}

// NewParameters 默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.FuzzyThreshold = 100
	p.CodeSensitive = true
	p.DiffOnly = false
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.FuzzyThreshold = buf.GetInt("fuzzyThreshold", p.FuzzyThreshold)
	p.CodeSensitive = buf.GetBool("codeSensitive", p.CodeSensitive)
	p.DiffOnly = buf.GetBool("diffOnly", p.DiffOnly)
	return p.Validate()
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetInt("fuzzyThreshold", p.FuzzyThreshold)
	buf.SetBool("codeSensitive", p.CodeSensitive)
	buf.SetBool("diffOnly", p.DiffOnly)
	return buf.String()
}

// Validate 检查阈值范围
func (p *Parameters) Validate() error {
	if p.FuzzyThreshold < 0 || p.FuzzyThreshold > 100 {
		return errs.BadParameters("diffleverage.Parameters", fmt.Sprintf("fuzzyThreshold %d out of range 0..100", p.FuzzyThreshold), nil)
	}
	return nil
}

// Package formatconversion 把过滤事件转换为 TMX 文档
package formatconversion

import (
	"fmt"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters 转换参数
type Parameters struct {
	// SingleOutput 整个批处理写入 OutputPath 一个文件，否则每个批处理项写入自己的输出路径
	SingleOutput bool
	OutputPath   string
	QuoteMode    encoder.QuoteMode
	EscapeGT     bool
	// ExclusionPattern 源文完全匹配时不输出
	ExclusionPattern string
	// TargetsOnly 只输出有译文的文本单元
	TargetsOnly bool
}

// NewParameters 默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.SingleOutput = false
	p.OutputPath = ""
	p.QuoteMode = encoder.QuoteAll
	p.EscapeGT = false
	p.ExclusionPattern = ""
	p.TargetsOnly = false
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.SingleOutput = buf.GetBool("singleOutput", p.SingleOutput)
	p.OutputPath = buf.GetString("outputPath", p.OutputPath)
	p.QuoteMode = encoder.QuoteMode(buf.GetInt("quoteMode", int(p.QuoteMode)))
	p.EscapeGT = buf.GetBool("escapeGT", p.EscapeGT)
	p.ExclusionPattern = buf.GetString("exclusionPattern", p.ExclusionPattern)
	p.TargetsOnly = buf.GetBool("targetsOnly", p.TargetsOnly)
	return p.Validate()
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetBool("singleOutput", p.SingleOutput)
	buf.SetString("outputPath", p.OutputPath)
	buf.SetInt("quoteMode", int(p.QuoteMode))
	buf.SetBool("escapeGT", p.EscapeGT)
	buf.SetString("exclusionPattern", p.ExclusionPattern)
	buf.SetBool("targetsOnly", p.TargetsOnly)
	return buf.String()
}

// Validate 检查取值
func (p *Parameters) Validate() error {
	if p.QuoteMode < encoder.QuoteNone || p.QuoteMode > encoder.QuoteDoubleOnly {
		return errs.BadParameters("formatconversion.Parameters", fmt.Sprintf("quoteMode %d out of range 0..3", p.QuoteMode), nil)
	}
	if p.SingleOutput && p.OutputPath == "" {
		return errs.BadParameters("formatconversion.Parameters", "singleOutput requires outputPath", nil)
	}
	return nil
}

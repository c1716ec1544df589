package markdown

import (
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters Markdown 过滤器参数
type Parameters struct {
	// ExtractHeadings 标题是否抽取为文本单元
	ExtractHeadings bool
	// InlineCodes 行内标记（代码、链接、图片、加粗）转换为代码，否则全部作为文本
	InlineCodes bool
	// FrontMatter 文档头部的 YAML 元数据作为 StartDocument 属性
	FrontMatter bool
}

// NewParameters 返回默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.ExtractHeadings = true
	p.InlineCodes = true
	p.FrontMatter = true
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.ExtractHeadings = buf.GetBool("extractHeadings", p.ExtractHeadings)
	p.InlineCodes = buf.GetBool("inlineCodes", p.InlineCodes)
	p.FrontMatter = buf.GetBool("frontMatter", p.FrontMatter)
	return nil
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetBool("extractHeadings", p.ExtractHeadings)
	buf.SetBool("inlineCodes", p.InlineCodes)
	buf.SetBool("frontMatter", p.FrontMatter)
	return buf.String()
}

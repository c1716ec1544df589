package plaintext

import (
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters 纯文本过滤器参数
type Parameters struct {
	// ParagraphMode 为 true 时以空行分隔段落，段内换行作为代码保留
	ParagraphMode bool
	// TrimLeading 行首空白放入骨架
	TrimLeading bool
	// TrimTrailing 行尾空白放入骨架
	TrimTrailing bool
	// PreserveWhitespace 文本单元标记为保留空白
	PreserveWhitespace bool
}

// NewParameters 返回默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.ParagraphMode = false
	p.TrimLeading = true
	p.TrimTrailing = true
	p.PreserveWhitespace = true
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.ParagraphMode = buf.GetBool("paragraphMode", p.ParagraphMode)
	p.TrimLeading = buf.GetBool("trimLeading", p.TrimLeading)
	p.TrimTrailing = buf.GetBool("trimTrailing", p.TrimTrailing)
	p.PreserveWhitespace = buf.GetBool("preserveWhitespace", p.PreserveWhitespace)
	return nil
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetBool("paragraphMode", p.ParagraphMode)
	buf.SetBool("trimLeading", p.TrimLeading)
	buf.SetBool("trimTrailing", p.TrimTrailing)
	buf.SetBool("preserveWhitespace", p.PreserveWhitespace)
	return buf.String()
}

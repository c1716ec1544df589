package html

import (
	"strings"

	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters HTML 过滤器参数
type Parameters struct {
	// TranslatableAttributes 需要抽取的属性，只处理双引号包围的值
	TranslatableAttributes []string
	// CodeComments 为 true 时段落中的注释作为代码保留，否则结束当前文本单元
	CodeComments bool
}

// NewParameters 返回默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.TranslatableAttributes = []string{"title", "alt"}
	p.CodeComments = true
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	// 显式给出空值表示不抽取任何属性
	if v, ok := buf.Lookup("translatableAttributes"); ok {
		p.TranslatableAttributes = splitList(v)
	}
	p.CodeComments = buf.GetBool("codeComments", p.CodeComments)
	return nil
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetString("translatableAttributes", strings.Join(p.TranslatableAttributes, ","))
	buf.SetBool("codeComments", p.CodeComments)
	return buf.String()
}

func (p *Parameters) isTranslatable(attr string) bool {
	for _, a := range p.TranslatableAttributes {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	return out
}

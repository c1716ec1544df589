package segmentation

import (
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters 分段步骤参数
type Parameters struct {
	SegmentSource bool
	SegmentTarget bool
	// RulesPath 规则文件，空表示默认规则
	RulesPath string
	// CopySource 没有译文时复制已分段的源文作为译文
	CopySource bool
	// Overwrite 已分段的内容重新分段
	Overwrite bool
}

// NewParameters 默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.SegmentSource = true
	p.SegmentTarget = false
	p.RulesPath = ""
	p.CopySource = false
	p.Overwrite = false
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.SegmentSource = buf.GetBool("segmentSource", p.SegmentSource)
	p.SegmentTarget = buf.GetBool("segmentTarget", p.SegmentTarget)
	p.RulesPath = buf.GetString("rulesPath", p.RulesPath)
	p.CopySource = buf.GetBool("copySource", p.CopySource)
	p.Overwrite = buf.GetBool("overwrite", p.Overwrite)
	return nil
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetBool("segmentSource", p.SegmentSource)
	buf.SetBool("segmentTarget", p.SegmentTarget)
	buf.SetString("rulesPath", p.RulesPath)
	buf.SetBool("copySource", p.CopySource)
	buf.SetBool("overwrite", p.Overwrite)
	return buf.String()
}

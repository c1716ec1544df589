package leverage

import (
	"fmt"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// Parameters 复用参数
type Parameters struct {
	// Threshold 记忆库查询的最低分数
	Threshold int
	// MaxHits 每个分段保留的候选数
	MaxHits int
	// FillTarget 用最佳候选填充译文
	FillTarget bool
	// FillTargetThreshold 填充译文所需的最低分数
	FillTargetThreshold int
	// TMXPath 非空时把复用结果另存为 TMX
	TMXPath string
}

// NewParameters 默认参数
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset 恢复默认值
func (p *Parameters) Reset() {
	p.Threshold = 95
	p.MaxHits = 3
	p.FillTarget = true
	p.FillTargetThreshold = 95
	p.TMXPath = ""
}

// FromString 从 name=value 文本加载
func (p *Parameters) FromString(data string) error {
	buf := params.NewBuffer()
	if err := buf.FromString(data); err != nil {
		return err
	}
	p.Reset()
	p.Threshold = buf.GetInt("threshold", p.Threshold)
	p.MaxHits = buf.GetInt("maxHits", p.MaxHits)
	p.FillTarget = buf.GetBool("fillTarget", p.FillTarget)
	p.FillTargetThreshold = buf.GetInt("fillTargetThreshold", p.FillTargetThreshold)
	p.TMXPath = buf.GetString("tmxPath", p.TMXPath)
	return p.Validate()
}

// String 序列化
func (p *Parameters) String() string {
	buf := params.NewBuffer()
	buf.SetInt("threshold", p.Threshold)
	buf.SetInt("maxHits", p.MaxHits)
	buf.SetBool("fillTarget", p.FillTarget)
	buf.SetInt("fillTargetThreshold", p.FillTargetThreshold)
	buf.SetString("tmxPath", p.TMXPath)
	return buf.String()
}

// Validate 检查取值
func (p *Parameters) Validate() error {
	for name, v := range map[string]int{"threshold": p.Threshold, "fillTargetThreshold": p.FillTargetThreshold} {
		if v < 0 || v > 100 {
			return errs.BadParameters("leverage.Parameters", fmt.Sprintf("%s %d out of range 0..100", name, v), nil)
		}
	}
	if p.MaxHits < 1 {
		return errs.BadParameters("leverage.Parameters", fmt.Sprintf("maxHits %d must be positive", p.MaxHits), nil)
	}
	return nil
}

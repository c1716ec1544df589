package resource

import (
	"strconv"
)

// TextPart 文本容器中的一段，可能是分段也可能是分段之间的间隔
type TextPart struct {
	Content *TextFragment
	// ID 仅分段有值
	ID        string
	isSegment bool
}

// IsSegment 是否为分段
func (p *TextPart) IsSegment() bool {
	return p.isSegment
}

// Clone 复制
func (p *TextPart) Clone() *TextPart {
	return &TextPart{Content: p.Content.Clone(), ID: p.ID, isSegment: p.isSegment}
}

// TextContainer 源文或译文内容，由若干段组成，至少包含一个分段
type TextContainer struct {
	parts      []*TextPart
	segmented  bool
	Properties Properties
	Annotations
}

// NewTextContainer 用纯文本创建容器
func NewTextContainer(text string) *TextContainer {
	return NewTextContainerFromFragment(NewTextFragment(text))
}

// NewTextContainerFromFragment 用片段创建单分段容器
func NewTextContainerFromFragment(tf *TextFragment) *TextContainer {
	if tf == nil {
		tf = NewTextFragment("")
	}
	return &TextContainer{
		parts: []*TextPart{{Content: tf, ID: "0", isSegment: true}},
	}
}

// Parts 返回所有段
func (tc *TextContainer) Parts() []*TextPart {
	return tc.parts
}

// Segments 只返回分段
func (tc *TextContainer) Segments() []*TextPart {
	var segs []*TextPart
	for _, p := range tc.parts {
		if p.isSegment {
			segs = append(segs, p)
		}
	}
	return segs
}

// Segment 按 ID 查找分段
func (tc *TextContainer) Segment(id string) *TextPart {
	for _, p := range tc.parts {
		if p.isSegment && p.ID == id {
			return p
		}
	}
	return nil
}

// IsSegmented 是否已经执行过分段
func (tc *TextContainer) IsSegmented() bool {
	return tc.segmented
}

// FirstContent 第一个分段的内容，未分段时即全部内容
func (tc *TextContainer) FirstContent() *TextFragment {
	for _, p := range tc.parts {
		if p.isSegment {
			return p.Content
		}
	}
	return tc.parts[0].Content
}

// SetContent 用单个片段替换全部内容
func (tc *TextContainer) SetContent(tf *TextFragment) {
	tc.parts = []*TextPart{{Content: tf, ID: "0", isSegment: true}}
	tc.segmented = false
}

// Unsegmented 把所有段连接成一个新片段
func (tc *TextContainer) Unsegmented() *TextFragment {
	if len(tc.parts) == 1 {
		return tc.parts[0].Content.Clone()
	}
	out := NewTextFragment("")
	for _, p := range tc.parts {
		out.AppendFragment(p.Content)
	}
	return out
}

// CreateSegments 按编码文本中的区间重新分段，区间之外的内容成为间隔段
//
// 区间必须按顺序排列且互不重叠，位置基于 Unsegmented 的编码文本。
// 被区间拆开的成对代码在各自的部分中变为独立代码。
func (tc *TextContainer) CreateSegments(ranges []Range) {
	whole := tc.Unsegmented()
	if len(ranges) == 0 {
		tc.SetContent(whole)
		return
	}
	var parts []*TextPart
	pos := 0
	seg := 0
	for _, r := range ranges {
		start := whole.snap(r.Start)
		end := whole.snap(r.End)
		if start < pos {
			start = pos
		}
		if end <= start {
			continue
		}
		if start > pos {
			parts = append(parts, &TextPart{Content: whole.Sub(pos, start)})
		}
		parts = append(parts, &TextPart{Content: whole.Sub(start, end), ID: strconv.Itoa(seg), isSegment: true})
		seg++
		pos = end
	}
	if pos < whole.Len() {
		parts = append(parts, &TextPart{Content: whole.Sub(pos, whole.Len())})
	}
	if seg == 0 {
		tc.SetContent(whole)
		return
	}
	for _, p := range parts {
		p.Content.Balance()
	}
	tc.parts = parts
	tc.segmented = true
}

// JoinAll 合并所有段为一个分段
func (tc *TextContainer) JoinAll() {
	tc.SetContent(tc.Unsegmented())
}

// Text 纯文本
func (tc *TextContainer) Text() string {
	if len(tc.parts) == 1 {
		return tc.parts[0].Content.Text()
	}
	return tc.Unsegmented().Text()
}

// String 还原原始标记后的文本
func (tc *TextContainer) String() string {
	if len(tc.parts) == 1 {
		return tc.parts[0].Content.String()
	}
	return tc.Unsegmented().String()
}

// IsEmpty 是否没有内容
func (tc *TextContainer) IsEmpty() bool {
	for _, p := range tc.parts {
		if !p.Content.IsEmpty() {
			return false
		}
	}
	return true
}

// HasText 是否含有非空白文本
func (tc *TextContainer) HasText() bool {
	for _, p := range tc.parts {
		if p.Content.HasText() {
			return true
		}
	}
	return false
}

// Clone 深度复制
func (tc *TextContainer) Clone() *TextContainer {
	cp := &TextContainer{
		parts:       make([]*TextPart, len(tc.parts)),
		segmented:   tc.segmented,
		Properties:  tc.Properties.Clone(),
		Annotations: tc.Annotations.Clone(),
	}
	for i, p := range tc.parts {
		cp.parts[i] = p.Clone()
	}
	return cp
}

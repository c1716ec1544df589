package segmentation

import (
	"unicode"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Segmenter 用编译后的规则计算句段区间
type Segmenter struct {
	name  string
	rules []compiled
}

// NewSegmenter 编译规则集
func NewSegmenter(rules *Rules) (*Segmenter, error) {
	c, err := rules.compile()
	if err != nil {
		return nil, err
	}
	return &Segmenter{name: rules.Name, rules: c}, nil
}

// Name 规则集名称
func (s *Segmenter) Name() string {
	return s.name
}

// Compute 返回片段编码文本中的句段区间
//
// 断点不会落在成对代码内部；句段首尾的空白留在句段之间。
func (s *Segmenter) Compute(tf *resource.TextFragment) []resource.Range {
	text := []rune(tf.CodedText())
	if len(text) == 0 {
		return nil
	}

	decided := make(map[int]bool)
	for _, rule := range s.rules {
		m, err := rule.re.FindRunesMatch(text)
		for err == nil && m != nil {
			pos := m.Index
			if _, ok := decided[pos]; !ok {
				decided[pos] = rule.brk
			}
			m, err = rule.re.FindNextMatch(m)
		}
	}

	var ranges []resource.Range
	start := 0
	for pos := 1; pos < len(text); pos++ {
		if !decided[pos] || tf.PairDepthAt(pos) != 0 {
			continue
		}
		if r, ok := trim(text, start, pos); ok {
			ranges = append(ranges, r)
		}
		start = pos
	}
	if r, ok := trim(text, start, len(text)); ok {
		ranges = append(ranges, r)
	}
	return ranges
}

// Segment 重新切分容器，返回句段数量
func (s *Segmenter) Segment(tc *resource.TextContainer) int {
	whole := tc.Unsegmented()
	tc.CreateSegments(s.Compute(whole))
	tc.SetAnnotation(&resource.SegmentationAnnotation{RulesName: s.name})
	return len(tc.Segments())
}

// trim 去掉区间首尾空白，代码标记视为内容
func trim(text []rune, start, end int) (resource.Range, bool) {
	for start < end && unicode.IsSpace(text[start]) {
		start++
	}
	for end > start && unicode.IsSpace(text[end-1]) {
		end--
	}
	if start >= end {
		return resource.Range{}, false
	}
	return resource.Range{Start: start, End: end}, true
}

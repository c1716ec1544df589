package resource

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// TextFragment 编码文本片段
//
// 文本中的内联代码以 "标记字符 + 索引字符" 两个 rune 表示，
// 索引指向 codes 中的条目，原始标记保存在 Code.Data 里。
type TextFragment struct {
	text   []rune
	codes  []*Code
	lastID int
}

// Range 编码文本中的区间，单位为 rune，左闭右开
type Range struct {
	Start int
	End   int
}

// NewTextFragment 用纯文本创建片段
func NewTextFragment(text string) *TextFragment {
	return &TextFragment{text: []rune(text)}
}

// Append 追加纯文本
func (tf *TextFragment) Append(text string) {
	tf.text = append(tf.text, []rune(text)...)
}

// AppendRune 追加单个字符
func (tf *TextFragment) AppendRune(r rune) {
	tf.text = append(tf.text, r)
}

// AppendCode 追加新代码并分配 ID
//
// 结束代码会与最近一个同类型且未关闭的开始代码配对，找不到时分配新 ID，
// 之后可以用 Balance 把它转换为独立代码。
func (tf *TextFragment) AppendCode(tagType TagType, typ, data string) *Code {
	code := NewCode(tagType, typ, data)
	code.ID = -1
	if tagType == TagClosing {
		code.ID = tf.openIDFor(typ)
	}
	if code.ID < 0 {
		tf.lastID++
		code.ID = tf.lastID
	}
	tf.addCode(code)
	return code
}

// AddCode 追加已有代码，保留其 ID
func (tf *TextFragment) AddCode(code *Code) {
	tf.addCode(code)
}

func (tf *TextFragment) addCode(code *Code) {
	index := len(tf.codes)
	tf.codes = append(tf.codes, code)
	tf.text = append(tf.text, code.marker(), IndexToChar(index))
	if code.ID > tf.lastID {
		tf.lastID = code.ID
	}
}

// openIDFor 查找同类型且尚未关闭的最近开始代码
func (tf *TextFragment) openIDFor(typ string) int {
	closed := make(map[int]bool)
	for i := len(tf.codes) - 1; i >= 0; i-- {
		c := tf.codes[i]
		switch c.TagType {
		case TagClosing:
			closed[c.ID] = true
		case TagOpening:
			if c.Type == typ && !closed[c.ID] {
				return c.ID
			}
		}
	}
	return -1
}

// AppendFragment 追加另一个片段的内容，代码会被复制
func (tf *TextFragment) AppendFragment(other *TextFragment) {
	if other == nil {
		return
	}
	for i := 0; i < len(other.text); i++ {
		r := other.text[i]
		if IsMarker(r) && i+1 < len(other.text) {
			tf.addCode(other.codes[CharToIndex(other.text[i+1])].Clone())
			i++
			continue
		}
		tf.text = append(tf.text, r)
	}
}

// CodedText 返回编码文本
func (tf *TextFragment) CodedText() string {
	return string(tf.text)
}

// SetCodedText 替换编码文本与代码表，二者必须一致
func (tf *TextFragment) SetCodedText(coded string, codes []*Code) error {
	candidate := &TextFragment{text: []rune(coded), codes: codes}
	if err := candidate.checkMarkers(); err != nil {
		return err
	}
	tf.text = candidate.text
	tf.codes = codes
	tf.lastID = 0
	for _, c := range codes {
		if c.ID > tf.lastID {
			tf.lastID = c.ID
		}
	}
	return nil
}

// Codes 返回代码表
func (tf *TextFragment) Codes() []*Code {
	return tf.codes
}

// Code 按索引返回代码
func (tf *TextFragment) Code(index int) *Code {
	if index < 0 || index >= len(tf.codes) {
		return nil
	}
	return tf.codes[index]
}

// HasCode 是否包含代码
func (tf *TextFragment) HasCode() bool {
	return len(tf.codes) > 0
}

// LastID 当前最大代码 ID
func (tf *TextFragment) LastID() int {
	return tf.lastID
}

// IsEmpty 编码文本是否为空
func (tf *TextFragment) IsEmpty() bool {
	return len(tf.text) == 0
}

// Len 编码文本长度，单位 rune
func (tf *TextFragment) Len() int {
	return len(tf.text)
}

// HasText 代码之外是否有非空白字符
func (tf *TextFragment) HasText() bool {
	found := false
	tf.walk(func(r rune, c *Code) bool {
		if c == nil && !unicode.IsSpace(r) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Text 返回去掉所有代码后的纯文本
func (tf *TextFragment) Text() string {
	var sb strings.Builder
	tf.walk(func(r rune, c *Code) bool {
		if c == nil {
			sb.WriteRune(r)
		}
		return true
	})
	return sb.String()
}

// String 返回还原了原始标记的文本
func (tf *TextFragment) String() string {
	var sb strings.Builder
	tf.walk(func(r rune, c *Code) bool {
		if c != nil {
			sb.WriteString(c.Data)
		} else {
			sb.WriteRune(r)
		}
		return true
	})
	return sb.String()
}

// walk 顺序遍历字符与代码，代码出现时 r 为标记字符
func (tf *TextFragment) walk(fn func(r rune, c *Code) bool) {
	for i := 0; i < len(tf.text); i++ {
		r := tf.text[i]
		if IsMarker(r) && i+1 < len(tf.text) {
			i++
			idx := CharToIndex(tf.text[i])
			if idx >= 0 && idx < len(tf.codes) {
				if !fn(r, tf.codes[idx]) {
					return
				}
				continue
			}
		}
		if !fn(r, nil) {
			return
		}
	}
}

// Clone 深度复制
func (tf *TextFragment) Clone() *TextFragment {
	cp := &TextFragment{
		text:   append([]rune(nil), tf.text...),
		codes:  make([]*Code, len(tf.codes)),
		lastID: tf.lastID,
	}
	for i, c := range tf.codes {
		cp.codes[i] = c.Clone()
	}
	return cp
}

// Sub 复制区间内的内容，区间端点不会切开代码标记
func (tf *TextFragment) Sub(start, end int) *TextFragment {
	start = tf.snap(start)
	end = tf.snap(end)
	out := &TextFragment{}
	for i := start; i < end; i++ {
		r := tf.text[i]
		if IsMarker(r) && i+1 < len(tf.text) {
			out.addCode(tf.codes[CharToIndex(tf.text[i+1])].Clone())
			i++
			continue
		}
		out.text = append(out.text, r)
	}
	return out
}

// snap 把位置限制在合法范围内，并移出标记字符与索引字符之间
func (tf *TextFragment) snap(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(tf.text) {
		return len(tf.text)
	}
	if pos > 0 && IsMarker(tf.text[pos-1]) {
		return pos + 1
	}
	return pos
}

// CompareTo 比较两个片段，codeSensitive 为 false 时只比较纯文本
func (tf *TextFragment) CompareTo(other *TextFragment, codeSensitive bool) int {
	if other == nil {
		return 1
	}
	if !codeSensitive {
		return strings.Compare(tf.Text(), other.Text())
	}
	if c := strings.Compare(tf.CodedText(), other.CodedText()); c != 0 {
		return c
	}
	if len(tf.codes) != len(other.codes) {
		if len(tf.codes) < len(other.codes) {
			return -1
		}
		return 1
	}
	for i := range tf.codes {
		if c := strings.Compare(tf.codes[i].Data, other.codes[i].Data); c != 0 {
			return c
		}
	}
	return 0
}

// Equals 内容是否相同
func (tf *TextFragment) Equals(other *TextFragment, codeSensitive bool) bool {
	return tf.CompareTo(other, codeSensitive) == 0
}

// checkMarkers 检查每个标记都有对应代码且每个代码只出现一次
func (tf *TextFragment) checkMarkers() error {
	seen := make([]bool, len(tf.codes))
	count := 0
	for i := 0; i < len(tf.text); i++ {
		r := tf.text[i]
		if !IsMarker(r) {
			continue
		}
		if i+1 >= len(tf.text) {
			return errs.BadInput("TextFragment", fmt.Sprintf("marker at %d has no index", i), nil)
		}
		i++
		idx := CharToIndex(tf.text[i])
		if idx < 0 || idx >= len(tf.codes) {
			return errs.BadInput("TextFragment", fmt.Sprintf("marker at %d points to missing code %d", i-1, idx), nil)
		}
		if seen[idx] {
			return errs.BadInput("TextFragment", fmt.Sprintf("code %d is referenced twice", idx), nil)
		}
		if tf.codes[idx].marker() != r {
			return errs.BadInput("TextFragment", fmt.Sprintf("marker at %d does not match tag type of code %d", i-1, idx), nil)
		}
		seen[idx] = true
		count++
	}
	if count != len(tf.codes) {
		return errs.BadInput("TextFragment", fmt.Sprintf("%d markers for %d codes", count, len(tf.codes)), nil)
	}
	return nil
}

// Validate 检查标记与代码一致，且成对代码正确嵌套
func (tf *TextFragment) Validate() error {
	if err := tf.checkMarkers(); err != nil {
		return err
	}
	var stack []int
	var err error
	tf.walk(func(_ rune, c *Code) bool {
		if c == nil {
			return true
		}
		switch c.TagType {
		case TagOpening:
			stack = append(stack, c.ID)
		case TagClosing:
			if len(stack) == 0 || stack[len(stack)-1] != c.ID {
				err = errs.BadInput("TextFragment", fmt.Sprintf("closing code %d does not match an open code", c.ID), nil)
				return false
			}
			stack = stack[:len(stack)-1]
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(stack) > 0 {
		return errs.BadInput("TextFragment", fmt.Sprintf("opening code %d is never closed", stack[len(stack)-1]), nil)
	}
	return nil
}

// Balance 把无法配对或交叉的代码转换为独立代码，使片段满足嵌套要求
func (tf *TextFragment) Balance() {
	type open struct {
		id    int
		index int
	}
	var stack []open
	isolate := func(index int) {
		tf.codes[index].TagType = TagPlaceholder
	}
	for i := 0; i < len(tf.text); i++ {
		if !IsMarker(tf.text[i]) || i+1 >= len(tf.text) {
			continue
		}
		idx := CharToIndex(tf.text[i+1])
		c := tf.codes[idx]
		switch c.TagType {
		case TagOpening:
			stack = append(stack, open{id: c.ID, index: idx})
		case TagClosing:
			k := len(stack) - 1
			for k >= 0 && stack[k].id != c.ID {
				k--
			}
			if k < 0 {
				isolate(idx)
				break
			}
			for _, o := range stack[k+1:] {
				isolate(o.index)
			}
			stack = stack[:k]
		}
		i++
	}
	for _, o := range stack {
		isolate(o.index)
	}
	// 同步标记字符
	for i := 0; i < len(tf.text); i++ {
		if IsMarker(tf.text[i]) && i+1 < len(tf.text) {
			tf.text[i] = tf.codes[CharToIndex(tf.text[i+1])].marker()
			i++
		}
	}
}

// PairDepthAt 返回位置 pos 处仍未关闭的成对代码数量
func (tf *TextFragment) PairDepthAt(pos int) int {
	depth := 0
	for i := 0; i < len(tf.text) && i < pos; i++ {
		switch tf.text[i] {
		case MarkerOpening:
			depth++
			i++
		case MarkerClosing:
			if depth > 0 {
				depth--
			}
			i++
		case MarkerIsolated:
			i++
		}
	}
	return depth
}

// RefMarkerPrefix 引用标记前缀
const (
	RefMarkerPrefix = "[#$"
	RefMarkerSuffix = "]"
	RefMarkerSep    = "@%"
)

// MakeRefMarker 构造指向资源的引用标记
func MakeRefMarker(id string) string {
	return RefMarkerPrefix + id + RefMarkerSuffix
}

// MakeRefMarkerWithProperty 构造指向资源属性的引用标记
func MakeRefMarkerWithProperty(id, property string) string {
	return RefMarkerPrefix + id + RefMarkerSep + property + RefMarkerSuffix
}

// refEscapeID 转义标记的 ID，展开为字面的 RefMarkerPrefix
const refEscapeID = "#"

// EscapeRefMarkers 转义文本中字面出现的标记前缀，FindRefMarker 不会再把它识别为引用
func EscapeRefMarkers(text string) string {
	return strings.ReplaceAll(text, RefMarkerPrefix, MakeRefMarker(refEscapeID))
}

// RefMarker 在文本中找到的引用标记
type RefMarker struct {
	Start    int
	End      int
	ID       string
	Property string
}

// IsEscape 是否为 EscapeRefMarkers 生成的转义，而不是引用
func (m RefMarker) IsEscape() bool {
	return m.ID == refEscapeID && m.Property == ""
}

// FindRefMarker 从 from 开始查找下一个引用标记，位置单位为字节
func FindRefMarker(text string, from int) (RefMarker, bool) {
	if from < 0 || from >= len(text) {
		return RefMarker{}, false
	}
	start := strings.Index(text[from:], RefMarkerPrefix)
	if start < 0 {
		return RefMarker{}, false
	}
	start += from
	body := start + len(RefMarkerPrefix)
	end := strings.Index(text[body:], RefMarkerSuffix)
	if end < 0 {
		return RefMarker{}, false
	}
	inner := text[body : body+end]
	m := RefMarker{Start: start, End: body + end + len(RefMarkerSuffix), ID: inner}
	if i := strings.Index(inner, RefMarkerSep); i >= 0 {
		m.ID = inner[:i]
		m.Property = inner[i+len(RefMarkerSep):]
	}
	return m, true
}

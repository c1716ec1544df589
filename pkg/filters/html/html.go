// Package html HTML 过滤器
//
// 词法分析使用 golang.org/x/net/html 的 Tokenizer，每个记号的原始字节
// 原样进入骨架或代码，因此不翻译时输出与输入逐字节相同。
package html

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// FilterName 过滤器标识
const FilterName = "okf_html"

// CodeTypeComment 段落内注释的代码类型
const CodeTypeComment = "comment"

var entityPattern = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)

// Filter HTML 过滤器
type Filter struct {
	*filter.Base
	params *Parameters
	// enc 抽取时判断实体能否被还原，写出时使用同样的规则
	enc encoder.Encoder

	z       *xhtml.Tokenizer
	started bool
	eof     bool

	tf        *resource.TextFragment
	alt       *resource.Skeleton
	rawDepth  int
	groupTags []string
}

// New 创建 HTML 过滤器
func New() *Filter {
	return &Filter{
		Base:   filter.NewBase(FilterName, "HTML Filter", encoder.MimeTypeHTML),
		params: NewParameters(),
		enc:    encoder.NewHTMLEncoder(),
	}
}

// Parameters 当前参数
func (f *Filter) Parameters() params.Parameters {
	return f.params
}

// SetParameters 设置参数
func (f *Filter) SetParameters(p params.Parameters) error {
	pp, ok := p.(*Parameters)
	if !ok {
		return errs.BadParameters(FilterName, "expected html parameters", nil)
	}
	f.params = pp
	return nil
}

// Configurations 预置配置
func (f *Filter) Configurations() []filter.Configuration {
	return []filter.Configuration{{
		ID:          FilterName,
		FilterName:  FilterName,
		Name:        "HTML",
		Description: "HTML and XHTML documents",
		MimeType:    encoder.MimeTypeHTML,
		Extensions:  []string{".html", ".htm", ".xhtml"},
	}}
}

// Open 打开输入
func (f *Filter) Open(doc *resource.RawDocument, generateSkeleton bool) error {
	in, err := f.Begin(doc, generateSkeleton)
	if err != nil {
		return err
	}
	f.z = xhtml.NewTokenizer(strings.NewReader(in.Text))
	f.started = false
	f.eof = false
	f.tf = nil
	f.alt = nil
	f.rawDepth = 0
	f.groupTags = f.groupTags[:0]
	return nil
}

// Next 返回下一个事件
func (f *Filter) Next() (*event.Event, error) {
	return f.Pull(f.fill)
}

func (f *Filter) fill() error {
	if !f.started {
		f.started = true
		f.StartDocument(f.params)
		return nil
	}
	for !f.eof && f.Queued() == 0 {
		if err := f.token(); err != nil {
			return err
		}
	}
	return nil
}

// token 处理一个记号
func (f *Filter) token() error {
	tt := f.z.Next()
	if tt == xhtml.ErrorToken {
		if err := f.z.Err(); err != io.EOF {
			return errs.BadInput(FilterName, "cannot tokenize input", err)
		}
		f.finishTextUnit()
		f.EndDocument()
		f.eof = true
		return nil
	}

	// Raw 必须先复制，TagName 会就地改写缓冲区
	raw := string(f.z.Raw())
	switch tt {
	case xhtml.TextToken:
		f.text(raw)
	case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
		name, _ := f.z.TagName()
		f.startTag(string(name), raw, tt == xhtml.SelfClosingTagToken)
	case xhtml.EndTagToken:
		name, _ := f.z.TagName()
		f.endTag(string(name), raw)
	case xhtml.CommentToken:
		if f.tf != nil && f.params.CodeComments {
			f.appendCode(resource.TagPlaceholder, CodeTypeComment, raw)
			return nil
		}
		f.finishTextUnit()
		f.AddSkeleton(raw)
	default:
		f.finishTextUnit()
		f.AddSkeleton(raw)
	}
	return nil
}

func (f *Filter) text(raw string) {
	if f.rawDepth > 0 {
		f.AddSkeleton(raw)
		return
	}
	if f.tf == nil {
		// 文本单元之前的空白留在骨架中
		trimmed := strings.TrimLeft(raw, asciiSpace)
		if trimmed == "" {
			f.AddSkeleton(raw)
			return
		}
		f.AddSkeleton(raw[:len(raw)-len(trimmed)])
		f.begin()
		raw = trimmed
	}
	f.decode(raw, encoder.ContextText, f.tf)
	f.alt.Append(raw)
}

func (f *Filter) startTag(name, raw string, selfClosing bool) {
	switch {
	case f.rawDepth > 0:
		f.AddSkeleton(raw)
	case rawElements[name]:
		f.finishTextUnit()
		f.AddSkeleton(raw)
		if !selfClosing {
			f.rawDepth++
		}
	case inlineElements[name]:
		if f.tf == nil {
			f.begin()
		}
		tag := resource.TagOpening
		if selfClosing || voidInlineElements[name] {
			tag = resource.TagPlaceholder
		}
		parts, hasRef := f.extractAttributes(name, raw)
		f.appendTag(tag, name, parts, hasRef)
	case groupElements[name]:
		f.finishTextUnit()
		f.tagSkeleton(name, raw)
		if !selfClosing {
			f.StartGroup(name)
			f.groupTags = append(f.groupTags, name)
		}
	default:
		f.finishTextUnit()
		f.tagSkeleton(name, raw)
	}
}

func (f *Filter) endTag(name, raw string) {
	switch {
	case rawElements[name]:
		if f.rawDepth > 0 {
			f.rawDepth--
		}
		f.AddSkeleton(raw)
	case f.rawDepth > 0:
		f.AddSkeleton(raw)
	case inlineElements[name]:
		if f.tf == nil {
			f.begin()
		}
		f.appendCode(resource.TagClosing, name, raw)
	case groupElements[name]:
		f.finishTextUnit()
		f.AddSkeleton(raw)
		for i := len(f.groupTags) - 1; i >= 0; i-- {
			if f.groupTags[i] != name {
				continue
			}
			// 省略了结束标签的内层分组一并结束
			for len(f.groupTags) > i {
				f.groupTags = f.groupTags[:len(f.groupTags)-1]
				_ = f.EndGroup()
			}
			break
		}
	default:
		f.finishTextUnit()
		f.AddSkeleton(raw)
	}
}

// begin 开始一个新的文本单元
func (f *Filter) begin() {
	f.tf = resource.NewTextFragment("")
	f.alt = resource.NewSkeleton()
}

func (f *Filter) appendCode(tag resource.TagType, typ, data string) {
	f.appendTag(tag, typ, resource.NewSkeleton(data), false)
}

// appendTag 把标签作为代码加入当前片段，tag 中的引用写成代码数据里的引用标记
func (f *Filter) appendTag(tag resource.TagType, typ string, parts *resource.Skeleton, hasRef bool) {
	if f.tf == nil {
		f.begin()
	}
	if !hasRef {
		data := parts.String()
		f.tf.AppendCode(tag, typ, data)
		f.alt.Append(data)
		return
	}
	var sb strings.Builder
	for _, p := range parts.Parts() {
		if p.Kind == resource.PartLiteral {
			sb.WriteString(resource.EscapeRefMarkers(p.Data))
		} else {
			sb.WriteString(p.String())
		}
	}
	code := f.tf.AppendCode(tag, typ, sb.String())
	code.SetFlag(resource.FlagHasRef, true)
	appendParts(f.alt, parts)
}

// finishTextUnit 结束当前文本单元
//
// 没有文本的内容（只有代码与空白）退回骨架；结尾的空白放入骨架。
func (f *Filter) finishTextUnit() {
	if f.tf == nil {
		return
	}
	tf, alt := f.tf, f.alt
	f.tf, f.alt = nil, nil
	if !tf.HasText() {
		f.Skeleton().AddSkeleton(alt)
		return
	}
	tf.Balance()

	coded := []rune(tf.CodedText())
	end := len(coded)
	for end > 0 && strings.ContainsRune(asciiSpace, coded[end-1]) {
		end--
	}
	trailing := string(coded[end:])
	if end < len(coded) {
		tf = tf.Sub(0, end)
	}
	tu := resource.NewTextUnitFromFragment("", tf)
	f.TextUnit(tu)
	f.AddSkeleton(trailing)
}

// tagSkeleton 把标签放入骨架，可翻译的属性值替换为引用
func (f *Filter) tagSkeleton(name, raw string) {
	parts, _ := f.extractAttributes(name, raw)
	appendParts(f.Skeleton(), parts)
}

// extractAttributes 把可翻译的属性值抽取为引用目标文本单元
//
// 返回的骨架由原始标签的字节区间直接构成，属性值所在位置换成引用片段，
// 因此其它属性里字面的引用标记保持为普通文本。
func (f *Filter) extractAttributes(name, raw string) (*resource.Skeleton, bool) {
	parts := resource.NewSkeleton()
	if len(f.params.TranslatableAttributes) == 0 {
		parts.Append(raw)
		return parts, false
	}
	pos := 0
	found := false
	for _, a := range scanAttributes(raw) {
		if !a.doubleQuoted || !f.params.isTranslatable(a.name) {
			continue
		}
		tf := resource.NewTextFragment("")
		f.decode(raw[a.start:a.end], encoder.ContextAttribute, tf)
		if !tf.HasText() {
			continue
		}
		tu := resource.NewTextUnitFromFragment("", tf)
		tu.SetIsReferent(true)
		tu.SetType(resource.TypeAttribute)
		tu.SetProperty("element", name, true)
		tu.SetProperty("attribute", a.name, true)
		f.TextUnit(tu)

		parts.Append(raw[pos:a.start])
		parts.AddReference(tu.ID(), "")
		pos = a.end
		found = true
	}
	parts.Append(raw[pos:])
	return parts, found
}

// decode 解码实体
//
// 实体只有在编码器能原样还原时才解码为文本，否则作为代码保留；
// 同样，编码器会改写的原始字符（例如单独的 '&'）也作为代码保留。
func (f *Filter) decode(raw string, ctx encoder.Context, tf *resource.TextFragment) {
	for i := 0; i < len(raw); {
		if raw[i] == '&' {
			if m := entityPattern.FindString(raw[i:]); m != "" {
				decoded := xhtml.UnescapeString(m)
				if decoded != m && f.enc.Encode(decoded, ctx) == m {
					tf.Append(decoded)
				} else {
					tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeEntity, m)
				}
				i += len(m)
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(raw[i:])
		ch := raw[i : i+size]
		if resource.IsMarker(r) || f.enc.Encode(ch, ctx) != ch {
			tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeEntity, ch)
		} else {
			tf.Append(ch)
		}
		i += size
	}
}

// appendParts 把 src 的片段追加到 dst，相邻文本合并
func appendParts(dst, src *resource.Skeleton) {
	for _, p := range src.Parts() {
		if p.Kind == resource.PartReference {
			dst.AddReference(p.RefID, p.Property)
			continue
		}
		dst.Append(p.Data)
	}
}

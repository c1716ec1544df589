package encoder

import (
	"fmt"
	"strings"
)

// XMLEncoder XML 文本编码器
type XMLEncoder struct {
	opts    Options
	charset *charsetChecker
	// numericApos 为 true 时 QuoteAll 也输出 &#39;（HTML 没有 &apos;）
	numericApos bool
	// cdataGuard 为 true 时 "]>" 中的 '>' 总是转义
	cdataGuard bool
}

// NewXMLEncoder 创建 XML 编码器，默认 QuoteAll
func NewXMLEncoder() *XMLEncoder {
	return &XMLEncoder{opts: Options{QuoteMode: QuoteAll}, cdataGuard: true}
}

// NewHTMLEncoder 创建 HTML 编码器
// 元素内容不转义引号，属性值只转义双引号
func NewHTMLEncoder() *XMLEncoder {
	return &XMLEncoder{opts: Options{QuoteMode: QuoteNone}, numericApos: true}
}

// SetOptions 设置编码选项
func (e *XMLEncoder) SetOptions(opts Options) {
	e.opts = opts
}

// SetCharset 设置输出字符集
func (e *XMLEncoder) SetCharset(name string) error {
	checker, err := newCharsetChecker(name)
	if err != nil {
		return err
	}
	e.charset = checker
	return nil
}

// LineBreak 返回换行符
func (e *XMLEncoder) LineBreak() string {
	if e.opts.LineBreak == "" {
		return "\n"
	}
	return e.opts.LineBreak
}

// Encode 转义文本
func (e *XMLEncoder) Encode(text string, ctx Context) string {
	if ctx == ContextSkeleton {
		return text
	}
	mode := e.opts.QuoteMode
	if ctx == ContextAttribute && mode == QuoteNone {
		mode = QuoteDoubleOnly
	}
	if mode == QuoteAll && e.numericApos {
		mode = QuoteNumericApos
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := rune(0)
	for _, r := range text {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '&':
			b.WriteString("&amp;")
		case '>':
			if e.opts.EscapeGT || (e.cdataGuard && prev == ']') {
				b.WriteString("&gt;")
			} else {
				b.WriteRune(r)
			}
		case '"':
			if mode != QuoteNone {
				b.WriteString("&quot;")
			} else {
				b.WriteRune(r)
			}
		case '\'':
			switch mode {
			case QuoteAll:
				b.WriteString("&apos;")
			case QuoteNumericApos:
				b.WriteString("&#39;")
			default:
				b.WriteRune(r)
			}
		case '\n':
			if e.opts.LineBreak != "" {
				b.WriteString(e.opts.LineBreak)
			} else {
				b.WriteRune(r)
			}
		default:
			if !e.charset.canEncode(r) {
				fmt.Fprintf(&b, "&#x%X;", r)
			} else {
				b.WriteRune(r)
			}
		}
		prev = r
	}
	return b.String()
}

// EscapeXML 按给定模式转义 XML 文本
func EscapeXML(text string, quoteMode QuoteMode, escapeGT bool) string {
	enc := &XMLEncoder{opts: Options{QuoteMode: quoteMode, EscapeGT: escapeGT}, cdataGuard: true}
	return enc.Encode(text, ContextText)
}

// Package encoder 负责把抽取出来的文本重新转义为目标格式可接受的形式。
// 过滤器在抽取时解码实体，写出时由对应 MIME 类型的编码器还原。
package encoder

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// 常用 MIME 类型
const (
	MimeTypePlainText = "text/plain"
	MimeTypeHTML      = "text/html"
	MimeTypeXML       = "text/xml"
	MimeTypeMarkdown  = "text/markdown"
	MimeTypeTMX       = "application/x-tmx+xml"
)

// QuoteMode 引号转义模式
type QuoteMode int

const (
	// QuoteNone 不转义任何引号
	QuoteNone QuoteMode = 0
	// QuoteAll 单引号输出 &apos;，双引号输出 &quot;
	QuoteAll QuoteMode = 1
	// QuoteNumericApos 单引号输出 &#39;，双引号输出 &quot;
	QuoteNumericApos QuoteMode = 2
	// QuoteDoubleOnly 只转义双引号
	QuoteDoubleOnly QuoteMode = 3
)

// Context 编码上下文
type Context int

const (
	// ContextText 元素内容
	ContextText Context = iota
	// ContextAttribute 双引号包围的属性值
	ContextAttribute
	// ContextSkeleton 骨架文本，原样输出
	ContextSkeleton
)

// Options 编码选项
type Options struct {
	QuoteMode QuoteMode
	// EscapeGT 为 true 时总是转义 '>'，否则只在 "]>" 的情况下转义
	EscapeGT bool
	// LineBreak 非空时用它替换文本中的 '\n'
	LineBreak string
}

// Encoder 定义文本编码器
type Encoder interface {
	// Encode 转义一段文本
	Encode(text string, ctx Context) string

	// SetOptions 设置编码选项
	SetOptions(opts Options)

	// SetCharset 设置输出字符集，无法表示的字符按编码器规则处理
	SetCharset(name string) error

	// LineBreak 返回输出使用的换行符
	LineBreak() string
}

// charsetChecker 判断某个字符在输出字符集中是否可表示
type charsetChecker struct {
	enc encoding.Encoding
}

func newCharsetChecker(name string) (*charsetChecker, error) {
	if name == "" {
		return nil, nil
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "utf-") || lower == "utf8" {
		// Unicode 编码可表示所有字符
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	return &charsetChecker{enc: enc}, nil
}

func (c *charsetChecker) canEncode(r rune) bool {
	if c == nil || r < 0x80 {
		return true
	}
	_, err := c.enc.NewEncoder().String(string(r))
	return err == nil
}

// DefaultEncoder 不做任何转义，只处理换行
type DefaultEncoder struct {
	opts Options
}

// NewDefaultEncoder 创建默认编码器
func NewDefaultEncoder() *DefaultEncoder {
	return &DefaultEncoder{}
}

// Encode 原样返回文本
func (e *DefaultEncoder) Encode(text string, ctx Context) string {
	if ctx == ContextSkeleton || e.opts.LineBreak == "" || e.opts.LineBreak == "\n" {
		return text
	}
	return strings.ReplaceAll(text, "\n", e.opts.LineBreak)
}

// SetOptions 设置编码选项
func (e *DefaultEncoder) SetOptions(opts Options) {
	e.opts = opts
}

// SetCharset 默认编码器不关心字符集
func (e *DefaultEncoder) SetCharset(name string) error {
	return nil
}

// LineBreak 返回换行符
func (e *DefaultEncoder) LineBreak() string {
	if e.opts.LineBreak == "" {
		return "\n"
	}
	return e.opts.LineBreak
}

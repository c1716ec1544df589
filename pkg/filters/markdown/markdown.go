// Package markdown Markdown 过滤器
//
// 块结构由 goldmark 解析，段落与标题按原始字节区间抽取，区间之外的内容
// 原样进入骨架。
package markdown

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// FilterName 过滤器标识
const FilterName = "okf_markdown"

// 文本单元类型
const (
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
)

// 行内代码类型
const (
	CodeTypeCode   = "code"
	CodeTypeStrike = "strikethrough"
	CodeTypeHTML   = "html"
)

// inlinePattern 行内标记：代码、图片、链接、加粗、删除线、HTML 标签
var inlinePattern = regexp.MustCompile("`[^`]+`|!\\[[^\\]]*\\]\\([^)]*\\)|\\[([^\\]]*)\\]\\([^)]*\\)|\\*\\*|~~|</?[A-Za-z][^<>]*>")

// block 一个待抽取的块
type block struct {
	typ   string
	level int
	lines []text.Segment
}

// Filter Markdown 过滤器
type Filter struct {
	*filter.Base
	params *Parameters
	md     goldmark.Markdown

	src     string
	blocks  []block
	next    int
	cursor  int
	front   map[string]any
	started bool
}

// New 创建 Markdown 过滤器
func New() *Filter {
	return &Filter{
		Base:   filter.NewBase(FilterName, "Markdown Filter", encoder.MimeTypeMarkdown),
		params: NewParameters(),
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				meta.Meta,
			),
		),
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
		return errs.BadParameters(FilterName, "expected markdown parameters", nil)
	}
	f.params = pp
	return nil
}

// Configurations 预置配置
func (f *Filter) Configurations() []filter.Configuration {
	return []filter.Configuration{{
		ID:          FilterName,
		FilterName:  FilterName,
		Name:        "Markdown",
		Description: "CommonMark and GitHub Flavored Markdown documents",
		MimeType:    encoder.MimeTypeMarkdown,
		Extensions:  []string{".md", ".markdown"},
	}}
}

// Open 打开输入并解析块结构
func (f *Filter) Open(doc *resource.RawDocument, generateSkeleton bool) error {
	in, err := f.Begin(doc, generateSkeleton)
	if err != nil {
		return err
	}
	f.src = in.Text
	f.blocks = f.blocks[:0]
	f.next = 0
	f.cursor = 0
	f.front = nil
	f.started = false

	source := []byte(f.src)
	pc := parser.NewContext()
	root := f.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	frontEnd := frontMatterEnd(f.src)
	if frontEnd > 0 {
		front, err := meta.TryGet(pc)
		if err != nil {
			f.Logger().Warn("invalid front matter", zap.String("document", doc.Name()), zap.Error(err))
		}
		f.front = front
	}

	return ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Document, *ast.List, *ast.ListItem, *ast.Blockquote:
			return ast.WalkContinue, nil
		case *ast.Heading:
			if f.params.ExtractHeadings {
				f.collect(TypeHeading, node.Level, node.Lines(), frontEnd)
			}
		case *ast.Paragraph:
			f.collect(TypeParagraph, 0, node.Lines(), frontEnd)
		case *ast.TextBlock:
			f.collect(TypeParagraph, 0, node.Lines(), frontEnd)
		}
		// 代码块、HTML 块、表格与分隔线留在骨架中
		return ast.WalkSkipChildren, nil
	})
}

func (f *Filter) collect(typ string, level int, lines *text.Segments, frontEnd int) {
	if lines == nil || lines.Len() == 0 {
		return
	}
	b := block{typ: typ, level: level}
	for i := 0; i < lines.Len(); i++ {
		b.lines = append(b.lines, lines.At(i))
	}
	if b.lines[0].Start < frontEnd {
		return
	}
	f.blocks = append(f.blocks, b)
}

// Next 返回下一个事件
func (f *Filter) Next() (*event.Event, error) {
	return f.Pull(f.fill)
}

func (f *Filter) fill() error {
	if !f.started {
		f.started = true
		sd := f.StartDocument(f.params)
		if f.params.FrontMatter {
			keys := make([]string, 0, len(f.front))
			for k := range f.front {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sd.SetProperty(k, fmt.Sprint(f.front[k]), true)
			}
		}
		return nil
	}
	for f.next < len(f.blocks) {
		b := f.blocks[f.next]
		f.next++
		if f.textUnit(b) {
			return nil
		}
	}
	f.AddSkeleton(f.src[f.cursor:])
	f.cursor = len(f.src)
	f.EndDocument()
	return nil
}

// textUnit 把一个块转为文本单元，没有可翻译文本时返回 false，块留在骨架中
func (f *Filter) textUnit(b block) bool {
	first, last := b.lines[0], b.lines[len(b.lines)-1]
	start := first.Start
	for start < last.Stop && isBlank(f.src[start]) {
		start++
	}
	end := last.Stop
	for end > start && isBlank(f.src[end-1]) {
		end--
	}
	if start >= end || start < f.cursor {
		return false
	}

	ib := &inlineBuilder{tf: resource.NewTextFragment(""), codes: f.params.InlineCodes}
	pos := start
	for i, seg := range b.lines {
		stop := min(seg.Stop, end)
		if i < len(b.lines)-1 {
			// 行尾换行与下一行的缩进或引用符号一起作为换行代码
			content := strings.TrimRight(f.src[pos:stop], "\r\n")
			ib.add(content)
			gap := f.src[pos+len(content) : b.lines[i+1].Start]
			ib.tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeLineBreak, gap)
			pos = b.lines[i+1].Start
			continue
		}
		ib.add(f.src[pos:stop])
	}
	tf := ib.finish()
	if !tf.HasText() {
		return false
	}

	f.AddSkeleton(f.src[f.cursor:start])
	tu := resource.NewTextUnitFromFragment("", tf)
	tu.SetType(b.typ)
	if b.typ == TypeHeading {
		tu.SetProperty("level", strconv.Itoa(b.level), true)
	}
	f.TextUnit(tu)
	f.cursor = end
	return true
}

// inlineBuilder 把行内标记转换为代码
type inlineBuilder struct {
	tf     *resource.TextFragment
	codes  bool
	bold   bool
	strike bool
}

func (b *inlineBuilder) add(s string) {
	if !b.codes {
		b.text(s)
		return
	}
	pos := 0
	for _, m := range inlinePattern.FindAllStringSubmatchIndex(s, -1) {
		b.text(s[pos:m[0]])
		match := s[m[0]:m[1]]
		switch {
		case strings.HasPrefix(match, "`"):
			b.tf.AppendCode(resource.TagPlaceholder, CodeTypeCode, match)
		case strings.HasPrefix(match, "!["):
			b.tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeImage, match)
		case m[2] >= 0:
			b.tf.AppendCode(resource.TagOpening, resource.CodeTypeLink, s[m[0]:m[2]])
			b.text(s[m[2]:m[3]])
			b.tf.AppendCode(resource.TagClosing, resource.CodeTypeLink, s[m[3]:m[1]])
		case match == "**":
			b.toggle(&b.bold, resource.CodeTypeBold, match)
		case match == "~~":
			b.toggle(&b.strike, CodeTypeStrike, match)
		default:
			b.tf.AppendCode(resource.TagPlaceholder, CodeTypeHTML, match)
		}
		pos = m[1]
	}
	b.text(s[pos:])
}

func (b *inlineBuilder) toggle(open *bool, typ, data string) {
	if *open {
		b.tf.AppendCode(resource.TagClosing, typ, data)
	} else {
		b.tf.AppendCode(resource.TagOpening, typ, data)
	}
	*open = !*open
}

func (b *inlineBuilder) text(s string) {
	for _, r := range s {
		if resource.IsMarker(r) {
			b.tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeNull, string(r))
			continue
		}
		b.tf.AppendRune(r)
	}
}

// finish 未闭合的成对代码转为独立代码
func (b *inlineBuilder) finish() *resource.TextFragment {
	b.tf.Balance()
	return b.tf
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// frontMatterEnd 返回 YAML 元数据块之后的偏移，没有元数据时返回 0
func frontMatterEnd(src string) int {
	first, rest, ok := strings.Cut(src, "\n")
	if !ok || strings.TrimRight(first, "\r") != "---" {
		return 0
	}
	pos := len(first) + 1
	for rest != "" {
		line, tail, found := strings.Cut(rest, "\n")
		n := len(line)
		if found {
			n++
		}
		if l := strings.TrimRight(line, " \t\r"); l == "---" || l == "..." {
			return pos + n
		}
		pos += n
		rest = tail
	}
	return 0
}

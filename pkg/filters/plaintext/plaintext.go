// Package plaintext 纯文本过滤器，按行或按段落抽取文本
package plaintext

import (
	"strings"
	"unicode"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// 过滤器与配置标识
const (
	FilterName       = "okf_plaintext"
	ConfigLines      = "okf_plaintext"
	ConfigParagraphs = "okf_plaintext_paragraphs"
)

// Filter 纯文本过滤器
type Filter struct {
	*filter.Base
	params *Parameters

	text    string
	pos     int
	started bool
}

// New 创建纯文本过滤器
func New() *Filter {
	return &Filter{
		Base:   filter.NewBase(FilterName, "Plain Text Filter", encoder.MimeTypePlainText),
		params: NewParameters(),
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
		return errs.BadParameters(FilterName, "expected plaintext parameters", nil)
	}
	f.params = pp
	return nil
}

// Configurations 预置配置
func (f *Filter) Configurations() []filter.Configuration {
	paragraphs := NewParameters()
	paragraphs.ParagraphMode = true
	return []filter.Configuration{
		{
			ID:          ConfigLines,
			FilterName:  FilterName,
			Name:        "Plain Text (lines)",
			Description: "Each line is a text unit",
			MimeType:    encoder.MimeTypePlainText,
			Extensions:  []string{".txt"},
		},
		{
			ID:          ConfigParagraphs,
			FilterName:  FilterName,
			Name:        "Plain Text (paragraphs)",
			Description: "Blocks of lines separated by empty lines are text units",
			MimeType:    encoder.MimeTypePlainText,
			Parameters:  paragraphs.String(),
		},
	}
}

// Open 打开输入
func (f *Filter) Open(doc *resource.RawDocument, generateSkeleton bool) error {
	in, err := f.Begin(doc, generateSkeleton)
	if err != nil {
		return err
	}
	f.text = in.Text
	f.pos = 0
	f.started = false
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
	if f.pos >= len(f.text) {
		f.EndDocument()
		return nil
	}
	if f.params.ParagraphMode {
		f.paragraph()
	} else {
		f.line()
	}
	return nil
}

// nextLine 返回从 pos 开始的一行内容及其换行符
func (f *Filter) nextLine() (content, lb string) {
	rest := f.text[f.pos:]
	i := strings.IndexAny(rest, "\r\n")
	if i < 0 {
		f.pos = len(f.text)
		return rest, ""
	}
	lb = rest[i : i+1]
	if rest[i] == '\r' && i+1 < len(rest) && rest[i+1] == '\n' {
		lb = "\r\n"
	}
	f.pos += i + len(lb)
	return rest[:i], lb
}

// split 按参数分出行首空白、内容与行尾空白
func (f *Filter) split(line string) (lead, body, trail string) {
	body = line
	if f.params.TrimLeading {
		trimmed := strings.TrimLeftFunc(body, unicode.IsSpace)
		lead = body[:len(body)-len(trimmed)]
		body = trimmed
	}
	if f.params.TrimTrailing {
		trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
		trail = body[len(trimmed):]
		body = trimmed
	}
	return lead, body, trail
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (f *Filter) line() {
	content, lb := f.nextLine()
	if isBlank(content) {
		f.AddSkeleton(content + lb)
		return
	}
	lead, body, trail := f.split(content)
	f.textUnit(resource.NewTextFragment(body), lead, trail+lb)
}

func (f *Filter) paragraph() {
	// 跳过段前空行
	for f.pos < len(f.text) {
		save := f.pos
		content, lb := f.nextLine()
		if !isBlank(content) {
			f.pos = save
			break
		}
		f.AddSkeleton(content + lb)
	}
	if f.pos >= len(f.text) {
		return
	}

	var lines, breaks []string
	for f.pos < len(f.text) {
		save := f.pos
		content, lb := f.nextLine()
		if isBlank(content) {
			f.pos = save
			break
		}
		lines = append(lines, content)
		breaks = append(breaks, lb)
	}

	// 段落首尾空白进入骨架，段内空白与换行保留在内容中
	lead, _, _ := f.split(lines[0])
	last := len(lines) - 1
	_, _, trail := f.split(lines[last])
	lines[0] = lines[0][len(lead):]
	lines[last] = lines[last][:len(lines[last])-len(trail)]

	tf := resource.NewTextFragment("")
	for i, l := range lines {
		tf.Append(l)
		if i < last {
			tf.AppendCode(resource.TagPlaceholder, resource.CodeTypeLineBreak, breaks[i])
		}
	}
	f.textUnit(tf, lead, trail+breaks[last])
}

func (f *Filter) textUnit(tf *resource.TextFragment, before, after string) {
	tu := resource.NewTextUnitFromFragment(f.NextID("tu"), tf)
	tu.PreserveWhitespace = f.params.PreserveWhitespace
	skel := resource.NewSkeleton(before)
	skel.AddContentPlaceholder(resource.LocaleEmpty)
	skel.Add(after)
	tu.SetSkeleton(skel)
	f.TextUnit(tu)
}

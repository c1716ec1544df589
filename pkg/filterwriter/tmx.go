package filterwriter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// TMXContent 把编码文本格式化为 TMX 的 <seg> 内容
type TMXContent struct {
	QuoteMode encoder.QuoteMode
	EscapeGT  bool
}

// NewTMXContent 默认转义单双引号
func NewTMXContent() *TMXContent {
	return &TMXContent{QuoteMode: encoder.QuoteAll}
}

// Format 代码输出为 <bpt>/<ept>/<ph>，i 属性为代码 ID
func (c *TMXContent) Format(tf *resource.TextFragment) string {
	var sb, run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(encoder.EscapeXML(run.String(), c.QuoteMode, c.EscapeGT))
			run.Reset()
		}
	}
	coded := []rune(tf.CodedText())
	for i := 0; i < len(coded); i++ {
		r := coded[i]
		if !resource.IsMarker(r) || i+1 >= len(coded) {
			run.WriteRune(r)
			continue
		}
		i++
		code := tf.Code(resource.CharToIndex(coded[i]))
		if code == nil {
			continue
		}
		flush()
		tag := "ph"
		switch r {
		case resource.MarkerOpening:
			tag = "bpt"
		case resource.MarkerClosing:
			tag = "ept"
		}
		fmt.Fprintf(&sb, `<%s i="%d">`, tag, code.ID)
		sb.WriteString(encoder.EscapeXML(code.Data, c.QuoteMode, c.EscapeGT))
		sb.WriteString("</" + tag + ">")
	}
	flush()
	return sb.String()
}

// reservedAttributes 这些名称是 TMX 的属性，不作为 <prop> 输出
var reservedAttributes = map[string]bool{
	"lang": true, "tuid": true, "o-encoding": true, "datatype": true, "usagecount": true,
	"lastusagedate": true, "creationtool": true, "creationtoolversion": true, "creationdate": true,
	"creationid": true, "changedate": true, "segtype": true, "changeid": true, "o-tmf": true,
	"srclang": true,
}

// TMXWriter 写出 TMX 1.4 文档
type TMXWriter struct {
	xw        *XMLWriter
	content   *TMXContent
	srcLoc    resource.LocaleID
	trgLoc    resource.LocaleID
	itemCount int
	exclusion *regexp2.Regexp
}

// NewTMXWriter 写入到流
func NewTMXWriter(w io.Writer) *TMXWriter {
	return &TMXWriter{xw: NewXMLWriter(w), content: NewTMXContent()}
}

// CreateTMXWriter 写入到文件
func CreateTMXWriter(path string) (*TMXWriter, error) {
	xw, err := CreateXMLWriter(path)
	if err != nil {
		return nil, err
	}
	return &TMXWriter{xw: xw, content: NewTMXContent()}, nil
}

// SetQuoteMode 设置引号转义模式
func (t *TMXWriter) SetQuoteMode(mode encoder.QuoteMode) {
	t.content.QuoteMode = mode
}

// SetEscapeGT 设置是否总是转义 '>'
func (t *TMXWriter) SetEscapeGT(v bool) {
	t.content.EscapeGT = v
}

// SetExclusionPattern 源文编码文本完全匹配该模式的条目不输出，空串表示不排除
func (t *TMXWriter) SetExclusionPattern(pattern string) error {
	if pattern == "" {
		t.exclusion = nil
		return nil
	}
	re, err := regexp2.Compile(`^(?:`+pattern+`)$`, regexp2.None)
	if err != nil {
		return errs.BadParameters("TMXWriter", "invalid exclusion pattern", err)
	}
	t.exclusion = re
	return nil
}

// ItemCount 已写出的 <tu> 数量
func (t *TMXWriter) ItemCount() int {
	return t.itemCount
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// WriteStartDocument 写出头部
func (t *TMXWriter) WriteStartDocument(src, trg resource.LocaleID, tool, toolVersion, segType, originalTMF, dataType string) error {
	if src.IsEmpty() || trg.IsEmpty() {
		return errs.BadParameters("TMXWriter.WriteStartDocument", "source and target locales are required", nil)
	}
	t.srcLoc = src
	t.trgLoc = trg

	t.xw.WriteStartDocument()
	t.xw.WriteStartElement("tmx")
	t.xw.WriteAttributeString("version", "1.4")

	t.xw.WriteStartElement("header")
	t.xw.WriteAttributeString("creationtool", orDefault(tool, "unknown"))
	t.xw.WriteAttributeString("creationtoolversion", orDefault(toolVersion, "unknown"))
	t.xw.WriteAttributeString("segtype", orDefault(segType, "paragraph"))
	t.xw.WriteAttributeString("o-tmf", orDefault(originalTMF, "unknown"))
	t.xw.WriteAttributeString("adminlang", "en")
	t.xw.WriteAttributeString("srclang", src.String())
	t.xw.WriteAttributeString("datatype", orDefault(dataType, "unknown"))
	t.xw.WriteEndElement()

	t.xw.WriteStartElement("body")
	t.xw.WriteLineBreak()
	return t.xw.Err()
}

// WriteEndDocument 写出尾部
func (t *TMXWriter) WriteEndDocument() error {
	t.xw.WriteEndElementLineBreak() // body
	t.xw.WriteEndElementLineBreak() // tmx
	t.xw.WriteEndDocument()
	return t.xw.Err()
}

// WriteItem 写出文本单元
//
// 未分段时输出一个 <tu>；源文与译文都已分段时按分段输出；
// 译文带有分数且分数为 0 的条目视为未复用，不输出。
func (t *TMXWriter) WriteItem(tu *resource.TextUnit, attrs map[string]string) error {
	tuid := tu.Name()
	if tuid == "" {
		tuid = fmt.Sprintf("autoID%d", t.itemCount+1)
	}

	src := tu.Source()
	trg := tu.Target(t.trgLoc)
	var scores *resource.ScoresAnnotation
	if trg != nil {
		scores = trg.Scores
	}
	scoreAt := func(i int) int {
		if scores == nil || i >= len(scores.Scores) {
			return -1
		}
		return scores.Scores[i].Value
	}

	if !src.IsSegmented() {
		if scoreAt(0) == 0 {
			return nil
		}
		var trgFrag *resource.TextFragment
		if trg != nil {
			trgFrag = trg.Unsegmented()
		}
		return t.WriteTU(src.Unsegmented(), trgFrag, tuid, attrs)
	}
	if trg == nil || !trg.IsSegmented() {
		// 源文已分段但译文没有分段时无法对齐
		return nil
	}
	srcSegs := src.Segments()
	trgSegs := trg.Segments()
	for i, seg := range srcSegs {
		if scoreAt(i) == 0 {
			continue
		}
		var trgFrag *resource.TextFragment
		if i < len(trgSegs) {
			trgFrag = trgSegs[i].Content
		}
		if err := t.WriteTU(seg.Content, trgFrag, fmt.Sprintf("%s_s%02d", tuid, i+1), attrs); err != nil {
			return err
		}
	}
	return nil
}

// WriteTU 写出一个 <tu>，target 可以为空
func (t *TMXWriter) WriteTU(source, target *resource.TextFragment, tuid string, attrs map[string]string) error {
	if t.exclusion != nil {
		if ok, _ := t.exclusion.MatchString(source.CodedText()); ok {
			return nil
		}
	}
	t.itemCount++
	t.xw.WriteStartElement("tu")
	if tuid != "" {
		t.xw.WriteAttributeString("tuid", tuid)
	}
	t.xw.WriteLineBreak()

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if !reservedAttributes[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		t.xw.WriteStartElement("prop")
		t.xw.WriteAttributeString("type", name)
		t.xw.WriteString(attrs[name])
		t.xw.WriteEndElementLineBreak()
	}

	t.writeTUV(source, t.srcLoc, nil)
	if target != nil {
		t.writeTUV(target, t.trgLoc, nil)
	}
	t.xw.WriteEndElementLineBreak() // tu
	return t.xw.Err()
}

// WriteTUFull 写出源文与所有译文，包括容器上的属性
func (t *TMXWriter) WriteTUFull(tu *resource.TextUnit) error {
	t.itemCount++
	tuid := tu.Name()
	if tuid == "" {
		tuid = fmt.Sprintf("autoID%d", t.itemCount)
	}
	t.xw.WriteStartElement("tu")
	t.xw.WriteAttributeString("tuid", tuid)
	t.xw.WriteLineBreak()
	for _, name := range tu.PropertyNames() {
		if reservedAttributes[name] {
			continue
		}
		prop, _ := tu.Property(name)
		t.xw.WriteStartElement("prop")
		t.xw.WriteAttributeString("type", name)
		t.xw.WriteString(prop.Value)
		t.xw.WriteEndElementLineBreak()
	}
	t.writeTUV(tu.Source().Unsegmented(), t.srcLoc, tu.Source())
	for _, loc := range tu.TargetLocales() {
		tc := tu.Target(loc)
		t.writeTUV(tc.Unsegmented(), loc, tc)
	}
	t.xw.WriteEndElementLineBreak() // tu
	return t.xw.Err()
}

func (t *TMXWriter) writeTUV(frag *resource.TextFragment, loc resource.LocaleID, props *resource.TextContainer) {
	t.xw.WriteStartElement("tuv")
	t.xw.WriteAttributeString("xml:lang", loc.String())
	t.xw.WriteStartElement("seg")
	t.xw.WriteRawXML(t.content.Format(frag))
	t.xw.WriteEndElement() // seg
	if props != nil && len(props.Properties) > 0 {
		for _, name := range props.Properties.Names() {
			if reservedAttributes[name] {
				continue
			}
			t.xw.WriteLineBreak()
			t.xw.WriteStartElement("prop")
			t.xw.WriteAttributeString("type", name)
			t.xw.WriteString(props.Properties.Value(name))
			t.xw.WriteEndElement()
		}
		t.xw.WriteLineBreak()
	}
	t.xw.WriteEndElementLineBreak() // tuv
}

// Close 关闭底层输出
func (t *TMXWriter) Close() error {
	return t.xw.Close()
}

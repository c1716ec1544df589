package filterwriter

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// XMLWriter 顺序写出 XML，错误会被记录，之后的写入全部忽略
type XMLWriter struct {
	buf        *bufio.Writer
	closer     io.Closer
	elements   []string
	inStartTag bool
	lineBreak  string
	err        error
}

// NewXMLWriter 写入到调用方提供的流
func NewXMLWriter(w io.Writer) *XMLWriter {
	return &XMLWriter{buf: bufio.NewWriter(w), lineBreak: "\n"}
}

// CreateXMLWriter 创建文件并写入
func CreateXMLWriter(path string) (*XMLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.IO("CreateXMLWriter", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.IO("CreateXMLWriter", err)
	}
	xw := NewXMLWriter(f)
	xw.closer = f
	return xw, nil
}

// SetLineBreak 设置换行符
func (x *XMLWriter) SetLineBreak(lb string) {
	x.lineBreak = lb
}

func (x *XMLWriter) raw(s string) {
	if x.err != nil {
		return
	}
	_, x.err = x.buf.WriteString(s)
}

func (x *XMLWriter) closeStartTag() {
	if x.inStartTag {
		x.raw(">")
		x.inStartTag = false
	}
}

// WriteStartDocument 写出 XML 声明
func (x *XMLWriter) WriteStartDocument() {
	x.raw(`<?xml version="1.0" encoding="UTF-8"?>`)
	x.raw(x.lineBreak)
}

// WriteEndDocument 关闭所有未关闭的元素并刷新
func (x *XMLWriter) WriteEndDocument() {
	for len(x.elements) > 0 {
		x.WriteEndElement()
	}
	if x.err == nil {
		x.err = x.buf.Flush()
	}
}

// WriteStartElement 开始元素
func (x *XMLWriter) WriteStartElement(name string) {
	x.closeStartTag()
	x.raw("<" + name)
	x.elements = append(x.elements, name)
	x.inStartTag = true
}

// WriteEndElement 结束最近的元素，空元素输出为自闭合形式
func (x *XMLWriter) WriteEndElement() {
	if len(x.elements) == 0 {
		return
	}
	name := x.elements[len(x.elements)-1]
	x.elements = x.elements[:len(x.elements)-1]
	if x.inStartTag {
		x.raw("/>")
		x.inStartTag = false
		return
	}
	x.raw("</" + name + ">")
}

// WriteEndElementLineBreak 结束元素并换行
func (x *XMLWriter) WriteEndElementLineBreak() {
	x.WriteEndElement()
	x.raw(x.lineBreak)
}

// WriteAttributeString 写出属性，必须紧跟在 WriteStartElement 之后
func (x *XMLWriter) WriteAttributeString(name, value string) {
	if !x.inStartTag {
		if x.err == nil {
			x.err = errs.IllegalState("XMLWriter", "attribute "+name+" outside a start tag")
		}
		return
	}
	x.raw(" " + name + `="` + encoder.EscapeXML(value, encoder.QuoteDoubleOnly, false) + `"`)
}

// WriteString 写出转义后的文本
func (x *XMLWriter) WriteString(text string) {
	x.closeStartTag()
	x.raw(encoder.EscapeXML(text, encoder.QuoteNone, false))
}

// WriteRawXML 原样写出已经转义的内容
func (x *XMLWriter) WriteRawXML(xml string) {
	x.closeStartTag()
	x.raw(xml)
}

// WriteComment 写出注释
func (x *XMLWriter) WriteComment(text string) {
	x.closeStartTag()
	x.raw("<!--" + text + "-->")
}

// WriteLineBreak 写出换行
func (x *XMLWriter) WriteLineBreak() {
	x.closeStartTag()
	x.raw(x.lineBreak)
}

// Err 第一个写入错误
func (x *XMLWriter) Err() error {
	return x.err
}

// Close 刷新并关闭底层文件
func (x *XMLWriter) Close() error {
	if x.buf == nil {
		return nil
	}
	err := x.err
	if ferr := x.buf.Flush(); err == nil {
		err = ferr
	}
	if x.closer != nil {
		if cerr := x.closer.Close(); err == nil {
			err = cerr
		}
		x.closer = nil
	}
	x.buf = nil
	if err != nil {
		return errs.IO("XMLWriter.Close", err)
	}
	return nil
}

package resource

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// InputKind 原始文档的输入形式
type InputKind int

const (
	// InputText 已解码的字符串
	InputText InputKind = iota
	// InputStream 字节流
	InputStream
	// InputURI 本地路径或 file:// URI
	InputURI
)

// RawDocument 尚未被过滤器解析的输入文档
type RawDocument struct {
	id     string
	kind   InputKind
	text   string
	reader io.Reader
	path   string
	opened io.Closer

	// Encoding 默认编码，字节流与文件输入使用
	Encoding     string
	SourceLocale LocaleID
	TargetLocale LocaleID
	// FilterConfigID 处理该文档的过滤器配置
	FilterConfigID string
}

func newRawDocument(kind InputKind, src, trg LocaleID) *RawDocument {
	return &RawDocument{
		id:           uuid.NewString(),
		kind:         kind,
		SourceLocale: src,
		TargetLocale: trg,
	}
}

// NewRawDocumentFromString 字符串输入，编码固定为 UTF-8
func NewRawDocumentFromString(text string, src, trg LocaleID) *RawDocument {
	rd := newRawDocument(InputText, src, trg)
	rd.text = text
	rd.Encoding = "UTF-8"
	return rd
}

// NewRawDocumentFromReader 字节流输入
func NewRawDocumentFromReader(r io.Reader, encoding string, src, trg LocaleID) *RawDocument {
	rd := newRawDocument(InputStream, src, trg)
	rd.reader = r
	rd.Encoding = encoding
	return rd
}

// NewRawDocumentFromPath 文件输入，支持 file:// URI
func NewRawDocumentFromPath(path, encoding string, src, trg LocaleID) *RawDocument {
	rd := newRawDocument(InputURI, src, trg)
	rd.path = localPath(path)
	rd.Encoding = encoding
	return rd
}

func localPath(p string) string {
	if !strings.HasPrefix(p, "file:") {
		return p
	}
	u, err := url.Parse(p)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(p, "file:")
	}
	return u.Path
}

// ID 文档唯一标识
func (rd *RawDocument) ID() string {
	return rd.id
}

// Kind 输入形式
func (rd *RawDocument) Kind() InputKind {
	return rd.kind
}

// Text 字符串输入的内容
func (rd *RawDocument) Text() (string, bool) {
	return rd.text, rd.kind == InputText
}

// Path 文件输入的路径
func (rd *RawDocument) Path() string {
	return rd.path
}

// Name 便于日志显示的名称
func (rd *RawDocument) Name() string {
	switch rd.kind {
	case InputURI:
		return rd.path
	case InputText:
		return "<string>"
	default:
		return "<stream>"
	}
}

// Open 以字节流打开输入，调用方负责 Close
func (rd *RawDocument) Open() (io.Reader, error) {
	switch rd.kind {
	case InputText:
		return strings.NewReader(rd.text), nil
	case InputStream:
		if rd.reader == nil {
			return nil, errs.BadInput("RawDocument.Open", "input stream is nil", nil)
		}
		return rd.reader, nil
	default:
		f, err := os.Open(rd.path)
		if err != nil {
			return nil, errs.IO("RawDocument.Open", err)
		}
		rd.opened = f
		return f, nil
	}
}

// Close 关闭由 Open 打开的文件或传入的可关闭流
func (rd *RawDocument) Close() error {
	var c io.Closer
	switch {
	case rd.opened != nil:
		c = rd.opened
		rd.opened = nil
	case rd.kind == InputStream:
		c, _ = rd.reader.(io.Closer)
	}
	if c == nil {
		return nil
	}
	return errs.IO("RawDocument.Close", c.Close())
}

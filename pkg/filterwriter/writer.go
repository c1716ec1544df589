// Package filterwriter 把事件流重新组合为文档，并提供 TMX 输出
package filterwriter

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Writer 消费事件并写出文档
type Writer interface {
	Name() string
	// SetOptions 设置输出语言与编码，编码为空时沿用原文编码
	SetOptions(locale resource.LocaleID, encoding string)
	SetOutputPath(path string)
	SetOutput(w io.Writer)
	HandleEvent(ev *event.Event) error
	Close() error
	// Abort 丢弃未完成的输出，已有的输出文件保持不变
	Abort()
	EncoderManager() *encoder.Manager
	SkeletonWriter() resource.SkeletonWriter
}

// GenericFilterWriter 基于骨架写出器的通用写出器
type GenericFilterWriter struct {
	skel     resource.SkeletonWriter
	encoders *encoder.Manager
	locale   resource.LocaleID
	encoding string
	logger   *zap.Logger

	path   string
	output io.Writer

	file     *os.File
	tempPath string
	created  bool // 输出文件由本次写出新建
	buf      *bufio.Writer
	encoded  io.WriteCloser
	out      io.Writer
	// docEncoding 当前文档实际使用的输出编码
	docEncoding string
}

// NewGenericFilterWriter 创建写出器，skel 为空时使用 GenericSkeletonWriter
func NewGenericFilterWriter(skel resource.SkeletonWriter, encoders *encoder.Manager) *GenericFilterWriter {
	if skel == nil {
		skel = NewGenericSkeletonWriter()
	}
	if encoders == nil {
		encoders = encoder.NewManager()
	}
	return &GenericFilterWriter{skel: skel, encoders: encoders, logger: zap.NewNop()}
}

// NewFromStartDocument 使用文档开始资源携带的骨架写出器与编码器
func NewFromStartDocument(sd *resource.StartDocument) *GenericFilterWriter {
	return NewGenericFilterWriter(sd.SkeletonWriter, sd.Encoders)
}

// SetLogger 设置日志
func (w *GenericFilterWriter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Name 写出器名称
func (w *GenericFilterWriter) Name() string {
	return "GenericFilterWriter"
}

// SetOptions 设置输出语言与编码
func (w *GenericFilterWriter) SetOptions(locale resource.LocaleID, encoding string) {
	w.locale = locale
	w.encoding = encoding
}

// SetOutputPath 输出到文件，会先关闭之前的输出
func (w *GenericFilterWriter) SetOutputPath(path string) {
	_ = w.Close()
	w.path = path
	w.output = nil
}

// SetOutput 输出到调用方提供的流，Close 不会关闭它
func (w *GenericFilterWriter) SetOutput(out io.Writer) {
	_ = w.Close()
	w.output = out
	w.path = ""
}

// EncoderManager 编码器集合
func (w *GenericFilterWriter) EncoderManager() *encoder.Manager {
	return w.encoders
}

// SkeletonWriter 骨架写出器
func (w *GenericFilterWriter) SkeletonWriter() resource.SkeletonWriter {
	return w.skel
}

// HandleEvent 处理一个事件，文档结束时自动关闭输出
func (w *GenericFilterWriter) HandleEvent(ev *event.Event) error {
	var (
		text string
		err  error
	)
	switch ev.Type {
	case event.StartDocument:
		sd := ev.StartDocument()
		if err := w.createWriter(sd); err != nil {
			return err
		}
		text, err = w.skel.ProcessStartDocument(w.locale, w.docEncoding, w.encoders, sd)
	case event.EndDocument:
		text, err = w.skel.ProcessEndDocument(ev.Ending())
		if err == nil {
			if err = w.write(text); err != nil {
				return err
			}
			return w.Close()
		}
	case event.StartSubDocument:
		text, err = w.skel.ProcessStartSubDocument(ev.StartSubDocument())
	case event.EndSubDocument:
		text, err = w.skel.ProcessEndSubDocument(ev.Ending())
	case event.StartGroup:
		text, err = w.skel.ProcessStartGroup(ev.StartGroup())
	case event.EndGroup:
		text, err = w.skel.ProcessEndGroup(ev.Ending())
	case event.TextUnit:
		text, err = w.skel.ProcessTextUnit(ev.TextUnit())
	case event.DocumentPart:
		text, err = w.skel.ProcessDocumentPart(ev.DocumentPart())
	case event.MultiEvent:
		for _, e := range ev.Multi().Events {
			if err := w.HandleEvent(e); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return w.write(text)
}

func (w *GenericFilterWriter) write(text string) error {
	if text == "" {
		return nil
	}
	if w.out == nil {
		return errs.IllegalState("GenericFilterWriter", "output is not open, START_DOCUMENT missing")
	}
	_, err := io.WriteString(w.out, text)
	return errs.IO("GenericFilterWriter.write", err)
}

// createWriter 打开输出并按需写入 BOM
func (w *GenericFilterWriter) createWriter(sd *resource.StartDocument) error {
	var sink io.Writer
	switch {
	case w.output != nil:
		sink = w.output
	case w.path != "":
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return errs.IO("GenericFilterWriter.createWriter", err)
		}
		if _, err := os.Stat(w.path); err == nil {
			// 输出文件已存在时先写临时文件，关闭时再替换，输入与输出可以是同一个文件
			tmp, err := os.CreateTemp(filepath.Dir(w.path), ".okapi-*")
			if err != nil {
				return errs.IO("GenericFilterWriter.createWriter", err)
			}
			w.file = tmp
			w.tempPath = tmp.Name()
		} else {
			f, err := os.Create(w.path)
			if err != nil {
				return errs.IO("GenericFilterWriter.createWriter", err)
			}
			w.file = f
			w.created = true
		}
		sink = w.file
	default:
		return errs.BadParameters("GenericFilterWriter", "no output path or stream set", nil)
	}

	original := sd.Encoding
	if original == "" {
		original = "UTF-8"
	}
	w.docEncoding = w.encoding
	if w.docEncoding == "" {
		w.docEncoding = original
	}

	w.buf = bufio.NewWriter(sink)
	w.out = w.buf
	if !isUTF8(w.docEncoding) {
		enc, err := LookupEncoding(w.docEncoding)
		if err != nil {
			return errs.BadParameters("GenericFilterWriter", "unsupported output encoding "+w.docEncoding, err)
		}
		w.encoded = transform.NewWriter(w.buf, encoding.ReplaceUnsupported(enc.NewEncoder()))
		w.out = w.encoded
	}

	// 只有原文带 BOM 且编码未变时才输出 BOM
	if sd.HasBOM && sameEncoding(original, w.docEncoding) {
		if _, err := io.WriteString(w.out, "\uFEFF"); err != nil {
			return errs.IO("GenericFilterWriter.createWriter", err)
		}
	}
	w.logger.Debug("打开输出", zap.String("path", w.path), zap.String("encoding", w.docEncoding))
	return nil
}

// Close 刷新并关闭输出，可重复调用
func (w *GenericFilterWriter) Close() error {
	if w.out == nil {
		return nil
	}
	if w.skel != nil {
		w.skel.Close()
	}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.encoded != nil {
		keep(w.encoded.Close())
		w.encoded = nil
	}
	keep(w.buf.Flush())
	w.buf = nil
	w.out = nil
	if w.file != nil {
		keep(w.file.Close())
		w.file = nil
		if w.tempPath != "" {
			if firstErr == nil {
				keep(os.Rename(w.tempPath, w.path))
			} else {
				_ = os.Remove(w.tempPath)
			}
			w.tempPath = ""
		}
	}
	w.created = false
	return errs.IO("GenericFilterWriter.Close", firstErr)
}

// Abort 不刷新缓冲直接关闭输出，删除临时文件或本次新建的残缺文件，可重复调用
func (w *GenericFilterWriter) Abort() {
	if w.out == nil && w.file == nil {
		return
	}
	if w.skel != nil {
		w.skel.Close()
	}
	w.encoded = nil
	w.buf = nil
	w.out = nil
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
		switch {
		case w.tempPath != "":
			_ = os.Remove(w.tempPath)
		case w.created:
			_ = os.Remove(w.path)
		}
	}
	w.tempPath = ""
	w.created = false
	w.logger.Debug("放弃输出", zap.String("path", w.path))
}

func isUTF8(name string) bool {
	n := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	return n == "" || n == "utf-8" || n == "utf8"
}

func sameEncoding(a, b string) bool {
	if isUTF8(a) && isUTF8(b) {
		return true
	}
	na, errA := htmlindex.Get(a)
	nb, errB := htmlindex.Get(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return na == nb
}

// LookupEncoding 按名称查找编码，UTF-16 按名称区分字节序
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-16", "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	}
	return htmlindex.Get(name)
}

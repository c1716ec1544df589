package filter

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Input 解码后的输入
type Input struct {
	Text     string
	Encoding string
	HasBOM   bool
	// LineBreak 输入中第一个换行符的形式，没有换行时为 "\n"
	LineBreak string
}

// candidate 没有 BOM 也不是合法 UTF-8 时依次尝试的编码
type candidate struct {
	name string
	enc  encoding.Encoding
}

var (
	multiByte = []candidate{
		{"GBK", simplifiedchinese.GBK},
		{"GB18030", simplifiedchinese.GB18030},
		{"Big5", traditionalchinese.Big5},
		{"Shift_JIS", japanese.ShiftJIS},
		{"EUC-JP", japanese.EUCJP},
		{"EUC-KR", korean.EUCKR},
	}
	western = candidate{"windows-1252", charmap.Windows1252}
)

// candidates 按输入特征排列候选编码
//
// 西文单字节编码中非 ASCII 字节大多孤立出现，东亚多字节编码中它们成对出现。
func candidates(data []byte) []candidate {
	high, isolated := 0, 0
	for i, b := range data {
		if b < 0x80 {
			continue
		}
		high++
		prev := i > 0 && data[i-1] >= 0x80
		next := i+1 < len(data) && data[i+1] >= 0x80
		if !prev && !next {
			isolated++
		}
	}
	out := make([]candidate, 0, len(multiByte)+1)
	if isolated*2 > high {
		out = append(out, western)
		return append(out, multiByte...)
	}
	out = append(out, multiByte...)
	return append(out, western)
}

// plausible 解码结果不含替换字符与 C1 控制字符
func plausible(text string) bool {
	for _, r := range text {
		if r == utf8.RuneError || (r >= 0x80 && r <= 0x9F) {
			return false
		}
	}
	return true
}

// DecodeInput 读取并解码原始文档
//
// 字符串输入直接使用；字节输入先检查 BOM，其次使用文档指定的编码，
// 最后检测 UTF-8 并依次尝试常见编码。
func DecodeInput(doc *resource.RawDocument) (*Input, error) {
	if doc == nil {
		return nil, errs.BadInput("DecodeInput", "raw document is nil", nil)
	}
	if text, ok := doc.Text(); ok {
		in := &Input{Text: text, Encoding: "UTF-8"}
		if strings.HasPrefix(text, "\uFEFF") {
			in.Text = strings.TrimPrefix(text, "\uFEFF")
			in.HasBOM = true
		}
		in.LineBreak = DetectLineBreak(in.Text)
		return in, nil
	}

	r, err := doc.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.IO("DecodeInput", err)
	}
	in, err := decodeBytes(data, doc.Encoding)
	if err != nil {
		return nil, err
	}
	in.LineBreak = DetectLineBreak(in.Text)
	return in, nil
}

func decodeBytes(data []byte, declared string) (*Input, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return &Input{Text: string(data[3:]), Encoding: "UTF-8", HasBOM: true}, nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		text, err := decodeWith(data[2:], xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM))
		if err != nil {
			return nil, err
		}
		return &Input{Text: text, Encoding: "UTF-16LE", HasBOM: true}, nil
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		text, err := decodeWith(data[2:], xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM))
		if err != nil {
			return nil, err
		}
		return &Input{Text: text, Encoding: "UTF-16BE", HasBOM: true}, nil
	}

	if declared != "" && !isUTF8Name(declared) {
		enc, err := filterwriter.LookupEncoding(declared)
		if err != nil {
			return nil, errs.BadParameters("DecodeInput", "unsupported encoding "+declared, err)
		}
		text, err := decodeWith(data, enc)
		if err != nil {
			return nil, err
		}
		return &Input{Text: text, Encoding: declared}, nil
	}

	if utf8.Valid(data) {
		return &Input{Text: string(data), Encoding: "UTF-8"}, nil
	}
	if declared != "" {
		return nil, errs.BadInput("DecodeInput", "input is not valid UTF-8", nil)
	}
	for _, c := range candidates(data) {
		text, err := decodeWith(data, c.enc)
		if err == nil && utf8.ValidString(text) && plausible(text) {
			return &Input{Text: text, Encoding: c.name}, nil
		}
	}
	return nil, errs.BadInput("DecodeInput", "cannot detect input encoding", nil)
}

func decodeWith(data []byte, enc encoding.Encoding) (string, error) {
	res, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", errs.BadInput("DecodeInput", "cannot decode input", err)
	}
	return string(res), nil
}

func isUTF8Name(name string) bool {
	n := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	return n == "utf-8" || n == "utf8"
}

// DetectLineBreak 返回文本中第一个换行符
func DetectLineBreak(text string) string {
	i := strings.IndexAny(text, "\r\n")
	if i < 0 {
		return "\n"
	}
	if text[i] == '\r' {
		if i+1 < len(text) && text[i+1] == '\n' {
			return "\r\n"
		}
		return "\r"
	}
	return "\n"
}

package filter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

func stream(data []byte, enc string) *resource.RawDocument {
	return resource.NewRawDocumentFromReader(bytes.NewReader(data), enc, "en", "fr")
}

func TestDecodeInput(t *testing.T) {
	utf16le, err := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewEncoder().Bytes([]byte("hi\r\nthere"))
	require.NoError(t, err)
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("你好"))
	require.NoError(t, err)
	latin, err := charmap.Windows1252.NewEncoder().Bytes([]byte("Ångström café naïve"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		doc      *resource.RawDocument
		text     string
		encoding string
		bom      bool
		lb       string
	}{
		{"string", resource.NewRawDocumentFromString("a\nb", "en", "fr"), "a\nb", "UTF-8", false, "\n"},
		{"string with bom", resource.NewRawDocumentFromString("\uFEFFa", "en", "fr"), "a", "UTF-8", true, "\n"},
		{"utf-8 bytes", stream([]byte("x\ry"), ""), "x\ry", "UTF-8", false, "\r"},
		{"utf-8 bom bytes", stream([]byte{0xEF, 0xBB, 0xBF, 'o', 'k'}, ""), "ok", "UTF-8", true, "\n"},
		{"utf-16le bom", stream(append([]byte{0xFF, 0xFE}, utf16le...), "windows-1252"), "hi\r\nthere", "UTF-16LE", true, "\r\n"},
		{"declared gbk", stream(gbk, "gbk"), "你好", "gbk", false, "\n"},
		{"detected gbk", stream(gbk, ""), "你好", "GBK", false, "\n"},
		{"detected windows-1252", stream([]byte("r\xe9sum\xe9"), ""), "résumé", "windows-1252", false, "\n"},
		{"detected windows-1252 words", stream(latin, ""), "Ångström café naïve", "windows-1252", false, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeInput(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.text, in.Text)
			assert.Equal(t, tt.encoding, in.Encoding)
			assert.Equal(t, tt.bom, in.HasBOM)
			assert.Equal(t, tt.lb, in.LineBreak)
		})
	}
}

func TestDecodeInputErrors(t *testing.T) {
	_, err := DecodeInput(nil)
	assert.True(t, errors.Is(err, errs.ErrBadInput))

	_, err = DecodeInput(stream([]byte("x"), "no-such-charset"))
	assert.True(t, errors.Is(err, errs.ErrBadParameters))

	_, err = DecodeInput(stream([]byte{0xC3, 0x28}, "UTF-8"))
	assert.True(t, errors.Is(err, errs.ErrBadInput))

	_, err = DecodeInput(resource.NewRawDocumentFromReader(nil, "", "en", "fr"))
	assert.True(t, errors.Is(err, errs.ErrBadInput))
}

func TestDetectLineBreak(t *testing.T) {
	assert.Equal(t, "\n", DetectLineBreak("no breaks"))
	assert.Equal(t, "\r\n", DetectLineBreak("a\r\nb\n"))
	assert.Equal(t, "\n", DetectLineBreak("a\nb\r\n"))
	assert.Equal(t, "\r", DetectLineBreak("a\r"))
}

package plaintext

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filtertest"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

var (
	en = resource.NewLocaleID("en")
	fr = resource.NewLocaleID("fr")
)

const fourLines = "Line 1\r\nLine 2\r\nLine 3\r\nLine 4\r\n"

func textUnits(events []*event.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == event.TextUnit {
			out = append(out, ev.TextUnit().Source().Text())
		}
	}
	return out
}

func types(events []*event.Event) []event.Type {
	out := make([]event.Type, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestFourLinesCRLF(t *testing.T) {
	f := New()
	events, err := filtertest.Extract(f, resource.NewRawDocumentFromString(fourLines, en, fr))
	require.NoError(t, err)
	require.NoError(t, filtertest.ValidateEvents(events))

	assert.Equal(t, []event.Type{
		event.StartDocument,
		event.TextUnit, event.TextUnit, event.TextUnit, event.TextUnit,
		event.EndDocument,
	}, types(events))
	assert.Equal(t, []string{"Line 1", "Line 2", "Line 3", "Line 4"}, textUnits(events))

	sd := events[0].StartDocument()
	assert.Equal(t, "\r\n", sd.LineBreak)
	assert.Equal(t, en, sd.Locale)
	assert.Equal(t, FilterName, sd.FilterID)
	assert.NotNil(t, sd.SkeletonWriter)
}

func TestCancel(t *testing.T) {
	f := New()
	require.NoError(t, f.Open(resource.NewRawDocumentFromString(fourLines, en, fr), true))
	defer f.Close()

	for _, want := range []event.Type{event.StartDocument, event.TextUnit, event.TextUnit} {
		require.True(t, f.HasNext())
		ev, err := f.Next()
		require.NoError(t, err)
		assert.Equal(t, want, ev.Type)
	}

	f.Cancel()
	require.True(t, f.HasNext())
	ev, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, event.Canceled, ev.Type)
	assert.False(t, f.HasNext())

	_, err = f.Next()
	assert.True(t, errors.Is(err, errs.ErrIllegalState))
}

func TestCancelFromOtherGoroutine(t *testing.T) {
	f := New()
	require.NoError(t, f.Open(resource.NewRawDocumentFromString(fourLines, en, fr), true))
	defer f.Close()

	done := make(chan struct{})
	go func() {
		f.Cancel()
		close(done)
	}()
	<-done

	var last *event.Event
	for f.HasNext() {
		ev, err := f.Next()
		require.NoError(t, err)
		last = ev
	}
	require.NotNil(t, last)
	assert.Equal(t, event.Canceled, last.Type)
}

func TestReopenResetsState(t *testing.T) {
	f := New()
	first, err := filtertest.Extract(f, resource.NewRawDocumentFromString("a\nb\n", en, fr))
	require.NoError(t, err)
	second, err := filtertest.Extract(f, resource.NewRawDocumentFromString("c\n", en, fr))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, textUnits(first))
	assert.Equal(t, []string{"c"}, textUnits(second))
	assert.Equal(t, "tu1", second[1].TextUnit().ID())
}

func TestBlankLinesAndWhitespace(t *testing.T) {
	f := New()
	input := "  Hello  \n\n\t\nWorld"
	events, err := filtertest.Extract(f, resource.NewRawDocumentFromString(input, en, fr))
	require.NoError(t, err)
	require.NoError(t, filtertest.ValidateEvents(events))

	assert.Equal(t, []event.Type{
		event.StartDocument, event.TextUnit, event.DocumentPart, event.TextUnit, event.EndDocument,
	}, types(events))
	assert.Equal(t, []string{"Hello", "World"}, textUnits(events))
	assert.Equal(t, "\n\t\n", events[2].DocumentPart().Skeleton().String())
}

func TestParagraphMode(t *testing.T) {
	f := New()
	p := NewParameters()
	require.NoError(t, p.FromString("paragraphMode=true"))
	require.NoError(t, f.SetParameters(p))

	input := "First line\nsecond line\n\nNext para\n"
	events, err := filtertest.Extract(f, resource.NewRawDocumentFromString(input, en, fr))
	require.NoError(t, err)
	require.NoError(t, filtertest.ValidateEvents(events))

	assert.Equal(t, []string{"First linesecond line", "Next para"}, textUnits(events))
	tf := events[1].TextUnit().Source().FirstContent()
	require.Len(t, tf.Codes(), 1)
	assert.Equal(t, resource.CodeTypeLineBreak, tf.Codes()[0].Type)
	assert.Equal(t, "First line\nsecond line", tf.String())
}

func TestRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"crlf":       fourLines,
		"no newline": "just one line",
		"blank":      "\n\n  \n",
		"mixed":      "  a\r\n\r\nb  \rc\n",
		"empty":      "",
	}
	for _, mode := range []bool{false, true} {
		for name, input := range inputs {
			t.Run(name, func(t *testing.T) {
				f := New()
				f.params.ParagraphMode = mode
				out, err := filtertest.RoundTrip(f, resource.NewRawDocumentFromString(input, en, fr))
				require.NoError(t, err)
				assert.NoError(t, filtertest.Compare([]byte(input), out))
			})
		}
	}
}

func TestTranslatedMerge(t *testing.T) {
	f := New()
	events, err := filtertest.Extract(f, resource.NewRawDocumentFromString("  Hello\nBye\n", en, fr))
	require.NoError(t, err)
	events[1].TextUnit().SetTarget(fr, resource.NewTextContainer("Bonjour"))

	out, err := filtertest.Merge(events, fr, "")
	require.NoError(t, err)
	assert.Equal(t, "  Bonjour\nBye\n", string(out))
}

func TestFileInputEncodings(t *testing.T) {
	dir := t.TempDir()

	t.Run("utf-8 bom", func(t *testing.T) {
		path := filepath.Join(dir, "bom.txt")
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Héllo\n")...)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		f := New()
		out, err := filtertest.RoundTrip(f, resource.NewRawDocumentFromPath(path, "", en, fr))
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("declared windows-1252", func(t *testing.T) {
		path := filepath.Join(dir, "latin.txt")
		data, err := charmap.Windows1252.NewEncoder().Bytes([]byte("café\n"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		f := New()
		events, err := filtertest.Extract(f, resource.NewRawDocumentFromPath(path, "windows-1252", en, fr))
		require.NoError(t, err)
		assert.Equal(t, []string{"café"}, textUnits(events))

		filtertest.CopySourceToTarget(events, fr)
		out, err := filtertest.Merge(events, fr, "")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, out))
	})

	t.Run("missing file", func(t *testing.T) {
		f := New()
		err := f.Open(resource.NewRawDocumentFromPath(filepath.Join(dir, "none.txt"), "", en, fr), true)
		assert.True(t, errors.Is(err, errs.ErrIO))
		assert.False(t, f.HasNext())
	})
}

func TestParametersRoundTrip(t *testing.T) {
	p := NewParameters()
	p.ParagraphMode = true
	p.TrimLeading = false

	q := NewParameters()
	require.NoError(t, q.FromString(p.String()))
	assert.Equal(t, p, q)

	q.Reset()
	assert.Equal(t, NewParameters(), q)
	assert.Error(t, New().SetParameters(nil))
}

func TestConfigurations(t *testing.T) {
	f := New()
	configs := f.Configurations()
	require.Len(t, configs, 2)
	require.NoError(t, configs[1].Apply(f))
	assert.True(t, f.params.ParagraphMode)
	require.NoError(t, configs[0].Apply(f))
	assert.False(t, f.params.ParagraphMode)
}

package resource

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocaleID(t *testing.T) {
	tests := []struct {
		in   string
		want LocaleID
		lang string
	}{
		{"en_US", "en-us", "en"},
		{"fr-CA", "fr-ca", "fr"},
		{"DE", "de", "de"},
		{"", LocaleEmpty, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc := NewLocaleID(tt.in)
			assert.Equal(t, tt.want, loc)
			assert.Equal(t, tt.lang, loc.Language())
		})
	}
	assert.True(t, NewLocaleID("en-GB").SameLanguageAs(NewLocaleID("en-us")))
}

func TestSkeleton(t *testing.T) {
	skel := NewSkeleton("<p>")
	skel.Append(" ")
	skel.AddContentPlaceholder(LocaleEmpty)
	skel.Add("</p>")
	skel.AddReference("tu3", "")
	skel.AddValuePlaceholder("lang", LocaleEmpty)

	parts := skel.Parts()
	require.Len(t, parts, 5)
	assert.Equal(t, "<p> ", parts[0].Data)
	assert.Equal(t, PartContent, parts[1].Kind)
	assert.Equal(t, "<p> [#$$self$]</p>[#$tu3][#$$self$@%lang]", skel.String())
	assert.False(t, skel.IsEmpty(true))
	assert.True(t, NewSkeleton("  \n").IsEmpty(true))
	assert.False(t, NewSkeleton("  \n").IsEmpty(false))

	cp := skel.Clone()
	cp.Parts()[0].Data = "<div>"
	assert.Equal(t, "<p> ", skel.Parts()[0].Data)
}

func TestTextUnitTargets(t *testing.T) {
	tu := NewTextUnit("tu1", "Hello")
	fr := NewLocaleID("fr")
	assert.True(t, tu.IsTranslatable())
	assert.False(t, tu.HasTarget(fr))

	tc := tu.CreateTarget(fr, false)
	tc.SetContent(NewTextFragment("Bonjour"))
	assert.Same(t, tc, tu.CreateTarget(fr, false))
	assert.Equal(t, "Hello", tu.Source().Text())
	assert.Equal(t, []LocaleID{fr}, tu.TargetLocales())

	cp := tu.Clone()
	cp.Target(fr).SetContent(NewTextFragment("Salut"))
	assert.Equal(t, "Bonjour", tu.Target(fr).Text())

	tu.RemoveTarget(fr)
	assert.Nil(t, tu.Target(fr))
}

func TestArena(t *testing.T) {
	a := NewArena()
	a.Put(NewTextUnit("b", "x"))
	a.Put(NewDocumentPart("a", nil))
	a.Put(NewTextUnit("b", "y"))
	assert.Equal(t, []string{"b", "a"}, a.IDs())

	res, ok := a.Get("b")
	require.True(t, ok)
	assert.Equal(t, "y", res.(*TextUnit).Source().Text())

	a.Remove("b")
	assert.Equal(t, 1, a.Len())
	_, ok = a.Get("b")
	assert.False(t, ok)
}

func TestRawDocument(t *testing.T) {
	en, fr := NewLocaleID("en"), NewLocaleID("fr")

	t.Run("string input", func(t *testing.T) {
		rd := NewRawDocumentFromString("abc", en, fr)
		text, ok := rd.Text()
		assert.True(t, ok)
		assert.Equal(t, "abc", text)
		assert.NotEmpty(t, rd.ID())
		assert.NotEqual(t, rd.ID(), NewRawDocumentFromString("abc", en, fr).ID())
	})

	t.Run("file uri input", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("file content"), 0o644))

		rd := NewRawDocumentFromPath("file://"+path, "UTF-8", en, fr)
		assert.Equal(t, path, rd.Path())
		r, err := rd.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "file content", string(data))
		assert.NoError(t, rd.Close())
	})

	t.Run("missing file", func(t *testing.T) {
		rd := NewRawDocumentFromPath(filepath.Join(t.TempDir(), "none.txt"), "", en, fr)
		_, err := rd.Open()
		assert.Error(t, err)
	})

	t.Run("stream input", func(t *testing.T) {
		rd := NewRawDocumentFromReader(strings.NewReader("xyz"), "UTF-8", en, fr)
		r, err := rd.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(r)
		assert.Equal(t, "xyz", string(data))
		assert.NoError(t, rd.Close())
	})
}

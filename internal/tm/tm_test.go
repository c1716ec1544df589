package tm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
)

var (
	en = resource.NewLocaleID("en")
	fr = resource.NewLocaleID("fr")
	de = resource.NewLocaleID("de")
)

func openMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := OpenMemory(WithLogger(zaptest.NewLogger(t)), WithName("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func add(t *testing.T, m *Memory, src, trg string, trgLoc resource.LocaleID) {
	t.Helper()
	require.NoError(t, m.Add(context.Background(), Entry{
		SourceLocale: en,
		TargetLocale: trgLoc,
		Source:       resource.NewTextFragment(src),
		Target:       resource.NewTextFragment(trg),
	}))
}

func bold(text string) *resource.TextFragment {
	tf := resource.NewTextFragment("Click ")
	tf.AppendCode(resource.TagOpening, resource.CodeTypeBold, "<b>")
	tf.Append(text)
	tf.AppendCode(resource.TagClosing, resource.CodeTypeBold, "</b>")
	return tf
}

func TestAddAndCount(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t)
	add(t, m, "Hello", "Bonjour", fr)
	add(t, m, "World", "Monde", fr)
	add(t, m, "Hello", "Hallo", de)

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// 相同源文与语言对覆盖旧译文
	add(t, m, "Hello", "Salut", fr)
	n, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := m.Exact(ctx, resource.NewTextFragment("Hello"), en, fr)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Salut", matches[0].Target.String())
	assert.NotEmpty(t, matches[0].ID)
	assert.False(t, matches[0].Created.IsZero())
}

func TestAddErrors(t *testing.T) {
	m := openMemory(t)
	err := m.Add(context.Background(), Entry{SourceLocale: en, TargetLocale: fr, Source: resource.NewTextFragment("x")})
	assert.True(t, errors.Is(err, errs.ErrBadInput))

	err = m.Add(context.Background(), Entry{
		SourceLocale: en,
		Source:       resource.NewTextFragment("x"),
		Target:       resource.NewTextFragment("y"),
	})
	assert.True(t, errors.Is(err, errs.ErrBadInput))
}

func TestExactKeepsCodes(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t)
	trg := resource.NewTextFragment("Cliquez ")
	trg.AppendCode(resource.TagOpening, resource.CodeTypeBold, "<b>")
	trg.Append("ici")
	trg.AppendCode(resource.TagClosing, resource.CodeTypeBold, "</b>")
	require.NoError(t, m.Add(ctx, Entry{SourceLocale: en, TargetLocale: fr, Source: bold("here"), Target: trg}))

	matches, err := m.Exact(ctx, bold("here"), en, fr)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, resource.MatchExact, matches[0].Type)
	assert.Equal(t, "Cliquez <b>ici</b>", matches[0].Target.String())
	assert.True(t, matches[0].Target.Equals(trg, true))

	// 编码文本相同，代码数据不同
	other := resource.NewTextFragment("Click ")
	other.AppendCode(resource.TagOpening, resource.CodeTypeBold, "<strong>")
	other.Append("here")
	other.AppendCode(resource.TagClosing, resource.CodeTypeBold, "</strong>")
	matches, err = m.Exact(ctx, other, en, fr)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 99, matches[0].Score)
}

func TestFuzzy(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t)
	add(t, m, "Hello", "Bonjour", fr)
	add(t, m, "Hello!", "Bonjour !", fr)
	add(t, m, "Goodbye", "Au revoir", fr)
	add(t, m, "Hello!", "Hallo!", de)

	matches, err := m.Fuzzy(ctx, resource.NewTextFragment("Hello!"), en, fr, 80, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Bonjour !", matches[0].Target.String())
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, resource.MatchExact, matches[0].Type)
	assert.Equal(t, "Bonjour", matches[1].Target.String())
	assert.Equal(t, 83, matches[1].Score)
	assert.Equal(t, resource.MatchFuzzy, matches[1].Type)

	matches, err = m.Fuzzy(ctx, resource.NewTextFragment("Hello!"), en, fr, 80, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = m.Fuzzy(ctx, resource.NewTextFragment("Hello!"), en, fr, 90, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = m.Fuzzy(ctx, resource.NewTextFragment("Hello"), en, fr, 120, 0)
	assert.True(t, errors.Is(err, errs.ErrBadParameters))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t)
	add(t, m, "Hello", "Bonjour", fr)

	got, err := m.Lookup(ctx, leverage.Query{Source: resource.NewTextFragment("Hello"), SourceLocale: en, TargetLocale: fr, Threshold: 80})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, resource.MatchExact, got[0].Type)
	assert.Equal(t, "test", got[0].Origin)

	got, err = m.Lookup(ctx, leverage.Query{Source: resource.NewTextFragment("Hello!"), SourceLocale: en, TargetLocale: fr, Threshold: 80})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, resource.MatchFuzzy, got[0].Type)
	assert.Equal(t, 83, got[0].Score)

	got, err = m.Lookup(ctx, leverage.Query{Source: resource.NewTextFragment("Hello!"), SourceLocale: en, TargetLocale: fr, Threshold: 100})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, m.Store(ctx, resource.NewTextFragment("Yes"), resource.NewTextFragment("Oui"), en, fr, "import"))
	got, err = m.Lookup(ctx, leverage.Query{Source: resource.NewTextFragment("Yes"), SourceLocale: en, TargetLocale: fr, Threshold: 100})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "import", got[0].Origin)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tm.db")

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Name())
	add(t, m, "Persisted", "Persistant", fr)
	require.NoError(t, m.Close())

	m, err = Open(path)
	require.NoError(t, err)
	defer m.Close()
	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Open("")
	assert.True(t, errors.Is(err, errs.ErrBadParameters))
}

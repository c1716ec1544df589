package formatconversion

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filters/plaintext"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/common"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/segmentation"
)

var (
	en = resource.NewLocaleID("en")
	fr = resource.NewLocaleID("fr")
)

func writeInput(t *testing.T, dir, name, content string) *resource.RawDocument {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return resource.NewRawDocumentFromPath(path, "UTF-8", en, fr)
}

func TestExtractToTMX(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tmx")
	conv := NewStep()

	d := pipeline.NewDriver(nil, zaptest.NewLogger(t))
	require.NoError(t, d.AddStep(common.NewRawDocumentToFilterEventsStepWithFilter(plaintext.New())))
	require.NoError(t, d.AddStep(segmentation.NewStep()))
	require.NoError(t, d.AddStep(conv))
	d.AddInput(writeInput(t, dir, "input.txt", "Hello world. Second sentence.\nOther line\n"), out, "")
	require.NoError(t, d.ProcessBatch(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tmx := string(data)
	assert.True(t, strings.HasPrefix(tmx, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, tmx, `srclang="en"`)
	assert.Contains(t, tmx, `o-tmf="okf_plaintext"`)
	assert.Contains(t, tmx, `<tu tuid="tu1_s01">`)
	assert.Contains(t, tmx, `<prop type="filename">input.txt</prop>`)
	assert.Contains(t, tmx, `<tuv xml:lang="en"><seg>Hello world.</seg></tuv>`)
	assert.Contains(t, tmx, `<tu tuid="tu1_s02">`)
	assert.Contains(t, tmx, `<seg>Second sentence.</seg>`)
	assert.Contains(t, tmx, `<seg>Other line</seg>`)
	assert.NotContains(t, tmx, `xml:lang="fr"`)
	assert.True(t, strings.HasSuffix(tmx, "</tmx>\n"))
	assert.Equal(t, 3, conv.ItemCount())
}

func feed(t *testing.T, s *Step, events ...*event.Event) {
	t.Helper()
	for _, ev := range events {
		out, err := event.Collect(s.HandleEvent(ev))
		require.NoError(t, err)
		assert.Equal(t, []*event.Event{ev}, out)
	}
}

func startDoc() *event.Event {
	sd := resource.NewStartDocument("sd1")
	sd.Locale = en
	return event.NewStartDocument(sd)
}

func TestTranslatedUnits(t *testing.T) {
	var buf bytes.Buffer
	s := NewStep()
	p := NewParameters()
	p.TargetsOnly = true
	require.NoError(t, s.SetParameters(p))
	s.SetOutput(&buf)
	s.SetLocales(resource.LocaleEmpty, fr)

	greeting := resource.NewTextUnit("tu1", `Say "hi" & <go>`)
	greeting.SetName("greeting")
	greeting.SetTarget(fr, resource.NewTextContainer("Dites « salut »"))
	untranslated := resource.NewTextUnit("tu2", "Untranslated")
	hidden := resource.NewTextUnit("tu3", "Hidden")
	hidden.SetTranslatable(false)
	hidden.SetTarget(fr, resource.NewTextContainer("Caché"))

	feed(t, s,
		startDoc(),
		event.NewTextUnit(greeting),
		event.NewTextUnit(untranslated),
		event.NewTextUnit(hidden),
		event.NewEndDocument(resource.NewEnding("ed1")),
	)

	tmx := buf.String()
	assert.Contains(t, tmx, `<tu tuid="greeting">`)
	assert.Contains(t, tmx, `<seg>Say &quot;hi&quot; &amp; &lt;go></seg>`)
	assert.Contains(t, tmx, `<tuv xml:lang="fr"><seg>Dites « salut »</seg></tuv>`)
	assert.NotContains(t, tmx, "Untranslated")
	assert.NotContains(t, tmx, "Hidden")
	assert.Equal(t, 1, s.ItemCount())
}

func TestSegmentedSourceWithWholeTarget(t *testing.T) {
	var buf bytes.Buffer
	s := NewStep()
	s.SetOutput(&buf)
	s.SetLocales(resource.LocaleEmpty, fr)

	tu := resource.NewTextUnit("tu1", "One. Two.")
	tu.Source().CreateSegments([]resource.Range{{Start: 0, End: 4}, {Start: 5, End: 9}})
	tu.SetTarget(fr, resource.NewTextContainer("Un. Deux."))

	feed(t, s, startDoc(), event.NewTextUnit(tu), event.NewEndDocument(resource.NewEnding("ed1")))
	assert.Contains(t, buf.String(), `<tu tuid="tu1">`)
	assert.Contains(t, buf.String(), `<seg>One. Two.</seg>`)
	assert.Contains(t, buf.String(), `<seg>Un. Deux.</seg>`)
}

func TestSingleOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "all.tmx")
	s := NewStep()
	p := NewParameters()
	p.SingleOutput = true
	p.OutputPath = out
	require.NoError(t, s.SetParameters(p))

	d := pipeline.NewDriver(nil, zaptest.NewLogger(t))
	require.NoError(t, d.AddStep(common.NewRawDocumentToFilterEventsStepWithFilter(plaintext.New())))
	require.NoError(t, d.AddStep(s))
	d.AddInput(writeInput(t, dir, "a.txt", "First file\n"), "", "")
	d.AddInput(writeInput(t, dir, "b.txt", "Second file\n"), "", "")
	require.NoError(t, d.ProcessBatch(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tmx := string(data)
	assert.Equal(t, 1, strings.Count(tmx, "<tmx "))
	assert.Contains(t, tmx, "<seg>First file</seg>")
	assert.Contains(t, tmx, "<seg>Second file</seg>")
	assert.Contains(t, tmx, `<prop type="filename">b.txt</prop>`)
	assert.Equal(t, 2, s.ItemCount())
}

func TestExclusionPattern(t *testing.T) {
	var buf bytes.Buffer
	s := NewStep()
	p := NewParameters()
	p.ExclusionPattern = `\d+`
	require.NoError(t, s.SetParameters(p))
	s.SetOutput(&buf)
	s.SetLocales(resource.LocaleEmpty, fr)

	feed(t, s,
		startDoc(),
		event.NewTextUnit(resource.NewTextUnit("tu1", "12345")),
		event.NewTextUnit(resource.NewTextUnit("tu2", "Page 12")),
		event.NewEndDocument(resource.NewEnding("ed1")),
	)
	assert.NotContains(t, buf.String(), "12345")
	assert.Contains(t, buf.String(), "Page 12")
}

func TestErrors(t *testing.T) {
	t.Run("text unit before start document", func(t *testing.T) {
		_, err := event.Collect(NewStep().HandleEvent(event.NewTextUnit(resource.NewTextUnit("tu1", "x"))))
		assert.True(t, errors.Is(err, errs.ErrStepInputMismatch))
	})

	t.Run("no output", func(t *testing.T) {
		s := NewStep()
		s.SetLocales(en, fr)
		_, err := event.Collect(s.HandleEvent(startDoc()))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("missing target locale", func(t *testing.T) {
		s := NewStep()
		s.SetOutput(&bytes.Buffer{})
		_, err := event.Collect(s.HandleEvent(startDoc()))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("bad exclusion pattern", func(t *testing.T) {
		s := NewStep()
		p := NewParameters()
		p.ExclusionPattern = "("
		require.NoError(t, s.SetParameters(p))
		s.SetOutput(&bytes.Buffer{})
		s.SetLocales(en, fr)
		_, err := event.Collect(s.HandleEvent(startDoc()))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("parameters", func(t *testing.T) {
		p := NewParameters()
		assert.True(t, errors.Is(p.FromString("quoteMode = 7"), errs.ErrBadParameters))
		assert.True(t, errors.Is(p.FromString("singleOutput = true"), errs.ErrBadParameters))
		assert.Error(t, NewStep().SetParameters(&Parameters{SingleOutput: true}))
	})
}

func TestCanceledClosesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "partial.tmx")
	s := NewStep()
	s.SetBatchItemContext(&pipeline.BatchItemContext{OutputPath: out, SourceLocale: en, TargetLocale: fr})

	feed(t, s, startDoc(), event.NewTextUnit(resource.NewTextUnit("tu1", "Hello")), event.NewCanceled())
	assert.Equal(t, 1, s.ItemCount())
	_, err := os.Stat(out)
	assert.NoError(t, err)
	s.Destroy()
}

func TestParametersRoundTrip(t *testing.T) {
	p := NewParameters()
	p.SingleOutput = true
	p.OutputPath = "/tmp/out.tmx"
	p.QuoteMode = 2
	p.EscapeGT = true
	p.ExclusionPattern = `\d+`
	p.TargetsOnly = true

	other := NewParameters()
	require.NoError(t, other.FromString(p.String()))
	assert.Equal(t, p, other)
}

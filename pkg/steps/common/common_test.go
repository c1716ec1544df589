package common

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
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/filters/plaintext"
	"github.com/nerdneilsfield/go-okapi/pkg/pipeline"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

var (
	en = resource.NewLocaleID("en")
	fr = resource.NewLocaleID("fr")
)

const fourLines = "Line 1\r\nLine 2\r\nLine 3\r\nLine 4\r\n"

// upper 把源文转为大写作为译文
type upper struct {
	pipeline.BasicStep
	only string
}

func (u *upper) HandleEvent(ev *event.Event) event.Seq {
	if ev.Type == event.TextUnit {
		tu := ev.TextUnit()
		if u.only == "" || tu.Source().Text() == u.only {
			tu.SetTarget(fr, resource.NewTextContainer(strings.ToUpper(tu.Source().Text())))
		}
	}
	return event.Of(ev)
}

// watcher 在第 n 个文本单元处取消管道
type watcher struct {
	pipeline.BasicStep
	p     *pipeline.Pipeline
	n     int
	seen  int
	types []event.Type
}

func (w *watcher) HandleEvent(ev *event.Event) event.Seq {
	w.types = append(w.types, ev.Type)
	if ev.Type == event.TextUnit {
		w.seen++
		if w.seen == w.n {
			w.p.Cancel()
		}
	}
	return event.Of(ev)
}

func plaintextFactory() FilterFactory {
	return FilterFactoryFunc(func(id string) (filter.Filter, error) {
		if id != "okf_plaintext" {
			return nil, errs.BadParameters("factory", "unknown configuration "+id, nil)
		}
		return plaintext.New(), nil
	})
}

func newPlainDoc(text string) *resource.RawDocument {
	doc := resource.NewRawDocumentFromString(text, en, fr)
	doc.FilterConfigID = "okf_plaintext"
	return doc
}

func TestExtractAndWriteBack(t *testing.T) {
	var out bytes.Buffer
	writer := NewFilterEventsWriterStep()
	writer.SetOutput(&out)

	p := pipeline.New(pipeline.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
	require.NoError(t, p.AddStep(writer))

	require.NoError(t, p.Process(context.Background(), newPlainDoc(fourLines)))
	assert.Equal(t, fourLines, out.String())
}

func TestWriteTranslation(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	d := pipeline.NewDriver(nil, zaptest.NewLogger(t))
	require.NoError(t, d.AddStep(NewRawDocumentToFilterEventsStepWithFilter(plaintext.New())))
	require.NoError(t, d.AddStep(&upper{BasicStep: pipeline.NewBasicStep("upper", "")}))
	require.NoError(t, d.AddStep(NewFilterEventsWriterStep()))
	d.AddInput(resource.NewRawDocumentFromString("hello\nworld\n", en, fr), out, "")

	require.NoError(t, d.ProcessBatch(context.Background()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "HELLO\nWORLD\n", string(data))
}

func TestWriterFallback(t *testing.T) {
	cases := map[string]string{
		"source": "HELLO\nworld\n",
		"empty":  "HELLO\n\n",
		"skip":   "HELLO\n",
	}
	for policy, want := range cases {
		t.Run(policy, func(t *testing.T) {
			var out bytes.Buffer
			writer := NewFilterEventsWriterStep()
			wp := NewWriterParameters()
			require.NoError(t, wp.FromString("fallback = "+policy))
			require.NoError(t, writer.SetParameters(wp))
			writer.SetOutput(&out)
			writer.SetTargetLocale(fr)

			p := pipeline.New()
			require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStepWithFilter(plaintext.New())))
			require.NoError(t, p.AddStep(&upper{BasicStep: pipeline.NewBasicStep("upper", ""), only: "hello"}))
			require.NoError(t, p.AddStep(writer))
			require.NoError(t, p.Process(context.Background(), newPlainDoc("hello\nworld\n")))
			assert.Equal(t, want, out.String())
		})
	}
}

func TestCancelWithRealFilter(t *testing.T) {
	p := pipeline.New(pipeline.WithLogger(zaptest.NewLogger(t)))
	w := &watcher{BasicStep: pipeline.NewBasicStep("watcher", ""), p: p, n: 2}
	require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
	require.NoError(t, p.AddStep(w))

	err := p.Process(context.Background(), newPlainDoc(fourLines))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCanceled))
	assert.Equal(t, pipeline.StateCancelled, p.State())

	assert.Equal(t, []event.Type{
		event.StartBatch, event.StartBatchItem,
		event.StartDocument, event.TextUnit, event.TextUnit,
		event.Canceled,
	}, w.types)
}

func TestExtractionErrors(t *testing.T) {
	t.Run("no factory", func(t *testing.T) {
		p := pipeline.New()
		require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(nil)))
		err := p.Process(context.Background(), newPlainDoc("x"))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("no configuration", func(t *testing.T) {
		p := pipeline.New()
		require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
		err := p.Process(context.Background(), resource.NewRawDocumentFromString("x", en, fr))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("unknown configuration", func(t *testing.T) {
		doc := newPlainDoc("x")
		doc.FilterConfigID = "okf_nothing"
		p := pipeline.New()
		require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
		err := p.Process(context.Background(), doc)
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
		assert.Contains(t, err.Error(), "okf_nothing")
	})
}

func TestWriterErrors(t *testing.T) {
	t.Run("no output", func(t *testing.T) {
		p := pipeline.New()
		require.NoError(t, p.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
		require.NoError(t, p.AddStep(NewFilterEventsWriterStep()))
		err := p.Process(context.Background(), newPlainDoc("x"))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})

	t.Run("no start document", func(t *testing.T) {
		w := NewFilterEventsWriterStep()
		_, err := event.Collect(w.HandleEvent(event.NewTextUnit(resource.NewTextUnit("tu1", "x"))))
		assert.True(t, errors.Is(err, errs.ErrStepInputMismatch))
	})

	t.Run("bad fallback", func(t *testing.T) {
		wp := NewWriterParameters()
		assert.Error(t, wp.FromString("fallback = maybe"))
		wp.Fallback = "maybe"
		assert.Error(t, NewFilterEventsWriterStep().SetParameters(wp))
	})

	t.Run("parameters round trip", func(t *testing.T) {
		wp := NewWriterParameters()
		wp.Fallback = "skip"
		other := NewWriterParameters()
		require.NoError(t, other.FromString(wp.String()))
		assert.Equal(t, "skip", other.Fallback)
	})
}

// failing 在第 n 个文本单元处返回错误
type failing struct {
	pipeline.BasicStep
	n    int
	seen int
}

func (f *failing) HandleEvent(ev *event.Event) event.Seq {
	if ev.Type == event.TextUnit {
		f.seen++
		if f.seen == f.n {
			return event.Fail(errors.New("translation backend unavailable"))
		}
	}
	return event.Of(ev)
}

func TestInterruptedRunKeepsPreviousOutput(t *testing.T) {
	const previous = "PREVIOUS GOOD OUTPUT\n"

	interrupt := map[string]func(d *pipeline.Driver) pipeline.Step{
		"canceled": func(d *pipeline.Driver) pipeline.Step {
			return &watcher{BasicStep: pipeline.NewBasicStep("watcher", ""), p: d.Pipeline(), n: 2}
		},
		"step error": func(d *pipeline.Driver) pipeline.Step {
			return &failing{BasicStep: pipeline.NewBasicStep("failing", ""), n: 2}
		},
	}

	for name, middle := range interrupt {
		t.Run(name, func(t *testing.T) {
			for _, existing := range []bool{true, false} {
				dir := t.TempDir()
				out := filepath.Join(dir, "out.txt")
				if existing {
					require.NoError(t, os.WriteFile(out, []byte(previous), 0o644))
				}

				d := pipeline.NewDriver(nil, zaptest.NewLogger(t))
				require.NoError(t, d.AddStep(NewRawDocumentToFilterEventsStep(plaintextFactory())))
				require.NoError(t, d.AddStep(middle(d)))
				require.NoError(t, d.AddStep(NewFilterEventsWriterStep()))
				d.AddInput(newPlainDoc(fourLines), out, "")

				require.Error(t, d.ProcessBatch(context.Background()))
				d.Destroy()

				if existing {
					data, err := os.ReadFile(out)
					require.NoError(t, err)
					assert.Equal(t, previous, string(data))
				} else {
					_, err := os.Stat(out)
					assert.True(t, os.IsNotExist(err), "partial output must not be left behind")
				}
				temps, err := filepath.Glob(filepath.Join(dir, ".okapi-*"))
				require.NoError(t, err)
				assert.Empty(t, temps)
			}
		})
	}
}

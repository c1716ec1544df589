package diffleverage

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
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
)

var (
	en = resource.NewLocaleID("en")
	fr = resource.NewLocaleID("fr")
)

func TestDiff(t *testing.T) {
	eq := func(a, b string) bool { return a == b }
	tests := []struct {
		name     string
		old, new []string
		want     []Match
	}{
		{"replaced", []string{"a", "b", "c", "d"}, []string{"a", "x", "c", "d"}, []Match{{0, 0}, {2, 2}, {3, 3}}},
		{"inserted", []string{"a", "b"}, []string{"z", "a", "b"}, []Match{{0, 1}, {1, 2}}},
		{"deleted", []string{"a", "b", "c"}, []string{"a", "c"}, []Match{{0, 0}, {2, 1}}},
		{"moved", []string{"a", "b", "c"}, []string{"c", "a", "b"}, []Match{{0, 1}, {1, 2}}},
		{"no common", []string{"a"}, []string{"b"}, []Match{}},
		{"empty", nil, []string{"a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.old, tt.new, eq))
		})
	}
}

// lcsLength 以完整的动态规划表计算公共子序列长度，用于核对 Diff
func lcsLength(a, b []byte) int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else {
				table[i][j] = max(table[i+1][j], table[i][j+1])
			}
		}
	}
	return table[0][0]
}

func TestDiffMatchesFullTable(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	eq := func(a, b byte) bool { return a == b }
	random := func(n int) []byte {
		out := make([]byte, n)
		for i := range out {
			out[i] = "abcd"[rng.Intn(4)]
		}
		return out
	}
	for round := 0; round < 200; round++ {
		a, b := random(rng.Intn(40)), random(rng.Intn(40))
		matches := Diff(a, b, eq)
		require.Len(t, matches, lcsLength(a, b), "%q vs %q", a, b)
		for i, m := range matches {
			assert.Equal(t, a[m.Old], b[m.New])
			if i > 0 {
				assert.Greater(t, m.Old, matches[i-1].Old)
				assert.Greater(t, m.New, matches[i-1].New)
			}
		}
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("Hello", "Hello"))
	assert.Equal(t, 100, Similarity("", ""))
	assert.Equal(t, 83, Similarity("Hello", "Hello!"))
	assert.Equal(t, 0, Similarity("Hello", ""))
	assert.Less(t, Similarity("Hello world", "你好世界"), 30)
}

func translated(id, src, trg string) *resource.TextUnit {
	tu := resource.NewTextUnit(id, src)
	tu.SetTarget(fr, resource.NewTextContainer(trg))
	return tu
}

func TestLeverageExact(t *testing.T) {
	oldUnits := []*resource.TextUnit{translated("tu1", "Hello", "Bonjour")}
	same := resource.NewTextUnit("tu1", "Hello")
	changed := resource.NewTextUnit("tu2", "Hello!")

	res := Leverage(oldUnits, []*resource.TextUnit{same}, fr, NewParameters())
	assert.Equal(t, Result{Matches: 1, Copied: 1}, res)
	require.True(t, same.HasTarget(fr))
	assert.Equal(t, "Bonjour", same.Target(fr).Text())
	require.NotNil(t, same.DiffLeverage)
	assert.True(t, same.DiffLeverage.CodeSensitive)
	assert.Equal(t, 100, same.DiffLeverage.FuzzyThreshold)
	assert.Equal(t, 100, same.DiffLeverage.Score)

	res = Leverage(oldUnits, []*resource.TextUnit{changed}, fr, NewParameters())
	assert.Equal(t, Result{}, res)
	assert.False(t, changed.HasTarget(fr))
	assert.Nil(t, changed.DiffLeverage)
}

func TestLeverageFuzzy(t *testing.T) {
	p := NewParameters()
	p.FuzzyThreshold = 80
	oldUnits := []*resource.TextUnit{translated("tu1", "Hello", "Bonjour"), translated("tu2", "Goodbye", "Au revoir")}
	newUnits := []*resource.TextUnit{resource.NewTextUnit("tu1", "Hello!"), resource.NewTextUnit("tu2", "Something else")}

	res := Leverage(oldUnits, newUnits, fr, p)
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, "Bonjour", newUnits[0].Target(fr).Text())
	assert.Equal(t, 83, newUnits[0].DiffLeverage.Score)
	assert.Equal(t, 80, newUnits[0].DiffLeverage.FuzzyThreshold)
	assert.False(t, newUnits[1].HasTarget(fr))
}

func TestLeverageZeroThreshold(t *testing.T) {
	p := NewParameters()
	p.FuzzyThreshold = 0
	oldUnits := []*resource.TextUnit{translated("tu1", "abc", "Bonjour")}
	newUnits := []*resource.TextUnit{resource.NewTextUnit("tu1", "xyz")}

	// 阈值为 0 时相似度为 0 的对也视为匹配
	res := Leverage(oldUnits, newUnits, fr, p)
	assert.Equal(t, Result{Matches: 1, Copied: 1}, res)
	assert.Equal(t, "Bonjour", newUnits[0].Target(fr).Text())
	require.NotNil(t, newUnits[0].DiffLeverage)
	assert.Equal(t, 0, newUnits[0].DiffLeverage.Score)
}

func TestLeverageDiffOnly(t *testing.T) {
	p := NewParameters()
	p.DiffOnly = true
	tu := resource.NewTextUnit("tu1", "Hello")
	res := Leverage([]*resource.TextUnit{translated("tu1", "Hello", "Bonjour")}, []*resource.TextUnit{tu}, fr, p)
	assert.Equal(t, Result{Matches: 1}, res)
	assert.False(t, tu.HasTarget(fr))
	assert.NotNil(t, tu.DiffLeverage)
}

func TestLeverageCodeSensitivity(t *testing.T) {
	coded := resource.NewTextFragment("Click ")
	coded.AppendCode(resource.TagOpening, "bold", "<b>")
	coded.Append("here")
	coded.AppendCode(resource.TagClosing, "bold", "</b>")
	oldTU := resource.NewTextUnitFromFragment("tu1", coded)
	oldTU.SetTarget(fr, resource.NewTextContainer("Cliquez ici"))

	for _, sensitive := range []bool{true, false} {
		p := NewParameters()
		p.CodeSensitive = sensitive
		tu := resource.NewTextUnit("tu1", "Click here")
		Leverage([]*resource.TextUnit{oldTU}, []*resource.TextUnit{tu}, fr, p)
		assert.Equal(t, !sensitive, tu.HasTarget(fr), "code sensitive %v", sensitive)
	}
}

func TestLeverageSkipsUntranslated(t *testing.T) {
	tu := resource.NewTextUnit("tu1", "Hello")
	res := Leverage([]*resource.TextUnit{resource.NewTextUnit("tu1", "Hello")}, []*resource.TextUnit{tu}, fr, NewParameters())
	assert.Equal(t, Result{}, res)
	assert.Nil(t, tu.DiffLeverage)
}

func doc(text string) *resource.RawDocument {
	return resource.NewRawDocumentFromString(text, en, fr)
}

// recorder 记录经过的事件类型
type recorder struct {
	pipeline.BasicStep
	types []event.Type
}

func (r *recorder) HandleEvent(ev *event.Event) event.Seq {
	r.types = append(r.types, ev.Type)
	return event.Of(ev)
}

func TestStepInPipeline(t *testing.T) {
	var out bytes.Buffer
	writer := common.NewFilterEventsWriterStep()
	writer.SetOutput(&out)
	rec := &recorder{BasicStep: pipeline.NewBasicStep("recorder", "")}

	p := pipeline.New(pipeline.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, p.AddStep(common.NewRawDocumentToFilterEventsStepWithFilter(plaintext.New())))
	require.NoError(t, p.AddStep(NewStepWithFilter(plaintext.New())))
	require.NoError(t, p.AddStep(rec))
	require.NoError(t, p.AddStep(writer))

	item := pipeline.NewBatchItem(
		doc("Hello\nNew line\nWorld\n"),
		doc("Hello\nWorld\n"),
		doc("Bonjour\nMonde\n"),
	)
	require.NoError(t, p.ProcessBatch(context.Background(), []*pipeline.BatchItemContext{item}))
	assert.Equal(t, "Bonjour\nNew line\nMonde\n", out.String())
	assert.Equal(t, []event.Type{
		event.StartBatch, event.StartBatchItem,
		event.StartDocument, event.TextUnit, event.TextUnit, event.TextUnit, event.EndDocument,
		event.EndBatchItem, event.EndBatch,
	}, rec.types)
}

func TestStepWithoutOldDocument(t *testing.T) {
	s := NewStepWithFilter(plaintext.New())
	s.SetBatchItemContext(pipeline.NewBatchItem(doc("x")))

	events, err := event.Collect(s.HandleEvent(event.NewStartDocument(resource.NewStartDocument("sd1"))))
	require.NoError(t, err)
	assert.Len(t, events, 1)
	events, err = event.Collect(s.HandleEvent(event.NewTextUnit(resource.NewTextUnit("tu1", "x"))))
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, event.TextUnit, events[0].Type)
}

func TestStepErrors(t *testing.T) {
	t.Run("raw document", func(t *testing.T) {
		s := NewStep(nil)
		_, err := event.Collect(s.HandleEvent(event.NewRawDocument(doc("x"))))
		assert.True(t, errors.Is(err, errs.ErrStepInputMismatch))
	})

	t.Run("translation does not line up", func(t *testing.T) {
		s := NewStepWithFilter(plaintext.New())
		s.SetBatchItemContext(pipeline.NewBatchItem(doc("a\n"), doc("a\nb\n"), doc("A\n")))
		_, err := event.Collect(s.HandleEvent(event.NewStartDocument(resource.NewStartDocument("sd1"))))
		assert.True(t, errors.Is(err, errs.ErrBadInput))
	})

	t.Run("no filter", func(t *testing.T) {
		s := NewStep(nil)
		s.SetBatchItemContext(pipeline.NewBatchItem(doc("a\n"), doc("a\n")))
		_, err := event.Collect(s.HandleEvent(event.NewStartDocument(resource.NewStartDocument("sd1"))))
		assert.True(t, errors.Is(err, errs.ErrBadParameters))
	})
}

func TestCanceledClearsBuffer(t *testing.T) {
	s := NewStepWithFilter(plaintext.New())
	s.SetBatchItemContext(pipeline.NewBatchItem(doc("a\n"), doc("a\n")))
	_, err := event.Collect(s.HandleEvent(event.NewStartDocument(resource.NewStartDocument("sd1"))))
	require.NoError(t, err)
	events, err := event.Collect(s.HandleEvent(event.NewTextUnit(resource.NewTextUnit("tu1", "a"))))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = event.Collect(s.HandleEvent(event.NewCanceled()))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.Canceled, events[0].Type)

	// 取消后不再缓冲
	events, err = event.Collect(s.HandleEvent(event.NewEndDocument(resource.NewEnding("ed1"))))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.EndDocument, events[0].Type)
}

func TestParameters(t *testing.T) {
	p := NewParameters()
	p.FuzzyThreshold = 75
	p.CodeSensitive = false
	p.DiffOnly = true

	other := NewParameters()
	require.NoError(t, other.FromString(p.String()))
	assert.Equal(t, p, other)

	assert.True(t, errors.Is(other.FromString("fuzzyThreshold = 120"), errs.ErrBadParameters))
	assert.Error(t, NewStep(nil).SetParameters(&Parameters{FuzzyThreshold: -1}))
}

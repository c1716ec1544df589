package segmentation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

var fr = resource.NewLocaleID("fr")

func segmentTexts(tc *resource.TextContainer) []string {
	var out []string
	for _, seg := range tc.Segments() {
		out = append(out, seg.Content.String())
	}
	return out
}

func defaultSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	seg, err := NewSegmenter(DefaultRules())
	require.NoError(t, err)
	return seg
}

func TestDefaultRules(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sentences", "First sentence. Second one, by Mr. Smith! Third?", []string{"First sentence.", "Second one, by Mr. Smith!", "Third?"}},
		{"lowercase continuation", "Use e.g. this one. Then stop.", []string{"Use e.g. this one.", "Then stop."}},
		{"numbers", "Version 2.0 is out. 3 bugs fixed.", []string{"Version 2.0 is out.", "3 bugs fixed."}},
		{"initials", "Written by J. R. Tolkien. Great.", []string{"Written by J. R. Tolkien.", "Great."}},
		{"quotes", `He said "Stop." "Why?" she asked.`, []string{`He said "Stop."`, `"Why?" she asked.`}},
		{"cjk", "你好。世界！", []string{"你好。", "世界！"}},
		{"single", "  no break here  ", []string{"no break here"}},
	}
	seg := defaultSegmenter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := resource.NewTextContainer(tt.text)
			seg.Segment(tc)
			assert.Equal(t, tt.want, segmentTexts(tc))
			// 句段与间隔拼接后还原原文
			assert.Equal(t, tt.text, tc.Unsegmented().String())
		})
	}
}

func TestInterSegmentWhitespace(t *testing.T) {
	tc := resource.NewTextContainer("One.  Two. ")
	assert.Equal(t, 2, defaultSegmenter(t).Segment(tc))
	parts := tc.Parts()
	require.Len(t, parts, 4)
	assert.True(t, parts[0].IsSegment())
	assert.False(t, parts[1].IsSegment())
	assert.Equal(t, "  ", parts[1].Content.String())
	assert.Equal(t, " ", parts[3].Content.String())
	require.NotNil(t, tc.Segmentation)
	assert.Equal(t, "default", tc.Segmentation.RulesName)
}

func TestNoBreakInsidePairedCodes(t *testing.T) {
	tf := resource.NewTextFragment("Click ")
	tf.AppendCode(resource.TagOpening, "bold", "<b>")
	tf.Append("here. Now")
	tf.AppendCode(resource.TagClosing, "bold", "</b>")
	tf.Append(" go. Next")

	tc := resource.NewTextContainerFromFragment(tf)
	defaultSegmenter(t).Segment(tc)
	assert.Equal(t, []string{"Click <b>here. Now</b> go.", "Next"}, segmentTexts(tc))
}

func TestBreakBeforeCode(t *testing.T) {
	tf := resource.NewTextFragment("Done. ")
	tf.AppendCode(resource.TagOpening, "bold", "<b>")
	tf.Append("Bold")
	tf.AppendCode(resource.TagClosing, "bold", "</b>")
	tf.Append(" start")

	tc := resource.NewTextContainerFromFragment(tf)
	defaultSegmenter(t).Segment(tc)
	assert.Equal(t, []string{"Done.", "<b>Bold</b> start"}, segmentTexts(tc))
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: semicolon
rules:
  - break: true
    before: ";"
    after: "\\s"
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "semicolon", rules.Name)

	seg, err := NewSegmenter(rules)
	require.NoError(t, err)
	tc := resource.NewTextContainer("a; b. C")
	seg.Segment(tc)
	assert.Equal(t, []string{"a;", "b. C"}, segmentTexts(tc))
}

func TestRuleErrors(t *testing.T) {
	_, err := NewSegmenter(&Rules{Name: "empty"})
	assert.True(t, errors.Is(err, errs.ErrBadParameters))

	_, err = NewSegmenter(&Rules{Rules: []Rule{{Break: true, Before: "("}}})
	assert.True(t, errors.Is(err, errs.ErrBadParameters))

	_, err = NewSegmenter(&Rules{Rules: []Rule{{Break: true}}})
	assert.True(t, errors.Is(err, errs.ErrBadParameters))

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, errs.ErrIO))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: {"), 0o644))
	_, err = LoadRules(path)
	assert.True(t, errors.Is(err, errs.ErrBadInput))
}

func TestStep(t *testing.T) {
	s := NewStep()
	s.SetLogger(zaptest.NewLogger(t))
	p := NewParameters()
	p.SegmentTarget = true
	p.CopySource = true
	require.NoError(t, s.SetParameters(p))
	s.SetTargetLocale(fr)

	plain := resource.NewTextUnit("tu1", "One. Two.")
	translated := resource.NewTextUnit("tu2", "Three. Four.")
	translated.SetTarget(fr, resource.NewTextContainer("Trois. Quatre."))
	skipped := resource.NewTextUnit("tu3", "Five. Six.")
	skipped.SetTranslatable(false)

	events := []*event.Event{
		event.NewStartDocument(resource.NewStartDocument("sd1")),
		event.NewTextUnit(plain),
		event.NewTextUnit(translated),
		event.NewTextUnit(skipped),
		event.NewEndDocument(resource.NewEnding("ed1")),
	}
	for _, ev := range events {
		out, err := event.Collect(s.HandleEvent(ev))
		require.NoError(t, err)
		assert.Equal(t, []*event.Event{ev}, out)
	}

	assert.Equal(t, []string{"One.", "Two."}, segmentTexts(plain.Source()))
	require.True(t, plain.HasTarget(fr))
	assert.Equal(t, []string{"One.", "Two."}, segmentTexts(plain.Target(fr)))

	assert.Equal(t, []string{"Three.", "Four."}, segmentTexts(translated.Source()))
	assert.Equal(t, []string{"Trois.", "Quatre."}, segmentTexts(translated.Target(fr)))

	assert.False(t, skipped.Source().IsSegmented())
	assert.False(t, skipped.HasTarget(fr))
}

func TestStepKeepsExistingSegments(t *testing.T) {
	s := NewStep()
	tu := resource.NewTextUnit("tu1", "One. Two.")
	tu.Source().CreateSegments([]resource.Range{{Start: 0, End: 9}})

	_, err := event.Collect(s.HandleEvent(event.NewTextUnit(tu)))
	require.NoError(t, err)
	assert.Equal(t, []string{"One. Two."}, segmentTexts(tu.Source()))

	p := NewParameters()
	p.Overwrite = true
	require.NoError(t, s.SetParameters(p))
	_, err = event.Collect(s.HandleEvent(event.NewTextUnit(tu)))
	require.NoError(t, err)
	assert.Equal(t, []string{"One.", "Two."}, segmentTexts(tu.Source()))
}

func TestStepBadRulesFile(t *testing.T) {
	s := NewStep()
	p := NewParameters()
	p.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	require.NoError(t, s.SetParameters(p))
	_, err := event.Collect(s.HandleEvent(event.NewStartDocument(resource.NewStartDocument("sd1"))))
	assert.True(t, errors.Is(err, errs.ErrIO))
}

func TestParameters(t *testing.T) {
	p := NewParameters()
	p.SegmentTarget = true
	p.RulesPath = "/tmp/rules.yaml"
	p.Overwrite = true

	other := NewParameters()
	require.NoError(t, other.FromString(p.String()))
	assert.Equal(t, p, other)
}

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextContainerSegments(t *testing.T) {
	tc := NewTextContainer("First. Second. ")
	assert.False(t, tc.IsSegmented())
	assert.Len(t, tc.Segments(), 1)

	tc.CreateSegments([]Range{{Start: 0, End: 6}, {Start: 7, End: 14}})
	require.True(t, tc.IsSegmented())

	segs := tc.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "First.", segs[0].Content.Text())
	assert.Equal(t, "Second.", segs[1].Content.Text())
	assert.Equal(t, "0", segs[0].ID)
	assert.Equal(t, "1", segs[1].ID)

	parts := tc.Parts()
	require.Len(t, parts, 4)
	assert.False(t, parts[1].IsSegment())
	assert.Equal(t, " ", parts[1].Content.Text())

	// 所有段连接起来必须等于原文
	assert.Equal(t, "First. Second. ", tc.Text())

	tc.JoinAll()
	assert.False(t, tc.IsSegmented())
	assert.Len(t, tc.Parts(), 1)
	assert.Equal(t, "First. Second. ", tc.FirstContent().Text())
}

func TestTextContainerSegmentsWithCodes(t *testing.T) {
	tc := NewTextContainerFromFragment(boldFragment())
	original := tc.String()

	tc.CreateSegments([]Range{{Start: 0, End: 5}, {Start: 6, End: 17}})
	assert.Equal(t, original, tc.String())
	assert.Equal(t, "Hello", tc.Segments()[0].Content.String())
	assert.Equal(t, "<b>world</b><br/>", tc.Segments()[1].Content.String())
	assert.NoError(t, tc.Segments()[1].Content.Validate())
}

func TestTextContainerSegmentsSplitCodePair(t *testing.T) {
	tf := NewTextFragment("A ")
	tf.AppendCode(TagOpening, "b", "<b>")
	tf.Append("one. two")
	tf.AppendCode(TagClosing, "b", "</b>")
	tf.Append(" end.")
	tc := NewTextContainerFromFragment(tf)
	original := tc.String()

	// 第一段只含 <b>，第二段只含 </b>
	coded := []rune(tf.CodedText())
	split := 0
	for i, r := range coded {
		if r == ' ' && i > 0 && coded[i-1] == '.' {
			split = i
			break
		}
	}
	require.NotZero(t, split)
	tc.CreateSegments([]Range{{Start: 0, End: split}, {Start: split + 1, End: len(coded)}})

	segs := tc.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "A <b>one.", segs[0].Content.String())
	assert.Equal(t, "two</b> end.", segs[1].Content.String())
	for _, p := range tc.Parts() {
		assert.NoError(t, p.Content.Validate())
	}
	assert.Equal(t, TagPlaceholder, segs[0].Content.Codes()[0].TagType)
	assert.Equal(t, TagPlaceholder, segs[1].Content.Codes()[0].TagType)
	assert.Equal(t, original, tc.String())
}

func TestTextContainerEmptyRanges(t *testing.T) {
	tc := NewTextContainer("abc")
	tc.CreateSegments(nil)
	assert.False(t, tc.IsSegmented())
	assert.Equal(t, "abc", tc.Text())
}

func TestTextContainerClone(t *testing.T) {
	tc := NewTextContainer("abc")
	tc.Properties.Set("state", "new", false)
	tc.SetAnnotation(&DiffLeverageAnnotation{Score: 100})

	cp := tc.Clone()
	cp.FirstContent().Append("d")
	cp.Properties.Set("state", "done", false)
	cp.DiffLeverage.Score = 50

	assert.Equal(t, "abc", tc.Text())
	assert.Equal(t, "new", tc.Properties.Value("state"))
	assert.Equal(t, 100, tc.DiffLeverage.Score)
}

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabelValueSegments(t *testing.T) {
	s := Parse("subject: cat. mood: calm", NewStructured())

	v, ok := s.Get("subject")
	require.True(t, ok)
	assert.Equal(t, "cat", v.Scalar())

	v, ok = s.Get("mood")
	require.True(t, ok)
	assert.Equal(t, "calm", v.Scalar())
}

func TestParseCamelCasesSpacedLabels(t *testing.T) {
	s := Parse("aspect ratio: 16:9", NewStructured())

	v, ok := s.Get("aspectRatio")
	require.True(t, ok)
	assert.Equal(t, "16:9", v.Scalar())
}

func TestParseCommaValuesBecomeSequences(t *testing.T) {
	s := Parse("colors: red, blue, gold", NewStructured())

	v, ok := s.Get("colors")
	require.True(t, ok)
	assert.Equal(t, KindSequence, v.Kind())
	assert.Equal(t, []string{"red", "blue", "gold"}, v.Sequence())
}

func TestParseBracedValuesStayScalar(t *testing.T) {
	s := Parse(`camera: {"lens":"50mm","mode":"macro"}`, NewStructured())

	v, ok := s.Get("camera")
	require.True(t, ok)
	assert.Equal(t, KindScalar, v.Kind())
}

func TestParsePreservesPreviousKeys(t *testing.T) {
	previous := NewStructured()
	previous.Set("style", Scalar("modern"))
	previous.Set("subject", Scalar("dog"))

	s := Parse("subject: cat", previous)

	v, _ := s.Get("style")
	assert.Equal(t, "modern", v.Scalar())
	v, _ = s.Get("subject")
	assert.Equal(t, "cat", v.Scalar())

	// the input is not mutated
	v, _ = previous.Get("subject")
	assert.Equal(t, "dog", v.Scalar())
}

func TestParseIgnoresUnlabeledText(t *testing.T) {
	previous := NewStructured()
	previous.Set("subject", Scalar("cat"))

	s := Parse("a dramatic photo with no labels at all", previous)
	assert.True(t, s.Equal(previous))
}

func TestSynthesizeParseRoundTrip(t *testing.T) {
	s := NewStructured()
	s.Set("subject", Scalar("cat"))
	s.Set("colors", Sequence("red", "blue"))

	text := Synthesize(s)
	require.Equal(t, "subject: cat. colors: red, blue.", text)

	back := Parse(text, NewStructured())
	assert.True(t, back.Equal(s), "got %s", back.Encode())
}

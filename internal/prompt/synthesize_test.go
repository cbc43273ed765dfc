package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeBasic(t *testing.T) {
	s := NewStructured()
	s.Set("subject", Scalar("cat"))
	s.Set("colors", Sequence("red", "blue"))

	assert.Equal(t, "subject: cat. colors: red, blue.", Synthesize(s))
}

func TestSynthesizeFormatsCamelCaseKeys(t *testing.T) {
	s := NewStructured()
	s.Set("aspectRatio", Scalar("16:9"))
	s.Set("targetAudience", Scalar("developers"))

	assert.Equal(t, "aspect ratio: 16:9. target audience: developers.", Synthesize(s))
}

func TestSynthesizeSkipsEmptyValues(t *testing.T) {
	s := NewStructured()
	s.Set("subject", Scalar("cat"))
	s.Set("mood", Scalar(""))
	s.Set("tags", Sequence())

	assert.Equal(t, "subject: cat.", Synthesize(s))
}

func TestSynthesizeNestedRendersSerialization(t *testing.T) {
	camera, err := Decode(`{"lens":"50mm"}`)
	require.NoError(t, err)

	s := NewStructured()
	s.Set("camera", Nested(camera))

	assert.Equal(t, `camera: {"lens":"50mm"}.`, Synthesize(s))
}

func TestSynthesizeEmpty(t *testing.T) {
	assert.Equal(t, "", Synthesize(nil))
	assert.Equal(t, "", Synthesize(NewStructured()))

	onlyEmpty := NewStructured()
	onlyEmpty.Set("subject", Scalar(""))
	assert.Equal(t, "", Synthesize(onlyEmpty))
}

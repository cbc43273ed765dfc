package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePreservesKeyOrder(t *testing.T) {
	s, err := Decode(`{"zulu":"1","alpha":"2","mike":"3"}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"zulu", "alpha", "mike"}, s.Keys())
	assert.Equal(t, `{"zulu":"1","alpha":"2","mike":"3"}`, s.Encode())
}

func TestDecodeValueKinds(t *testing.T) {
	s, err := Decode(`{"subject":"cat","count":3,"scale":1.5,"hd":true,"note":null,"colors":["red","blue"],"camera":{"lens":"50mm"}}`)
	require.NoError(t, err)

	v, ok := s.Get("subject")
	require.True(t, ok)
	assert.Equal(t, KindScalar, v.Kind())
	assert.Equal(t, "cat", v.Scalar())

	v, _ = s.Get("count")
	assert.Equal(t, "3", v.Scalar())

	v, _ = s.Get("scale")
	assert.Equal(t, "1.5", v.Scalar())

	v, _ = s.Get("hd")
	assert.Equal(t, "true", v.Scalar())

	v, _ = s.Get("note")
	assert.Equal(t, "", v.Scalar())
	assert.True(t, v.Empty())

	v, _ = s.Get("colors")
	assert.Equal(t, KindSequence, v.Kind())
	assert.Equal(t, []string{"red", "blue"}, v.Sequence())

	v, _ = s.Get("camera")
	require.Equal(t, KindNested, v.Kind())
	lens, ok := v.Nested().Get("lens")
	require.True(t, ok)
	assert.Equal(t, "50mm", lens.Scalar())
}

func TestDecodeMixedArrayDegradesToLiteralText(t *testing.T) {
	s, err := Decode(`{"sizes":[1080,"auto",true]}`)
	require.NoError(t, err)

	v, _ := s.Get("sizes")
	assert.Equal(t, []string{"1080", "auto", "true"}, v.Sequence())
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json",
		`"just a string"`,
		`[1,2,3]`,
		`{"a":"1"`,
		`{"a":"1"} trailing`,
	} {
		_, err := Decode(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestEqualIsOrderSensitive(t *testing.T) {
	a, err := Decode(`{"a":"1","b":"2"}`)
	require.NoError(t, err)
	b, err := Decode(`{"b":"2","a":"1"}`)
	require.NoError(t, err)
	c, err := Decode(`{"a":"1","b":"2"}`)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(c))
}

func TestSetKeepsFirstInsertionPosition(t *testing.T) {
	s := NewStructured()
	s.Set("first", Scalar("1"))
	s.Set("second", Scalar("2"))
	s.Set("first", Scalar("updated"))

	assert.Equal(t, []string{"first", "second"}, s.Keys())
	v, _ := s.Get("first")
	assert.Equal(t, "updated", v.Scalar())
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStructured()
	s.Set("colors", Sequence("red", "blue"))

	c := s.Clone()
	c.Set("colors", Sequence("green"))
	c.Set("extra", Scalar("x"))

	v, _ := s.Get("colors")
	assert.Equal(t, []string{"red", "blue"}, v.Sequence())
	_, ok := s.Get("extra")
	assert.False(t, ok)
}

func TestDeleteRemovesKeyAndOrder(t *testing.T) {
	s := NewStructured()
	s.Set("a", Scalar("1"))
	s.Set("b", Scalar("2"))
	s.Delete("a")

	assert.Equal(t, []string{"b"}, s.Keys())
	assert.Equal(t, 1, s.Len())
}

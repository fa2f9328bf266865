package pathcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	paths := []string{
		"/data/notes/study/go/channels.md",
		"/data/notes/study/1. Basics/2. Setup?.md",
		"C:\\notes\\study\\한글 노트.md",
		"",
	}

	for _, p := range paths {
		encoded := Encode(p)
		assert.NotContains(t, encoded, "/")
		assert.NotContains(t, encoded, "+")

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)

		unpadded, err := Decode(strings.TrimRight(encoded, "="))
		require.NoError(t, err)
		assert.Equal(t, p, unpadded)
	}
}

func TestEncodeIsPadded(t *testing.T) {
	assert.Equal(t, "YS5tZA==", Encode("a.md"))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("not base64!")
	assert.ErrorIs(t, err, ErrInvalid)
}

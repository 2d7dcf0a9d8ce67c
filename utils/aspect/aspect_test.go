package aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog2(t *testing.T) {
	tests := []struct {
		w, h int
		want Tag
	}{
		{832, 1216, Tall},
		{1024, 1024, Square},
		{1216, 832, Wide},
		{512, 1536, TooTall},
		{640, 1152, TallWallpaper},
		{1536, 896, WideWallpaper},
		{2048, 512, TooWide},
		{1000, 1200, Tall},
		{1000, 1150, Square},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Log2(tt.w, tt.h), "%dx%d", tt.w, tt.h)
		})
	}
}

func TestLinear(t *testing.T) {
	tests := []struct {
		w, h int
		want Tag
	}{
		{512, 1024, TooTall},
		{800, 900, Tall},
		{1000, 1000, Square},
		{1124, 1000, Square},
		{1125, 1000, Wide},
		{1999, 1000, Wide},
		{2000, 1000, TooWide},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Linear(tt.w, tt.h), "%dx%d", tt.w, tt.h)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("linear")
	require.NoError(t, err)
	assert.Equal(t, TooWide, p(3000, 1000))

	p, err = ParsePolicy("LOG2")
	require.NoError(t, err)
	assert.Equal(t, WideWallpaper, p(3000, 1500))

	_, err = ParsePolicy("cubic")
	assert.Error(t, err)
}

func TestClassifyRejectsZero(t *testing.T) {
	_, err := Classify(Log2, 0, 100)
	assert.Error(t, err)

	tag, err := Classify(Log2, 832, 1216)
	require.NoError(t, err)
	assert.Equal(t, Tall, tag)
}

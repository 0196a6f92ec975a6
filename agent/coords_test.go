package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDenormalizeCoord(t *testing.T) {
	tests := []struct {
		norm, dim, want int
	}{
		{0, 1280, 0},
		{999, 1280, 1279},
		{500, 1280, 640},
		{500, 800, 400},
		{250, 1000, 250},
		{333, 900, 300},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DenormalizeCoord(tt.norm, tt.dim),
			"norm=%d dim=%d", tt.norm, tt.dim)
	}
}

func TestCoordRoundTripWithinOnePixel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(320, 1920).Draw(t, "dim")
		px := rapid.IntRange(0, dim-1).Draw(t, "px")

		back := DenormalizeCoord(NormalizeCoord(px, dim), dim)
		diff := back - px
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1, "px=%d dim=%d back=%d", px, dim, back)
	})
}

func TestDenormalizeCoordClamped(t *testing.T) {
	assert.Equal(t, 0, DenormalizeCoord(-5, 800))
	assert.Equal(t, 799, DenormalizeCoord(1500, 800))
}

package common

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 1, 10))
	assert.Equal(t, 1, Clamp(-3, 1, 10))
	assert.Equal(t, 10, Clamp(30, 1, 10))
	assert.Equal(t, 4, Clamp(7, 4, 2), "lower bound wins when inverted")
}

func TestExtent2D(t *testing.T) {
	e := NewExtent2D(-1, 600)
	assert.Equal(t, Extent2D{Width: 0, Height: 600}, e)
	assert.True(t, e.IsZero())
	assert.Equal(t, "0x600", e.String())

	clamped := Extent2D{Width: 8000, Height: 600}.Clamp(Extent2D{Width: 1, Height: 1}, Extent2D{Width: 4096, Height: 4096})
	assert.Equal(t, Extent2D{Width: 4096, Height: 600}, clamped)
	assert.False(t, clamped.IsZero())
}

func TestNewExtent2DSaturates(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot exceed MaxUint32")
	}
	big := int64(math.MaxUint32) + 5
	e := NewExtent2D(int(big), math.MaxInt32)
	assert.Equal(t, Extent2D{Width: math.MaxUint32, Height: math.MaxInt32}, e)
}

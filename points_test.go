package gstroke

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointStreamThreshold(t *testing.T) {
	ps := NewPointStream(DefaultMinDistance)
	require.True(t, ps.Append(ms2.Vec{X: 10, Y: 10}))
	tests := []struct {
		p    ms2.Vec
		want bool
	}{
		{p: ms2.Vec{X: 10, Y: 10}, want: false},
		{p: ms2.Vec{X: 11, Y: 11}, want: false},
		{p: ms2.Vec{X: 8.5, Y: 11.9}, want: false},
		{p: ms2.Vec{X: 12, Y: 10}, want: true},  // Exactly 2px on x is accepted.
		{p: ms2.Vec{X: 12, Y: 13}, want: true},  // 3px on y.
		{p: ms2.Vec{X: 13, Y: 14}, want: false}, // 1px on both from (12,13).
		{p: ms2.Vec{X: math32.NaN(), Y: 0}, want: false},
		{p: ms2.Vec{X: 0, Y: math32.Inf(1)}, want: false},
	}
	wantLen := 1
	for i, test := range tests {
		got := ps.Append(test.p)
		assert.Equal(t, test.want, got, "case %d %v", i, test.p)
		if got {
			wantLen++
		}
		assert.Equal(t, wantLen, ps.Len(), "case %d", i)
	}
	last, ok := ps.Last()
	require.True(t, ok)
	assert.Equal(t, ms2.Vec{X: 12, Y: 13}, last)
}

func TestPointStreamZeroThreshold(t *testing.T) {
	ps := NewPointStream(0)
	assert.True(t, ps.Append(ms2.Vec{}))
	assert.True(t, ps.Append(ms2.Vec{}), "zero threshold keeps duplicates")
	assert.Equal(t, 2, ps.Len())
}

func TestPointStreamPendingSince(t *testing.T) {
	ps := NewPointStream(1)
	_, ok := ps.Last()
	assert.False(t, ok)
	assert.Empty(t, ps.PendingSince(0))
	for i := 0; i < 5; i++ {
		ps.Append(ms2.Vec{X: float32(10 * i)})
	}
	assert.Len(t, ps.PendingSince(0), 5)
	assert.Equal(t, []ms2.Vec{{X: 30}, {X: 40}}, ps.PendingSince(3))
	assert.Empty(t, ps.PendingSince(5))
	assert.Empty(t, ps.PendingSince(100))
	assert.Len(t, ps.PendingSince(-3), 5)
	assert.Equal(t, ms2.Vec{X: 20}, ps.At(2))

	// Appending to the returned slice must not clobber the stream.
	pend := ps.PendingSince(3)
	_ = append(pend, ms2.Vec{X: -1})
	ps.Append(ms2.Vec{X: 50})
	assert.Equal(t, ms2.Vec{X: 50}, ps.At(5))
}

package gleval

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingPongRoles(t *testing.T) {
	a, err := NewCPUSurface(4, 3)
	require.NoError(t, err)
	b, err := NewCPUSurface(4, 3)
	require.NoError(t, err)
	pp, err := NewPingPong(a, b)
	require.NoError(t, err)

	assert.Same(t, a, pp.Read())
	assert.Same(t, b, pp.Write())
	for i := 0; i < 5; i++ {
		assert.NotEqual(t, pp.Physical(RoleRead), pp.Physical(RoleWrite))
		assert.NotSame(t, pp.Read(), pp.Write())
		prevRead := pp.Read()
		pp.Swap()
		assert.Same(t, prevRead, pp.Write())
	}
	assert.Same(t, b, pp.Read(), "odd number of swaps")
	w, h := pp.Size()
	assert.Equal(t, [2]int{4, 3}, [2]int{w, h})
	assert.Equal(t, "read", RoleRead.String())
	assert.Equal(t, "write", RoleWrite.String())
}

func TestPingPongClear(t *testing.T) {
	a, _ := NewCPUSurface(2, 2)
	b, _ := NewCPUSurface(2, 2)
	pp, err := NewPingPong(a, b)
	require.NoError(t, err)
	pp.Swap()
	bg := RGBA{R: 0.2, G: 0.4, B: 0.6, A: 1}
	require.NoError(t, pp.Clear(bg))
	for _, s := range []*CPUSurface{a, b} {
		img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		require.NoError(t, s.ReadPixels(img))
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.Equal(t, bg.NRGBA(), img.NRGBAAt(x, y))
			}
		}
	}
}

func TestPingPongInvalid(t *testing.T) {
	a, _ := NewCPUSurface(2, 2)
	b, _ := NewCPUSurface(3, 2)
	_, err := NewPingPong(a, a)
	assert.ErrorIs(t, err, errSameSurface)
	_, err = NewPingPong(a, b)
	assert.ErrorIs(t, err, errSizeMismatch)
	_, err = NewPingPong(a, nil)
	assert.Error(t, err)
}

package stereo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarkvr/quarkgl"
)

func gradient(w, h int) *quarkgl.RGBATarget {
	t := quarkgl.NewRGBATarget(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t.SetPixel(x, y, quarkgl.RGB(uint8(x*17), uint8(y*29), uint8(x*y)))
		}
	}
	return t
}

func TestZeroKIsPassThrough(t *testing.T) {
	for _, size := range [][2]int{{8, 6}, {31, 17}, {1, 1}} {
		w, h := size[0], size[1]
		src := gradient(w, h)
		screen := quarkgl.NewRGBATarget(w, h)
		r := quarkgl.NewRenderer(screen, false)

		r.DrawQuad(&Material{Source: src, Distortion: Distortion{Enabled: true, K: 0}})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				require.Equal(t, src.At(x, y), screen.At(x, y), "pixel %d,%d of %dx%d", x, y, w, h)
			}
		}
	}
}

func TestDisabledIsPassThrough(t *testing.T) {
	src := gradient(9, 9)
	screen := quarkgl.NewRGBATarget(9, 9)
	quarkgl.NewRenderer(screen, false).DrawQuad(&Material{
		Source:     src,
		Distortion: Distortion{Enabled: false, K: 0.4, Brightness: 0.5},
	})
	assert.Equal(t, src.At(0, 0), screen.At(0, 0))
	assert.Equal(t, src.At(8, 3), screen.At(8, 3))
}

func TestCenterIsFixedPoint(t *testing.T) {
	for _, k := range []float32{0, 0.12, 0.5, -0.3} {
		u, v, ok := Distort(0.5, 0.5, k)
		assert.True(t, ok)
		assert.Equal(t, float32(0.5), u)
		assert.Equal(t, float32(0.5), v)
	}
}

func TestBarrelWarpPushesOutward(t *testing.T) {
	u, v, ok := Distort(0.75, 0.5, 0.12)
	require.True(t, ok)
	// p = 0.25; p' = 0.25 * (1 + 0.12*0.0625)
	assert.InDelta(t, 0.5+0.25*1.0075, u, 1e-6)
	assert.Equal(t, float32(0.5), v)

	_, _, ok = Distort(0, 0, 0.12)
	assert.False(t, ok, "corner leaves the aperture")
}

func TestOutsideApertureIsBlack(t *testing.T) {
	m := &Material{Source: gradient(4, 4), Distortion: Distortion{Enabled: true, K: 0.12}}
	assert.Equal(t, quarkgl.Black, m.Shade(0.001, 0.001))
	assert.Equal(t, quarkgl.Black, (&Material{}).Shade(0.5, 0.5))
}

func TestBrightnessLift(t *testing.T) {
	src := quarkgl.NewRGBATarget(1, 1)
	src.SetPixel(0, 0, quarkgl.RGB(100, 200, 10))
	m := &Material{Source: src, Distortion: Distortion{Enabled: true, Brightness: 0.5}}
	assert.Equal(t, quarkgl.RGB(150, 255, 15), m.Shade(0.5, 0.5))
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("stereo_pair")
	require.NoError(t, err)
	assert.Equal(t, StereoPair, s)
	s, err = ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, Mono, s)
	_, err = ParseSource("anaglyph")
	assert.Error(t, err)
}

package stereo

import (
	"math"

	"quarkvr/quarkgl"
)

// Distortion holds the lens pre-warp parameters.
type Distortion struct {
	Enabled bool
	// K is the radial coefficient. Positive values barrel-warp.
	K float32
	// Brightness lifts the output by a factor of 1+Brightness.
	Brightness float32
}

// Distort maps a quad UV through the barrel warp
//
//	p  = uv - 0.5
//	p' = p * (1 + k*|p|^2)
//
// and reports whether the warped UV lands inside the source.
func Distort(u, v, k float32) (du, dv float32, inside bool) {
	px, py := u-0.5, v-0.5
	s := 1 + k*(px*px+py*py)
	du, dv = px*s+0.5, py*s+0.5
	inside = du >= 0 && du <= 1 && dv >= 0 && dv <= 1
	return du, dv, inside
}

// Material samples one eye's target through the distortion. It is the
// per-eye quad shader used by the composite pass.
type Material struct {
	Source     quarkgl.Sampler
	Distortion Distortion
}

// Shade implements quarkgl.QuadShader.
func (m *Material) Shade(u, v float32) quarkgl.Color {
	if m.Source == nil {
		return quarkgl.Black
	}
	if m.Distortion.Enabled && m.Distortion.K != 0 {
		var ok bool
		u, v, ok = Distort(u, v, m.Distortion.K)
		if !ok {
			return quarkgl.Black
		}
	}
	w, h := m.Source.Size()
	c := m.Source.At(texel(u, w), texel(v, h))
	if m.Distortion.Enabled {
		c = c.Lift(m.Distortion.Brightness)
	}
	return c
}

// texel picks the nearest texel for a 0..1 coordinate.
func texel(t float32, n int) int {
	i := int(math.Floor(float64(t) * float64(n)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

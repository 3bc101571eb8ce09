package quarkgl

import "github.com/go-gl/mathgl/mgl32"

// Color is an RGBA color in 8-bit channels.
type Color struct {
	R, G, B, A uint8
}

func RGB(r, g, b uint8) Color     { return Color{R: r, G: g, B: b, A: 0xFF} }
func RGBA(r, g, b, a uint8) Color { return Color{R: r, G: g, B: b, A: a} }

// Black is the color written outside a lens aperture.
var Black = RGB(0, 0, 0)

// MulScalar scales the RGB channels by s clamped to 0..1.
func (c Color) MulScalar(s Scalar) Color {
	t := uint32(mgl32.Clamp(s, 0, 1) * 255)
	mul := func(ch uint8) uint8 {
		return uint8((uint32(ch) * t) / 255)
	}
	return Color{R: mul(c.R), G: mul(c.G), B: mul(c.B), A: c.A}
}

// Lift brightens the RGB channels by a factor of (1+amount), saturating at 255.
// A zero amount returns c unchanged.
func (c Color) Lift(amount Scalar) Color {
	if amount == 0 {
		return c
	}
	f := 1 + amount
	if f < 0 {
		f = 0
	}
	lift := func(ch uint8) uint8 {
		return uint8(mgl32.Clamp(float32(ch)*f, 0, 255))
	}
	return Color{R: lift(c.R), G: lift(c.G), B: lift(c.B), A: c.A}
}

func (c Color) WithAlpha(a uint8) Color { c.A = a; return c }

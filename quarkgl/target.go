package quarkgl

// Target is a minimal pixel target for software rendering.
//
// Implementations should clip out-of-bounds coordinates.
type Target interface {
	Size() (w, h int)
	SetPixel(x, y int, c Color)
	Clear(c Color)
}

// Sampler is a target whose pixels can be read back.
type Sampler interface {
	Target
	At(x, y int) Color
}

// RenderMode selects the rasterization mode.
type RenderMode uint8

const (
	RenderWireframe RenderMode = iota
	RenderSolidFlat
	RenderSolidVertexColor
)

// Rect is a pixel rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Intersect returns the overlap of r and o (empty when disjoint).
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// QuadShader colors one fragment of a fullscreen quad. u and v run 0..1 across
// the viewport, v growing downward.
type QuadShader interface {
	Shade(u, v Scalar) Color
}

// QuadShaderFunc adapts a function to QuadShader.
type QuadShaderFunc func(u, v Scalar) Color

func (f QuadShaderFunc) Shade(u, v Scalar) Color { return f(u, v) }

// clipTarget maps viewport-relative pixels onto a parent target and drops
// pixels outside clip.
type clipTarget struct {
	t      Target
	origin Rect
	clip   Rect
}

func (c *clipTarget) Size() (w, h int) { return c.origin.W, c.origin.H }

func (c *clipTarget) SetPixel(x, y int, col Color) {
	tx, ty := x+c.origin.X, y+c.origin.Y
	if !c.clip.Contains(tx, ty) {
		return
	}
	c.t.SetPixel(tx, ty, col)
}

func (c *clipTarget) Clear(col Color) {
	for y := c.clip.Y; y < c.clip.Y+c.clip.H; y++ {
		for x := c.clip.X; x < c.clip.X+c.clip.W; x++ {
			c.t.SetPixel(x, y, col)
		}
	}
}

package quarkgl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// maxTargetPixels bounds a single offscreen allocation.
const maxTargetPixels = 8192 * 8192

// Renderer is a fixed-pipeline software renderer with GL-like state.
//
// Create it once and reuse it to avoid allocations. The screen target is fixed
// at construction; SetRenderTarget redirects drawing into offscreen targets.
type Renderer struct {
	Mode       RenderMode
	Depth      bool
	ClearColor Color

	screen         Target
	target         Target
	screenViewport Rect
	scissor        Rect
	scissorTest    bool
	pixelRatio     float32
	liveTargets    int

	depthBuf []float32
}

// NewRenderer creates a renderer drawing to screen.
//
// If enableDepth is true, a depth buffer is kept and resized on demand.
func NewRenderer(screen Target, enableDepth bool) *Renderer {
	return &Renderer{
		Mode:       RenderSolidFlat,
		Depth:      enableDepth,
		ClearColor: RGB(0, 0, 0),
		screen:     screen,
		pixelRatio: 1,
	}
}

func (r *Renderer) SetRenderMode(m RenderMode) { r.Mode = m }

// Size returns the screen size in pixels.
func (r *Renderer) Size() (w, h int) {
	if r.screen == nil {
		return 0, 0
	}
	return r.screen.Size()
}

// Screen returns the screen target.
func (r *Renderer) Screen() Target { return r.screen }

func (r *Renderer) PixelRatio() float32 { return r.pixelRatio }

// SetPixelRatio sets the density used to size offscreen targets. Non-positive values reset to 1.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	r.pixelRatio = ratio
}

// NewRenderTarget allocates a tracked offscreen target.
func (r *Renderer) NewRenderTarget(w, h int) (*RGBATarget, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("quarkgl: invalid render target size %dx%d", w, h)
	}
	if w*h > maxTargetPixels {
		return nil, fmt.Errorf("quarkgl: render target %dx%d exceeds limit", w, h)
	}
	t := NewRGBATarget(w, h)
	t.owner = r
	r.liveTargets++
	return t, nil
}

// LiveTargets returns the number of tracked targets not yet disposed.
func (r *Renderer) LiveTargets() int { return r.liveTargets }

// SetRenderTarget redirects drawing. nil selects the screen.
func (r *Renderer) SetRenderTarget(t Target) {
	if rt, ok := t.(*RGBATarget); ok && rt == nil {
		t = nil
	}
	r.target = t
}

func (r *Renderer) RenderTarget() Target { return r.target }

// SetViewport sets the screen viewport. Offscreen targets always use their full extent.
// An empty rect selects the whole screen.
func (r *Renderer) SetViewport(v Rect) { r.screenViewport = v }

func (r *Renderer) Viewport() Rect { return r.screenViewport }

func (r *Renderer) SetScissor(s Rect)         { r.scissor = s }
func (r *Renderer) SetScissorTest(enable bool) { r.scissorTest = enable }
func (r *Renderer) ScissorTest() bool         { return r.scissorTest }

// ResetState returns to drawing on the full screen without scissoring.
func (r *Renderer) ResetState() {
	r.target = nil
	r.scissorTest = false
	r.scissor = Rect{}
	r.screenViewport = Rect{}
}

func (r *Renderer) activeView() *clipTarget {
	t := r.target
	vp := Rect{}
	if t == nil {
		t = r.screen
		vp = r.screenViewport
	}
	if t == nil {
		return nil
	}
	tw, th := t.Size()
	full := Rect{W: tw, H: th}
	if vp.Empty() {
		vp = full
	}
	clip := vp.Intersect(full)
	if r.scissorTest {
		clip = clip.Intersect(r.scissor)
	}
	return &clipTarget{t: t, origin: vp, clip: clip}
}

func (r *Renderer) ensureDepth(w, h int) {
	if !r.Depth || w <= 0 || h <= 0 {
		r.depthBuf = nil
		return
	}
	if cap(r.depthBuf) < w*h {
		r.depthBuf = make([]float32, w*h)
	} else {
		r.depthBuf = r.depthBuf[:w*h]
	}
	for i := range r.depthBuf {
		r.depthBuf[i] = 1e9
	}
}

// Clear fills the active viewport, after clipping, with ClearColor.
func (r *Renderer) Clear() {
	if r == nil {
		return
	}
	if view := r.activeView(); view != nil && !view.clip.Empty() {
		view.Clear(r.ClearColor)
	}
}

// Render clears the active viewport and draws the scene as seen by cam.
func (r *Renderer) Render(s *Scene, cam *Camera) {
	if r == nil || s == nil || cam == nil {
		return
	}
	view := r.activeView()
	if view == nil {
		return
	}
	w, h := view.Size()
	if w <= 0 || h <= 0 || view.clip.Empty() {
		return
	}
	view.Clear(r.ClearColor)
	r.ensureDepth(w, h)

	aspect := Scalar(float32(w) / float32(h))
	viewM := cam.View()
	proj := cam.Projection(aspect)

	s.eachDrawable(cam.layers(), func(n *Node, world Mat4) {
		r.renderMesh(view, w, h, proj, viewM, world, n.Mesh, s.Light)
	})
}

// DrawQuad runs sh for every pixel of the active viewport that survives clipping.
func (r *Renderer) DrawQuad(sh QuadShader) {
	if r == nil || sh == nil {
		return
	}
	view := r.activeView()
	if view == nil || view.clip.Empty() {
		return
	}
	vp := view.origin
	invW := 1 / float32(vp.W)
	invH := 1 / float32(vp.H)
	for ty := view.clip.Y; ty < view.clip.Y+view.clip.H; ty++ {
		v := (float32(ty-vp.Y) + 0.5) * invH
		for tx := view.clip.X; tx < view.clip.X+view.clip.W; tx++ {
			u := (float32(tx-vp.X) + 0.5) * invW
			view.t.SetPixel(tx, ty, sh.Shade(u, v))
		}
	}
}

func (r *Renderer) renderMesh(t Target, w, h int, proj, view, world Mat4, m *Mesh, light Light) {
	if m == nil || len(m.Vertices) == 0 || len(m.Indices) < 3 {
		return
	}

	mvp := proj.Mul4(view).Mul4(world)

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0 := int(m.Indices[i+0])
		i1 := int(m.Indices[i+1])
		i2 := int(m.Indices[i+2])
		if i0 >= len(m.Vertices) || i1 >= len(m.Vertices) || i2 >= len(m.Vertices) {
			continue
		}

		v0 := m.Vertices[i0]
		v1 := m.Vertices[i1]
		v2 := m.Vertices[i2]

		p0 := mvp.Mul4x1(v0.Pos.Vec4(1))
		p1 := mvp.Mul4x1(v1.Pos.Vec4(1))
		p2 := mvp.Mul4x1(v2.Pos.Vec4(1))

		// Trivial clip: drop triangles touching the camera plane or behind it.
		if p0.W() <= 0 || p1.W() <= 0 || p2.W() <= 0 {
			continue
		}

		ndc0 := clipToNDC(p0)
		ndc1 := clipToNDC(p1)
		ndc2 := clipToNDC(p2)

		x0, y0 := ndcToScreen(ndc0, w, h)
		x1, y1 := ndcToScreen(ndc1, w, h)
		x2, y2 := ndcToScreen(ndc2, w, h)

		base := m.Material.BaseColor
		if light.Mode == LightAmbientDirectional {
			w0 := transformPoint(world, v0.Pos)
			n := Normalize(transformPoint(world, v1.Pos).Sub(w0).Cross(transformPoint(world, v2.Pos).Sub(w0)))
			base = base.MulScalar(lightIntensity(light, n))
		}

		switch r.Mode {
		case RenderWireframe:
			r.drawLine(t, x0, y0, x1, y1, base)
			r.drawLine(t, x1, y1, x2, y2, base)
			r.drawLine(t, x2, y2, x0, y0, base)
		case RenderSolidVertexColor:
			r.fillTriangle(t, w, h, x0, y0, ndc0.Z, v0.Color, x1, y1, ndc1.Z, v1.Color, x2, y2, ndc2.Z, v2.Color)
		default:
			r.fillTriangle(t, w, h, x0, y0, ndc0.Z, base, x1, y1, ndc1.Z, base, x2, y2, ndc2.Z, base)
		}
	}
}

type ndcPoint struct {
	X, Y, Z float32
}

func clipToNDC(p Vec4) ndcPoint {
	invW := 1 / p.W()
	return ndcPoint{X: p.X() * invW, Y: p.Y() * invW, Z: p.Z() * invW}
}

func ndcToScreen(p ndcPoint, w, h int) (x, y int) {
	sx := (p.X*0.5 + 0.5) * float32(w-1)
	sy := (1 - (p.Y*0.5 + 0.5)) * float32(h-1)
	return int(sx + 0.5), int(sy + 0.5)
}

func lightIntensity(l Light, n Vec3) Scalar {
	amb := mgl32.Clamp(l.Ambient, 0, 1)
	dir := mgl32.Clamp(l.DirAmount, 0, 1)
	ld := Normalize(l.Dir)
	if ld == (Vec3{}) {
		return amb
	}
	d := -n.Dot(ld)
	if d < 0 {
		d = -d // two-sided
	}
	return mgl32.Clamp(amb+d*dir, 0, 1)
}

func (r *Renderer) depthTest(w int, x, y int, z float32) bool {
	if !r.Depth || r.depthBuf == nil {
		return true
	}
	if x < 0 || y < 0 || x >= w {
		return false
	}
	idx := y*w + x
	if idx < 0 || idx >= len(r.depthBuf) {
		return false
	}
	// NDC z is typically in [-1,1]. Map to [0,1].
	d := mgl32.Clamp(z*0.5+0.5, 0, 1)
	if d >= r.depthBuf[idx] {
		return false
	}
	r.depthBuf[idx] = d
	return true
}

func (r *Renderer) drawLine(t Target, x0, y0, x1, y1 int, c Color) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		t.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (r *Renderer) fillTriangle(t Target, w, h int, x0, y0 int, z0 float32, c0 Color, x1, y1 int, z1 float32, c1 Color, x2, y2 int, z2 float32, c2 Color) {
	minX, maxX := max(min(x0, x1, x2), 0), min(max(x0, x1, x2), w-1)
	minY, maxY := max(min(y0, y1, y2), 0), min(max(y0, y1, y2), h-1)
	if minX > maxX || minY > maxY {
		return
	}

	area := edgeFn(x0, y0, x1, y1, x2, y2)
	if area == 0 {
		return
	}
	// Accept either winding.
	if area < 0 {
		x1, y1, z1, c1, x2, y2, z2, c2 = x2, y2, z2, c2, x1, y1, z1, c1
		area = -area
	}
	invArea := 1.0 / float32(area)
	flat := c0 == c1 && c1 == c2

	r0, g0, b0 := float32(c0.R), float32(c0.G), float32(c0.B)
	r1, g1, b1 := float32(c1.R), float32(c1.G), float32(c1.B)
	r2, g2, b2 := float32(c2.R), float32(c2.G), float32(c2.B)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := edgeFn(x1, y1, x2, y2, x, y)
			w1 := edgeFn(x2, y2, x0, y0, x, y)
			w2 := edgeFn(x0, y0, x1, y1, x, y)
			if (w0 | w1 | w2) < 0 {
				continue
			}
			a0 := float32(w0) * invArea
			a1 := float32(w1) * invArea
			a2 := float32(w2) * invArea
			if !r.depthTest(w, x, y, a0*z0+a1*z1+a2*z2) {
				continue
			}
			if flat {
				t.SetPixel(x, y, c0)
				continue
			}
			rr := uint8(mgl32.Clamp(a0*r0+a1*r1+a2*r2, 0, 255))
			gg := uint8(mgl32.Clamp(a0*g0+a1*g1+a2*g2, 0, 255))
			bb := uint8(mgl32.Clamp(a0*b0+a1*b1+a2*b2, 0, 255))
			t.SetPixel(x, y, Color{R: rr, G: gg, B: bb, A: 0xFF})
		}
	}
}

func edgeFn(x0, y0, x1, y1, x, y int) int {
	return (x-x0)*(y1-y0) - (y-y0)*(x1-x0)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

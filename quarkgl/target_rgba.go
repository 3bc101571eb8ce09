package quarkgl

import "image"

// RGBATarget is an offscreen 32-bit target backed by an image.RGBA.
//
// Targets created by Renderer.NewRenderTarget are counted until Dispose.
type RGBATarget struct {
	Img *image.RGBA

	owner    *Renderer
	disposed bool
}

// NewRGBATarget allocates an untracked target.
func NewRGBATarget(w, h int) *RGBATarget {
	return &RGBATarget{Img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (t *RGBATarget) Size() (w, h int) {
	if t == nil || t.Img == nil {
		return 0, 0
	}
	b := t.Img.Bounds()
	return b.Dx(), b.Dy()
}

func (t *RGBATarget) SetPixel(x, y int, c Color) {
	if t == nil || t.Img == nil {
		return
	}
	w, h := t.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	i := t.Img.PixOffset(x, y)
	p := t.Img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

func (t *RGBATarget) At(x, y int) Color {
	if t == nil || t.Img == nil {
		return Color{}
	}
	w, h := t.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return Color{}
	}
	i := t.Img.PixOffset(x, y)
	p := t.Img.Pix[i : i+4 : i+4]
	return Color{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func (t *RGBATarget) Clear(c Color) {
	if t == nil || t.Img == nil {
		return
	}
	pix := t.Img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// Dispose releases the pixel buffer. Safe to call more than once.
func (t *RGBATarget) Dispose() {
	if t == nil || t.disposed {
		return
	}
	t.disposed = true
	t.Img = nil
	if t.owner != nil {
		t.owner.liveTargets--
	}
}

// Disposed reports whether Dispose has been called.
func (t *RGBATarget) Disposed() bool { return t == nil || t.disposed }

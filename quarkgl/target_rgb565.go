package quarkgl

// RGB565Target renders into an RGB565 framebuffer buffer.
//
// Callers provide the backing buffer and layout (stride); the host framebuffer
// is the usual screen target.
type RGB565Target struct {
	Buf    []byte
	Stride int // bytes per row
	W      int
	H      int
}

func (t *RGB565Target) Size() (w, h int) { return t.W, t.H }

func (t *RGB565Target) valid() bool {
	return t != nil && t.Buf != nil && t.Stride > 0 && t.W > 0 && t.H > 0
}

func (t *RGB565Target) Clear(c Color) {
	if !t.valid() {
		return
	}
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			t.SetPixel(x, y, c)
		}
	}
}

func (t *RGB565Target) SetPixel(x, y int, c Color) {
	if !t.valid() || x < 0 || y < 0 || x >= t.W || y >= t.H {
		return
	}
	off := y*t.Stride + x*2
	if off < 0 || off+1 >= len(t.Buf) {
		return
	}
	p := rgb565From888(c.R, c.G, c.B)
	t.Buf[off] = byte(p)
	t.Buf[off+1] = byte(p >> 8)
}

// At decodes the pixel at (x, y). Low bits lost by the 565 packing read back as zero.
func (t *RGB565Target) At(x, y int) Color {
	if !t.valid() || x < 0 || y < 0 || x >= t.W || y >= t.H {
		return Color{}
	}
	off := y*t.Stride + x*2
	if off < 0 || off+1 >= len(t.Buf) {
		return Color{}
	}
	p := uint16(t.Buf[off]) | uint16(t.Buf[off+1])<<8
	return RGB(uint8(p>>11)<<3, uint8(p>>5)<<2, uint8(p)<<3)
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

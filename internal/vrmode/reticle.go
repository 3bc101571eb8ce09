package vrmode

import (
	"math"

	"quarkvr/internal/gaze"
	"quarkvr/internal/stereo"
	"quarkvr/quarkgl"
)

// Reticle is the head-locked overlay: a ring at the centre of each eye that
// fills clockwise with dwell progress.
type Reticle struct {
	Gaze *gaze.Engine

	// Radius is the ring radius as a fraction of the eye height. Zero means 0.03.
	Radius   float32
	Idle     quarkgl.Color
	Hover    quarkgl.Color
	Progress quarkgl.Color
}

// NewReticle returns a reticle showing g's dwell progress.
func NewReticle(g *gaze.Engine) *Reticle {
	return &Reticle{
		Gaze:     g,
		Idle:     quarkgl.RGB(0xE0, 0xE8, 0xFF),
		Hover:    quarkgl.RGB(0x90, 0xA0, 0xB8),
		Progress: quarkgl.RGB(0xFF, 0x99, 0x33),
	}
}

// DrawEye implements stereo.Overlay.
func (r *Reticle) DrawEye(t quarkgl.Target, _ stereo.Eye) {
	w, h := t.Size()
	if w <= 0 || h <= 0 {
		return
	}
	frac := r.Radius
	if frac <= 0 {
		frac = 0.03
	}
	radius := max(float64(frac)*float64(h), 2)
	cx, cy := float64(w)/2, float64(h)/2

	var st gaze.State
	if r.Gaze != nil {
		st = r.Gaze.State()
	}
	if st.Hovered == nil {
		t.SetPixel(int(cx), int(cy), r.Idle)
		return
	}

	// One sample per pixel of circumference, starting at twelve o'clock.
	steps := int(2*math.Pi*radius) + 1
	lit := int(float32(steps) * st.Progress)
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + radius*math.Sin(a)
		y := cy - radius*math.Cos(a)
		c := r.Hover
		if i < lit {
			c = r.Progress
		}
		t.SetPixel(int(math.Round(x)), int(math.Round(y)), c)
	}
}

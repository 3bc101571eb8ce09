package quarkgl

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LookController turns pointer drags into camera yaw/pitch.
//
// It does not depend on any input system; callers feed it drag deltas in pixels.
// While Enabled is false, Rotate is ignored and Apply leaves the camera alone.
type LookController struct {
	Enabled bool

	Yaw   Scalar
	Pitch Scalar

	// RadiansPerPixel scales drag deltas. Zero means 0.005.
	RadiansPerPixel Scalar
	// MaxPitch clamps looking up/down. Zero means just under 90°.
	MaxPitch Scalar
}

// Rotate applies a drag. Dragging right turns the view left, like grabbing the scene.
func (c *LookController) Rotate(dx, dy Scalar) {
	if !c.Enabled {
		return
	}
	k := c.RadiansPerPixel
	if k == 0 {
		k = 0.005
	}
	c.Yaw += dx * k
	c.Pitch += dy * k
	c.clamp()
}

func (c *LookController) clamp() {
	limit := c.MaxPitch
	if limit == 0 {
		limit = Scalar(math.Pi/2 - 0.01)
	}
	if c.Pitch > limit {
		c.Pitch = limit
	}
	if c.Pitch < -limit {
		c.Pitch = -limit
	}
}

// Apply writes the controller orientation to cam.
func (c *LookController) Apply(cam *Camera) {
	if cam == nil || !c.Enabled {
		return
	}
	yaw := mgl32.QuatRotate(c.Yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	cam.Rotation = yaw.Mul(pitch).Normalize()
}

// SyncFrom adopts the camera's current heading so handing control back does not snap.
func (c *LookController) SyncFrom(cam *Camera) {
	if cam == nil {
		return
	}
	f := cam.Forward()
	c.Yaw = Scalar(math.Atan2(float64(-f.X()), float64(-f.Z())))
	c.Pitch = Scalar(math.Asin(float64(mgl32.Clamp(f.Y(), -1, 1))))
	c.clamp()
}

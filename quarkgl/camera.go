package quarkgl

import "github.com/go-gl/mathgl/mgl32"

// CameraType selects camera projection.
type CameraType uint8

const (
	CameraPerspective CameraType = iota
	CameraOrtho
)

// Camera describes the viewing transform.
//
// Rotation is the camera's world orientation. The camera looks along its
// local -Z axis.
type Camera struct {
	Type CameraType

	Position Vec3
	Rotation mgl32.Quat

	// Perspective.
	FOVYRad Scalar
	// Aspect is width/height. Zero means "use the viewport aspect".
	Aspect Scalar

	// Orthographic (half-height).
	OrthoSize Scalar

	Near Scalar
	Far  Scalar

	// Layers selects which node layers this camera renders. Zero means LayerDefault.
	Layers LayerMask
}

// NewCamera returns a perspective camera at the origin looking down -Z.
func NewCamera(fovYRad Scalar) *Camera {
	return &Camera{
		Type:      CameraPerspective,
		Rotation:  mgl32.QuatIdent(),
		FOVYRad:   fovYRad,
		Near:      0.05,
		Far:       100,
		OrthoSize: 1,
		Layers:    LayerDefault,
	}
}

func (c *Camera) rotation() mgl32.Quat {
	if c.Rotation.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return c.Rotation.Normalize()
}

// Forward returns the world-space viewing direction.
func (c *Camera) Forward() Vec3 { return c.rotation().Rotate(Vec3{0, 0, -1}) }

// Right returns the world-space +X axis of the camera.
func (c *Camera) Right() Vec3 { return c.rotation().Rotate(Vec3{1, 0, 0}) }

// Up returns the world-space +Y axis of the camera.
func (c *Camera) Up() Vec3 { return c.rotation().Rotate(Vec3{0, 1, 0}) }

// LookAt orients the camera toward target keeping up as close to +Y as possible.
func (c *Camera) LookAt(target Vec3) {
	f := Normalize(target.Sub(c.Position))
	if f == (Vec3{}) {
		return
	}
	up := V3(0, 1, 0)
	s := f.Cross(up)
	if s.Len() < 1e-6 {
		up = V3(0, 0, 1)
		s = f.Cross(up)
	}
	s = Normalize(s)
	u := s.Cross(f)
	m := mgl32.Mat3FromCols(s, u, f.Mul(-1))
	c.Rotation = mgl32.Mat4ToQuat(m.Mat4()).Normalize()
}

// View returns the camera view matrix.
func (c *Camera) View() Mat4 {
	inv := c.rotation().Conjugate().Mat4()
	return inv.Mul4(Translate(c.Position.Mul(-1)))
}

// Projection returns the projection matrix. The camera aspect wins over the
// supplied fallback when set.
func (c *Camera) Projection(fallbackAspect Scalar) Mat4 {
	aspect := c.Aspect
	if aspect == 0 {
		aspect = fallbackAspect
	}
	if aspect == 0 {
		aspect = 1
	}
	switch c.Type {
	case CameraOrtho:
		size := c.OrthoSize
		if size == 0 {
			size = 1
		}
		top := size
		bottom := -size
		right := size * aspect
		left := -right
		return mgl32.Ortho(left, right, bottom, top, c.Near, c.Far)
	default:
		fov := c.FOVYRad
		if fov == 0 {
			fov = Scalar(1.0)
		}
		return mgl32.Perspective(fov, aspect, c.Near, c.Far)
	}
}

// FOVDegrees returns the vertical field of view in degrees.
func (c *Camera) FOVDegrees() Scalar { return mgl32.RadToDeg(c.FOVYRad) }

// SetFOVDegrees sets the vertical field of view in degrees.
func (c *Camera) SetFOVDegrees(deg Scalar) { c.FOVYRad = mgl32.DegToRad(deg) }

func (c *Camera) layers() LayerMask {
	if c.Layers == 0 {
		return LayerDefault
	}
	return c.Layers
}

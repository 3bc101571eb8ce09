package quarkgl

import "github.com/go-gl/mathgl/mgl32"

// Scalar is the engine's float type.
type Scalar = float32

// The engine shares mathgl's vector and matrix types with the camera and
// orientation code. Matrices are column-major, m[col*4+row].
type (
	Vec3 = mgl32.Vec3
	Vec4 = mgl32.Vec4
	Mat4 = mgl32.Mat4
)

func V3(x, y, z Scalar) Vec3 { return Vec3{x, y, z} }

// Normalize returns v at unit length. The zero vector stays zero, where
// Vec3.Normalize would produce NaNs.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// Translate returns the matrix moving points by v.
func Translate(v Vec3) Mat4 { return mgl32.Translate3D(v[0], v[1], v[2]) }

// transformPoint applies m to p with w=1 and drops w.
func transformPoint(m Mat4, p Vec3) Vec3 { return m.Mul4x1(p.Vec4(1)).Vec3() }

package quarkgl

import "math"

// NewQuadMesh returns a size×size square in the XY plane facing +Z.
func NewQuadMesh(size Scalar, c Color) Mesh {
	h := size / 2
	return Mesh{
		Vertices: []Vertex{
			{Pos: V3(-h, -h, 0), Color: c},
			{Pos: V3(h, -h, 0), Color: c},
			{Pos: V3(h, h, 0), Color: c},
			{Pos: V3(-h, h, 0), Color: c},
		},
		Indices:  []uint16{0, 1, 2, 0, 2, 3},
		Material: Material{BaseColor: c, Opacity: 0xFF},
	}
}

// NewBoxMesh returns an axis-aligned box centred on the origin.
func NewBoxMesh(sx, sy, sz Scalar, c Color) Mesh {
	x, y, z := sx/2, sy/2, sz/2
	corners := [8]Vec3{
		V3(-x, -y, -z), V3(x, -y, -z), V3(x, y, -z), V3(-x, y, -z),
		V3(-x, -y, z), V3(x, -y, z), V3(x, y, z), V3(-x, y, z),
	}
	verts := make([]Vertex, len(corners))
	for i, p := range corners {
		verts[i] = Vertex{Pos: p, Color: c}
	}
	return Mesh{
		Vertices: verts,
		Indices: []uint16{
			4, 5, 6, 4, 6, 7, // +z
			1, 0, 3, 1, 3, 2, // -z
			5, 1, 2, 5, 2, 6, // +x
			0, 4, 7, 0, 7, 3, // -x
			7, 6, 2, 7, 2, 3, // +y
			0, 1, 5, 0, 5, 4, // -y
		},
		Material: Material{BaseColor: c, Opacity: 0xFF},
	}
}

// NewTorusMesh returns a torus around the Y axis.
func NewTorusMesh(major, minor Scalar, segU, segV int, c Color) Mesh {
	if segU < 3 {
		segU = 3
	}
	if segV < 3 {
		segV = 3
	}

	verts := make([]Vertex, 0, segU*segV)
	indices := make([]uint16, 0, segU*segV*6)

	twoPi := float32(2 * math.Pi)
	for u := 0; u < segU; u++ {
		theta := twoPi * float32(u) / float32(segU)
		ct := float32(math.Cos(float64(theta)))
		st := float32(math.Sin(float64(theta)))
		for v := 0; v < segV; v++ {
			phi := twoPi * float32(v) / float32(segV)
			cp := float32(math.Cos(float64(phi)))
			sp := float32(math.Sin(float64(phi)))

			r := major + minor*cp
			verts = append(verts, Vertex{Pos: V3(r*ct, minor*sp, r*st), Color: c})
		}
	}

	idx := func(u, v int) uint16 {
		return uint16((u%segU)*segV + v%segV)
	}
	for u := 0; u < segU; u++ {
		for v := 0; v < segV; v++ {
			i0 := idx(u, v)
			i1 := idx(u+1, v)
			i2 := idx(u+1, v+1)
			i3 := idx(u, v+1)
			indices = append(indices, i0, i1, i2, i0, i2, i3)
		}
	}

	return Mesh{
		Vertices: verts,
		Indices:  indices,
		Material: Material{BaseColor: c, Opacity: 0xFF},
	}
}

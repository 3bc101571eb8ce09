package quarkgl

import (
	"math"
	"sort"
)

// Ray is a half-line in world space. Dir must be normalized.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t Scalar) Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// Hit is one ray/triangle intersection.
type Hit struct {
	Node     *Node
	Distance Scalar
	Point    Vec3
	Face     int // index of the first vertex index of the hit triangle
}

// Raycaster intersects a ray with node meshes.
type Raycaster struct {
	Ray  Ray
	Near Scalar
	Far  Scalar // zero means unbounded
	// Layers limits hits to mesh nodes on these layers. Zero means all.
	Layers LayerMask
}

// NewRaycasterFromCamera casts along the camera's viewing direction and only
// hits what the camera would draw.
func NewRaycasterFromCamera(cam *Camera) *Raycaster {
	return &Raycaster{
		Ray: Ray{
			Origin: cam.Position,
			Dir:    Normalize(cam.Forward()),
		},
		Layers: cam.layers(),
	}
}

// IntersectNodes tests nodes (and their descendants when recursive) and returns
// hits sorted by increasing distance.
func (rc *Raycaster) IntersectNodes(nodes []*Node, recursive bool) []Hit {
	var hits []Hit
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if recursive {
			n.Traverse(func(c *Node) { hits = rc.intersectNode(c, hits) })
			continue
		}
		hits = rc.intersectNode(n, hits)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

func (rc *Raycaster) intersectNode(n *Node, hits []Hit) []Hit {
	m := n.Mesh
	if m == nil || len(m.Vertices) == 0 || len(m.Indices) < 3 {
		return hits
	}
	if rc.Layers != 0 && n.layers()&rc.Layers == 0 {
		return hits
	}
	world := n.WorldMatrix()
	far := rc.Far
	if far <= 0 {
		far = Scalar(math.MaxFloat32)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
		if i0 >= len(m.Vertices) || i1 >= len(m.Vertices) || i2 >= len(m.Vertices) {
			continue
		}
		a := transformPoint(world, m.Vertices[i0].Pos)
		b := transformPoint(world, m.Vertices[i1].Pos)
		c := transformPoint(world, m.Vertices[i2].Pos)
		t, ok := intersectTriangle(rc.Ray, a, b, c)
		if !ok || t < rc.Near || t > far {
			continue
		}
		hits = append(hits, Hit{Node: n, Distance: t, Point: rc.Ray.At(t), Face: i})
	}
	return hits
}

// intersectTriangle is the Möller–Trumbore test. Both faces count as hits.
func intersectTriangle(r Ray, a, b, c Vec3) (Scalar, bool) {
	const eps = 1e-7
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det > -eps && det < eps {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}

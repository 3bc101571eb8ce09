package quarkgl

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Material is a minimal surface description.
type Material struct {
	BaseColor Color
	Opacity   uint8 // 0..255. 255 means opaque.
}

// LightMode defines minimal lighting options.
type LightMode uint8

const (
	LightOff LightMode = iota
	LightAmbientDirectional
)

// Light is a minimal light setup.
type Light struct {
	Mode      LightMode
	Ambient   Scalar // 0..1
	Dir       Vec3   // direction *towards* the scene
	DirAmount Scalar // 0..1
}

// LayerMask selects render layers. A node is drawn by a camera when their masks intersect.
type LayerMask uint32

const (
	LayerDefault LayerMask = 1 << iota
	LayerLeftEye
	LayerRightEye

	LayerAll LayerMask = 0xFFFFFFFF
)

// Vertex is a mesh vertex.
type Vertex struct {
	Pos    Vec3
	Normal Vec3
	Color  Color
}

// Mesh is an indexed triangle list in node-local space.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16 // triangle list

	Material Material
}

// Node is a scene-graph node. Nodes are owned by the application; the engine
// only reads them.
type Node struct {
	ID      uuid.UUID
	Name    string
	Visible bool
	Layers  LayerMask

	// Transform is relative to the parent node.
	Transform Mat4
	Mesh      *Mesh

	parent   *Node
	children []*Node
}

// NewNode returns a visible node with an identity transform on the default layer.
func NewNode(name string) *Node {
	return &Node{
		ID:        uuid.New(),
		Name:      name,
		Visible:   true,
		Layers:    LayerDefault,
		Transform: mgl32.Ident4(),
	}
}

// NewMeshNode wraps a mesh in a new node, filling material defaults.
func NewMeshNode(name string, m Mesh) *Node {
	if m.Material.Opacity == 0 {
		m.Material.Opacity = 0xFF
	}
	if m.Material.BaseColor == (Color{}) {
		m.Material.BaseColor = RGB(0xCC, 0xCC, 0xCC)
	}
	n := NewNode(name)
	n.Mesh = &m
	return n
}

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if n == nil || child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child from n.
func (n *Node) Remove(child *Node) {
	if n == nil || child == nil {
		return
	}
	for i, c := range n.children {
		if c != child {
			continue
		}
		n.children = append(n.children[:i], n.children[i+1:]...)
		child.parent = nil
		return
	}
}

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }

// WorldMatrix composes the transforms from the root down to n.
func (n *Node) WorldMatrix() Mat4 {
	m := n.local()
	for p := n.parent; p != nil; p = p.parent {
		m = p.local().Mul4(m)
	}
	return m
}

// VisibleInHierarchy reports whether n and every ancestor are visible.
func (n *Node) VisibleInHierarchy() bool {
	for c := n; c != nil; c = c.parent {
		if !c.Visible {
			return false
		}
	}
	return true
}

// Traverse calls fn for n and every descendant, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

func (n *Node) local() Mat4 {
	if n.Transform == (Mat4{}) {
		return mgl32.Ident4()
	}
	return n.Transform
}

func (n *Node) layers() LayerMask {
	if n.Layers == 0 {
		return LayerDefault
	}
	return n.Layers
}

// Scene is a node tree plus lighting.
type Scene struct {
	Root  *Node
	Light Light
}

// NewScene allocates an empty scene with default lighting.
func NewScene() *Scene {
	return &Scene{
		Root: NewNode("root"),
		Light: Light{
			Mode:      LightAmbientDirectional,
			Ambient:   Scalar(0.25),
			Dir:       Normalize(V3(1, 1, 1)),
			DirAmount: Scalar(0.75),
		},
	}
}

// Add attaches n to the scene root.
func (s *Scene) Add(n *Node) {
	if s == nil || s.Root == nil {
		return
	}
	s.Root.Add(n)
}

// eachDrawable visits visible mesh nodes on the given layers with their world matrix.
func (s *Scene) eachDrawable(layers LayerMask, fn func(n *Node, world Mat4)) {
	if s == nil || s.Root == nil {
		return
	}
	var walk func(n *Node, parent Mat4)
	walk = func(n *Node, parent Mat4) {
		if !n.Visible {
			return
		}
		world := parent.Mul4(n.local())
		if n.Mesh != nil && n.layers()&layers != 0 {
			fn(n, world)
		}
		for _, c := range n.children {
			walk(c, world)
		}
	}
	walk(s.Root, mgl32.Ident4())
}

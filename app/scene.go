package app

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"quarkvr/internal/gaze"
	"quarkvr/quarkgl"
)

// action is a deferred response to a hotspot click. Clicks fire inside the
// frame, so anything that changes the mode runs after it.
type action uint8

const (
	actionNone action = iota
	actionToggleSpin
	actionNextColor
	actionToggleMenu
	actionToggleWireframe
	actionExitVR
)

var palette = []quarkgl.Color{
	quarkgl.RGB(0xFF, 0x99, 0x33),
	quarkgl.RGB(0x33, 0xCC, 0xFF),
	quarkgl.RGB(0x99, 0xFF, 0x66),
	quarkgl.RGB(0xFF, 0x55, 0x88),
}

// demoScene is a torus surrounded by gaze hotspots.
type demoScene struct {
	scene *quarkgl.Scene

	torus   *quarkgl.Node
	menu    *quarkgl.Node
	hotspot []*quarkgl.Node

	spin     bool
	angle    float32
	colorIdx int

	actions []action
}

func newDemoScene(reg *gaze.Registry) *demoScene {
	d := &demoScene{scene: quarkgl.NewScene(), spin: true}
	s := d.scene
	s.Light = quarkgl.Light{
		Mode:      quarkgl.LightAmbientDirectional,
		Ambient:   0.18,
		Dir:       quarkgl.Normalize(quarkgl.V3(-0.4, 0.9, 0.3)),
		DirAmount: 0.85,
	}

	d.torus = quarkgl.NewMeshNode("torus", quarkgl.NewTorusMesh(1.0, 0.38, 32, 16, palette[0]))
	d.torus.Transform = quarkgl.Translate(quarkgl.V3(0, 0, -5))
	s.Add(d.torus)

	// Stereo card: each eye gets its own image when the pipeline shows a stereo pair.
	card := quarkgl.NewNode("card")
	card.Transform = quarkgl.Translate(quarkgl.V3(0, 2.2, -5))
	left := quarkgl.NewMeshNode("card-left", quarkgl.NewQuadMesh(1.2, quarkgl.RGB(0xCC, 0x44, 0x44)))
	left.Layers = quarkgl.LayerLeftEye
	right := quarkgl.NewMeshNode("card-right", quarkgl.NewQuadMesh(1.2, quarkgl.RGB(0x44, 0x44, 0xCC)))
	right.Layers = quarkgl.LayerRightEye
	card.Add(left)
	card.Add(right)
	s.Add(card)

	d.addHotspot(reg, "spin", quarkgl.V3(-2, -1.2, -4), 0, actionToggleSpin)
	d.addHotspot(reg, "color", quarkgl.V3(2, -1.2, -4), 2500*time.Millisecond, actionNextColor)
	d.addHotspot(reg, "menu", quarkgl.V3(0, -1.8, -3.5), 0, actionToggleMenu)
	d.addHotspot(reg, "exit", quarkgl.V3(0, 0, 4), 0, actionExitVR)

	// Hidden until the menu hotspot opens it.
	d.menu = quarkgl.NewNode("menu-items")
	d.menu.Visible = false
	s.Add(d.menu)
	d.menu.Add(d.addHotspot(reg, "wireframe", quarkgl.V3(-1, -3, -3.5), 0, actionToggleWireframe))
	return d
}

func (d *demoScene) addHotspot(reg *gaze.Registry, name string, at quarkgl.Vec3, dwell time.Duration, a action) *quarkgl.Node {
	base := quarkgl.RGB(0x70, 0x80, 0x98)
	n := quarkgl.NewMeshNode(name, quarkgl.NewBoxMesh(0.6, 0.6, 0.6, base))
	n.Transform = quarkgl.Translate(at)
	d.scene.Add(n)
	d.hotspot = append(d.hotspot, n)

	reg.Register(n, gaze.Interactable{
		ActivationTime: dwell,
		OnClick:        func(quarkgl.Hit) { d.actions = append(d.actions, a) },
		OnHoverIn:      func() { n.Mesh.Material.BaseColor = base.Lift(0.6) },
		OnHoverOut:     func() { n.Mesh.Material.BaseColor = base },
	})
	return n
}

// candidates is the per-frame interactable list.
func (d *demoScene) candidates() []*quarkgl.Node { return d.hotspot }

// takeActions returns and clears the clicks collected during the last frame.
func (d *demoScene) takeActions() []action {
	a := d.actions
	d.actions = nil
	return a
}

func (d *demoScene) step(dt time.Duration) {
	if d.spin {
		d.angle += float32(dt.Seconds()) * 1.2
		if d.angle > 2*math.Pi {
			d.angle -= 2 * math.Pi
		}
	}
	d.torus.Transform = quarkgl.Translate(quarkgl.V3(0, 0, -5)).
		Mul4(mgl32.HomogRotate3DY(d.angle)).
		Mul4(mgl32.HomogRotate3DX(0.65))
}

func (d *demoScene) nextColor() {
	d.colorIdx = (d.colorIdx + 1) % len(palette)
	d.torus.Mesh.Material.BaseColor = palette[d.colorIdx]
}

func (d *demoScene) toggleMenu() { d.menu.Visible = !d.menu.Visible }

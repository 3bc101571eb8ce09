//go:build cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

var hostKeys = []struct {
	key  ebiten.Key
	code KeyCode
}{
	{ebiten.KeyEnter, KeyEnter},
	{ebiten.KeyEscape, KeyEscape},
	{ebiten.KeySpace, KeySpace},
	{ebiten.KeyV, KeyV},
	{ebiten.KeyF, KeyF},
}

func (k *hostKeyboard) poll() {
	emit := func(code KeyCode, press bool) {
		select {
		case k.ch <- KeyEvent{Code: code, Press: press}:
		default:
		}
	}
	for _, hk := range hostKeys {
		if inpututil.IsKeyJustPressed(hk.key) {
			emit(hk.code, true)
		}
		if inpututil.IsKeyJustReleased(hk.key) {
			emit(hk.code, false)
		}
	}
}

// hostPointer turns left-button drags into look deltas. A press and release
// without movement counts as a confirm click.
type hostPointer struct {
	dragging   bool
	moved      bool
	lastX      int
	lastY      int
	dx, dy     float32
	confirmed  bool
	clickSlack int
}

func newHostPointer() *hostPointer {
	return &hostPointer{clickSlack: 3}
}

func (p *hostPointer) poll() {
	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		p.dragging = true
		p.moved = false
		p.lastX, p.lastY = x, y
	case p.dragging && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		ddx, ddy := x-p.lastX, y-p.lastY
		if abs(ddx) > p.clickSlack || abs(ddy) > p.clickSlack || p.moved {
			p.moved = true
			p.dx += float32(ddx)
			p.dy += float32(ddy)
			p.lastX, p.lastY = x, y
		}
	}
	if p.dragging && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		p.dragging = false
		if !p.moved {
			p.confirmed = true
		}
	}
}

// Drag returns the motion accumulated since the last call.
func (p *hostPointer) Drag() (dx, dy float32) {
	dx, dy = p.dx, p.dy
	p.dx, p.dy = 0, 0
	return dx, dy
}

// Confirmed reports a click since the last call.
func (p *hostPointer) Confirmed() bool {
	c := p.confirmed
	p.confirmed = false
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

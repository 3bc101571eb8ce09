//go:build cgo

package hal

import (
	"errors"
	"time"

	"quarkvr/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the framebuffer and forwards input.
// It blocks until the window closes or step returns an error.
func RunWindow(cfg HostConfig, newApp func(HAL) StepFunc) error {
	h, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer h.close()

	if m := ebiten.Monitor(); m != nil {
		h.scale = m.DeviceScaleFactor()
	}
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("quarkvr (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	err = ebiten.RunGame(g)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

var errQuit = errors.New("quit")

type hostGame struct {
	h     *hostHAL
	pix   []byte
	fbImg *ebiten.Image
	step  StepFunc
	last  time.Time
}

func (g *hostGame) Update() error {
	now := time.Now()
	dt := time.Second / time.Duration(ebiten.TPS())
	if !g.last.IsZero() {
		dt = now.Sub(g.last)
	}
	g.last = now

	g.h.pump()
	if g.step != nil {
		if err := g.step(dt); err != nil {
			if errors.Is(err, ErrQuit) {
				return errQuit
			}
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil || len(g.pix) != fb.width*fb.height*4 {
		g.pix = make([]byte, fb.width*fb.height*4)
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	fb.snapshotRGBA(g.pix)
	g.fbImg.WritePixels(g.pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(_, _ int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}

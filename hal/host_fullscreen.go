//go:build cgo

package hal

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
)

// hostFullscreen toggles the ebiten window between windowed and fullscreen.
type hostFullscreen struct{}

func newHostFullscreen() *hostFullscreen { return &hostFullscreen{} }

func (*hostFullscreen) Supported() bool { return true }

func (*hostFullscreen) Request(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ebiten.SetFullscreen(true)
	return nil
}

func (*hostFullscreen) Exit() error {
	ebiten.SetFullscreen(false)
	return nil
}

func (*hostFullscreen) Active() bool { return ebiten.IsFullscreen() }

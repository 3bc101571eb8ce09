//go:build !cgo

package hal

import "context"

type hostFullscreen struct{}

func newHostFullscreen() *hostFullscreen { return &hostFullscreen{} }

func (*hostFullscreen) Supported() bool                 { return false }
func (*hostFullscreen) Request(_ context.Context) error { return ErrNotImplemented }
func (*hostFullscreen) Exit() error                     { return ErrNotImplemented }
func (*hostFullscreen) Active() bool                    { return false }

//go:build !cgo

package hal

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }
func (k *hostKeyboard) poll()                   {}

type hostPointer struct{}

func newHostPointer() *hostPointer { return &hostPointer{} }

func (p *hostPointer) poll()                   {}
func (p *hostPointer) Drag() (dx, dy float32) { return 0, 0 }
func (p *hostPointer) Confirmed() bool         { return false }

package app

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"quarkvr/hal"
)

// guardStep converts a panic escaping step into an error the host runner
// reports, after logging the stack and painting the screen.
func guardStep(h hal.HAL, log *zap.Logger, step hal.StepFunc) hal.StepFunc {
	return func(dt time.Duration) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("app: panic: %v", r)
			log.Error("frame panicked", zap.Any("panic", r), zap.Strings("stack", stackLines(debug.Stack())))
			paintPanic(h)
		}()
		return step(dt)
	}
}

func stackLines(stack []byte) []string {
	var out []string
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// paintPanic fills the screen with a stripe pattern so a crash is visible
// even without a console.
func paintPanic(h hal.HAL) {
	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	fb.ClearRGB(0x40, 0, 0)
	buf := fb.Buffer()
	w, ht := fb.Width(), fb.Height()
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			if (x+y)/8%2 != 0 {
				continue
			}
			off := y*fb.StrideBytes() + x*2
			if off < 0 || off+1 >= len(buf) {
				continue
			}
			buf[off] = 0x00
			buf[off+1] = 0xF8 // red in RGB565
		}
	}
	_ = fb.Present()
}

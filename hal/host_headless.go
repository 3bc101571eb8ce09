package hal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64
}

// RunHeadless runs the application step on a ticker without opening a window.
// It returns when ctx is done, Ticks steps have run, or step returns ErrQuit.
func RunHeadless(ctx context.Context, hc HeadlessConfig, cfg HostConfig, newApp func(HAL) StepFunc) error {
	if hc.Hz <= 0 {
		hc.Hz = 60
	}
	d := time.Second / time.Duration(hc.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", hc.Hz)
	}

	h, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer h.close()
	step := newApp(h)

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.pump()
			if step != nil {
				if err := step(d); err != nil {
					if errors.Is(err, ErrQuit) {
						return nil
					}
					return err
				}
			}
			tick++
			if hc.Ticks > 0 && tick >= hc.Ticks {
				return nil
			}
		}
	}
}

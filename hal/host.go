package hal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HostConfig configures the desktop/headless host.
type HostConfig struct {
	Width, Height int

	// SensorAddr enables the motion sensor bridge on this listen address.
	SensorAddr        string
	PermissionTimeout time.Duration

	Logger *zap.Logger
}

type hostHAL struct {
	log    *zap.Logger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	ptr    *hostPointer
	scale  float64
	sensor *SensorBridge
	fs     *hostFullscreen
	lock   hostOrientationLock
}

func newHost(cfg HostConfig) (*hostHAL, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 320
	}
	h := &hostHAL{
		log:   log.Named("hal"),
		fb:    newHostFramebuffer(cfg.Width, cfg.Height),
		kbd:   newHostKeyboard(),
		ptr:   newHostPointer(),
		scale: 1,
		fs:    newHostFullscreen(),
	}
	if cfg.SensorAddr != "" {
		b := NewSensorBridge(h.log, cfg.PermissionTimeout)
		if err := b.Listen(cfg.SensorAddr); err != nil {
			return nil, err
		}
		h.sensor = b
	}
	return h, nil
}

func (h *hostHAL) Logger() *zap.Logger { return h.log }
func (h *hostHAL) Display() Display    { return hostDisplay{h: h} }
func (h *hostHAL) Input() Input        { return hostInput{kbd: h.kbd, ptr: h.ptr} }

func (h *hostHAL) MotionSensor() MotionSensor {
	if h.sensor == nil {
		return nil
	}
	return h.sensor
}

func (h *hostHAL) Fullscreen() Fullscreen           { return h.fs }
func (h *hostHAL) OrientationLock() OrientationLock { return h.lock }

// pump runs per-frame host work before the application step.
func (h *hostHAL) pump() {
	h.kbd.poll()
	h.ptr.poll()
	if h.sensor != nil {
		h.sensor.Pump()
	}
}

func (h *hostHAL) close() {
	if h.sensor != nil {
		_ = h.sensor.Close()
	}
}

type hostDisplay struct {
	h *hostHAL
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.h.fb }
func (d hostDisplay) DeviceScale() float64     { return d.h.scale }

type hostInput struct {
	kbd *hostKeyboard
	ptr *hostPointer
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }
func (in hostInput) Pointer() Pointer   { return in.ptr }

// hostOrientationLock: desktop windows do not rotate.
type hostOrientationLock struct{}

func (hostOrientationLock) Lock(_ context.Context, _ ScreenOrientation) error { return ErrNotImplemented }
func (hostOrientationLock) Unlock() error                                     { return ErrNotImplemented }

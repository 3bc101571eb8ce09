// Package hal is the platform boundary of the viewer: display, input, motion
// sensor, fullscreen surface and screen-orientation lock.
//
// Every accessor on HAL may return nil when the platform lacks the capability;
// callers check before use.
package hal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotImplemented   = errors.New("not implemented")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrQuit ends a host runner without reporting an error.
	ErrQuit = errors.New("quit")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
	KeySpace
	KeyV
	KeyF
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Pointer reports drag motion and the confirm button.
type Pointer interface {
	// Drag returns the pointer motion since the previous call while the primary
	// button is held, in screen pixels.
	Drag() (dx, dy float32)
	// Confirmed reports whether the confirm button was pressed since the previous call.
	Confirmed() bool
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
	// DeviceScale is the ratio of physical to logical pixels.
	DeviceScale() float64
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
	Pointer() Pointer
}

// OrientationSample is one device-orientation reading in degrees.
//
// A nil axis means the sensor has not reported it yet; that is different from
// a reading of zero.
type OrientationSample struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Complete reports whether every axis is present.
func (s OrientationSample) Complete() bool {
	return s.Alpha != nil && s.Beta != nil && s.Gamma != nil
}

// MotionSensor is a device-orientation source behind a permission gate.
type MotionSensor interface {
	// RequestPermission blocks until the platform grants or denies access.
	// Denial returns an error wrapping ErrPermissionDenied.
	RequestPermission(ctx context.Context) error
	// Subscribe registers orientation and screen-rotation callbacks. Callbacks
	// run on the frame goroutine. The returned func unregisters both.
	Subscribe(onSample func(OrientationSample), onScreen func(degrees float64)) (unsubscribe func())
}

// Fullscreen controls the presentation surface.
type Fullscreen interface {
	// Supported is false where the platform is known to reject the request in
	// the current context.
	Supported() bool
	Request(ctx context.Context) error
	Exit() error
	Active() bool
}

// ScreenOrientation names a lockable screen orientation.
type ScreenOrientation uint8

const (
	OrientationLandscape ScreenOrientation = iota + 1
	OrientationPortrait
)

// OrientationLock pins the screen orientation.
type OrientationLock interface {
	Lock(ctx context.Context, o ScreenOrientation) error
	Unlock() error
}

// HAL provides the only contact point between the viewer and the outside world.
type HAL interface {
	Logger() *zap.Logger
	Display() Display
	Input() Input
	MotionSensor() MotionSensor
	Fullscreen() Fullscreen
	OrientationLock() OrientationLock
}

// StepFunc advances the application by one frame of dt.
type StepFunc func(dt time.Duration) error

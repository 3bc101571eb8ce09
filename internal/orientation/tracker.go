// Package orientation turns device-orientation readings into a smoothed camera rotation.
package orientation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"quarkvr/hal"
	"quarkvr/internal/logging"
	"quarkvr/quarkgl"
)

var (
	// ErrPermissionDenied is returned by Enable when the platform refuses sensor access.
	ErrPermissionDenied = errors.New("orientation: sensor permission denied")
	// ErrUnavailable is returned by Enable when the platform has no motion sensor.
	ErrUnavailable = errors.New("orientation: no motion sensor")
)

// DeviceToCameraBasis maps the device frame (screen up, lying flat, looking
// along the device -Z axis toward the floor) onto the camera frame (looking
// forward along -Z). It is a -90° turn about X: (x, y, z, w) = (-√½, 0, 0, √½).
var DeviceToCameraBasis = mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0})

// ScreenCompensation undoes the screen's rotation relative to the device's
// natural orientation: a turn of -angle about the viewing axis.
func ScreenCompensation(screenRad float32) mgl32.Quat {
	return mgl32.QuatRotate(-screenRad, mgl32.Vec3{0, 0, 1})
}

// DeviceQuat converts device Euler angles (radians) to a camera rotation.
//
// Device angles are intrinsic Z-X'-Y'' (alpha, beta, gamma); viewed from the
// camera the same rotation composes as yaw(alpha) * pitch(beta) * roll(-gamma).
func DeviceQuat(alpha, beta, gamma, screen float32) mgl32.Quat {
	q := mgl32.QuatRotate(alpha, mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(beta, mgl32.Vec3{1, 0, 0})).
		Mul(mgl32.QuatRotate(-gamma, mgl32.Vec3{0, 0, 1}))
	q = q.Mul(DeviceToCameraBasis)
	q = q.Mul(ScreenCompensation(screen))
	return q.Normalize()
}

// Config tunes smoothing.
type Config struct {
	// Blend is the slerp fraction applied toward the target per Update call.
	Blend float32
	// NormalizeByTime rescales Blend so the response is the same at any frame
	// rate; Blend is then the fraction per 1/60 s.
	NormalizeByTime bool
	// RestoreOnDisable puts the camera back to the rotation it had at Enable.
	RestoreOnDisable bool
}

// referenceStep is the frame interval Blend is expressed in when NormalizeByTime is set.
const referenceStep = time.Second / 60

// Tracker drives a camera's rotation from a motion sensor.
//
// Authorize may run on any goroutine. Start, Update, Disable and the sensor
// callbacks run on the frame goroutine.
type Tracker struct {
	log    *zap.Logger
	sensor hal.MotionSensor
	cam    *quarkgl.Camera
	cfg    Config

	mu          sync.Mutex
	enabled     bool
	unsubscribe func()
	alpha       float64
	beta        float64
	gamma       float64
	hasSample   bool
	screenDeg   float64
	smoothed    mgl32.Quat
	initial     mgl32.Quat
}

// New returns a disabled tracker. sensor may be nil; Enable then fails with ErrUnavailable.
func New(sensor hal.MotionSensor, cam *quarkgl.Camera, cfg Config, log *zap.Logger) *Tracker {
	if cfg.Blend <= 0 || cfg.Blend > 1 {
		cfg.Blend = 0.1
	}
	return &Tracker{
		log:      logging.Named(log, "orientation"),
		sensor:   sensor,
		cam:      cam,
		cfg:      cfg,
		smoothed: mgl32.QuatIdent(),
	}
}

// SetConfig replaces the smoothing parameters.
func (t *Tracker) SetConfig(cfg Config) {
	if cfg.Blend <= 0 || cfg.Blend > 1 {
		cfg.Blend = 0.1
	}
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

// Enable requests sensor permission, then subscribes to orientation and
// screen-rotation events and records the camera's current rotation.
//
// Denial is returned as an error wrapping ErrPermissionDenied; nothing panics.
// On platforms that gate the prompt on a user gesture, call Enable from the
// gesture's handler chain.
func (t *Tracker) Enable(ctx context.Context) error {
	if t.Enabled() {
		return nil
	}
	if err := t.Authorize(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.Start()
	return nil
}

// Authorize runs the permission request alone. It may block on a prompt and
// touches no tracker state, so callers can await it without holding the frame.
func (t *Tracker) Authorize(ctx context.Context) error {
	if t.sensor == nil {
		return ErrUnavailable
	}
	if err := t.sensor.RequestPermission(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return nil
}

// Start subscribes to sensor events after a successful Authorize and records
// the camera's current rotation. It must run on the frame goroutine.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled || t.sensor == nil {
		return
	}
	t.unsubscribe = t.sensor.Subscribe(t.OnSample, t.OnScreenRotation)
	t.initial = t.cam.Rotation
	t.smoothed = t.cam.Rotation
	if t.smoothed.Len() == 0 {
		t.smoothed = mgl32.QuatIdent()
	}
	t.hasSample = false
	t.enabled = true
	t.log.Info("orientation tracking enabled")
}

// Disable unregisters every listener. It is safe to call repeatedly.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.enabled = false
	t.hasSample = false
	if t.cfg.RestoreOnDisable {
		t.cam.Rotation = t.initial
	}
	t.log.Info("orientation tracking disabled")
}

// Enabled reports whether listeners are registered.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// HasData reports whether a complete sample has arrived since Enable.
func (t *Tracker) HasData() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && t.hasSample
}

// OnSample stores a reading. Samples with a missing axis are discarded; an
// all-zero reading is valid data.
func (t *Tracker) OnSample(s hal.OrientationSample) {
	if !s.Complete() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.alpha, t.beta, t.gamma = *s.Alpha, *s.Beta, *s.Gamma
	t.hasSample = true
}

// OnScreenRotation stores the screen angle in degrees.
func (t *Tracker) OnScreenRotation(deg float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screenDeg = deg
}

// Update moves the smoothed rotation toward the latest reading and writes it
// to the camera. It reports whether the camera was written; without data the
// last value holds.
func (t *Tracker) Update(dt time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.hasSample {
		return false
	}

	target := DeviceQuat(
		rad(t.alpha), rad(t.beta), rad(t.gamma), rad(t.screenDeg))

	amount := t.cfg.Blend
	if t.cfg.NormalizeByTime {
		steps := float64(dt) / float64(referenceStep)
		amount = float32(1 - math.Pow(float64(1-t.cfg.Blend), steps))
	}
	t.smoothed = slerpShortest(t.smoothed, target, amount)
	t.cam.Rotation = t.smoothed
	return true
}

// Smoothed returns the current smoothed rotation.
func (t *Tracker) Smoothed() mgl32.Quat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.smoothed
}

func slerpShortest(from, to mgl32.Quat, amount float32) mgl32.Quat {
	if amount <= 0 {
		return from.Normalize()
	}
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	if amount >= 1 {
		return to.Normalize()
	}
	q := mgl32.QuatSlerp(from.Normalize(), to.Normalize(), amount)
	if q.Len() == 0 || math.IsNaN(float64(q.W)) {
		return to.Normalize()
	}
	return q.Normalize()
}

func rad(deg float64) float32 { return float32(deg * math.Pi / 180) }

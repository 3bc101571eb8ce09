// Package vrmode sequences entry into and exit from stereo viewing and drives
// the per-frame order: orientation, then look control, then gaze, then render.
package vrmode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quarkvr/hal"
	"quarkvr/internal/gaze"
	"quarkvr/internal/logging"
	"quarkvr/internal/orientation"
	"quarkvr/internal/stereo"
	"quarkvr/quarkgl"
)

// ErrCanceled is returned by Enter when Exit ran before it finished.
var ErrCanceled = errors.New("vrmode: enter canceled")

// State is the mode lifecycle state.
type State uint8

const (
	Inactive State = iota
	Entering
	Active
	Exiting
)

func (s State) String() string {
	switch s {
	case Entering:
		return "entering"
	case Active:
		return "active"
	case Exiting:
		return "exiting"
	default:
		return "inactive"
	}
}

// InteractionMode says who owns the camera rotation.
type InteractionMode uint8

const (
	// Manual means pointer drags rotate the camera.
	Manual InteractionMode = iota
	// Sensor means the orientation tracker rotates the camera.
	Sensor
)

func (m InteractionMode) String() string {
	if m == Sensor {
		return "sensor"
	}
	return "manual"
}

// Onboarding is the one-time instruction step shown before the first entry.
type Onboarding interface {
	// Show blocks until the user continues. skipNextTime asks to persist the
	// choice. An error aborts the entry.
	Show(ctx context.Context) (skipNextTime bool, err error)
}

// Prefs persists the onboarding choice. *prefs.Store implements it.
type Prefs interface {
	SkipOnboarding() bool
	SetSkipOnboarding(skip bool) error
}

// Config holds the field-of-view values and onboarding switch.
type Config struct {
	VRFOV      float32 // degrees
	DefaultFOV float32 // degrees
	Onboarding bool
}

// Deps are the collaborators an Orchestrator drives. Camera, Tracker, Stereo,
// Gaze and Look are required; the platform surfaces may be nil.
type Deps struct {
	Camera  *quarkgl.Camera
	Tracker *orientation.Tracker
	Stereo  *stereo.Pipeline
	Gaze    *gaze.Engine
	Look    *quarkgl.LookController

	Fullscreen      hal.Fullscreen
	OrientationLock hal.OrientationLock
	Onboarding      Onboarding
	Prefs           Prefs
	Overlay         stereo.Overlay

	Logger *zap.Logger
}

// Orchestrator owns the flat/stereo lifecycle.
//
// Enter blocks on platform prompts and is meant to run on its own goroutine;
// Frame keeps running meanwhile. Every other method returns promptly. Mode
// and interaction listeners are invoked from Frame, on the frame goroutine.
// Gaze hooks run inside Frame with the orchestrator locked and must not call
// back into it.
type Orchestrator struct {
	log *zap.Logger
	d   Deps

	mu               sync.Mutex
	cfg              Config
	state            State
	sensorEnabled    bool
	fullscreenActive bool
	orientLocked     bool
	overlayVisible   bool
	onboardingShown  bool
	interaction      InteractionMode
	epoch            uint64
	cancel           context.CancelFunc

	onModeChange        func(active bool)
	onInteractionChange func(InteractionMode)
	pending             []func()
}

// New returns an Inactive orchestrator with manual look control.
func New(d Deps, cfg Config) (*Orchestrator, error) {
	if d.Camera == nil || d.Tracker == nil || d.Stereo == nil || d.Gaze == nil || d.Look == nil {
		return nil, fmt.Errorf("vrmode: camera, tracker, stereo, gaze and look are required")
	}
	if cfg.VRFOV <= 0 {
		cfg.VRFOV = 80
	}
	if cfg.DefaultFOV <= 0 {
		cfg.DefaultFOV = 60
	}
	o := &Orchestrator{
		log: logging.Named(d.Logger, "vrmode"),
		d:   d,
		cfg: cfg,
	}
	d.Look.Enabled = true
	d.Look.SyncFrom(d.Camera)
	d.Camera.SetFOVDegrees(cfg.DefaultFOV)
	return o, nil
}

// SetConfig replaces the configuration. The FOV for the current mode applies at once.
func (o *Orchestrator) SetConfig(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cfg.VRFOV <= 0 {
		cfg.VRFOV = 80
	}
	if cfg.DefaultFOV <= 0 {
		cfg.DefaultFOV = 60
	}
	o.cfg = cfg
	if o.state == Active {
		o.d.Camera.SetFOVDegrees(cfg.VRFOV)
	} else if o.state == Inactive {
		o.d.Camera.SetFOVDegrees(cfg.DefaultFOV)
	}
}

// OnModeChange sets the single mode listener; the last call wins.
func (o *Orchestrator) OnModeChange(fn func(active bool)) {
	o.mu.Lock()
	o.onModeChange = fn
	o.mu.Unlock()
}

// OnInteractionModeChange sets the single interaction listener; the last call wins.
func (o *Orchestrator) OnInteractionModeChange(fn func(InteractionMode)) {
	o.mu.Lock()
	o.onInteractionChange = fn
	o.mu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) SensorEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sensorEnabled
}

func (o *Orchestrator) FullscreenActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fullscreenActive
}

func (o *Orchestrator) InteractionMode() InteractionMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interaction
}

func (o *Orchestrator) OverlayVisible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.overlayVisible
}

// Toggle enters when Inactive and exits otherwise.
func (o *Orchestrator) Toggle(ctx context.Context) error {
	switch o.State() {
	case Inactive:
		return o.Enter(ctx)
	default:
		o.Exit(false)
		return nil
	}
}

// Enter switches to stereo viewing. It is a no-op while Entering or Active.
//
// Every step is attempted and none is fatal: a denied sensor leaves manual
// look control, a failed stereo enable renders mono, and a rejected
// fullscreen or orientation lock is logged. Only a declined onboarding step
// or a concurrent Exit stop the entry, returning the reason.
func (o *Orchestrator) Enter(ctx context.Context) error {
	o.mu.Lock()
	if o.state == Entering || o.state == Active {
		o.mu.Unlock()
		return nil
	}
	o.state = Entering
	o.epoch++
	my := o.epoch
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	o.log.Info("entering stereo mode")

	if err := o.runOnboarding(ctx); err != nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.current(my) {
			return ErrCanceled
		}
		o.state = Inactive
		o.cancel = nil
		o.log.Info("stereo entry declined", zap.Error(err))
		return err
	}

	// (a) orientation tracker
	authErr := o.d.Tracker.Authorize(ctx)
	o.mu.Lock()
	if !o.current(my) {
		o.mu.Unlock()
		return ErrCanceled
	}
	if authErr == nil {
		o.d.Tracker.Start()
		o.sensorEnabled = true
	} else {
		o.log.Warn("orientation unavailable, keeping manual look", zap.Error(authErr))
	}

	// (b) stereo pipeline
	if err := o.d.Stereo.Enable(); err != nil {
		o.log.Warn("stereo enable failed, rendering mono", zap.Error(err))
	}
	o.d.Gaze.SetRaySource(o.eyeCamera)
	o.mu.Unlock()

	// (c) fullscreen and landscape lock
	if fs := o.d.Fullscreen; fs != nil && fs.Supported() {
		err := fs.Request(ctx)
		o.mu.Lock()
		if !o.current(my) {
			o.mu.Unlock()
			if err == nil {
				// Exit ran while the request was in flight.
				o.logFailure("fullscreen exit", fs.Exit())
			}
			return ErrCanceled
		}
		o.fullscreenActive = err == nil
		o.mu.Unlock()
		o.logFailure("fullscreen request", err)
	}
	if lk := o.d.OrientationLock; lk != nil {
		err := lk.Lock(ctx, hal.OrientationLandscape)
		o.mu.Lock()
		if !o.current(my) {
			o.mu.Unlock()
			if err == nil {
				o.logFailure("orientation unlock", lk.Unlock())
			}
			return ErrCanceled
		}
		o.orientLocked = err == nil
		o.mu.Unlock()
		o.logFailure("orientation lock", err)
	}

	// (d) field of view, overlay, done
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.current(my) {
		return ErrCanceled
	}
	o.d.Camera.SetFOVDegrees(o.cfg.VRFOV)
	if o.d.Overlay != nil {
		o.d.Stereo.SetOverlay(o.d.Overlay)
	}
	o.overlayVisible = true
	o.state = Active
	o.cancel = nil
	o.notifyMode(true)
	o.log.Info("stereo mode active",
		zap.Bool("sensor", o.sensorEnabled),
		zap.Bool("stereo", o.d.Stereo.Enabled()),
		zap.Bool("fullscreen", o.fullscreenActive))
	return nil
}

func (o *Orchestrator) runOnboarding(ctx context.Context) error {
	o.mu.Lock()
	show := o.cfg.Onboarding && o.d.Onboarding != nil && !o.onboardingShown
	o.mu.Unlock()
	if !show || (o.d.Prefs != nil && o.d.Prefs.SkipOnboarding()) {
		return nil
	}

	skip, err := o.d.Onboarding.Show(ctx)
	if err != nil {
		return fmt.Errorf("vrmode: onboarding: %w", err)
	}
	o.mu.Lock()
	o.onboardingShown = true
	o.mu.Unlock()
	if skip && o.d.Prefs != nil {
		o.logFailure("save onboarding preference", o.d.Prefs.SetSkipOnboarding(true))
	}
	return nil
}

// Exit returns to flat viewing. It is a no-op while Inactive or Exiting and
// is safe at any point of a running Enter, which it cancels.
//
// keepFullscreen leaves the fullscreen surface up, for switching sub-modes
// without a flicker.
func (o *Orchestrator) Exit(keepFullscreen bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Inactive || o.state == Exiting {
		return
	}
	wasActive := o.state == Active
	o.state = Exiting
	o.epoch++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	o.d.Stereo.Disable()
	o.d.Stereo.SetOverlay(nil)
	o.overlayVisible = false
	o.d.Tracker.Disable()
	o.sensorEnabled = false
	o.d.Gaze.SetRaySource(nil)

	o.d.Camera.SetFOVDegrees(o.cfg.DefaultFOV)
	o.setInteraction(Manual)

	if o.fullscreenActive && !keepFullscreen {
		o.logFailure("fullscreen exit", o.d.Fullscreen.Exit())
		o.fullscreenActive = false
	}
	if o.orientLocked {
		o.logFailure("orientation unlock", o.d.OrientationLock.Unlock())
		o.orientLocked = false
	}

	o.state = Inactive
	if wasActive {
		o.notifyMode(false)
	}
	o.log.Info("stereo mode exited", zap.Bool("keep_fullscreen", keepFullscreen))
}

// Frame runs one frame in the fixed order: orientation update, look control,
// gaze raycast, render. It reports whether the render produced pixels.
func (o *Orchestrator) Frame(dt time.Duration, scene *quarkgl.Scene, candidates []*quarkgl.Node) bool {
	o.mu.Lock()
	if o.sensorEnabled {
		o.d.Tracker.Update(dt)
	}
	if o.sensorEnabled && o.d.Tracker.HasData() {
		o.setInteraction(Sensor)
	} else {
		o.setInteraction(Manual)
	}
	o.d.Look.Apply(o.d.Camera)
	o.d.Gaze.Update(scene, candidates, dt)
	produced := o.d.Stereo.Render(scene, o.d.Camera)

	pending := o.pending
	o.pending = nil
	o.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return produced
}

// Apply runs fn while no frame or Enter step is touching the subsystems. Use
// it to retune the tracker, gaze engine or pipeline from outside Frame.
func (o *Orchestrator) Apply(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn()
}

// Drag feeds a pointer drag to manual look control. It is ignored while the
// sensor owns the camera.
func (o *Orchestrator) Drag(dx, dy float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.d.Look.Rotate(dx, dy)
}

// Confirm activates the hovered node, as a physical button would.
func (o *Orchestrator) Confirm() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.d.Gaze.TriggerHovered()
}

// setInteraction hands the camera to exactly one rotation source.
func (o *Orchestrator) setInteraction(m InteractionMode) {
	manual := m == Manual
	if manual && !o.d.Look.Enabled {
		// Pick up where the sensor left the camera.
		o.d.Look.SyncFrom(o.d.Camera)
	}
	o.d.Look.Enabled = manual
	if m == o.interaction {
		return
	}
	o.interaction = m
	o.log.Debug("interaction mode", zap.Stringer("mode", m))
	if fn := o.onInteractionChange; fn != nil {
		o.pending = append(o.pending, func() { fn(m) })
	}
}

func (o *Orchestrator) notifyMode(active bool) {
	if fn := o.onModeChange; fn != nil {
		o.pending = append(o.pending, func() { fn(active) })
	}
}

// eyeCamera is the gaze ray source in stereo: the left eye, matching the
// reticle drawn at the centre of the left view.
func (o *Orchestrator) eyeCamera() *quarkgl.Camera {
	if !o.d.Stereo.Enabled() {
		return nil
	}
	return o.d.Stereo.EyeCamera(o.d.Camera, stereo.Left)
}

func (o *Orchestrator) current(epoch uint64) bool {
	return o.epoch == epoch && o.state == Entering
}

func (o *Orchestrator) logFailure(what string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, hal.ErrNotImplemented):
		o.log.Debug(what+" not supported", zap.Error(err))
	default:
		o.log.Warn(what+" failed", zap.Error(err))
	}
}

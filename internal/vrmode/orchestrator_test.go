package vrmode

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"quarkvr/hal"
	"quarkvr/internal/gaze"
	"quarkvr/internal/orientation"
	"quarkvr/internal/prefs"
	"quarkvr/internal/stereo"
	"quarkvr/quarkgl"
)

type fakeSensor struct {
	mu       sync.Mutex
	err      error
	block    bool
	asked    chan struct{}
	onSample func(hal.OrientationSample)
}

func (f *fakeSensor) RequestPermission(ctx context.Context) error {
	if f.asked != nil {
		close(f.asked)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeSensor) Subscribe(onSample func(hal.OrientationSample), _ func(float64)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSample = onSample
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.onSample = nil
	}
}

func (f *fakeSensor) send(a, b, g float64) {
	f.mu.Lock()
	fn := f.onSample
	f.mu.Unlock()
	if fn != nil {
		fn(hal.OrientationSample{Alpha: &a, Beta: &b, Gamma: &g})
	}
}

type fakeFullscreen struct {
	unsupported bool
	err         error
	release     chan struct{} // when set, Request waits for it
	asked       chan struct{}
	active      bool
	requests    int
	exits       int
}

func (f *fakeFullscreen) Supported() bool { return !f.unsupported }

func (f *fakeFullscreen) Request(ctx context.Context) error {
	f.requests++
	if f.asked != nil {
		close(f.asked)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return f.err
	}
	f.active = true
	return nil
}

func (f *fakeFullscreen) Exit() error {
	f.exits++
	f.active = false
	return nil
}

func (f *fakeFullscreen) Active() bool { return f.active }

type fakeLock struct {
	err      error
	locked   bool
	unlocked int
}

func (l *fakeLock) Lock(context.Context, hal.ScreenOrientation) error {
	if l.err != nil {
		return l.err
	}
	l.locked = true
	return nil
}

func (l *fakeLock) Unlock() error {
	l.unlocked++
	l.locked = false
	return nil
}

type fakeOnboarding struct {
	shown int
	skip  bool
	err   error
}

func (f *fakeOnboarding) Show(context.Context) (bool, error) {
	f.shown++
	return f.skip, f.err
}

type rig struct {
	o        *Orchestrator
	cam      *quarkgl.Camera
	renderer *quarkgl.Renderer
	pipe     *stereo.Pipeline
	gaze     *gaze.Engine
	look     *quarkgl.LookController
	sensor   *fakeSensor
	fs       *fakeFullscreen
	lock     *fakeLock
	scene    *quarkgl.Scene
}

func newRig(t *testing.T, mutate func(*Deps)) *rig {
	t.Helper()
	r := &rig{
		cam:    quarkgl.NewCamera(1),
		sensor: &fakeSensor{},
		fs:     &fakeFullscreen{},
		lock:   &fakeLock{},
		look:   &quarkgl.LookController{},
		scene:  quarkgl.NewScene(),
	}
	r.renderer = quarkgl.NewRenderer(quarkgl.NewRGBATarget(64, 32), true)
	var err error
	r.pipe, err = stereo.New(r.renderer, stereo.Config{}, nil)
	require.NoError(t, err)
	r.gaze = gaze.New(gaze.NewRegistry(), r.cam, gaze.Config{}, nil)
	tracker := orientation.New(r.sensor, r.cam, orientation.Config{Blend: 1}, nil)

	d := Deps{
		Camera:          r.cam,
		Tracker:         tracker,
		Stereo:          r.pipe,
		Gaze:            r.gaze,
		Look:            r.look,
		Fullscreen:      r.fs,
		OrientationLock: r.lock,
		Overlay:         NewReticle(r.gaze),
	}
	if mutate != nil {
		mutate(&d)
	}
	r.o, err = New(d, Config{VRFOV: 80, DefaultFOV: 60})
	require.NoError(t, err)
	return r
}

func (r *rig) frame() bool { return r.o.Frame(16*time.Millisecond, r.scene, nil) }

func TestNewRequiresSubsystems(t *testing.T) {
	_, err := New(Deps{}, Config{})
	assert.Error(t, err)
}

func TestEnterExitLifecycle(t *testing.T) {
	r := newRig(t, nil)
	var modes []bool
	r.o.OnModeChange(func(active bool) { modes = append(modes, active) })
	assert.InDelta(t, 60, r.cam.FOVDegrees(), 1e-4)

	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, Active, r.o.State())
	assert.True(t, r.o.SensorEnabled())
	assert.True(t, r.o.FullscreenActive())
	assert.True(t, r.o.OverlayVisible())
	assert.True(t, r.pipe.Enabled())
	assert.True(t, r.lock.locked)
	assert.InDelta(t, 80, r.cam.FOVDegrees(), 1e-4)

	assert.True(t, r.frame())
	assert.Equal(t, []bool{true}, modes)

	r.o.Exit(false)
	assert.Equal(t, Inactive, r.o.State())
	assert.False(t, r.o.SensorEnabled())
	assert.False(t, r.o.FullscreenActive())
	assert.False(t, r.fs.active)
	assert.False(t, r.lock.locked)
	assert.False(t, r.pipe.Enabled())
	assert.Zero(t, r.renderer.LiveTargets())
	assert.InDelta(t, 60, r.cam.FOVDegrees(), 1e-4)
	assert.True(t, r.look.Enabled)

	r.frame()
	assert.Equal(t, []bool{true, false}, modes)
}

func TestPermissionDeniedStillActive(t *testing.T) {
	r := newRig(t, nil)
	r.sensor.err = hal.ErrPermissionDenied

	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, Active, r.o.State())
	assert.False(t, r.o.SensorEnabled())
	assert.True(t, r.pipe.Enabled(), "stereo rendering on")

	r.frame()
	assert.True(t, r.look.Enabled, "manual look enabled")
	assert.Equal(t, Manual, r.o.InteractionMode())
}

func TestEnterAndExitAreIdempotent(t *testing.T) {
	r := newRig(t, nil)
	calls := 0
	r.o.OnModeChange(func(bool) { calls++ })

	r.o.Exit(false)
	r.frame()
	assert.Zero(t, calls)

	require.NoError(t, r.o.Enter(context.Background()))
	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, 1, r.fs.requests)

	r.o.Exit(false)
	r.o.Exit(false)
	assert.Equal(t, 1, r.fs.exits)
	r.frame()
	assert.Equal(t, 2, calls)
}

func TestExitKeepsFullscreen(t *testing.T) {
	r := newRig(t, nil)
	require.NoError(t, r.o.Enter(context.Background()))
	r.o.Exit(true)
	assert.True(t, r.fs.active)
	assert.Zero(t, r.fs.exits)
	assert.True(t, r.o.FullscreenActive())
}

func TestPlatformRejectionsAreNonFatal(t *testing.T) {
	r := newRig(t, nil)
	r.fs.err = errors.New("not allowed")
	r.lock.err = hal.ErrNotImplemented

	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, Active, r.o.State())
	assert.False(t, r.o.FullscreenActive())
	assert.True(t, r.o.SensorEnabled())

	r.o.Exit(false)
	assert.Zero(t, r.fs.exits)
	assert.Zero(t, r.lock.unlocked)
}

func TestUnsupportedFullscreenIsSkipped(t *testing.T) {
	r := newRig(t, func(d *Deps) { d.OrientationLock = nil })
	r.fs.unsupported = true
	require.NoError(t, r.o.Enter(context.Background()))
	assert.Zero(t, r.fs.requests)
	assert.Equal(t, Active, r.o.State())
}

func TestStereoFailureStillActive(t *testing.T) {
	pipe, err := stereo.New(quarkgl.NewRenderer(quarkgl.NewRGBATarget(1, 1), false), stereo.Config{}, nil)
	require.NoError(t, err)
	r := newRig(t, func(d *Deps) { d.Stereo = pipe })

	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, Active, r.o.State())
	assert.False(t, pipe.Enabled())
	assert.True(t, r.o.Frame(time.Millisecond, r.scene, nil), "mono frame still drawn")
}

func TestExitDuringPermissionPrompt(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newRig(t, nil)
	r.sensor.block = true
	r.sensor.asked = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- r.o.Enter(context.Background()) }()
	<-r.sensor.asked
	assert.Equal(t, Entering, r.o.State())

	// Frames keep running while the prompt is up.
	r.frame()

	r.o.Exit(false)
	assert.ErrorIs(t, <-done, ErrCanceled)
	assert.Equal(t, Inactive, r.o.State())
	assert.False(t, r.o.SensorEnabled())
	assert.Zero(t, r.renderer.LiveTargets())
}

func TestExitDuringFullscreenRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newRig(t, nil)
	r.fs.release = make(chan struct{})
	r.fs.asked = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- r.o.Enter(context.Background()) }()
	<-r.fs.asked
	assert.True(t, r.pipe.Enabled())

	r.o.Exit(false)
	assert.Zero(t, r.renderer.LiveTargets(), "targets torn down mid-enter")
	close(r.fs.release)

	assert.ErrorIs(t, <-done, ErrCanceled)
	assert.False(t, r.fs.active, "late fullscreen grant is undone")
	assert.Equal(t, Inactive, r.o.State())
	assert.False(t, r.lock.locked)
}

func TestSensorTakesOverLook(t *testing.T) {
	r := newRig(t, nil)
	var modes []InteractionMode
	r.o.OnInteractionModeChange(func(m InteractionMode) { modes = append(modes, m) })

	require.NoError(t, r.o.Enter(context.Background()))
	r.frame()
	assert.True(t, r.look.Enabled, "no data yet")

	r.sensor.send(0, 90, 0)
	r.frame()
	assert.False(t, r.look.Enabled)
	assert.Equal(t, Sensor, r.o.InteractionMode())

	yaw := r.look.Yaw
	r.o.Drag(100, 0)
	assert.Equal(t, yaw, r.look.Yaw, "drag ignored while the sensor owns the camera")

	r.o.Exit(false)
	assert.True(t, r.look.Enabled)
	r.frame()
	assert.Equal(t, []InteractionMode{Sensor, Manual}, modes)
}

func TestFrameOrderFeedsGazeTheFreshPose(t *testing.T) {
	r := newRig(t, nil)
	floor := quarkgl.NewMeshNode("floor", quarkgl.NewQuadMesh(2, quarkgl.RGB(0, 255, 0)))
	floor.Transform = quarkgl.Translate(quarkgl.V3(0, -3, 0)).Mul4(mgl32.HomogRotate3DX(-math.Pi / 2))
	r.scene.Add(floor)
	clicks := 0
	r.gaze.Registry().Register(floor, gaze.Interactable{OnClick: func(quarkgl.Hit) { clicks++ }})

	require.NoError(t, r.o.Enter(context.Background()))
	r.o.Frame(time.Millisecond, r.scene, []*quarkgl.Node{floor})
	assert.Nil(t, r.gaze.Hovered(), "camera still looks ahead")

	// A flat device looks straight down; the same frame's raycast must see it.
	r.sensor.send(0, 0, 0)
	r.o.Frame(time.Millisecond, r.scene, []*quarkgl.Node{floor})
	assert.Same(t, floor, r.gaze.Hovered())

	assert.True(t, r.o.Confirm())
	assert.Equal(t, 1, clicks)
}

func TestOnboardingShownOnceAndPersisted(t *testing.T) {
	store, err := prefs.Open("")
	require.NoError(t, err)
	ob := &fakeOnboarding{skip: true}
	r := newRig(t, func(d *Deps) {
		d.Onboarding = ob
		d.Prefs = store
	})
	r.o.SetConfig(Config{VRFOV: 80, DefaultFOV: 60, Onboarding: true})

	require.NoError(t, r.o.Enter(context.Background()))
	r.o.Exit(false)
	require.NoError(t, r.o.Enter(context.Background()))
	assert.Equal(t, 1, ob.shown)
	assert.True(t, store.SkipOnboarding())
}

func TestOnboardingSkippedByPreference(t *testing.T) {
	store, err := prefs.Open("")
	require.NoError(t, err)
	require.NoError(t, store.SetSkipOnboarding(true))
	ob := &fakeOnboarding{}
	r := newRig(t, func(d *Deps) {
		d.Onboarding = ob
		d.Prefs = store
	})
	r.o.SetConfig(Config{Onboarding: true})

	require.NoError(t, r.o.Enter(context.Background()))
	assert.Zero(t, ob.shown)
}

func TestDeclinedOnboardingStaysInactive(t *testing.T) {
	ob := &fakeOnboarding{err: errors.New("dismissed")}
	r := newRig(t, func(d *Deps) { d.Onboarding = ob })
	r.o.SetConfig(Config{Onboarding: true})

	assert.Error(t, r.o.Enter(context.Background()))
	assert.Equal(t, Inactive, r.o.State())
	assert.False(t, r.pipe.Enabled())
	assert.Zero(t, r.fs.requests)
}

func TestListenersAreSingleSlot(t *testing.T) {
	r := newRig(t, nil)
	first, second := 0, 0
	r.o.OnModeChange(func(bool) { first++ })
	r.o.OnModeChange(func(bool) { second++ })

	require.NoError(t, r.o.Toggle(context.Background()))
	r.frame()
	assert.Zero(t, first)
	assert.Equal(t, 1, second)

	require.NoError(t, r.o.Toggle(context.Background()))
	assert.Equal(t, Inactive, r.o.State())
}

func TestGazeCastsFromLeftEyeInStereo(t *testing.T) {
	r := newRig(t, nil)
	require.NoError(t, r.o.Enter(context.Background()))

	// A sliver only the left eye's ray crosses.
	sliver := quarkgl.NewMeshNode("sliver", quarkgl.NewQuadMesh(0.02, quarkgl.RGB(1, 1, 1)))
	sliver.Transform = quarkgl.Translate(quarkgl.V3(-0.032, 0, -2))
	r.scene.Add(sliver)
	r.gaze.Registry().Register(sliver, gaze.Interactable{})

	r.o.Frame(time.Millisecond, r.scene, []*quarkgl.Node{sliver})
	assert.Same(t, sliver, r.gaze.Hovered())

	r.o.Exit(false)
	r.o.Frame(time.Millisecond, r.scene, []*quarkgl.Node{sliver})
	assert.Nil(t, r.gaze.Hovered())
}

func TestReticleDrawsProgress(t *testing.T) {
	reg := gaze.NewRegistry()
	cam := quarkgl.NewCamera(1)
	eng := gaze.New(reg, cam, gaze.Config{ActivationTime: time.Second}, nil)
	scene := quarkgl.NewScene()
	n := quarkgl.NewMeshNode("n", quarkgl.NewQuadMesh(1, quarkgl.RGB(1, 1, 1)))
	n.Transform = quarkgl.Translate(quarkgl.V3(0, 0, -2))
	scene.Add(n)
	reg.Register(n, gaze.Interactable{})

	ret := NewReticle(eng)
	target := quarkgl.NewRGBATarget(100, 100)
	ret.DrawEye(target, stereo.Left)
	assert.Equal(t, ret.Idle, target.At(50, 50))

	eng.Update(scene, []*quarkgl.Node{n}, 0)
	eng.Update(scene, []*quarkgl.Node{n}, 500*time.Millisecond)
	target.Clear(quarkgl.Color{})
	ret.DrawEye(target, stereo.Left)
	// Twelve o'clock is lit, six o'clock is not yet.
	assert.Equal(t, ret.Progress, target.At(50, 47))
	assert.Equal(t, ret.Hover, target.At(50, 53))
}

func TestApplyRunsUnderFrameLock(t *testing.T) {
	r := newRig(t, nil)
	ran := false
	r.o.Apply(func() {
		ran = true
		r.pipe.SetDistortion(stereo.Distortion{Enabled: true, K: 0.3})
	})
	assert.True(t, ran)
	assert.Equal(t, float32(0.3), r.pipe.Config().Distortion.K)
}

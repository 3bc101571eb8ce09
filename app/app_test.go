package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"quarkvr/hal"
	"quarkvr/internal/config"
	"quarkvr/internal/vrmode"
	"quarkvr/quarkgl"
)

type fakeFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newFakeFB(w, h int) *fakeFB { return &fakeFB{w: w, h: h, buf: make([]byte, w*h*2)} }

func (f *fakeFB) Width() int              { return f.w }
func (f *fakeFB) Height() int             { return f.h }
func (f *fakeFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *fakeFB) StrideBytes() int        { return f.w * 2 }
func (f *fakeFB) Buffer() []byte          { return f.buf }

func (f *fakeFB) Present() error {
	f.presents++
	return nil
}

func (f *fakeFB) ClearRGB(r, g, b uint8) {
	v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i] = byte(v)
		f.buf[i+1] = byte(v >> 8)
	}
}

func (f *fakeFB) nonZero() int {
	n := 0
	for _, b := range f.buf {
		if b != 0 {
			n++
		}
	}
	return n
}

type fakeKeyboard struct{ ch chan hal.KeyEvent }

func (k *fakeKeyboard) Events() <-chan hal.KeyEvent { return k.ch }

func (k *fakeKeyboard) press(c hal.KeyCode) { k.ch <- hal.KeyEvent{Code: c, Press: true} }

type fakePointer struct {
	dx, dy  float32
	confirm bool
}

func (p *fakePointer) Drag() (float32, float32) {
	dx, dy := p.dx, p.dy
	p.dx, p.dy = 0, 0
	return dx, dy
}

func (p *fakePointer) Confirmed() bool {
	c := p.confirm
	p.confirm = false
	return c
}

type fakeHAL struct {
	log *zap.Logger
	fb  *fakeFB
	kbd *fakeKeyboard
	ptr *fakePointer
	off bool
}

func newFakeHAL(t *testing.T) *fakeHAL {
	return &fakeHAL{
		log: zaptest.NewLogger(t),
		fb:  newFakeFB(64, 32),
		kbd: &fakeKeyboard{ch: make(chan hal.KeyEvent, 8)},
		ptr: &fakePointer{},
	}
}

func (h *fakeHAL) Logger() *zap.Logger { return h.log }
func (h *fakeHAL) Display() hal.Display {
	if h.off {
		return nil
	}
	return h
}
func (h *fakeHAL) Framebuffer() hal.Framebuffer         { return h.fb }
func (h *fakeHAL) DeviceScale() float64                 { return 1 }
func (h *fakeHAL) Input() hal.Input                     { return h }
func (h *fakeHAL) Keyboard() hal.Keyboard               { return h.kbd }
func (h *fakeHAL) Pointer() hal.Pointer                 { return h.ptr }
func (h *fakeHAL) MotionSensor() hal.MotionSensor       { return nil }
func (h *fakeHAL) Fullscreen() hal.Fullscreen           { return nil }
func (h *fakeHAL) OrientationLock() hal.OrientationLock { return nil }

func quietConfig() config.Config {
	cfg := config.Default()
	cfg.Mode.Onboarding = false
	return cfg
}

func newTestViewer(t *testing.T, h *fakeHAL, cfg config.Config) *viewer {
	t.Helper()
	v, err := newViewer(h, Options{Config: cfg, Context: context.Background()}, h.log)
	require.NoError(t, err)
	return v
}

const frame = time.Second / 60

func TestStepDrawsAndPresents(t *testing.T) {
	h := newFakeHAL(t)
	step := New(h, Options{Config: quietConfig()})

	require.NoError(t, step(frame))
	assert.Equal(t, 1, h.fb.presents)
	assert.NotZero(t, h.fb.nonZero())
}

func TestNoDisplayFailsEveryStep(t *testing.T) {
	h := newFakeHAL(t)
	h.off = true
	step := New(h, Options{Config: quietConfig()})
	assert.Error(t, step(frame))
	assert.Error(t, step(frame))
}

func TestEscapeQuitsWhenFlat(t *testing.T) {
	h := newFakeHAL(t)
	step := New(h, Options{Config: quietConfig()})
	h.kbd.press(hal.KeyEscape)
	assert.ErrorIs(t, step(frame), hal.ErrQuit)
}

func TestToggleEntersAndEscapeExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(t)
	v := newTestViewer(t, h, quietConfig())

	h.kbd.press(hal.KeyV)
	require.NoError(t, v.step(frame))
	require.Eventually(t, func() bool { return v.mode.State() == vrmode.Active },
		time.Second, 5*time.Millisecond)

	require.NoError(t, v.step(frame))
	assert.True(t, v.pipe.Enabled())
	assert.InDelta(t, 80, v.cam.FOVDegrees(), 1e-3)

	h.kbd.press(hal.KeyEscape)
	require.NoError(t, v.step(frame))
	assert.Equal(t, vrmode.Inactive, v.mode.State())
	assert.False(t, v.pipe.Enabled())
	assert.InDelta(t, 60, v.cam.FOVDegrees(), 1e-3)
}

func TestOnboardingAnsweredFromKeyboard(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(t)
	v := newTestViewer(t, h, config.Default())

	h.kbd.press(hal.KeyV)
	require.NoError(t, v.step(frame))
	require.Eventually(t, v.intro.pending, time.Second, 5*time.Millisecond)
	assert.Equal(t, vrmode.Entering, v.mode.State())

	// Space continues and remembers the skip.
	h.kbd.press(hal.KeySpace)
	require.NoError(t, v.step(frame))
	require.Eventually(t, func() bool { return v.mode.State() == vrmode.Active },
		time.Second, 5*time.Millisecond)
}

func TestOnboardingDeclinedFromKeyboard(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(t)
	v := newTestViewer(t, h, config.Default())

	h.kbd.press(hal.KeyV)
	require.NoError(t, v.step(frame))
	require.Eventually(t, v.intro.pending, time.Second, 5*time.Millisecond)

	h.kbd.press(hal.KeyEscape)
	require.NoError(t, v.step(frame))
	require.Eventually(t, func() bool { return v.mode.State() == vrmode.Inactive && !v.intro.pending() },
		time.Second, 5*time.Millisecond)
}

func TestPointerDragTurnsCamera(t *testing.T) {
	h := newFakeHAL(t)
	v := newTestViewer(t, h, quietConfig())
	before := v.cam.Forward()

	h.ptr.dx = 120
	require.NoError(t, v.step(frame))
	after := v.cam.Forward()
	assert.Greater(t, after.Sub(before).Len(), float32(0.1))
}

func TestHotspotActionsRunAfterFrame(t *testing.T) {
	h := newFakeHAL(t)
	v := newTestViewer(t, h, quietConfig())

	var spin, menu *quarkgl.Node
	for _, n := range v.demo.hotspot {
		switch n.Name {
		case "spin":
			spin = n
		case "menu":
			menu = n
		}
	}
	require.NotNil(t, spin)
	require.NotNil(t, menu)

	require.True(t, v.gaze.Trigger(spin, quarkgl.Hit{Node: spin}))
	require.True(t, v.gaze.Trigger(menu, quarkgl.Hit{Node: menu}))
	require.NoError(t, v.step(frame))

	assert.False(t, v.demo.spin)
	assert.True(t, v.demo.menu.Visible)
	assert.Empty(t, v.demo.takeActions())
}

func TestWireframeActionSwitchesRenderMode(t *testing.T) {
	h := newFakeHAL(t)
	v := newTestViewer(t, h, quietConfig())

	v.demo.actions = append(v.demo.actions, actionToggleWireframe)
	v.runActions()
	assert.Equal(t, quarkgl.RenderWireframe, v.renderer.Mode)
	v.demo.actions = append(v.demo.actions, actionToggleWireframe)
	v.runActions()
	assert.Equal(t, quarkgl.RenderSolidFlat, v.renderer.Mode)
}

func TestConfigReloadRetunesSubsystems(t *testing.T) {
	h := newFakeHAL(t)
	updates := make(chan config.Config, 1)
	v, err := newViewer(h, Options{Config: quietConfig(), Updates: updates}, h.log)
	require.NoError(t, err)

	next := quietConfig()
	next.Stereo.Distortion.Enabled = false
	next.Stereo.Source = "stereo_pair"
	updates <- next
	require.NoError(t, v.step(frame))

	got := v.pipe.Config()
	assert.False(t, got.Distortion.Enabled)
	assert.Equal(t, "stereo_pair", v.cfg.Stereo.Source)
}

func TestConfigReloadKeepsOverrides(t *testing.T) {
	h := newFakeHAL(t)
	updates := make(chan config.Config, 1)
	override := func(c *config.Config) {
		c.Sensor.Addr = "127.0.0.1:9999"
		c.Logging.Level = "debug"
	}
	v, err := newViewer(h, Options{Config: quietConfig(), Updates: updates, Override: override}, h.log)
	require.NoError(t, err)

	next := quietConfig()
	next.Sensor.Addr = ":7000"
	next.Stereo.Source = "stereo_pair"
	updates <- next
	require.NoError(t, v.step(frame))

	assert.Equal(t, "127.0.0.1:9999", v.cfg.Sensor.Addr)
	assert.Equal(t, "debug", v.cfg.Logging.Level)
	assert.Equal(t, "stereo_pair", v.cfg.Stereo.Source)
}

func TestPanicIsReportedAndPainted(t *testing.T) {
	h := newFakeHAL(t)
	step := guardStep(h, h.log, func(time.Duration) error { panic("boom") })

	err := step(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NotZero(t, h.fb.nonZero())
	assert.Equal(t, 1, h.fb.presents)
}

func TestGuardPassesErrorsThrough(t *testing.T) {
	h := newFakeHAL(t)
	want := errors.New("x")
	step := guardStep(h, h.log, func(time.Duration) error { return want })
	assert.ErrorIs(t, step(frame), want)
}

// Package app is the demo viewer: a small scene with gaze hotspots driven
// through the stereo mode orchestrator.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"quarkvr/hal"
	"quarkvr/internal/config"
	"quarkvr/internal/gaze"
	"quarkvr/internal/logging"
	"quarkvr/internal/orientation"
	"quarkvr/internal/prefs"
	"quarkvr/internal/stereo"
	"quarkvr/internal/vrmode"
	"quarkvr/quarkgl"
)

// Options configure the viewer.
type Options struct {
	Config config.Config
	// Updates delivers reloaded configs; nil disables hot reload.
	Updates <-chan config.Config
	// Override is applied to every reloaded config, so command-line values
	// survive a reload of the file.
	Override func(*config.Config)
	// EnterVR starts in stereo mode.
	EnterVR bool
	// Context bounds background work such as a pending Enter.
	Context context.Context
}

// New builds the viewer on h and returns its frame step.
func New(h hal.HAL, opts Options) hal.StepFunc {
	log := logging.Named(h.Logger(), "app")
	v, err := newViewer(h, opts, log)
	if err != nil {
		return func(time.Duration) error { return err }
	}
	return guardStep(h, log, v.step)
}

type viewer struct {
	h   hal.HAL
	log *zap.Logger
	ctx context.Context
	cfg config.Config

	fb       hal.Framebuffer
	renderer *quarkgl.Renderer
	cam      *quarkgl.Camera
	demo     *demoScene

	gaze    *gaze.Engine
	tracker *orientation.Tracker
	pipe    *stereo.Pipeline
	look    *quarkgl.LookController
	mode    *vrmode.Orchestrator
	intro   *keyOnboarding

	updates  <-chan config.Config
	override func(*config.Config)
}

func newViewer(h hal.HAL, opts Options, log *zap.Logger) (*viewer, error) {
	disp := h.Display()
	if disp == nil || disp.Framebuffer() == nil {
		return nil, errors.New("app: no display")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	fb := disp.Framebuffer()

	screen := &quarkgl.RGB565Target{Buf: fb.Buffer(), Stride: fb.StrideBytes(), W: fb.Width(), H: fb.Height()}
	r := quarkgl.NewRenderer(screen, true)
	r.ClearColor = quarkgl.RGB(0x05, 0x08, 0x12)

	cam := quarkgl.NewCamera(mgl32.DegToRad(cfg.Mode.DefaultFOV))
	cam.Far = 40
	cam.Layers = quarkgl.LayerDefault | quarkgl.LayerLeftEye

	reg := gaze.NewRegistry()
	v := &viewer{
		h:        h,
		log:      log,
		ctx:      ctx,
		cfg:      cfg,
		fb:       fb,
		renderer: r,
		cam:      cam,
		demo:     newDemoScene(reg),
		look:     &quarkgl.LookController{},
		intro:    newKeyOnboarding(log),
		updates:  opts.Updates,
		override: opts.Override,
	}

	root := h.Logger()
	v.gaze = gaze.New(reg, cam, gazeConfig(cfg), root)
	v.tracker = orientation.New(h.MotionSensor(), cam, orientationConfig(cfg), root)

	pipe, err := stereo.New(r, stereoConfig(cfg, disp.DeviceScale()), root)
	if err != nil {
		return nil, err
	}
	v.pipe = pipe

	store, err := prefs.Open(cfg.Mode.PrefsPath)
	if err != nil {
		// A broken preferences file only costs the onboarding skip.
		log.Warn("preferences unavailable", zap.Error(err))
		store, _ = prefs.Open("")
	}

	v.mode, err = vrmode.New(vrmode.Deps{
		Camera:          cam,
		Tracker:         v.tracker,
		Stereo:          pipe,
		Gaze:            v.gaze,
		Look:            v.look,
		Fullscreen:      h.Fullscreen(),
		OrientationLock: h.OrientationLock(),
		Onboarding:      v.intro,
		Prefs:           store,
		Overlay:         vrmode.NewReticle(v.gaze),
		Logger:          root,
	}, modeConfig(cfg))
	if err != nil {
		return nil, err
	}
	v.mode.OnModeChange(func(active bool) {
		log.Info("mode changed", zap.Bool("stereo", active))
	})
	v.mode.OnInteractionModeChange(func(m vrmode.InteractionMode) {
		log.Info("look control", zap.Stringer("owner", m))
	})

	if opts.EnterVR {
		v.enterAsync()
	}
	return v, nil
}

func (v *viewer) step(dt time.Duration) error {
	v.drainConfig()
	if err := v.handleInput(); err != nil {
		return err
	}

	v.demo.step(dt)
	if !v.mode.Frame(dt, v.demo.scene, v.demo.candidates()) {
		// Nothing drawn: blank the screen rather than present a stale frame.
		v.renderer.ResetState()
		v.renderer.Clear()
	}
	v.runActions()
	return v.fb.Present()
}

func (v *viewer) handleInput() error {
	in := v.h.Input()
	if in == nil {
		return nil
	}
	if kbd := in.Keyboard(); kbd != nil {
		for {
			select {
			case ev := <-kbd.Events():
				if !ev.Press {
					continue
				}
				if err := v.handleKey(ev.Code); err != nil {
					return err
				}
				continue
			default:
			}
			break
		}
	}
	if p := in.Pointer(); p != nil {
		dx, dy := p.Drag()
		if dx != 0 || dy != 0 {
			v.mode.Drag(dx, dy)
		}
		if p.Confirmed() && !v.intro.answer(answerContinue) {
			v.mode.Confirm()
		}
	}
	return nil
}

func (v *viewer) handleKey(code hal.KeyCode) error {
	if v.intro.pending() {
		switch code {
		case hal.KeyEnter:
			v.intro.answer(answerContinue)
		case hal.KeySpace:
			v.intro.answer(answerContinueAndSkip)
		case hal.KeyEscape:
			v.intro.answer(answerDecline)
		}
		return nil
	}
	switch code {
	case hal.KeyV:
		v.toggle()
	case hal.KeyEnter, hal.KeySpace:
		v.mode.Confirm()
	case hal.KeyF:
		v.toggleFullscreen()
	case hal.KeyEscape:
		if v.mode.State() == vrmode.Inactive {
			return hal.ErrQuit
		}
		v.mode.Exit(false)
	}
	return nil
}

func (v *viewer) toggle() {
	if v.mode.State() == vrmode.Inactive {
		v.enterAsync()
		return
	}
	v.mode.Exit(false)
}

// enterAsync runs Enter off the frame goroutine so prompts never stall frames.
func (v *viewer) enterAsync() {
	go func() {
		if err := v.mode.Enter(v.ctx); err != nil {
			v.log.Info("stereo mode not entered", zap.Error(err))
		}
	}()
}

func (v *viewer) toggleFullscreen() {
	fs := v.h.Fullscreen()
	if fs == nil || !fs.Supported() || v.mode.State() != vrmode.Inactive {
		return
	}
	var err error
	if fs.Active() {
		err = fs.Exit()
	} else {
		err = fs.Request(v.ctx)
	}
	if err != nil {
		v.log.Warn("fullscreen toggle failed", zap.Error(err))
	}
}

func (v *viewer) runActions() {
	for _, a := range v.demo.takeActions() {
		switch a {
		case actionToggleSpin:
			v.demo.spin = !v.demo.spin
		case actionNextColor:
			v.demo.nextColor()
		case actionToggleMenu:
			v.demo.toggleMenu()
		case actionToggleWireframe:
			v.mode.Apply(func() {
				if v.renderer.Mode == quarkgl.RenderWireframe {
					v.renderer.Mode = quarkgl.RenderSolidFlat
				} else {
					v.renderer.Mode = quarkgl.RenderWireframe
				}
			})
		case actionExitVR:
			v.mode.Exit(false)
		}
	}
}

// drainConfig applies the newest reloaded config, if any.
func (v *viewer) drainConfig() {
	if v.updates == nil {
		return
	}
	select {
	case cfg := <-v.updates:
		v.applyConfig(cfg)
	default:
	}
}

func (v *viewer) applyConfig(cfg config.Config) {
	if v.override != nil {
		v.override(&cfg)
	}
	scale := v.h.Display().DeviceScale()
	v.mode.Apply(func() {
		v.gaze.SetConfig(gazeConfig(cfg))
		v.tracker.SetConfig(orientationConfig(cfg))
		v.pipe.SetConfig(stereoConfig(cfg, scale))
	})
	v.mode.SetConfig(modeConfig(cfg))
	v.cfg = cfg
	v.log.Info("config reloaded",
		zap.Bool("distortion", cfg.Stereo.Distortion.Enabled),
		zap.Float32("k", cfg.Stereo.Distortion.K))
}

func gazeConfig(c config.Config) gaze.Config {
	return gaze.Config{ActivationTime: c.Gaze.ActivationTime, MaxDistance: c.Gaze.MaxDistance}
}

func orientationConfig(c config.Config) orientation.Config {
	return orientation.Config{
		Blend:            c.Orientation.Blend,
		NormalizeByTime:  c.Orientation.NormalizeByTime,
		RestoreOnDisable: c.Orientation.RestoreOnDisable,
	}
}

func stereoConfig(c config.Config, deviceScale float64) stereo.Config {
	src, err := stereo.ParseSource(c.Stereo.Source)
	if err != nil {
		src = stereo.Mono
	}
	return stereo.Config{
		Separation: c.Stereo.EyeSeparation,
		Distortion: stereo.Distortion{
			Enabled:    c.Stereo.Distortion.Enabled,
			K:          c.Stereo.Distortion.K,
			Brightness: c.Stereo.Distortion.Brightness,
		},
		Source:        src,
		DeviceRatio:   float32(deviceScale),
		PixelRatioCap: c.Stereo.PixelRatioCap,
	}
}

func modeConfig(c config.Config) vrmode.Config {
	return vrmode.Config{
		VRFOV:      c.Mode.VRFOV,
		DefaultFOV: c.Mode.DefaultFOV,
		Onboarding: c.Mode.Onboarding,
	}
}

// Package stereo renders a scene as a side-by-side split view for a
// head-mounted lens viewer.
//
// Each eye is rendered into its own offscreen target and composited into its
// half of the screen through a barrel-distortion material that pre-compensates
// for the viewer's lenses.
package stereo

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quarkvr/internal/logging"
	"quarkvr/quarkgl"
)

// ErrNoSurface is returned by New without a render surface.
var ErrNoSurface = errors.New("stereo: no render surface")

// Surface is the renderer state the pipeline drives. *quarkgl.Renderer
// implements it.
type Surface interface {
	Size() (w, h int)
	PixelRatio() float32
	SetPixelRatio(ratio float32)
	NewRenderTarget(w, h int) (*quarkgl.RGBATarget, error)
	SetRenderTarget(t quarkgl.Target)
	SetViewport(v quarkgl.Rect)
	SetScissor(s quarkgl.Rect)
	SetScissorTest(enable bool)
	ResetState()
	Clear()
	Render(s *quarkgl.Scene, cam *quarkgl.Camera)
	DrawQuad(sh quarkgl.QuadShader)
}

// Overlay draws head-locked content into an eye's target after the scene.
type Overlay interface {
	DrawEye(t quarkgl.Target, e Eye)
}

// Config configures a Pipeline.
type Config struct {
	// Separation is the interocular distance in scene units. Zero means DefaultSeparation.
	Separation float32
	Distortion Distortion
	Source     Source
	// DeviceRatio is the display's physical/logical pixel ratio.
	DeviceRatio float32
	// PixelRatioCap bounds the ratio used for eye targets. Zero means no cap.
	PixelRatioCap float32
}

// Pipeline renders split-eye stereo.
//
// It is not safe for concurrent use; Enable, Disable and Render are all
// called on the frame goroutine.
type Pipeline struct {
	log     *zap.Logger
	surface Surface
	cfg     Config
	overlay Overlay

	enabled    bool
	savedRatio float32

	vpW, vpH  int
	halfWidth int
	// sized is set by SetSize while disabled; the next Enable uses that size
	// instead of reading the surface.
	sized     bool
	left      *quarkgl.RGBATarget
	right     *quarkgl.RGBATarget
	materials [2]Material
	eyes      [2]quarkgl.Camera

	failures int
}

// New returns a disabled pipeline drawing to surface.
func New(surface Surface, cfg Config, log *zap.Logger) (*Pipeline, error) {
	if surface == nil {
		return nil, ErrNoSurface
	}
	p := &Pipeline{
		log:     logging.Named(log, "stereo"),
		surface: surface,
	}
	p.SetConfig(cfg)
	return p, nil
}

// SetConfig applies new parameters. Distortion and source changes take effect
// on the next frame; a pixel ratio change applies at the next Enable.
func (p *Pipeline) SetConfig(cfg Config) {
	if cfg.Separation <= 0 {
		cfg.Separation = DefaultSeparation
	}
	if cfg.DeviceRatio <= 0 {
		cfg.DeviceRatio = 1
	}
	p.cfg = cfg
	p.SetDistortion(cfg.Distortion)
}

func (p *Pipeline) Config() Config { return p.cfg }

// SetDistortion retunes the lens warp without reallocating targets.
func (p *Pipeline) SetDistortion(d Distortion) {
	p.cfg.Distortion = d
	for i := range p.materials {
		p.materials[i].Distortion = d
	}
}

// SetSource switches between mono and stereo-pair content.
func (p *Pipeline) SetSource(s Source) { p.cfg.Source = s }

// SetOverlay sets the head-locked overlay; nil removes it.
func (p *Pipeline) SetOverlay(o Overlay) { p.overlay = o }

func (p *Pipeline) Enabled() bool { return p.enabled }

// Enable captures the current surface size, or the size given to SetSize
// since the last Enable, and allocates the eye targets.
//
// On failure nothing stays allocated and Render keeps drawing mono; calling
// Enable again retries.
func (p *Pipeline) Enable() error {
	if p.enabled {
		return nil
	}
	w, h := p.surface.Size()
	if p.sized {
		w, h = p.vpW, p.vpH
	}

	p.savedRatio = p.surface.PixelRatio()
	ratio := p.cfg.DeviceRatio
	if p.cfg.PixelRatioCap > 0 && ratio > p.cfg.PixelRatioCap {
		ratio = p.cfg.PixelRatioCap
	}
	p.surface.SetPixelRatio(ratio)

	if err := p.allocate(w, h); err != nil {
		p.surface.SetPixelRatio(p.savedRatio)
		return err
	}
	p.enabled = true
	p.sized = false
	p.failures = 0
	p.log.Info("stereo enabled",
		zap.Int("half_width", p.halfWidth),
		zap.Int("height", p.vpH),
		zap.Float32("pixel_ratio", ratio),
		zap.Stringer("source", p.cfg.Source))
	return nil
}

// Disable releases both targets and restores the pixel ratio. It is safe to
// call repeatedly.
func (p *Pipeline) Disable() {
	if !p.enabled {
		p.release()
		return
	}
	p.release()
	p.surface.SetPixelRatio(p.savedRatio)
	p.enabled = false
	p.log.Info("stereo disabled")
}

// SetSize changes the viewport size, reallocating the targets when enabled.
func (p *Pipeline) SetSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("stereo: invalid size %dx%d", w, h)
	}
	if !p.enabled {
		p.vpW, p.vpH = w, h
		p.halfWidth = w / 2
		p.sized = true
		return nil
	}
	if err := p.allocate(w, h); err != nil {
		// Keep rendering something: mono until the next Enable.
		p.Disable()
		return err
	}
	return nil
}

// HalfWidth returns floor(viewportWidth/2).
func (p *Pipeline) HalfWidth() int { return p.halfWidth }

// Viewport returns the composited viewport size.
func (p *Pipeline) Viewport() (w, h int) { return p.vpW, p.vpH }

// TargetSize returns the allocated eye target size, or zero when disabled.
func (p *Pipeline) TargetSize() (w, h int) {
	if p.left == nil {
		return 0, 0
	}
	return p.left.Size()
}

func (p *Pipeline) allocate(w, h int) error {
	half := w / 2
	if half <= 0 || h <= 0 {
		return fmt.Errorf("stereo: viewport %dx%d too small to split", w, h)
	}
	ratio := p.surface.PixelRatio()
	tw, th := int(float32(half)*ratio), int(float32(h)*ratio)

	left, err := p.surface.NewRenderTarget(tw, th)
	if err != nil {
		return fmt.Errorf("stereo: left target: %w", err)
	}
	right, err := p.surface.NewRenderTarget(tw, th)
	if err != nil {
		left.Dispose()
		return fmt.Errorf("stereo: right target: %w", err)
	}

	p.release()
	p.left, p.right = left, right
	p.vpW, p.vpH = w, h
	p.halfWidth = half
	p.materials[Left] = Material{Source: left, Distortion: p.cfg.Distortion}
	p.materials[Right] = Material{Source: right, Distortion: p.cfg.Distortion}
	return nil
}

func (p *Pipeline) release() {
	p.left.Dispose()
	p.right.Dispose()
	p.left, p.right = nil, nil
	p.materials[Left].Source = nil
	p.materials[Right].Source = nil
}

// EyeCamera returns the camera eye would render with for cam's current pose.
// The result is a copy; it is safe to keep for the frame.
func (p *Pipeline) EyeCamera(cam *quarkgl.Camera, e Eye) *quarkgl.Camera {
	if cam == nil {
		return nil
	}
	var out quarkgl.Camera
	eyeCamera(&out, cam, e, p.cfg.Separation, p.cfg.Source)
	if p.halfWidth > 0 && p.vpH > 0 {
		out.Aspect = float32(p.halfWidth) / float32(p.vpH)
	}
	return &out
}

// Render draws one frame and reports whether it produced pixels.
//
// Disabled, it renders mono to the full viewport. Any failure while drawing
// the stereo frame resets the surface and falls back to mono for that frame.
func (p *Pipeline) Render(scene *quarkgl.Scene, cam *quarkgl.Camera) bool {
	if scene == nil || cam == nil {
		return false
	}
	if !p.enabled || p.left == nil || p.right == nil {
		return p.renderMono(scene, cam)
	}
	if err := p.renderStereo(scene, cam); err != nil {
		p.failures++
		if p.failures == 1 {
			p.log.Warn("stereo render failed, falling back to mono", zap.Error(err))
		} else {
			p.log.Debug("stereo render failed", zap.Error(err), zap.Int("failures", p.failures))
		}
		p.surface.ResetState()
		return p.renderMono(scene, cam)
	}
	return true
}

func (p *Pipeline) renderMono(scene *quarkgl.Scene, cam *quarkgl.Camera) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("mono render failed", zap.Error(fmt.Errorf("panic: %v", r)))
			p.surface.ResetState()
			ok = false
		}
	}()
	p.surface.ResetState()
	p.surface.Render(scene, cam)
	return true
}

func (p *Pipeline) renderStereo(scene *quarkgl.Scene, cam *quarkgl.Camera) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	p.deriveEyes(cam)

	targets := [2]*quarkgl.RGBATarget{p.left, p.right}
	for e := Left; e <= Right; e++ {
		p.surface.SetRenderTarget(targets[e])
		p.surface.Render(scene, &p.eyes[e])
		if p.overlay != nil {
			p.overlay.DrawEye(targets[e], e)
		}
	}

	s := p.surface
	s.ResetState()
	s.Clear()
	s.SetScissorTest(true)
	for e := Left; e <= Right; e++ {
		vp := quarkgl.Rect{X: int(e) * p.halfWidth, W: p.halfWidth, H: p.vpH}
		s.SetViewport(vp)
		s.SetScissor(vp)
		s.DrawQuad(&p.materials[e])
	}
	s.ResetState()
	return nil
}

// deriveEyes builds the eye pair with the camera's aspect temporarily set to
// one half of the viewport. The caller's aspect is restored even if this panics.
func (p *Pipeline) deriveEyes(cam *quarkgl.Camera) {
	saved := cam.Aspect
	defer func() { cam.Aspect = saved }()
	cam.Aspect = float32(p.halfWidth) / float32(p.vpH)
	eyeCamera(&p.eyes[Left], cam, Left, p.cfg.Separation, p.cfg.Source)
	eyeCamera(&p.eyes[Right], cam, Right, p.cfg.Separation, p.cfg.Source)
}

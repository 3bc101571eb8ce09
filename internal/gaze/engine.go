// Package gaze selects scene nodes by looking at them.
//
// Each Update casts a ray along the view direction, resolves the nearest hit
// to a registered interactable, and fires hover and dwell-activation hooks.
package gaze

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"quarkvr/internal/logging"
	"quarkvr/quarkgl"
)

// DefaultActivationTime is the dwell threshold for nodes without an override.
const DefaultActivationTime = 1500 * time.Millisecond

// Config tunes the engine.
type Config struct {
	ActivationTime time.Duration
	// MaxDistance bounds the ray. Zero means unbounded.
	MaxDistance float32
}

// State is a snapshot of the hover state.
type State struct {
	Hovered   *quarkgl.Node
	Elapsed   time.Duration
	Threshold time.Duration
	Progress  float32
}

// Engine tracks which interactable the viewer is looking at.
//
// Engine is not safe for concurrent use; drive it from the frame loop.
type Engine struct {
	log *zap.Logger
	reg *Registry
	cam *quarkgl.Camera
	cfg Config

	raySource func() *quarkgl.Camera

	hovered   *quarkgl.Node
	hooks     *Interactable
	lastHit   quarkgl.Hit
	elapsed   time.Duration
	threshold time.Duration
}

// New returns an engine casting from cam.
func New(reg *Registry, cam *quarkgl.Camera, cfg Config, log *zap.Logger) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	if cfg.ActivationTime <= 0 {
		cfg.ActivationTime = DefaultActivationTime
	}
	return &Engine{
		log: logging.Named(log, "gaze"),
		reg: reg,
		cam: cam,
		cfg: cfg,
	}
}

func (e *Engine) Registry() *Registry { return e.reg }

// SetConfig replaces the tuning. The current hover keeps its threshold.
func (e *Engine) SetConfig(cfg Config) {
	if cfg.ActivationTime <= 0 {
		cfg.ActivationTime = DefaultActivationTime
	}
	e.cfg = cfg
}

// SetRaySource casts from the camera src returns instead of the main camera.
// Immersive presentation points this at an eye camera; nil restores the main camera.
func (e *Engine) SetRaySource(src func() *quarkgl.Camera) { e.raySource = src }

func (e *Engine) rayCamera() *quarkgl.Camera {
	if e.raySource != nil {
		if c := e.raySource(); c != nil {
			return c
		}
	}
	return e.cam
}

// Update raycasts against candidates and advances dwell by dt.
//
// A hit counts only when it resolves to a registered node, the whole chain
// from the hit to the root is visible, and, when scene is non-nil, the chain
// ends at scene's root.
func (e *Engine) Update(scene *quarkgl.Scene, candidates []*quarkgl.Node, dt time.Duration) {
	cam := e.rayCamera()
	if cam == nil || len(candidates) == 0 {
		e.ClearHover()
		return
	}

	rc := quarkgl.NewRaycasterFromCamera(cam)
	if e.cfg.MaxDistance > 0 {
		rc.Far = e.cfg.MaxDistance
	}

	var (
		target *quarkgl.Node
		hooks  *Interactable
		hit    quarkgl.Hit
	)
	for _, h := range rc.IntersectNodes(candidates, true) {
		n, it, ok := e.reg.Resolve(h.Node)
		if !ok || !h.Node.VisibleInHierarchy() || !inScene(scene, h.Node) {
			continue
		}
		target, hooks, hit = n, it, h
		break
	}
	if target == nil {
		e.ClearHover()
		return
	}

	e.lastHit = hit
	if target != e.hovered {
		// dwell starts counting on the next tick
		e.setHover(target, hooks)
		return
	}

	e.elapsed += dt
	if e.elapsed >= e.threshold {
		e.elapsed = 0
		e.activate(target, hooks, hit)
	}
}

func (e *Engine) setHover(n *quarkgl.Node, it *Interactable) {
	if e.hovered != nil {
		e.call("hover_out", e.hovered, e.hooks.OnHoverOut)
	}
	e.hovered = n
	e.hooks = it
	e.elapsed = 0
	e.threshold = e.cfg.ActivationTime
	if it.ActivationTime > 0 {
		e.threshold = it.ActivationTime
	}
	e.call("hover_in", n, it.OnHoverIn)
	e.log.Debug("hover", zap.String("node", n.Name), zap.Duration("threshold", e.threshold))
}

// ClearHover drops the current target, firing its hover-out hook.
func (e *Engine) ClearHover() {
	if e.hovered != nil {
		e.call("hover_out", e.hovered, e.hooks.OnHoverOut)
	}
	e.hovered = nil
	e.hooks = nil
	e.lastHit = quarkgl.Hit{}
	e.elapsed = 0
	e.threshold = 0
}

// Trigger activates n immediately, as a confirm button would. n may be any
// node under a registered one. It reports whether an OnClick hook ran.
func (e *Engine) Trigger(n *quarkgl.Node, hit quarkgl.Hit) bool {
	target, it, ok := e.reg.Resolve(n)
	if !ok || it.OnClick == nil {
		e.log.Debug("trigger ignored: no click hook", zap.String("node", nodeName(n)))
		return false
	}
	if hit.Node == nil {
		hit.Node = n
	}
	return e.activate(target, it, hit)
}

// TriggerHovered activates the current hover target, if any.
func (e *Engine) TriggerHovered() bool {
	if e.hovered == nil {
		return false
	}
	ok := e.Trigger(e.hovered, e.lastHit)
	if ok {
		e.elapsed = 0
	}
	return ok
}

func (e *Engine) activate(n *quarkgl.Node, it *Interactable, hit quarkgl.Hit) bool {
	if it.OnClick == nil {
		return false
	}
	e.log.Debug("activate", zap.String("node", n.Name))
	return e.call("click", n, func() { it.OnClick(hit) })
}

// call runs a hook, containing any panic. It reports whether fn ran to completion.
func (e *Engine) call(hook string, n *quarkgl.Node, fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("interaction hook failed",
				zap.String("hook", hook),
				zap.String("node", n.Name),
				zap.Error(fmt.Errorf("panic: %v", r)))
			ok = false
		}
	}()
	fn()
	return true
}

// State returns the hover snapshot that drives the dwell indicator.
func (e *Engine) State() State {
	s := State{Hovered: e.hovered, Elapsed: e.elapsed, Threshold: e.threshold}
	if e.hovered != nil && e.threshold > 0 {
		s.Progress = min(float32(e.elapsed)/float32(e.threshold), 1)
	}
	return s
}

// Hovered returns the current target, or nil.
func (e *Engine) Hovered() *quarkgl.Node { return e.hovered }

// Progress is elapsed/threshold clamped to 1.
func (e *Engine) Progress() float32 { return e.State().Progress }

func inScene(s *quarkgl.Scene, n *quarkgl.Node) bool {
	if s == nil || s.Root == nil {
		return true
	}
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur == s.Root {
			return true
		}
	}
	return false
}

func nodeName(n *quarkgl.Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}

// Package quarkgl provides a minimal, predictable software 3D engine for the quarkvr viewer.
//
// QuarkGL renders a scene graph of nodes into pixel targets. A renderer keeps
// GL-like state (render target, viewport, scissor) so callers can render the same
// scene several times per frame into offscreen targets and composite the results
// onto the screen with fullscreen quad passes.
//
// Pipeline (fixed):
//
//	Scene → Transform → Projection → Clipping → Rasterization → Target.
//
// Camera orientation is a unit quaternion (mgl32.Quat). The camera looks down its
// local -Z axis with +Y up, matching the usual right-handed convention.
//
// Raycasting is geometry-level: it reports every triangle hit regardless of node
// visibility. Callers decide which hits are meaningful.
package quarkgl

package stereo

import (
	"fmt"
	"strings"

	"quarkvr/quarkgl"
)

// Eye names one half of the split view.
type Eye uint8

const (
	Left Eye = iota
	Right
)

func (e Eye) String() string {
	if e == Right {
		return "right"
	}
	return "left"
}

// Source selects what each eye sees.
type Source uint8

const (
	// Mono shows the same content to both eyes.
	Mono Source = iota
	// StereoPair shows left-eye content to the left eye and right-eye content
	// to the right eye.
	StereoPair
)

func (s Source) String() string {
	if s == StereoPair {
		return "stereo_pair"
	}
	return "mono"
}

// ParseSource parses "mono" or "stereo_pair".
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(s) {
	case "", "mono":
		return Mono, nil
	case "stereo_pair", "stereo-pair", "stereopair":
		return StereoPair, nil
	}
	return Mono, fmt.Errorf("stereo: unknown source %q", s)
}

// layers returns the node layers eye renders. Mono shows the left-eye layer
// to both eyes so single-image stereo content still reads correctly.
func (s Source) layers(e Eye) quarkgl.LayerMask {
	if s == StereoPair && e == Right {
		return quarkgl.LayerDefault | quarkgl.LayerRightEye
	}
	return quarkgl.LayerDefault | quarkgl.LayerLeftEye
}

// DefaultSeparation is the interocular distance in metres.
const DefaultSeparation = 0.064

// eyeCamera writes into dst the camera for eye, offset from cam along its
// right axis by half the separation.
func eyeCamera(dst, cam *quarkgl.Camera, e Eye, separation float32, src Source) {
	*dst = *cam
	half := separation / 2
	if e == Left {
		half = -half
	}
	dst.Position = cam.Position.Add(cam.Right().Mul(half))
	dst.Layers = src.layers(e)
}

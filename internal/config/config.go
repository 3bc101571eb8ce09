// Package config loads the quarkvr YAML configuration.
//
// Every field has a documented default (see Default); a file only needs to
// name the values it changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quarkvr/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all quarkvr configuration.
type Config struct {
	Stereo      StereoConfig      `yaml:"stereo"`
	Gaze        GazeConfig        `yaml:"gaze"`
	Orientation OrientationConfig `yaml:"orientation"`
	Mode        ModeConfig        `yaml:"mode"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Logging     logging.Config    `yaml:"logging"`
}

// StereoConfig configures the split-eye pipeline.
type StereoConfig struct {
	Distortion    DistortionConfig `yaml:"distortion"`
	EyeSeparation float32          `yaml:"eye_separation"` // metres
	PixelRatioCap float32          `yaml:"pixel_ratio_cap"`
	Source        string           `yaml:"source"` // mono, stereo_pair
}

// DistortionConfig configures the lens pre-warp. K=0 or Enabled=false is pass-through.
type DistortionConfig struct {
	Enabled    bool    `yaml:"enabled"`
	K          float32 `yaml:"k"`
	Brightness float32 `yaml:"brightness"`
}

// GazeConfig configures dwell activation.
type GazeConfig struct {
	ActivationTime time.Duration `yaml:"activation_time"`
	MaxDistance    float32       `yaml:"max_distance"` // 0 = unbounded
}

// OrientationConfig configures sensor smoothing.
type OrientationConfig struct {
	Blend            float32 `yaml:"blend"`
	NormalizeByTime  bool    `yaml:"normalize_by_time"`
	RestoreOnDisable bool    `yaml:"restore_on_disable"`
}

// ModeConfig configures the flat/stereo lifecycle.
type ModeConfig struct {
	VRFOV      float32 `yaml:"vr_fov_deg"`
	DefaultFOV float32 `yaml:"default_fov_deg"`
	Onboarding bool    `yaml:"onboarding"`
	PrefsPath  string  `yaml:"prefs_path"`
}

// SensorConfig configures the motion sensor bridge.
type SensorConfig struct {
	Addr              string        `yaml:"addr"` // empty disables the bridge
	PermissionTimeout time.Duration `yaml:"permission_timeout"`
}

// Default returns the built-in configuration.
//
// Distortion ships enabled with k=0.12 and no brightness lift.
func Default() Config {
	return Config{
		Stereo: StereoConfig{
			Distortion:    DistortionConfig{Enabled: true, K: 0.12},
			EyeSeparation: 0.064,
			PixelRatioCap: 2,
			Source:        "mono",
		},
		Gaze: GazeConfig{
			ActivationTime: 1500 * time.Millisecond,
		},
		Orientation: OrientationConfig{
			Blend: 0.1,
		},
		Mode: ModeConfig{
			VRFOV:      80,
			DefaultFOV: 60,
			Onboarding: true,
		},
		Sensor: SensorConfig{
			PermissionTimeout: 30 * time.Second,
		},
		Logging: logging.Config{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Stereo.EyeSeparation < 0 || c.Stereo.EyeSeparation > 0.2:
		return fmt.Errorf("%w: stereo.eye_separation %v out of range [0,0.2]", ErrInvalid, c.Stereo.EyeSeparation)
	case c.Stereo.PixelRatioCap < 0:
		return fmt.Errorf("%w: stereo.pixel_ratio_cap must be >= 0", ErrInvalid)
	case c.Stereo.Source != "mono" && c.Stereo.Source != "stereo_pair":
		return fmt.Errorf("%w: stereo.source %q (want mono or stereo_pair)", ErrInvalid, c.Stereo.Source)
	case c.Stereo.Distortion.Brightness < -1:
		return fmt.Errorf("%w: stereo.distortion.brightness must be >= -1", ErrInvalid)
	case c.Gaze.ActivationTime <= 0:
		return fmt.Errorf("%w: gaze.activation_time must be positive", ErrInvalid)
	case c.Gaze.MaxDistance < 0:
		return fmt.Errorf("%w: gaze.max_distance must be >= 0", ErrInvalid)
	case c.Orientation.Blend <= 0 || c.Orientation.Blend > 1:
		return fmt.Errorf("%w: orientation.blend %v out of range (0,1]", ErrInvalid, c.Orientation.Blend)
	case c.Mode.VRFOV <= 0 || c.Mode.VRFOV >= 180:
		return fmt.Errorf("%w: mode.vr_fov_deg %v out of range", ErrInvalid, c.Mode.VRFOV)
	case c.Mode.DefaultFOV <= 0 || c.Mode.DefaultFOV >= 180:
		return fmt.Errorf("%w: mode.default_fov_deg %v out of range", ErrInvalid, c.Mode.DefaultFOV)
	case c.Sensor.PermissionTimeout < 0:
		return fmt.Errorf("%w: sensor.permission_timeout must be >= 0", ErrInvalid)
	}
	return nil
}

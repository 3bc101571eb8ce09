package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "quarkvr.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Stereo.Distortion.Enabled)
	assert.InDelta(t, 0.12, cfg.Stereo.Distortion.K, 1e-6)
	assert.InDelta(t, 0.064, cfg.Stereo.EyeSeparation, 1e-6)
	assert.Equal(t, 1500*time.Millisecond, cfg.Gaze.ActivationTime)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), `
stereo:
  distortion:
    k: 0
gaze:
  activation_time: 2.5s
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	want := Default()
	want.Stereo.Distortion.K = 0
	want.Gaze.ActivationTime = 2500 * time.Millisecond
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := writeFile(t, t.TempDir(), "orientation:\n  blend: 2\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	p := writeFile(t, t.TempDir(), "stereo:\n  source: anaglyph\n")
	_, err := Load(p)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

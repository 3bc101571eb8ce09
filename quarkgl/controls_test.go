package quarkgl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookControllerDisabledIgnoresDrag(t *testing.T) {
	c := LookController{}
	c.Rotate(100, 100)
	assert.Zero(t, c.Yaw)
	assert.Zero(t, c.Pitch)
}

func TestLookControllerRoundTrip(t *testing.T) {
	c := LookController{Enabled: true}
	c.Rotate(120, -40)
	cam := NewCamera(1)
	c.Apply(cam)

	var other LookController
	other.SyncFrom(cam)
	assert.InDelta(t, c.Yaw, other.Yaw, 1e-4)
	assert.InDelta(t, c.Pitch, other.Pitch, 1e-4)
}

func TestLookControllerClampsPitch(t *testing.T) {
	c := LookController{Enabled: true, MaxPitch: 1}
	c.Rotate(0, 10000)
	assert.Equal(t, Scalar(1), c.Pitch)
}

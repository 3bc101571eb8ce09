package hal

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func dialBridge(t *testing.T, b *SensorBridge) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(b)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		_ = conn.Close()
		_ = b.Close()
		srv.Close()
	}
}

func TestSensorBridgeDispatchesOnPump(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewSensorBridge(zap.NewNop(), time.Second)
	conn, done := dialBridge(t, b)
	defer done()

	var samples []OrientationSample
	var angles []float64
	unsub := b.Subscribe(func(s OrientationSample) { samples = append(samples, s) },
		func(a float64) { angles = append(angles, a) })
	defer unsub()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"orientation","alpha":10,"beta":20,"gamma":null}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"screen","angle":90}`)))

	require.NoError(t, b.RequestPermission(context.Background()))

	require.Eventually(t, func() bool {
		b.Pump()
		return len(samples) == 1 && len(angles) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, samples[0].Complete())
	assert.InDelta(t, 10, *samples[0].Alpha, 1e-9)
	assert.Nil(t, samples[0].Gamma)
	assert.Equal(t, 90.0, angles[0])
}

func TestSensorBridgePermissionDenied(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewSensorBridge(zap.NewNop(), time.Second)
	conn, done := dialBridge(t, b)
	defer done()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"permission","granted":false}`)))
	err := b.RequestPermission(context.Background())
	assert.True(t, errors.Is(err, ErrPermissionDenied))
}

func TestSensorBridgePermissionTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewSensorBridge(zap.NewNop(), 20*time.Millisecond)
	err := b.RequestPermission(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSensorBridgeStaleUnsubscribe(t *testing.T) {
	b := NewSensorBridge(nil, 0)
	calls := 0
	first := b.Subscribe(func(OrientationSample) {}, nil)
	b.Subscribe(func(OrientationSample) { calls++ }, nil)
	first()

	b.mu.Lock()
	b.enqueueLocked(bridgeMessage{Type: "orientation"})
	b.mu.Unlock()
	b.Pump()
	assert.Equal(t, 1, calls)
}

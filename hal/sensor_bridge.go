package hal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SensorBridge is a MotionSensor fed by a phone over a websocket.
//
// The phone page forwards DeviceOrientationEvent readings as JSON:
//
//	{"type":"permission","granted":true}
//	{"type":"orientation","alpha":12.5,"beta":80,"gamma":null}
//	{"type":"screen","angle":90}
//
// Messages are queued by the connection goroutine and dispatched from Pump,
// which the host calls on the frame goroutine.
type SensorBridge struct {
	log      *zap.Logger
	timeout  time.Duration
	upgrader websocket.Upgrader

	mu         sync.Mutex
	pending    []bridgeMessage
	permission permissionState
	permCh     chan struct{} // closed and replaced on every permission change
	onSample   func(OrientationSample)
	onScreen   func(float64)
	subID      uint64
	conns      map[*websocket.Conn]struct{}

	srv *http.Server
	wg  sync.WaitGroup
}

type permissionState uint8

const (
	permissionUnknown permissionState = iota
	permissionGranted
	permissionDenied
)

type bridgeMessage struct {
	Type    string   `json:"type"`
	Granted *bool    `json:"granted,omitempty"`
	Alpha   *float64 `json:"alpha"`
	Beta    *float64 `json:"beta"`
	Gamma   *float64 `json:"gamma"`
	Angle   float64  `json:"angle"`
}

const maxPendingMessages = 256

// NewSensorBridge returns a bridge. timeout bounds RequestPermission (0 = wait for ctx only).
func NewSensorBridge(log *zap.Logger, timeout time.Duration) *SensorBridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &SensorBridge{
		log:     log.Named("sensor"),
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		permCh: make(chan struct{}),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Listen serves the bridge on addr in the background.
func (b *SensorBridge) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("sensor bridge: listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/sensor", b)
	b.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.Warn("sensor bridge stopped", zap.Error(err))
		}
	}()
	b.log.Info("sensor bridge listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Close stops the server and drops every connection.
func (b *SensorBridge) Close() error {
	var err error
	if b.srv != nil {
		err = b.srv.Close()
	}
	b.mu.Lock()
	for c := range b.conns {
		_ = c.Close()
	}
	b.mu.Unlock()
	b.wg.Wait()
	return err
}

// ServeHTTP upgrades a device connection and reads messages until it closes.
func (b *SensorBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("sensor upgrade failed", zap.Error(err))
		return
	}
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()
	b.wg.Add(1)
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	b.log.Info("sensor device connected", zap.String("remote", r.RemoteAddr))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg bridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.log.Debug("sensor message dropped", zap.Error(err))
			continue
		}
		b.handle(msg)
	}
}

func (b *SensorBridge) handle(msg bridgeMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch msg.Type {
	case "permission":
		if msg.Granted == nil {
			return
		}
		if *msg.Granted {
			b.setPermissionLocked(permissionGranted)
		} else {
			b.setPermissionLocked(permissionDenied)
		}
	case "orientation":
		// A device that reports readings has evidently been granted access.
		if b.permission == permissionUnknown {
			b.setPermissionLocked(permissionGranted)
		}
		b.enqueueLocked(msg)
	case "screen":
		b.enqueueLocked(msg)
	}
}

func (b *SensorBridge) enqueueLocked(msg bridgeMessage) {
	if len(b.pending) >= maxPendingMessages {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, msg)
}

func (b *SensorBridge) setPermissionLocked(p permissionState) {
	if b.permission == p {
		return
	}
	b.permission = p
	close(b.permCh)
	b.permCh = make(chan struct{})
}

// RequestPermission waits for the connected device to report its permission.
func (b *SensorBridge) RequestPermission(ctx context.Context) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	for {
		b.mu.Lock()
		p, ch := b.permission, b.permCh
		b.mu.Unlock()
		switch p {
		case permissionGranted:
			return nil
		case permissionDenied:
			return ErrPermissionDenied
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrPermissionDenied, ctx.Err())
		}
	}
}

// Subscribe replaces the current callbacks. Unsubscribing a stale subscription is a no-op.
func (b *SensorBridge) Subscribe(onSample func(OrientationSample), onScreen func(float64)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subID++
	id := b.subID
	b.onSample = onSample
	b.onScreen = onScreen
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subID != id {
			return
		}
		b.onSample = nil
		b.onScreen = nil
	}
}

// Pump dispatches queued messages to the subscribed callbacks.
func (b *SensorBridge) Pump() {
	b.mu.Lock()
	msgs := b.pending
	b.pending = nil
	onSample, onScreen := b.onSample, b.onScreen
	b.mu.Unlock()

	for _, m := range msgs {
		switch m.Type {
		case "orientation":
			if onSample != nil {
				onSample(OrientationSample{Alpha: m.Alpha, Beta: m.Beta, Gamma: m.Gamma})
			}
		case "screen":
			if onScreen != nil {
				onScreen(m.Angle)
			}
		}
	}
}

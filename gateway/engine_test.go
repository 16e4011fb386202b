package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory Transport double: incoming frames are
// queued on a channel, outgoing frames are recorded for assertions.
type fakeTransport struct {
	incoming chan []byte
	dialErr  error

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan []byte, 16)}
}

func (f *fakeTransport) push(p Payload) {
	body, _ := json.Marshal(p)
	f.incoming <- body
}

func (f *fakeTransport) Dial(ctx context.Context, url string) error { return f.dialErr }

func (f *fakeTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-f.incoming:
		if !ok {
			return nil, errors.New("transport closed")
		}

		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) WriteMessage(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.written = append(f.written, data)

	return nil
}

func (f *fakeTransport) Close(statusCode int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeTransport) frames() []Payload {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Payload, 0, len(f.written))

	for _, raw := range f.written {
		var p Payload
		_ = json.Unmarshal(raw, &p)
		out = append(out, p)
	}

	return out
}

func helloFrame(t *testing.T, interval time.Duration) Payload {
	t.Helper()

	body, err := json.Marshal(struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}{HeartbeatInterval: interval.Milliseconds()})
	require.NoError(t, err)

	return Payload{Operation: OpHello, RawData: body}
}

func TestEngineOpenSendsIdentifyWhenNoPriorSession(t *testing.T) {
	ft := newFakeTransport()
	ft.push(helloFrame(t, 45*time.Second))

	limiter := NewSendLimiter(1)
	log := zerolog.Nop()

	var mu sync.Mutex
	var got []Payload

	engine := NewEngine("token-123", "wss://example.invalid/gateway", 0, 1, ft, limiter, &log, func(p Payload) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, engine.Open(ctx))
	defer engine.Close(1000, "test done")

	frames := ft.frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, OpIdentify, frames[0].Operation)
}

func TestEngineOpenSendsResumeWhenSessionKnown(t *testing.T) {
	ft := newFakeTransport()
	ft.push(helloFrame(t, 45*time.Second))

	limiter := NewSendLimiter(1)
	log := zerolog.Nop()

	engine := NewEngine("token-123", "wss://example.invalid/gateway", 0, 1, ft, limiter, &log, func(Payload) {})
	engine.sessionID = "abc-session"
	engine.sequence = 42

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, engine.Open(ctx))
	defer engine.Close(1000, "test done")

	frames := ft.frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, OpResume, frames[0].Operation)
}

func TestHandleFrameDispatchUpdatesSequenceAndForwards(t *testing.T) {
	log := zerolog.Nop()

	var got Payload
	seen := false

	engine := NewEngine("token", "wss://example.invalid", 0, 1, newFakeTransport(), NewSendLimiter(1), &log, func(p Payload) {
		got = p
		seen = true
	})

	body, _ := json.Marshal(map[string]string{"foo": "bar"})
	engine.handleFrame(context.Background(), mustMarshal(t, Payload{
		Operation: OpDispatch,
		Sequence:  7,
		Type:      "MESSAGE_CREATE",
		RawData:   body,
	}))

	require.True(t, seen)
	assert.Equal(t, int64(7), engine.Sequence())
	assert.Equal(t, "MESSAGE_CREATE", got.Type)
}

func TestHandleFrameHeartbeatAckUpdatesLastAck(t *testing.T) {
	log := zerolog.Nop()
	engine := NewEngine("token", "wss://example.invalid", 0, 1, newFakeTransport(), NewSendLimiter(1), &log, nil)

	before := engine.lastAck
	time.Sleep(time.Millisecond)

	engine.handleFrame(context.Background(), mustMarshal(t, Payload{Operation: OpHeartbeatAck}))

	assert.True(t, engine.lastAck.After(before))
}

func TestHandleFrameInvalidSessionClearsState(t *testing.T) {
	ft := newFakeTransport()
	log := zerolog.Nop()

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(1), &log, nil)
	engine.sessionID = "stale-session"
	engine.sequence = 99

	engine.handleFrame(context.Background(), mustMarshal(t, Payload{Operation: OpInvalidSession}))

	assert.Equal(t, "", engine.SessionID())
	assert.Equal(t, int64(0), engine.Sequence())

	frames := ft.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, OpIdentify, frames[0].Operation)
}

func TestHeartbeatSendsNullSequenceBeforeFirstDispatch(t *testing.T) {
	log := zerolog.Nop()
	ft := newFakeTransport()

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(5), &log, nil)

	require.NoError(t, engine.Heartbeat(context.Background()))

	frames := ft.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, OpHeartbeat, frames[0].Operation)
	assert.Equal(t, "null", string(frames[0].RawData))
}

func TestHeartbeatSendsSequenceAfterDispatch(t *testing.T) {
	log := zerolog.Nop()
	ft := newFakeTransport()

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(5), &log, nil)
	atomic.StoreInt64(&engine.sequence, 12)

	require.NoError(t, engine.Heartbeat(context.Background()))

	frames := ft.frames()
	require.Len(t, frames, 1)

	var seq int64
	require.NoError(t, json.Unmarshal(frames[0].RawData, &seq))
	assert.Equal(t, int64(12), seq)
}

func TestClassifyDisconnectMapsTerminalCloseCodes(t *testing.T) {
	cases := map[int]error{
		4004: ErrAuth,
		4010: ErrShard,
		4011: ErrShard,
		4012: ErrShard,
		4013: ErrShard,
		4014: ErrShard,
		4000: nil,
		1001: nil,
	}

	for code, want := range cases {
		got := classifyDisconnect(&CloseError{Code: code, Reason: "test"})
		if want == nil {
			assert.Nil(t, got, "code %d", code)
		} else {
			assert.ErrorIs(t, got, want, "code %d", code)
		}
	}

	assert.Nil(t, classifyDisconnect(errors.New("plain transport error")))
}

func TestReconnectGivesUpOnTerminalCloseCode(t *testing.T) {
	log := zerolog.Nop()
	ft := newFakeTransport()

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(1), &log, nil)
	listening := make(chan struct{})
	engine.listening = listening

	engine.reconnect(listening, &CloseError{Code: 4004, Reason: "authentication failed"})

	assert.ErrorIs(t, engine.TerminalErr(), ErrAuth)
	assert.True(t, engine.isClosing())
	assert.Equal(t, int32(0), atomic.LoadInt32(&engine.reconnecting), "terminal path must not spawn a reconnect loop")
}

func TestReconnectOnRecoverableErrorStartsBackoffLoop(t *testing.T) {
	log := zerolog.Nop()
	ft := newFakeTransport()
	ft.dialErr = errors.New("connection refused")

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(1), &log, nil)
	listening := make(chan struct{})
	engine.listening = listening

	engine.reconnect(listening, errors.New("read: connection reset"))

	assert.Nil(t, engine.TerminalErr())
	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.reconnecting))

	engine.Close(1000, "test done")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&engine.reconnecting) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleFrameSequenceRegressionTriggersReconnect(t *testing.T) {
	log := zerolog.Nop()
	ft := newFakeTransport()
	ft.dialErr = errors.New("connection refused")

	engine := NewEngine("token", "wss://example.invalid", 0, 1, ft, NewSendLimiter(1), &log, nil)
	atomic.StoreInt64(&engine.sequence, 10)
	listening := make(chan struct{})
	engine.listening = listening

	engine.handleFrame(context.Background(), mustMarshal(t, Payload{
		Operation: OpDispatch,
		Sequence:  3,
		Type:      "MESSAGE_CREATE",
	}))

	assert.Equal(t, int64(10), engine.Sequence(), "sequence must not regress")
	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.reconnecting))

	engine.Close(1000, "test done")
}

func mustMarshal(t *testing.T, p Payload) []byte {
	t.Helper()

	body, err := json.Marshal(p)
	require.NoError(t, err)

	return body
}

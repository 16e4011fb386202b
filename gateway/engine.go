package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailedHeartbeatAcks is the number of heartbeat intervals to wait
// before forcing a reconnect when no ack has been seen.
const FailedHeartbeatAcks = 3

// Reconnect backoff bounds (spec.md §4.E): a redial attempt's delay
// doubles from minBackoff up to maxBackoff between tries.
const (
	minBackoff = 1 * time.Second
	maxBackoff = 60 * time.Second
)

// Handler receives decoded dispatch frames (op 0) from the engine. The
// caller is responsible for resolving the event name against its own
// table and updating any session state; the engine itself is
// stateless with respect to guilds, members, and channels.
type Handler func(payload Payload)

// Engine drives a single shard's connection lifecycle: dial, Hello,
// Identify-or-Resume, heartbeat, dispatch forwarding, and - the
// hardest part of spec.md §4.E - reconnection with exponential backoff
// and Resume. Grounded on the teacher's root Session type in
// session.go, generalized to run over any Transport and to forward
// dispatch frames to a caller-supplied Handler instead of a hardcoded
// per-event struct zoo.
type Engine struct {
	Transport Transport
	Limiter   *SendLimiter
	Log       *zerolog.Logger

	Token      string
	ShardID    int
	ShardCount int
	Compress   bool

	identityProps IdentifyProperties
	presence      *PresenceUpdateData

	mu        sync.RWMutex
	gateway   string
	sessionID string
	sequence  int64

	lastAck time.Time
	lastSnt time.Time

	listening chan struct{}
	wsMu      sync.Mutex
	closing   bool
	terminal  error

	reconnecting int32
	stopOnce     sync.Once
	stop         chan struct{}

	onDispatch Handler
}

// NewEngine builds an Engine for one shard. gatewayURL is the resolved
// wss:// URL (spec.md §6, GET /gateway/bot).
func NewEngine(token, gatewayURL string, shardID, shardCount int, transport Transport, limiter *SendLimiter, log *zerolog.Logger, onDispatch Handler) *Engine {
	return &Engine{
		Transport:     transport,
		Limiter:       limiter,
		Log:           log,
		Token:         token,
		ShardID:       shardID,
		ShardCount:    shardCount,
		Compress:      true,
		identityProps: IdentifyProperties{OS: "linux", Browser: "sandwich", Device: "sandwich"},
		gateway:       gatewayURL,
		onDispatch:    onDispatch,
		stop:          make(chan struct{}),
	}
}

// SetPresence configures the presence sent with future Identify frames.
func (e *Engine) SetPresence(p *PresenceUpdateData) {
	e.mu.Lock()
	e.presence = p
	e.mu.Unlock()
}

// SessionID returns the session_id learned from the last READY, or ""
// if the engine has never identified successfully.
func (e *Engine) SessionID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.sessionID
}

// Sequence returns the last dispatch sequence number observed.
func (e *Engine) Sequence() int64 {
	return atomic.LoadInt64(&e.sequence)
}

// TerminalErr returns the non-recoverable error (ErrAuth or ErrShard)
// that ended this engine's connection, or nil if it is still running,
// still retrying, or was closed deliberately via Close.
func (e *Engine) TerminalErr() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.terminal
}

// canResume reports whether the engine has enough state to attempt a
// resume rather than a cold identify.
func (e *Engine) canResume() bool {
	return e.SessionID() != "" && e.Sequence() != 0
}

func (e *Engine) isClosing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.closing
}

// Open dials the gateway, performs Hello followed by Identify or
// Resume, and starts the heartbeat and read-loop goroutines. It
// returns once the initial handshake has completed or failed; the
// connection continues to run in the background, reconnecting with
// backoff on a recoverable disconnect, until Close is called or a
// terminal close code is observed.
func (e *Engine) Open(ctx context.Context) error {
	if e.gateway == "" {
		return fmt.Errorf("%w: no gateway url configured", ErrGatewayNotFound)
	}

	return e.connect(ctx)
}

// connect performs one full dial-Hello-Identify/Resume handshake and
// starts this connection's heartbeat and read loops. It is used both
// by the initial Open and by every reconnect attempt, so a successful
// redial resumes the previous session whenever sessionID/sequence are
// still known (spec.md §4.E/§4.H, Scenario 2).
func (e *Engine) connect(ctx context.Context) error {
	if err := e.Transport.Dial(ctx, e.gateway); err != nil {
		return fmt.Errorf("dialing gateway: %w", err)
	}

	raw, err := e.Transport.ReadMessage(ctx)
	if err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}

	var hello Payload
	if err := json.Unmarshal(raw, &hello); err != nil {
		return fmt.Errorf("decoding hello envelope: %w", err)
	}

	if hello.Operation != OpHello {
		return fmt.Errorf("expected op %d (hello), got op %d", OpHello, hello.Operation)
	}

	var hd HelloData
	if err := json.Unmarshal(hello.RawData, &hd); err != nil {
		return fmt.Errorf("decoding hello body: %w", err)
	}

	e.mu.Lock()
	e.lastAck = time.Now().UTC()
	e.mu.Unlock()

	if err := e.Limiter.WaitIdentify(ctx); err != nil {
		return err
	}

	if e.canResume() {
		if err := e.sendResume(ctx); err != nil {
			return fmt.Errorf("sending resume: %w", err)
		}
	} else if err := e.sendIdentify(ctx); err != nil {
		return fmt.Errorf("sending identify: %w", err)
	}

	listening := make(chan struct{})

	e.mu.Lock()
	e.listening = listening
	e.closing = false
	e.mu.Unlock()

	go e.heartbeatLoop(listening, hd.Interval())
	go e.readLoop(listening)

	return nil
}

func (e *Engine) sendIdentify(ctx context.Context) error {
	if e.ShardCount > 1 && e.ShardID >= e.ShardCount {
		return ErrShardBounds
	}

	frame := NewIdentifyFrame(e.Token, e.identityProps, 250, e.Compress, e.ShardID, e.ShardCount, e.presence)

	return e.writeFrame(ctx, frame)
}

func (e *Engine) sendResume(ctx context.Context) error {
	frame := NewResumeFrame(e.Token, e.SessionID(), e.Sequence())
	return e.writeFrame(ctx, frame)
}

func (e *Engine) writeFrame(ctx context.Context, p Payload) error {
	if err := e.Limiter.WaitSend(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	e.wsMu.Lock()
	defer e.wsMu.Unlock()

	return e.Transport.WriteMessage(ctx, body)
}

// Heartbeat sends an unsolicited heartbeat carrying the current
// sequence number, or null if no dispatch has been observed yet
// (spec.md §4.E, Scenario 1).
func (e *Engine) Heartbeat(ctx context.Context) error {
	seq := e.Sequence()
	if seq == 0 {
		return e.writeFrame(ctx, NewHeartbeatFrame(nil))
	}

	return e.writeFrame(ctx, NewHeartbeatFrame(&seq))
}

// RequestGuildMembers sends an OpRequestGuildMembers frame.
func (e *Engine) RequestGuildMembers(ctx context.Context, guildID, query string, limit int, userIDs []string) error {
	return e.writeFrame(ctx, NewRequestGuildMembersFrame(guildID, query, limit, userIDs))
}

// UpdateStatus sends an OpStatusUpdate frame, gated by both the flat
// send ceiling and the tighter per-spec status-update ceiling.
func (e *Engine) UpdateStatus(ctx context.Context, data PresenceUpdateData) error {
	if err := e.Limiter.WaitStatus(ctx); err != nil {
		return err
	}

	return e.writeFrame(ctx, NewStatusUpdateFrame(data))
}

func (e *Engine) heartbeatLoop(listening <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		e.mu.Lock()
		e.lastSnt = time.Now().UTC()
		e.mu.Unlock()

		if err := e.Heartbeat(ctx); err != nil {
			e.logEvent().Err(err).Msg("error sending heartbeat to gateway")
			e.reconnect(listening, err)

			return
		}

		if time.Since(e.lastAck) > interval*FailedHeartbeatAcks {
			e.logEvent().Msg("no heartbeat ack received in time, forcing reconnect")
			e.reconnect(listening, errHeartbeatTimeout)

			return
		}

		select {
		case <-ticker.C:
		case <-listening:
			return
		}
	}
}

func (e *Engine) readLoop(listening <-chan struct{}) {
	ctx := context.Background()

	for {
		raw, err := e.Transport.ReadMessage(ctx)
		if err != nil {
			select {
			case <-listening:
				return
			default:
				e.logEvent().Err(err).Msg("error reading from gateway websocket")
				e.reconnect(listening, err)

				return
			}
		}

		select {
		case <-listening:
			return
		default:
			e.handleFrame(ctx, raw)
		}
	}
}

func (e *Engine) handleFrame(ctx context.Context, raw []byte) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		e.logEvent().Err(err).Msg("error decoding gateway frame")
		return
	}

	switch p.Operation {
	case OpHeartbeat:
		if err := e.Heartbeat(ctx); err != nil {
			e.logEvent().Err(err).Msg("error sending heartbeat in response to op1")
		}
	case OpReconnect:
		e.logEvent().Msg("gateway requested reconnect")
		e.reconnect(e.currentListening(), errReconnectRequested)
	case OpInvalidSession:
		e.logEvent().Msg("invalid session, re-identifying")

		e.mu.Lock()
		e.sessionID = ""
		atomic.StoreInt64(&e.sequence, 0)
		e.mu.Unlock()

		if err := e.sendIdentify(ctx); err != nil {
			e.logEvent().Err(err).Msg("error re-identifying after invalid session")
		}
	case OpHeartbeatAck:
		e.mu.Lock()
		e.lastAck = time.Now().UTC()
		e.mu.Unlock()
	case OpDispatch:
		if p.Sequence > 0 {
			prior := atomic.LoadInt64(&e.sequence)

			if p.Sequence < prior {
				e.logEvent().Int64("prior", prior).Int64("received", p.Sequence).
					Msg("sequence regression observed, forcing reconnect to resume")
				e.reconnect(e.currentListening(), errSequenceRegression)

				return
			}

			atomic.StoreInt64(&e.sequence, p.Sequence)
		}

		if p.Type == "READY" {
			if sid, err := SessionIDFromReady(p.RawData); err == nil {
				e.mu.Lock()
				e.sessionID = sid
				e.mu.Unlock()
			}
		}

		if e.onDispatch != nil {
			e.onDispatch(p)
		}
	default:
		e.logEvent().Int("op", int(p.Operation)).Msg("unhandled gateway opcode")
	}
}

func (e *Engine) currentListening() chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.listening
}

func (e *Engine) logEvent() *zerolog.Event {
	if e.Log == nil {
		nop := zerolog.Nop()
		e.Log = &nop
	}

	return e.Log.Error()
}

// reconnect tears down the current connection and, unless the engine
// is shutting down or cause maps to a terminal close code, redials
// with exponential backoff (1s, 2s, 4s, ... capped at 60s), resuming
// the previous session when sessionID/sequence are still known
// (spec.md §4.E, Scenario 2; invariant 6). listening is the loop's own
// copy of the connection's listening channel, used only to avoid
// racing a concurrent, newer connection's channel.
func (e *Engine) reconnect(listening chan struct{}, cause error) {
	if e.isClosing() {
		return
	}

	if e.currentListening() != listening {
		// A newer connection has already replaced this one; the loop
		// that hit cause is stale.
		return
	}

	if term := classifyDisconnect(cause); term != nil {
		e.logEvent().Err(term).Msg("non-recoverable close code, giving up on this shard")

		e.mu.Lock()
		e.closing = true
		e.terminal = term
		e.mu.Unlock()

		_ = e.Transport.Close(4000, "terminal error")

		return
	}

	if !atomic.CompareAndSwapInt32(&e.reconnecting, 0, 1) {
		return
	}

	_ = e.Transport.Close(4000, "reconnecting")

	go e.reconnectLoop()
}

func (e *Engine) reconnectLoop() {
	defer atomic.StoreInt32(&e.reconnecting, 0)

	backoff := minBackoff

	for {
		if e.isClosing() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := e.connect(ctx)
		cancel()

		if err == nil {
			if e.isClosing() {
				_ = e.Transport.Close(4000, "closed during reconnect")
			}

			return
		}

		e.logEvent().Err(err).Dur("backoff", backoff).Msg("reconnect attempt failed, backing off")

		select {
		case <-time.After(backoff):
		case <-e.stop:
			return
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Close closes the underlying Transport and stops the heartbeat and
// read-loop goroutines, and prevents any further reconnect attempt.
func (e *Engine) Close(statusCode int, reason string) error {
	e.mu.Lock()
	e.closing = true
	if e.listening != nil {
		close(e.listening)
		e.listening = nil
	}
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.stop) })

	return e.Transport.Close(statusCode, reason)
}

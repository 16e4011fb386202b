package sandwich

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TheRockettek/sandwich-gateway/dispatch"
	"github.com/TheRockettek/sandwich-gateway/gateway"
	"github.com/TheRockettek/sandwich-gateway/models"
	"github.com/TheRockettek/sandwich-gateway/rest"
	"github.com/TheRockettek/sandwich-gateway/state"
	"github.com/rs/zerolog"
)

// VERSION is this library's version string, matching the teacher's root
// session.go VERSION constant. The default REST User-Agent and the
// identify properties do not include it.
const VERSION = "1.0"

// Session Lifecycle (spec.md §4.H): Session is the aggregate owning
// one shard's credential, shard descriptor, gateway connection handle,
// and the Session State Store/Event Dispatcher pair that observe it.
// Grounded on the teacher's root Session type in session.go,
// generalized to compose the gateway.Engine, state.Store, and
// dispatch.Dispatcher built above instead of hand-rolling the
// websocket loop inline.
type Session struct {
	Token      string
	ShardID    int
	ShardCount int

	Engine     *gateway.Engine
	Store      *state.Store
	Dispatcher *dispatch.Dispatcher

	log *zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSession constructs a Session for one shard. gatewayURL is the
// wss:// endpoint resolved from GET /gateway/bot (spec.md §6).
func NewSession(token, gatewayURL string, shardID, shardCount int, transport gateway.Transport, limiter *gateway.SendLimiter, log *zerolog.Logger) *Session {
	store := state.New()
	disp := dispatch.New(store, log)

	s := &Session{
		Token:      token,
		ShardID:    shardID,
		ShardCount: shardCount,
		Store:      store,
		Dispatcher: disp,
		log:        log,
	}

	s.Engine = gateway.NewEngine(token, gatewayURL, shardID, shardCount, transport, limiter, log, s.onDispatch)

	return s
}

// onDispatch converts a decoded gateway dispatch frame into a domain
// Event and routes it through the Event Dispatcher (spec.md §4.F),
// closing the gap between the wire-level gateway package and the
// domain-level models package.
func (s *Session) onDispatch(p gateway.Payload) {
	s.Dispatcher.Dispatch(models.Event{
		Type:     p.Type,
		Sequence: p.Sequence,
		Data:     json.RawMessage(p.RawData),
	})
}

// Open dials the gateway and starts the shard's handshake and
// heartbeat/read loops (spec.md §4.H cold-connect / resume).
func (s *Session) Open(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	return s.Engine.Open(ctx)
}

// Close tears down the shard's connection and stops its dispatcher.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	s.mu.Unlock()

	err := s.Engine.Close(4000, "session closed")
	s.Dispatcher.Close()

	return err
}

// RequestGuildMembers requests guild members from the gateway; the
// response arrives as GUILD_MEMBERS_CHUNK dispatch events.
func (s *Session) RequestGuildMembers(ctx context.Context, guildID, query string, limit int, userIDs []string) error {
	if s.isClosed() {
		return ErrClosed
	}

	return s.Engine.RequestGuildMembers(ctx, guildID, query, limit, userIDs)
}

// UpdateStatus broadcasts a new presence for this shard.
func (s *Session) UpdateStatus(ctx context.Context, data UpdateStatusData) error {
	if s.isClosed() {
		return ErrClosed
	}

	return s.Engine.UpdateStatus(ctx, gateway.PresenceUpdateData{
		Since:  data.Since,
		Game:   data.Game,
		Status: string(data.Status),
		AFK:    data.AFK,
	})
}

// TerminalErr reports the non-recoverable error (ErrAuth or ErrShard)
// that ended this shard's connection permanently, or nil if the shard
// is still connected/reconnecting or was closed locally.
func (s *Session) TerminalErr() error {
	return s.Engine.TerminalErr()
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

// Manager is the Session Lifecycle's sharding orchestration layer: it
// resolves the recommended shard count from GET /gateway/bot, creates
// one Session per shard, and owns the shared REST Dispatcher every
// shard sends requests through. Grounded on the teacher's
// gateway/manager.go Manager/Open/Scale/CreateShardIDs, simplified by
// dropping the teacher's multi-cluster partitioning (an orthogonal
// deployment-topology concern outside this engine's scope) while
// keeping its >63-shards round-up-to-16 rule.
type Manager struct {
	Token string
	REST  *rest.Dispatcher
	Log   *zerolog.Logger

	Sessions map[int]*Session

	limiter *gateway.SendLimiter
	gateway models.GatewayBotResponse
}

// NewManager builds a Manager for a single bot credential.
func NewManager(token string, log *zerolog.Logger) *Manager {
	return &Manager{
		Token:    token,
		REST:     rest.NewDispatcher(rest.Credential(token), log),
		Log:      log,
		Sessions: make(map[int]*Session),
	}
}

// Open fetches GET /gateway/bot, resolves the shard count (explicit
// count, or Discord's recommendation when requestedShards <= 0), and
// builds and opens one Session per shard. setup, if non-nil, is called
// for each Session after construction but before Open, so handlers
// registered inside it are guaranteed to be in place before that
// shard's Identify is sent (spec.md §4.H).
func (m *Manager) Open(ctx context.Context, requestedShards int, setup func(*Session)) error {
	if requestedShards < 0 {
		return ErrInvalidShard
	}

	res, err := m.fetchGatewayBot(ctx)
	if err != nil {
		return fmt.Errorf("fetching /gateway/bot: %w", err)
	}

	if res.URL == "" {
		return ErrGatewayNotFound
	}

	m.gateway = res

	shardCount := res.Shards
	if requestedShards > 0 {
		shardCount = requestedShards
	}

	if shardCount > 63 {
		shardCount = roundUpTo16(shardCount)
	}

	if shardCount < 1 {
		shardCount = 1
	}

	m.limiter = gateway.NewSendLimiter(res.SessionStartLimit.MaxConcurrency)

	for _, id := range m.createShardIDs(shardCount) {
		sess := NewSession(m.Token, res.URL, id, shardCount, gateway.NewNhooyrTransport(), m.limiter, m.Log)
		m.Sessions[id] = sess

		if setup != nil {
			setup(sess)
		}

		if err := sess.Open(ctx); err != nil {
			return fmt.Errorf("opening shard %d: %w", id, err)
		}
	}

	return nil
}

func roundUpTo16(shardCount int) int {
	if shardCount%16 == 0 {
		return shardCount
	}

	return (shardCount/16 + 1) * 16
}

// createShardIDs returns every shard id this Manager is responsible
// for. Unlike the teacher's cluster-partitioned version, a Manager
// here always owns the full [0, shardCount) range.
func (m *Manager) createShardIDs(shardCount int) []int {
	ids := make([]int, shardCount)
	for i := range ids {
		ids[i] = i
	}

	return ids
}

func (m *Manager) fetchGatewayBot(ctx context.Context) (models.GatewayBotResponse, error) {
	type result struct {
		res models.GatewayBotResponse
		err error
	}

	done := make(chan result, 1)

	m.REST.Send(ctx, rest.VerbGet, "/gateway/bot", nil, func(r rest.Result) {
		if r.Err != nil {
			done <- result{err: r.Err}
			return
		}

		var gb models.GatewayBotResponse
		if err := rest.DecodeJSON(r, &gb); err != nil {
			done <- result{err: err}
			return
		}

		done <- result{res: gb}
	})

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return models.GatewayBotResponse{}, ctx.Err()
	case <-time.After(20 * time.Second):
		return models.GatewayBotResponse{}, fmt.Errorf("timed out waiting for /gateway/bot")
	}
}

// Close stops every shard's Session.
func (m *Manager) Close() {
	for _, sess := range m.Sessions {
		if err := sess.Close(); err != nil {
			m.Log.Warn().Err(err).Int("shard", sess.ShardID).Msg("error closing session")
		}
	}
}

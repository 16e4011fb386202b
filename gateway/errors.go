package gateway

import (
	"errors"
	"fmt"
)

// Exported so the root package can wrap/compare against them with
// errors.Is without this package importing root (see DESIGN.md's
// models/ package-split note for why that import direction is banned).
var (
	ErrGatewayNotFound = errors.New("gateway: no gateway url configured")
	ErrShardBounds     = errors.New("gateway: shard id out of bounds for shard count")

	// ErrAuth and ErrShard are the two terminal failure categories
	// spec.md §7 names: a close code that means the session can never
	// be recovered by reconnecting, as opposed to a transport error
	// that the reconnect policy should retry.
	ErrAuth  = errors.New("gateway: authentication failed")
	ErrShard = errors.New("gateway: non-recoverable shard or session configuration error")

	errSequenceRegression = errors.New("gateway: sequence regression observed")
	errReconnectRequested = errors.New("gateway: reconnect requested by gateway")
	errHeartbeatTimeout   = errors.New("gateway: heartbeat ack timeout")
)

// CloseError is returned by a Transport's ReadMessage when the
// connection ended with a WebSocket close frame, carrying the close
// code a Transport implementation would otherwise discard. The engine
// uses it to classify a disconnect as recoverable or terminal (spec.md
// §4.E, §7).
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("gateway: connection closed (code %d): %s", e.Code, e.Reason)
}

// terminalCloseCode classifies a gateway close code per spec.md §4.E /
// §7: codes 4004 (authentication failed) and 4010-4014 (invalid shard,
// sharding required, invalid API version, invalid or disallowed
// intents) end the session permanently; anything else (including a
// plain transport drop) is recoverable and should be retried.
func terminalCloseCode(code int) error {
	switch code {
	case 4004:
		return ErrAuth
	case 4010, 4011, 4012, 4013, 4014:
		return ErrShard
	default:
		return nil
	}
}

// classifyDisconnect inspects an error observed from the Transport and
// reports the terminal sentinel it maps to, or nil if the disconnect
// should be retried by the reconnect policy.
func classifyDisconnect(err error) error {
	var ce *CloseError
	if !errors.As(err, &ce) {
		return nil
	}

	return terminalCloseCode(ce.Code)
}

package sandwich

import (
	"errors"

	"github.com/TheRockettek/sandwich-gateway/gateway"
	"github.com/TheRockettek/sandwich-gateway/rest"
)

// Sentinel errors returned across the Transport, REST Dispatcher, and
// Gateway Protocol Engine components (spec.md §7). The gateway/rest
// errors are re-exported rather than redeclared so that errors.Is
// against a Session/Manager-level failure matches the error the
// underlying package actually returned.
var (
	ErrGatewayNotFound = gateway.ErrGatewayNotFound
	ErrWSShardBounds   = gateway.ErrShardBounds
	ErrAuth            = gateway.ErrAuth
	ErrShard           = gateway.ErrShard
	ErrInvalidToken    = rest.ErrInvalidToken
	ErrRateLimited     = rest.ErrRateLimited
	ErrLocalRateLimit  = rest.ErrLocalRateLimit
	ErrBadVerb         = rest.ErrBadVerb

	ErrClosed       = errors.New("sandwich: session is closed")
	ErrInvalidShard = errors.New("sandwich: shard count must not be negative")
)

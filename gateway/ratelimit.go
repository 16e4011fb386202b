package gateway

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SendLimiter enforces three gateway rate-limit guards: the
// server-advertised identify concurrency budget, the flat gateway send
// ceiling (120 frames per 60 seconds), and the status (presence) update
// ceiling (5 per 60 seconds). It replaces the teacher's undefined
// BucketStore/ConcurrencyLimiter referenced from gateway/manager.go
// with golang.org/x/time/rate, the limiter the rest of the retrieval
// pack's Discord clients standardize on.
type SendLimiter struct {
	identify *rate.Limiter
	send     *rate.Limiter
	status   *rate.Limiter
}

// NewSendLimiter builds a SendLimiter from a session start limit's
// max_concurrency (identify budget refills once per 5 seconds per
// Discord's documented identify bucket), the flat 120/60s gateway send
// ceiling, and the tighter 5/60s status (presence) update ceiling
// spec.md §4.E's "Send gating" section layers on top of it.
func NewSendLimiter(maxConcurrency int) *SendLimiter {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	return &SendLimiter{
		identify: rate.NewLimiter(rate.Every(5*time.Second), maxConcurrency),
		send:     rate.NewLimiter(rate.Every(60*time.Second/120), 120),
		status:   rate.NewLimiter(rate.Every(60*time.Second/5), 5),
	}
}

// WaitIdentify blocks until an identify slot is available, respecting
// the server-advertised concurrency budget.
func (l *SendLimiter) WaitIdentify(ctx context.Context) error {
	return l.identify.Wait(ctx)
}

// WaitSend blocks until a gateway frame may be sent without breaching
// the 120-per-60s ceiling. Every outbound frame (heartbeat, identify,
// resume, status update, voice state update, guild members request)
// goes through this gate.
func (l *SendLimiter) WaitSend(ctx context.Context) error {
	return l.send.Wait(ctx)
}

// WaitStatus blocks until a status (presence) update may be sent
// without breaching the tighter 5-per-60s ceiling. Every status update
// still passes through WaitSend as well, the same as any other frame.
func (l *SendLimiter) WaitStatus(ctx context.Context) error {
	return l.status.Wait(ctx)
}

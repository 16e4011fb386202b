package sink

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack"
)

// RedisSink mirrors dispatched events into Redis as a secondary
// projection, matching the teacher's marshal.go handlers (e.g.
// GUILD_CREATE's MarshalGuild), generalized from one hand-written
// marshaler per event name into a single generic list push keyed by
// event type.
type RedisSink struct {
	Client *redis.Client
	Prefix string
	ctx    context.Context
}

// NewRedisSink builds a RedisSink against an already-connected client.
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	return &RedisSink{Client: client, Prefix: prefix, ctx: context.Background()}
}

// Publish stores the event's msgpack-encoded payload under
// "<prefix>:events:<type>", matching the teacher's RedisPrefix-scoped
// key convention.
func (s *RedisSink) Publish(ev StreamEvent) error {
	body, err := msgpack.Marshal(ev.Data)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:events:%s", s.Prefix, ev.Type)

	return s.Client.LPush(s.ctx, key, body).Err()
}

// Close closes the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.Client.Close()
}

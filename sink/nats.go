package sink

import (
	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
	"github.com/vmihailenco/msgpack"
)

// NatsSink publishes dispatched events to a NATS Streaming (STAN)
// channel, matching the teacher's root manager.go ForwardProduce loop:
// connect a NATS conn, wrap it in a STAN conn, msgpack-encode each
// StreamEvent, and publish.
type NatsSink struct {
	nc      *nats.Conn
	sc      stan.Conn
	channel string
}

// NewNatsSink dials NATS at addr, establishes a STAN connection under
// clusterID/clientID, and returns a NatsSink publishing to channel.
func NewNatsSink(addr, clusterID, clientID, channel string) (*NatsSink, error) {
	nc, err := nats.Connect(addr)
	if err != nil {
		return nil, err
	}

	sc, err := stan.Connect(clusterID, clientID, stan.NatsConn(nc))
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NatsSink{nc: nc, sc: sc, channel: channel}, nil
}

// Publish msgpack-encodes a StreamEvent and publishes it to the
// configured STAN channel.
func (s *NatsSink) Publish(ev StreamEvent) error {
	body, err := msgpack.Marshal(ev)
	if err != nil {
		return err
	}

	return s.sc.Publish(s.channel, body)
}

// Close tears down the STAN connection followed by the underlying NATS
// connection.
func (s *NatsSink) Close() error {
	if err := s.sc.Close(); err != nil {
		return err
	}

	s.nc.Close()

	return nil
}

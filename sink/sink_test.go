package sink

import (
	"testing"

	"github.com/TheRockettek/sandwich-gateway/models"
	"github.com/stretchr/testify/assert"
)

func TestFromEventCopiesTypeAndData(t *testing.T) {
	ev := models.Event{Type: models.EventGuildCreate, Sequence: 5, Data: map[string]string{"id": "123"}}

	se := FromEvent(ev)

	assert.Equal(t, models.EventGuildCreate, se.Type)
	assert.Equal(t, ev.Data, se.Data)
}

// recordingSink is a minimal Sink used to confirm FromEvent output is
// exactly what a caller would forward through the interface.
type recordingSink struct {
	published []StreamEvent
	closed    bool
}

func (s *recordingSink) Publish(ev StreamEvent) error {
	s.published = append(s.published, ev)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestSinkInterfaceSatisfiedByRecordingSink(t *testing.T) {
	var s Sink = &recordingSink{}

	err := s.Publish(FromEvent(models.Event{Type: models.EventMessageCreate}))
	assert.NoError(t, err)

	rs := s.(*recordingSink)
	assert.Len(t, rs.published, 1)
	assert.Equal(t, models.EventMessageCreate, rs.published[0].Type)

	assert.NoError(t, s.Close())
	assert.True(t, rs.closed)
}

func TestRedisAndNatsSinksSatisfyInterface(t *testing.T) {
	var _ Sink = (*RedisSink)(nil)
	var _ Sink = (*NatsSink)(nil)
}

package dispatch

import (
	"testing"
	"time"

	"github.com/TheRockettek/sandwich-gateway/models"
	"github.com/TheRockettek/sandwich-gateway/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch to process event")
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := New(state.New(), nil)
	d.builtin = func(*state.Store, models.Event) error { return nil }
	defer d.Close()

	done := make(chan struct{})

	var received models.Event
	d.On(models.EventMessageCreate, func(ev models.Event) {
		received = ev
		close(done)
	})

	d.Dispatch(models.Event{Type: models.EventMessageCreate, Sequence: 1})

	waitFor(t, done)
	assert.Equal(t, models.EventMessageCreate, received.Type)
}

func TestDispatchFallsBackToUnhandledForUnknownEvent(t *testing.T) {
	d := New(state.New(), nil)
	d.builtin = func(*state.Store, models.Event) error { return nil }
	defer d.Close()

	done := make(chan struct{})

	var received models.Event
	d.OnUnhandled(func(ev models.Event) {
		received = ev
		close(done)
	})

	d.Dispatch(models.Event{Type: "SOME_FUTURE_EVENT"})

	waitFor(t, done)
	assert.Equal(t, "SOME_FUTURE_EVENT", received.Type)
}

func TestDispatchRunsBuiltinBeforeUserHandlers(t *testing.T) {
	d := New(state.New(), nil)
	defer d.Close()

	order := make(chan string, 2)

	d.builtin = func(*state.Store, models.Event) error {
		order <- "builtin"
		return nil
	}

	done := make(chan struct{})
	d.On(models.EventGuildCreate, func(models.Event) {
		order <- "user"
		close(done)
	})

	d.Dispatch(models.Event{Type: models.EventGuildCreate})

	waitFor(t, done)
	require.Equal(t, "builtin", <-order)
	require.Equal(t, "user", <-order)
}

func TestCloseStopsFurtherProcessing(t *testing.T) {
	d := New(state.New(), nil)
	d.builtin = func(*state.Store, models.Event) error { return nil }

	called := false
	d.On(models.EventGuildDelete, func(models.Event) { called = true })

	d.Close()
	d.Dispatch(models.Event{Type: models.EventGuildDelete})

	time.Sleep(10 * time.Millisecond)
	assert.False(t, called)
}

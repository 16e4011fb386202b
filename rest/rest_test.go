package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteKey(t *testing.T) {
	cases := map[string]string{
		"/channels/123/messages": "channels/123",
		"/guilds/456/members/1":  "guilds/456",
		"/users/@me":             "users",
		"/gateway/bot":           "gateway",
	}

	for resource, want := range cases {
		assert.Equal(t, want, routeKey(resource))
	}
}

func TestSendInjectsAuthAndCompletesURL(t *testing.T) {
	var gotAuth, gotUA, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewDispatcher("tkn", nil)
	d.BaseURL = srv.URL

	done := make(chan Result, 1)
	d.Send(context.Background(), VerbGet, "/users/@me", nil, func(r Result) { done <- r })

	res := <-done
	require.NoError(t, res.Err)

	assert.Equal(t, "Bot tkn", gotAuth)
	assert.NotEmpty(t, gotUA)
	assert.Equal(t, "/api/v8/users/@me", gotPath)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestSendRejectsBadVerb(t *testing.T) {
	d := NewDispatcher("tkn", nil)

	done := make(chan Result, 1)
	d.Send(context.Background(), Verb("TRACE"), "/users/@me", nil, func(r Result) { done <- r })

	res := <-done
	assert.Error(t, res.Err)
}

func TestSendRejectsResourceWithoutLeadingSlash(t *testing.T) {
	d := NewDispatcher("tkn", nil)

	done := make(chan Result, 1)
	d.Send(context.Background(), VerbGet, "users/@me", nil, func(r Result) { done <- r })

	res := <-done
	assert.Error(t, res.Err)
}

func TestSendRefusesLocallyOnBurstGuard(t *testing.T) {
	var hits int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := NewDispatcher("tkn", nil)
	d.BaseURL = srv.URL

	for i := 0; i < burstLimit; i++ {
		done := make(chan Result, 1)
		d.Send(context.Background(), VerbGet, "/users/@me", nil, func(r Result) { done <- r })
		res := <-done
		require.NoError(t, res.Err)
	}

	done := make(chan Result, 1)
	d.Send(context.Background(), VerbGet, "/users/@me", nil, func(r Result) { done <- r })
	res := <-done

	assert.ErrorIs(t, res.Err, ErrLocalRateLimit)
	assert.Equal(t, burstLimit, hits)
}

func TestCheckServerLimitRefusesWhenExhausted(t *testing.T) {
	b := newBucket()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Limit", "5")
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Reset", formatEpoch(time.Now().Add(10*time.Second)))

	b.observe(resp)

	exhausted, resetIn := b.checkServerLimit()
	require.True(t, exhausted)
	assert.Greater(t, resetIn, time.Duration(0))
}

func TestCheckServerLimitAllowsAfterReset(t *testing.T) {
	b := newBucket()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Limit", "5")
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Reset", formatEpoch(time.Now().Add(-10*time.Second)))

	b.observe(resp)

	exhausted, _ := b.checkServerLimit()
	assert.False(t, exhausted)
}

func formatEpoch(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', 3, 64)
}

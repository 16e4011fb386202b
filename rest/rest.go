// Package rest implements the REST Dispatcher component (spec.md
// §4.D): a single Send primitive that injects authentication, derives
// a per-route rate-limit bucket, and delivers its result through a
// continuation rather than blocking the caller.
//
// Grounded on the teacher's client/client.go, whose Client.FetchJSON
// and HandleRequest inject the Authorization/User-Agent headers and
// complete the base URL/API version; this package keeps that logic and
// layers asynchronous delivery and per-route rate limiting on top, per
// the "coroutine-style CallbackCoroutine" -> "futures/continuation"
// REDESIGN FLAG (spec.md §9).
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Verb is an HTTP method the dispatcher accepts (spec.md §4.D).
type Verb string

// Supported verbs.
const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbPatch  Verb = http.MethodPatch
	VerbDelete Verb = http.MethodDelete
)

func (v Verb) valid() bool {
	switch v {
	case VerbGet, VerbPost, VerbPut, VerbPatch, VerbDelete:
		return true
	default:
		return false
	}
}

// Credential is a bot token, sent as "Bot <token>".
type Credential string

// Result is delivered to a Send continuation once the request
// completes, whether it succeeded or failed.
type Result struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Continuation receives a Result once a Send call's request completes.
// For a request that passes Send's verb and resource checks it runs on
// the goroutine Send starts for that request, not the caller's; a bad
// verb or resource is reported on the caller's goroutine before Send
// returns.
type Continuation func(Result)

// Option customizes one Send call: an extra header or a Content-Type
// override for multipart bodies.
type Option func(*http.Request)

// WithHeader sets an additional request header.
func WithHeader(key, value string) Option {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// WithContentType overrides the request's Content-Type, used for
// multipart/form-data uploads.
func WithContentType(contentType string) Option {
	return func(r *http.Request) { r.Header.Set("Content-Type", contentType) }
}

var routePattern = regexp.MustCompile(`^/(channels|guilds|webhooks)/(\d+)`)

// routeKey derives the rate-limit bucket key for a resource path, per
// spec.md §4.D: /channels/<id>, /guilds/<id> and /webhooks/<id> get
// their own bucket; anything else buckets on its first path segment.
func routeKey(resource string) string {
	if m := routePattern.FindStringSubmatch(resource); m != nil {
		return m[1] + "/" + m[2]
	}

	parts := strings.SplitN(strings.TrimPrefix(resource, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return resource
	}

	return parts[0]
}

// Client-side burst guard bounds (spec.md §4.C guard 2): at most
// burstLimit calls per burstPeriod to any single route.
const (
	burstLimit  = 5
	burstPeriod = time.Second

	// resetGrace tolerates a route's server-advertised reset having
	// just passed (clock skew between us and Discord), per spec.md
	// §4.C guard 1's "reset - now >= -3s" condition.
	resetGrace = 3 * time.Second
)

// bucket tracks a route's two rate-limit guards independently: the
// client-side burst limiter (fixed, spec.md §4.C guard 2) and the
// last server-advertised remaining/reset pair (spec.md §4.C guard 1),
// refreshed from response headers after every request.
type bucket struct {
	burst *rate.Limiter

	mu        sync.Mutex
	haveState bool
	limit     int
	remaining int
	resetAt   time.Time
}

func newBucket() *bucket {
	return &bucket{burst: rate.NewLimiter(rate.Every(burstPeriod/burstLimit), burstLimit)}
}

// allowBurst reports whether this call fits within the client-side
// burst guard; it never blocks.
func (b *bucket) allowBurst() bool {
	return b.burst.Allow()
}

// checkServerLimit reports whether the last observed response says
// this route is currently exhausted (spec.md §4.C guard 1), and if so
// how long until its reset.
func (b *bucket) checkServerLimit() (exhausted bool, resetIn time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.haveState || b.remaining > 0 {
		return false, 0
	}

	until := time.Until(b.resetAt)
	if until < -resetGrace {
		return false, 0
	}

	return true, until
}

// observe records the server-advertised rate-limit state carried by a
// response's headers (spec.md §6): X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset (an absolute epoch
// time, not a relative offset).
func (b *bucket) observe(resp *http.Response) {
	limitHeader := resp.Header.Get("X-RateLimit-Limit")
	remainingHeader := resp.Header.Get("X-RateLimit-Remaining")
	resetHeader := resp.Header.Get("X-RateLimit-Reset")

	remaining, err1 := strconv.Atoi(remainingHeader)
	resetEpoch, err2 := strconv.ParseFloat(resetHeader, 64)

	if err1 != nil || err2 != nil {
		return
	}

	limit, _ := strconv.Atoi(limitHeader)

	sec := int64(resetEpoch)
	nsec := int64((resetEpoch - float64(sec)) * float64(time.Second))

	b.mu.Lock()
	defer b.mu.Unlock()

	b.haveState = true
	b.limit = limit
	b.remaining = remaining
	b.resetAt = time.Unix(sec, nsec)
}

// Dispatcher is the REST Dispatcher: one HTTP client, one credential,
// and a per-route set of rate-limit buckets (spec.md §4.C, §4.D).
type Dispatcher struct {
	HTTP       *http.Client
	Credential Credential
	UserAgent  string
	APIVersion string
	BaseURL    string
	Log        *zerolog.Logger

	buckets sync.Map // route key -> *bucket
}

// NewDispatcher builds a Dispatcher for a single bot credential.
func NewDispatcher(credential Credential, log *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		HTTP:       &http.Client{Timeout: 20 * time.Second},
		Credential: credential,
		UserAgent:  "DiscordBot (sandwich-gateway, v1)",
		APIVersion: "8",
		BaseURL:    "https://discord.com",
		Log:        log,
	}
}

func (d *Dispatcher) bucketFor(resource string) *bucket {
	key := routeKey(resource)

	v, _ := d.buckets.LoadOrStore(key, newBucket())

	return v.(*bucket)
}

// Send is the REST Dispatcher's single entry point (spec.md §4.D).
// verb must be one of GET/POST/PUT/PATCH/DELETE; resource must start
// with "/"; body may be nil or pre-encoded bytes (see the codec
// package for schema-driven encoding). cb, if non-nil, is invoked with
// the result once the request completes; Send does not block on cb.
func (d *Dispatcher) Send(ctx context.Context, verb Verb, resource string, body []byte, cb Continuation, opts ...Option) {
	if !verb.valid() {
		if cb != nil {
			cb(Result{Err: fmt.Errorf("%w: %q", ErrBadVerb, verb)})
		}

		return
	}

	if !strings.HasPrefix(resource, "/") {
		if cb != nil {
			cb(Result{Err: fmt.Errorf("%w: %q", ErrBadResource, resource)})
		}

		return
	}

	go d.dispatch(ctx, verb, resource, body, cb, opts)
}

func (d *Dispatcher) dispatch(ctx context.Context, verb Verb, resource string, body []byte, cb Continuation, opts []Option) {
	b := d.bucketFor(resource)

	if exhausted, resetIn := b.checkServerLimit(); exhausted {
		d.deliver(cb, Result{Err: fmt.Errorf("%w: reset in %s", ErrRateLimited, resetIn)})
		return
	}

	if !b.allowBurst() {
		d.deliver(cb, Result{Err: ErrLocalRateLimit})
		return
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, string(verb), d.BaseURL+"/api/v"+d.APIVersion+resource, reader)
	if err != nil {
		d.deliver(cb, Result{Err: err})
		return
	}

	req.Header.Set("User-Agent", d.UserAgent)
	req.Header.Set("Authorization", "Bot "+string(d.Credential))

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, opt := range opts {
		opt(req)
	}

	resp, err := d.HTTP.Do(req)
	if err != nil {
		d.deliver(cb, Result{Err: err})
		return
	}
	defer resp.Body.Close()

	b.observe(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		d.deliver(cb, Result{StatusCode: resp.StatusCode, Err: err})
		return
	}

	if resp.StatusCode == http.StatusUnauthorized {
		d.deliver(cb, Result{StatusCode: resp.StatusCode, Body: data, Err: ErrInvalidToken})
		return
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		d.deliver(cb, Result{StatusCode: resp.StatusCode, Body: data, Err: ErrRateLimited})
		return
	}

	d.deliver(cb, Result{StatusCode: resp.StatusCode, Body: data})
}

func (d *Dispatcher) deliver(cb Continuation, res Result) {
	if cb == nil {
		return
	}

	cb(res)
}

// SendMultipart sends a multipart/form-data request, used for
// endpoints accepting file uploads (spec.md §6).
func (d *Dispatcher) SendMultipart(ctx context.Context, verb Verb, resource string, fields map[string]string, files map[string]io.Reader, cb Continuation) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			d.deliver(cb, Result{Err: err})
			return
		}
	}

	for name, r := range files {
		part, err := w.CreateFormFile(name, name)
		if err != nil {
			d.deliver(cb, Result{Err: err})
			return
		}

		if _, err := io.Copy(part, r); err != nil {
			d.deliver(cb, Result{Err: err})
			return
		}
	}

	if err := w.Close(); err != nil {
		d.deliver(cb, Result{Err: err})
		return
	}

	d.Send(ctx, verb, resource, buf.Bytes(), cb, WithContentType(w.FormDataContentType()))
}

// DecodeJSON is a convenience helper matching the teacher's
// Client.FetchJSON: it decodes a Result's body into structure, or
// returns the Result's error.
func DecodeJSON(res Result, structure interface{}) error {
	if res.Err != nil {
		return res.Err
	}

	return json.Unmarshal(res.Body, structure)
}

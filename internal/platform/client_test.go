package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/actorrelay/internal/clock"
	"github.com/dwsmith1983/actorrelay/internal/testutil"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const testToken = "apify_api_test"

func newTestClient(t *testing.T, f *testutil.FakePlatform, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(f.URL()),
		WithConsoleURL("https://console.example.com"),
		WithHTTPClient(f.Server.Client()),
		WithClock(clock.NewFake(time.Now())),
	}
	return New(append(base, opts...)...)
}

func TestListActors(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.AddActor("def456", "google-maps", "")
	c := newTestClient(t, f)

	actors, err := c.ListActors(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, []types.Actor{
		{Name: "web-scraper", ActorID: "abc123"},
		{Name: "google-maps", ActorID: "def456"},
	}, actors)
}

func TestListActors_Empty(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	c := newTestClient(t, f)

	actors, err := c.ListActors(context.Background(), testToken)
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestListActors_BadToken(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	c := newTestClient(t, f)

	_, err := c.ListActors(context.Background(), "wrong")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "list actors", te.Op)
}

func TestGetInputSchema_FromActor(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", `{
		"title": "Input",
		"type": "object",
		"schemaVersion": 1,
		"properties": {
			"startUrls": {"title": "Start URLs", "type": "array"},
			"maxPages": {"title": "Max pages", "type": "integer"}
		},
		"required": ["startUrls"]
	}`)
	c := newTestClient(t, f)

	schema, err := c.GetInputSchema(context.Background(), testToken, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Input", schema.Title)
	assert.Equal(t, []string{"startUrls", "maxPages"}, schema.Keys())
	assert.Equal(t, "integer", schema.Properties["maxPages"].Type)
	assert.Equal(t, []string{"startUrls"}, schema.Required)
}

func TestGetInputSchema_FallsBackToDefaultBuild(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.SetBuildSchema("abc123", `{"properties":{"query":{"type":"string","title":"Query"}}}`)
	c := newTestClient(t, f)

	schema, err := c.GetInputSchema(context.Background(), testToken, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"query"}, schema.Keys())
	assert.Equal(t, "Query", schema.Properties["query"].Title)
}

func TestGetInputSchema_NoneAnywhere(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	c := newTestClient(t, f)

	schema, err := c.GetInputSchema(context.Background(), testToken, "abc123")
	require.NoError(t, err)
	assert.Empty(t, schema.Properties)
}

func TestGetInputSchema_MissingActorID(t *testing.T) {
	c := New()
	_, err := c.GetInputSchema(context.Background(), testToken, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "actorId is required")
}

func TestStartRun(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	c := newTestClient(t, f)

	input := map[string]interface{}{"query": "coffee", "maxPages": float64(3)}
	h, err := c.StartRun(context.Background(), testToken, "abc123", input)
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, "abc123", h.ActorID)
	assert.Equal(t, "https://console.example.com/view/runs/run-1", h.MonitorURL)
	assert.Equal(t, input, f.LastInput())
}

func TestStartRun_MissingRunID(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.OmitRunID()
	c := newTestClient(t, f)

	_, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStartRun_RetriesRateLimit(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.FailStarts(http.StatusTooManyRequests)
	fake := clock.NewFake(time.Now())
	c := newTestClient(t, f, WithClock(fake), WithRetryPolicy(RetryPolicy{MaxRetries: 2, Backoff: time.Second}))

	h, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, 2, f.StartCalls())
	assert.Equal(t, []time.Duration{time.Second}, fake.Sleeps())
}

func TestStartRun_NoResendAfterServerError(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			f := testutil.NewFakePlatform(t, testToken)
			f.AddActor("abc123", "web-scraper", "")
			f.FailStarts(code)
			c := newTestClient(t, f, WithRetryPolicy(RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}))

			_, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
			require.Error(t, err)
			assert.True(t, IsTransportError(err))
			assert.Equal(t, 1, f.StartCalls(), "the platform may already have created the run")
		})
	}
}

func TestStartRun_NoResendAfterAttemptTimeout(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(clock.NewFake(time.Now())),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3}),
	)
	ctx := WithRequestTimeout(context.Background(), 50*time.Millisecond)
	_, err := c.StartRun(ctx, testToken, "abc123", map[string]interface{}{"q": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), posts.Load())
}

func TestStartRun_NoRetryOnClientError(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.FailStarts(http.StatusBadRequest)
	c := newTestClient(t, f)

	_, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
	require.Error(t, err)
	assert.Equal(t, 1, f.StartCalls())
}

func TestGetRun(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.Script("abc123", testutil.Step{Status: "FAILED", Message: "Actor crashed"})
	c := newTestClient(t, f)

	h, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
	require.NoError(t, err)

	rec, err := c.GetRun(context.Background(), testToken, h.RunID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, rec.Status)
	assert.Equal(t, "Actor crashed", rec.StatusMessage)
	assert.Equal(t, "ds-1", rec.Fields["defaultDatasetId"])
}

func TestGetRun_MissingStatus(t *testing.T) {
	f := testutil.NewFakePlatform(t, testToken)
	f.AddActor("abc123", "web-scraper", "")
	f.Script("abc123", testutil.Step{})
	c := newTestClient(t, f)

	h, err := c.StartRun(context.Background(), testToken, "abc123", map[string]interface{}{"q": "x"})
	require.NoError(t, err)

	_, err = c.GetRun(context.Background(), testToken, h.RunID)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCall_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(WithBaseURL(url), WithRetryPolicy(NoRetry()))
	_, err := c.ListActors(context.Background(), testToken)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.Contains(t, err.Error(), "request failed")
}

func TestCall_MissingEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.ListActors(context.Background(), testToken)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCall_BreakerOpensOnTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(NoRetry()),
		WithBreakerConfig(BreakerConfig{FailThreshold: 2, Cooldown: time.Hour, FailWindow: time.Hour}),
	)

	for i := 0; i < 2; i++ {
		_, err := c.ListActors(context.Background(), testToken)
		require.Error(t, err)
	}
	_, err := c.ListActors(context.Background(), testToken)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestCall_BreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithBreakerConfig(BreakerConfig{FailThreshold: 1, Cooldown: time.Hour}),
	)
	for i := 0; i < 3; i++ {
		_, err := c.ListActors(context.Background(), testToken)
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetRun_HungAttemptIsRetried(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gets.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"SUCCEEDED"}}`))
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(clock.NewFake(time.Now())),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3}),
	)
	ctx := WithRequestTimeout(context.Background(), 50*time.Millisecond)
	rec, err := c.GetRun(ctx, testToken, "run-1")
	require.NoError(t, err)
	assert.Equal(t, types.RunSucceeded, rec.Status)
	assert.Equal(t, int32(2), gets.Load())
}

func TestWithRequestTimeout(t *testing.T) {
	_, ok := RequestTimeoutFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestTimeoutFromContext(WithRequestTimeout(context.Background(), 0))
	assert.False(t, ok)

	d, ok := RequestTimeoutFromContext(WithRequestTimeout(context.Background(), time.Second))
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
}

func TestCall_BreakerIsPerAccountKey(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") == "Bearer key-failing" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer srv.Close()

	c := New(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(NoRetry()),
		WithBreakerConfig(BreakerConfig{FailThreshold: 2, Cooldown: time.Hour, FailWindow: time.Hour}),
	)

	for i := 0; i < 2; i++ {
		_, err := c.ListActors(context.Background(), "key-failing")
		require.Error(t, err)
	}
	_, err := c.ListActors(context.Background(), "key-failing")
	assert.Contains(t, err.Error(), "circuit breaker is open")

	_, err = c.ListActors(context.Background(), "key-healthy")
	require.NoError(t, err, "another account key keeps its own breaker")
	assert.Equal(t, int32(3), hits.Load())
}

func TestMonitorURL_Escapes(t *testing.T) {
	c := New(WithConsoleURL("https://console.example.com/"))
	assert.Equal(t, "https://console.example.com/view/runs/a%2Fb", c.MonitorURL("a/b"))
}

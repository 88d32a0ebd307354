package dvsa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type tokenServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func okToken(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func newTestCache(url string, clk *clocktesting.FakeClock) *TokenCache {
	return NewTokenCache(TokenConfig{
		TokenURL:     url,
		ClientID:     "client",
		ClientSecret: "secret",
		Scope:        "https://tapi.dvsa.gov.uk/.default",
		Clock:        clk,
	})
}

func TestTokenCacheSendsClientCredentials(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://tapi.dvsa.gov.uk/.default", r.PostForm.Get("scope"))
		okToken(`{"access_token":"tok-1","expires_in":3600}`)(w, r)
	})

	c := newTestCache(srv.URL, clocktesting.NewFakeClock(time.Now()))
	token, err := c.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestTokenCacheConcurrentCallersShareOneRefresh(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		okToken(`{"access_token":"shared","expires_in":3600}`)(w, r)
	})
	c := newTestCache(srv.URL, clocktesting.NewFakeClock(time.Now()))

	const callers = 25
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = c.Token(t.Context())
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestTokenCacheRefreshesInsideExpirySkew(t *testing.T) {
	srv := newTokenServer(t, okToken(`{"access_token":"tok","expires_in":3600}`))
	clk := clocktesting.NewFakeClock(time.Now())
	c := newTestCache(srv.URL, clk)

	_, err := c.Token(t.Context())
	require.NoError(t, err)

	clk.Step(3600*time.Second - 61*time.Second)
	_, err = c.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load(), "61s before expiry the cached token is still served")

	clk.Step(time.Second)
	_, err = c.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load(), "60s before expiry the token is refreshed")
}

func TestTokenCacheExpiresIn(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"number", `{"access_token":"a","expires_in":120}`, 120 * time.Second},
		{"string", `{"access_token":"a","expires_in":"300"}`, 300 * time.Second},
		{"absent", `{"access_token":"a"}`, 3600 * time.Second},
		{"zero", `{"access_token":"a","expires_in":0}`, 3600 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, okToken(tt.body))
			now := time.Now()
			c := newTestCache(srv.URL, clocktesting.NewFakeClock(now))

			_, err := c.Token(t.Context())
			require.NoError(t, err)
			assert.Equal(t, now.Add(tt.want), c.expiresAt)
		})
	}
}

func TestTokenCacheErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid_client"}`, ErrAuth},
		{"forbidden", http.StatusForbidden, `denied`, ErrAuth},
		{"server error", http.StatusInternalServerError, `oops`, ErrAPI},
		{"bad request", http.StatusBadRequest, `{"error":"invalid_scope"}`, ErrAPI},
		{"missing token", http.StatusOK, `{"expires_in":3600}`, ErrAPI},
		{"malformed", http.StatusOK, `<html>`, ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestCache(srv.URL, clocktesting.NewFakeClock(time.Now()))

			_, err := c.Token(t.Context())
			require.ErrorIs(t, err, tt.wantErr)

			// Nothing is cached after a failure.
			_, err = c.Token(t.Context())
			require.Error(t, err)
			assert.Equal(t, int32(2), srv.hits.Load())
		})
	}
}

func TestTokenCacheTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestCache(url, clocktesting.NewFakeClock(time.Now()))
	_, err := c.Token(t.Context())
	assert.ErrorIs(t, err, ErrAPI)
}

func TestTokenCacheInvalidate(t *testing.T) {
	srv := newTokenServer(t, okToken(`{"access_token":"tok","expires_in":3600}`))
	c := newTestCache(srv.URL, clocktesting.NewFakeClock(time.Now()))

	_, err := c.Token(t.Context())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Token(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestTokenCacheCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		okToken(`{"access_token":"tok","expires_in":3600}`)(w, r)
	})
	c := newTestCache(srv.URL, clocktesting.NewFakeClock(time.Now()))

	ctx, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Token(ctx)
		firstErr <- err
	}()
	<-started

	type result struct {
		token string
		err   error
	}
	second := make(chan result, 1)
	go func() {
		token, err := c.Token(t.Context())
		second <- result{token, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, ErrAPI)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "tok", res.token)
	assert.Equal(t, int32(1), srv.hits.Load())

	token, err := c.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int32(1), srv.hits.Load())
}

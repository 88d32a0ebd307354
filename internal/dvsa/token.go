package dvsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/motwatch/internal/pkg/metrics"
	"github.com/autopeer-io/motwatch/pkg/log"
)

const (
	// expirySkew is how close to expiry a cached token is considered stale.
	expirySkew = 60 * time.Second

	defaultExpiresIn = 3600
)

// TokenSource hands out bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenConfig configures a TokenCache.
type TokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	// Timeout bounds one token request, which runs detached from the caller's
	// cancellation. Zero means no limit.
	Timeout time.Duration

	HTTPClient *http.Client
	Clock      clock.PassiveClock
}

// TokenCache holds one OAuth2 client-credentials token and refreshes it on
// demand. Concurrent callers that find it stale share a single refresh.
type TokenCache struct {
	cfg        TokenConfig
	httpClient *http.Client
	clock      clock.PassiveClock
	logger     log.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// NewTokenCache returns an empty cache. The first Token call fetches.
func NewTokenCache(cfg TokenConfig) *TokenCache {
	c := &TokenCache{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		clock:      cfg.Clock,
		logger:     log.WithName("token-cache"),
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	return c
}

// Token returns a token valid for more than a minute, fetching one if needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	// The flight outlives any single caller; each caller stops waiting on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("token", func() (any, error) {
		// Another flight may have finished between the read above and now.
		if token, ok := c.cached(); ok {
			return token, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for token: %v", ErrAPI, ctx.Err())
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token != "" && c.expiresAt.Sub(c.clock.Now()) > expirySkew {
		return c.token, true
	}
	return "", false
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	token, expiresIn, err := c.fetch(ctx)
	if err != nil {
		result := metrics.OutcomeAPIError
		if isAuth(err) {
			result = metrics.OutcomeAuthError
		}
		metrics.TokenRefreshTotal.WithLabelValues(result).Inc()
		c.logger.Error(err, "Token refresh failed", "tokenURL", c.cfg.TokenURL)
		return "", err
	}
	metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	c.mu.Lock()
	c.token = token
	c.expiresAt = c.clock.Now().Add(expiresIn)
	c.mu.Unlock()

	c.logger.Debug("Token refreshed", "expiresIn", expiresIn)
	return token, nil
}

func (c *TokenCache) fetch(ctx context.Context) (string, time.Duration, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", c.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("%w: building token request: %v", ErrAPI, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: token request error: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading token response: %v", ErrAPI, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", 0, fmt.Errorf("%w: token request unauthorized (%d): %s", ErrAuth, resp.StatusCode, truncateBody(body))
	case resp.StatusCode >= http.StatusBadRequest:
		return "", 0, fmt.Errorf("%w: token request failed (%d): %s", ErrAPI, resp.StatusCode, truncateBody(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("%w: decoding token response: %v", ErrAPI, err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: token response missing access_token", ErrAPI)
	}

	return tr.AccessToken, expiresIn(tr.ExpiresIn), nil
}

func expiresIn(n json.Number) time.Duration {
	secs, err := n.Float64()
	if err != nil || secs <= 0 {
		secs = defaultExpiresIn
	}
	return time.Duration(secs * float64(time.Second))
}

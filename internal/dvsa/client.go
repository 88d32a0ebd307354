package dvsa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/pkg/metrics"
)

const (
	registrationPath = "/v1/trade/vehicles/registration/"
	vinPath          = "/v1/trade/vehicles/vin/"

	// DefaultRequestTimeout bounds one vehicle lookup.
	DefaultRequestTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds one lookup round trip. Defaults to DefaultRequestTimeout.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Client looks up vehicle history on the MOT trade API.
// Every call makes exactly one HTTP round trip and never retries.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient returns a Client that authenticates with tokens.
func NewClient(cfg Config, tokens TokenSource) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		tokens:     tokens,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// Lookup fetches the history of one registration. The registration is
// normalized first. Errors wrap ErrNotFound, ErrAuth or ErrAPI.
func (c *Client) Lookup(ctx context.Context, registration string) (mot.Document, error) {
	reg := Normalize(registration)
	if reg == "" {
		return nil, fmt.Errorf("%w: empty registration", ErrAPI)
	}
	return c.get(ctx, registrationPath+url.PathEscape(reg))
}

// LookupVIN fetches the history of a vehicle by its VIN.
func (c *Client) LookupVIN(ctx context.Context, vin string) (mot.Document, error) {
	v := strings.ToUpper(strings.TrimSpace(vin))
	if v == "" {
		return nil, fmt.Errorf("%w: empty vin", ErrAPI)
	}
	return c.get(ctx, vinPath+url.PathEscape(v))
}

// InvalidateToken drops the cached bearer token if the token source supports it.
func (c *Client) InvalidateToken() {
	if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

func (c *Client) get(ctx context.Context, path string) (doc mot.Document, err error) {
	start := time.Now()
	defer func() {
		metrics.LookupDuration.Observe(time.Since(start).Seconds())
		metrics.LookupsTotal.WithLabelValues(outcome(err)).Inc()
	}()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrAPI, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request error: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: unauthorized (%d): %s", ErrAuth, resp.StatusCode, readBody(resp.Body))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, readBody(resp.Body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrAPI, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty response body", ErrAPI)
	}
	return doc, nil
}

func readBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxBodyInError*4))
	return truncateBody(body)
}

func isAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case isAuth(err):
		return metrics.OutcomeAuthError
	}
	return metrics.OutcomeAPIError
}

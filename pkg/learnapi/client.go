package learnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config describes how to reach the learning backend.
type Config struct {
	BaseURL string
	// Timeout of zero keeps the transport default.
	Timeout   time.Duration
	Transport http.RoundTripper
	// CorrelationID extracts the inbound correlation identifier so it can be forwarded.
	CorrelationID func(ctx context.Context) string
	// Observe receives one call per finished request. Status is 0 on transport failure.
	Observe func(endpoint string, status int, elapsed time.Duration)
}

// Session carries the caller's credentials. It is built once per browser session
// and handed to every call explicitly.
type Session struct {
	Token   string
	Subject string
}

// Authenticated reports whether the session holds a bearer token.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

func (s Session) authorize(req *http.Request) {
	if s.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(s.Token))
	}
}

// Client talks to the learning backend over its JSON API.
type Client struct {
	baseURL       string
	http          *http.Client
	correlationID func(ctx context.Context) string
	observe       func(endpoint string, status int, elapsed time.Duration)
	logger        zerolog.Logger
}

// New constructs a backend client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("learnapi: base url must be provided")
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		correlationID: cfg.CorrelationID,
		observe:       cfg.Observe,
		logger:        logger.With().Str("component", "learnapi").Logger(),
	}, nil
}

type request struct {
	method      string
	path        string
	endpoint    string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path, endpoint string, payload interface{}) (request, error) {
	req := request{method: method, path: path, endpoint: endpoint}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("learnapi: encode %s: %w", endpoint, err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

func (c *Client) send(ctx context.Context, session Session, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("learnapi: build %s: %w", r.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	session.authorize(req)
	if c.correlationID != nil {
		if id := c.correlationID(ctx); id != "" {
			req.Header.Set("X-Correlation-ID", id)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.record(r.endpoint, 0, elapsed)
		return nil, fmt.Errorf("learnapi: %s: %w", r.endpoint, err)
	}
	c.record(r.endpoint, resp.StatusCode, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := newAPIError(resp.StatusCode, r.path, body)
		c.logger.Debug().
			Str("endpoint", r.endpoint).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("backend returned error")
		return nil, apiErr
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, session Session, r request, out interface{}) error {
	resp, err := c.send(ctx, session, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("learnapi: read %s: %w", r.endpoint, err)
	}
	if out == nil {
		return nil
	}
	present, err := decodePayload(data, out)
	if err != nil {
		return fmt.Errorf("learnapi: decode %s: %w", r.endpoint, err)
	}
	if !present {
		return fmt.Errorf("learnapi: %s: %w", r.endpoint, ErrNoContent)
	}
	return nil
}

// doList is do for collection endpoints, where an empty payload is an empty list.
func (c *Client) doList(ctx context.Context, session Session, r request, out interface{}) error {
	if err := c.do(ctx, session, r, out); err != nil && !errors.Is(err, ErrNoContent) {
		return err
	}
	return nil
}

func (c *Client) record(endpoint string, status int, elapsed time.Duration) {
	if c.observe != nil {
		c.observe(endpoint, status, elapsed)
	}
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// decodePayload accepts both bare JSON and the {"success","data","message"} envelope.
// It reports false when the body or the envelope data is empty or null.
func decodePayload(data []byte, out interface{}) (bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
			trimmed = bytes.TrimSpace(env.Data)
		}
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return false, nil
	}
	return true, json.Unmarshal(trimmed, out)
}

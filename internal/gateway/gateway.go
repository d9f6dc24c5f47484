// Package gateway is the single egress point to the commerce backend. It
// attaches the bearer credential and normalizes every failure into the
// apperr taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/session"
)

type Gateway struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  *session.TokenStore
}

type Option func(*Gateway)

// WithHTTPClient replaces the instrumented default client. The client is
// copied, never modified.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

// WithTimeout sets a client-side deadline. Without it a hung request waits
// for the transport default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func New(baseURL string, tokens *session.TokenStore, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		tokens:  tokens,
	}
	for _, o := range opts {
		o(g)
	}
	c := *g.http
	if g.timeout > 0 {
		c.Timeout = g.timeout
	}
	g.http = &c
	return g
}

func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodGet, path, nil, out, true)
}

func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	return g.do(ctx, http.MethodPost, path, in, out, true)
}

func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodDelete, path, nil, out, true)
}

// PostPublic is for the credential-issuing endpoints (login, signup), which
// never carry a bearer token.
func (g *Gateway) PostPublic(ctx context.Context, path string, in, out any) error {
	return g.do(ctx, http.MethodPost, path, in, out, false)
}

func (g *Gateway) do(ctx context.Context, method, path string, in, out any, attach bool) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Detail: "encode request", Err: err}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Err: err}
	}
	rid := uuid.NewString()
	req.Header.Set("X-Request-ID", rid)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Read the token here, right before dispatch, never earlier.
	if attach {
		if tok, ok := g.tokens.Access(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	res, err := g.http.Do(req)
	if err != nil {
		log.Printf("[gateway] rid=%s %s err=%v dur=%s", rid, op, err, time.Since(start))
		return &apperr.Error{Kind: apperr.KindNetwork, Op: op, Err: err}
	}
	defer res.Body.Close()
	log.Printf("[gateway] rid=%s %s status=%d dur=%s", rid, op, res.StatusCode, time.Since(start))

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &apperr.Error{Kind: apperr.KindNetwork, Op: op, Status: res.StatusCode, Err: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		if cerr := g.tokens.Clear(ctx); cerr != nil {
			log.Printf("[gateway] rid=%s clear credential: %v", rid, cerr)
		}
		return &apperr.Error{Kind: apperr.KindUnauthorized, Op: op, Status: res.StatusCode, Detail: detail(raw)}
	case res.StatusCode >= 500:
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Status: res.StatusCode, Detail: detail(raw)}
	case res.StatusCode >= 400:
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Status: res.StatusCode, Detail: detail(raw)}
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Status: res.StatusCode, Detail: "unexpected status"}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Status: res.StatusCode, Detail: "malformed response", Err: err}
	}
	return nil
}

// detail pulls a human message out of an error body. DRF answers with
// {"detail": ...}; other backends use {"error": ...}.
func detail(raw []byte) string {
	var b struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &b); err == nil {
		if b.Detail != "" {
			return b.Detail
		}
		if b.Error != "" {
			return b.Error
		}
	}
	return truncate(strings.TrimSpace(string(raw)), maxDetail)
}

const maxDetail = 200

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 {
		if r, size := utf8.DecodeLastRuneInString(s); r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	var e *apperr.Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

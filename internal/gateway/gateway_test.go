package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/session"
)

func init() {
	log.SetOutput(io.Discard)
}

func newTokens(t *testing.T, access, refresh string) *session.TokenStore {
	t.Helper()
	s := session.NewTokenStore(session.NewMemoryPersister())
	require.NoError(t, s.Set(context.Background(), access, refresh))
	return s
}

func TestAttachesBearerWhenPresent(t *testing.T) {
	var gotAuth, gotRID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g := New(srv.URL, newTokens(t, "tok-1", "ref-1"))
	var out struct{ OK bool }
	require.NoError(t, g.Get(context.Background(), "/profile/", &out))
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRID)
}

func TestReadsTokenAtDispatch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tokens := newTokens(t, "old", "r")
	g := New(srv.URL, tokens)
	require.NoError(t, tokens.Set(context.Background(), "new", "r"))
	require.NoError(t, g.Get(context.Background(), "/cart/", nil))
	assert.Equal(t, "Bearer new", gotAuth)
}

func TestNoBearerWithoutTokenOrOnPublicCalls(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "bob", body["username"])
	}))
	defer srv.Close()

	g := New(srv.URL, newTokens(t, "tok", "ref"))
	require.NoError(t, g.PostPublic(context.Background(), "/login/", map[string]string{"username": "bob"}, nil))

	anon := New(srv.URL, session.NewTokenStore(nil))
	require.NoError(t, anon.Post(context.Background(), "/cart/add/1/", map[string]string{"username": "bob"}, nil))

	assert.Equal(t, []string{"", ""}, auths)
}

func TestUnauthorizedClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Given token not valid"}`))
	}))
	defer srv.Close()

	for _, call := range []func(g *Gateway) error{
		func(g *Gateway) error { return g.Get(context.Background(), "/products/", nil) },
		func(g *Gateway) error { return g.Delete(context.Background(), "/cart/items/1/", nil) },
		func(g *Gateway) error { return g.PostPublic(context.Background(), "/login/", struct{}{}, nil) },
	} {
		tokens := newTokens(t, "a", "r")
		err := call(New(srv.URL, tokens))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
		_, hasAccess := tokens.Access()
		_, hasRefresh := tokens.Refresh()
		assert.False(t, hasAccess)
		assert.False(t, hasRefresh)
	}
}

func TestStatusTaxonomy(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"detail":"Cart empty"}`))
	}))
	defer srv.Close()

	g := New(srv.URL, newTokens(t, "a", "r"))

	status.Store(http.StatusBadRequest)
	err := g.Post(context.Background(), "/orders/create/", struct{}{}, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Cart empty", e.Detail)
	assert.False(t, apperr.Retryable(err))

	status.Store(http.StatusNotFound)
	err = g.Get(context.Background(), "/products/99/", nil)
	assert.True(t, IsNotFound(err))

	status.Store(http.StatusServiceUnavailable)
	err = g.Get(context.Background(), "/cart/", nil)
	assert.True(t, errors.Is(err, apperr.ErrServer))
	assert.True(t, apperr.Retryable(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tokens := newTokens(t, "a", "r")
	err := New(url, tokens).Get(context.Background(), "/cart/", nil)
	assert.True(t, errors.Is(err, apperr.ErrNetwork))
	assert.True(t, apperr.Retryable(err))
	_, ok := tokens.Access()
	assert.True(t, ok, "network failure must not clear the credential")
}

func TestMalformedSuccessBodyIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	err := New(srv.URL, newTokens(t, "a", "r")).Get(context.Background(), "/cart/", &out)
	assert.True(t, errors.Is(err, apperr.ErrServer))
}

func TestTimeoutLeavesCallerClientAlone(t *testing.T) {
	tokens := newTokens(t, "a", "r")

	g := New("http://x", tokens, WithHTTPClient(http.DefaultClient), WithTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, g.http.Timeout)
	assert.Zero(t, http.DefaultClient.Timeout)

	own := &http.Client{}
	g = New("http://x", tokens, WithTimeout(time.Second), WithHTTPClient(own))
	assert.Equal(t, time.Second, g.http.Timeout, "option order must not matter")
	assert.Zero(t, own.Timeout)
}

func TestDetailTruncatesOnRuneBoundary(t *testing.T) {
	body := "a" + strings.Repeat("é", 150)

	got := detail([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 199)
	assert.True(t, strings.HasPrefix(body, got))

	assert.Equal(t, "short", detail([]byte("short")))
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindBusy, Op: "checkout.Submit"})

	assert.True(t, errors.Is(err, ErrBusy))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindBusy, KindOf(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&Error{Kind: KindNetwork}))
	assert.True(t, Retryable(&Error{Kind: KindServer, Status: 503}))
	assert.False(t, Retryable(&Error{Kind: KindValidation, Status: 400}))
	assert.False(t, Retryable(&Error{Kind: KindUnauthorized}))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"validation": {Validation("op", "bad"), http.StatusBadRequest},
		"not found":  {&Error{Kind: KindValidation, Status: 404}, http.StatusNotFound},
		"unauth":     {ErrUnauthorized, http.StatusUnauthorized},
		"busy":       {ErrBusy, http.StatusConflict},
		"network":    {ErrNetwork, http.StatusBadGateway},
		"server":     {&Error{Kind: KindServer, Status: 500}, http.StatusBadGateway},
		"other":      {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindValidation, Op: "orders.create", Status: 400, Detail: "Cart empty"}
	assert.Equal(t, "orders.create: validation (status 400): Cart empty", err.Error())
}

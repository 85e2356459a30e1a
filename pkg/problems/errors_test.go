package problems

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: EInternal},
		{name: "coded", err: New(EInvalidTenant, "bad"), want: EInvalidTenant},
		{name: "wrapped coded", err: fmt.Errorf("resolve: %w", New(ENoSuchClient, "nope")), want: ENoSuchClient},
		{name: "empty code falls through", err: &Error{Err: New(EInvalidToken, "x")}, want: EInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestErrorIsMatchesCode(t *testing.T) {
	sentinel := &Error{Code: EMissingScope}
	err := fmt.Errorf("factory: %w", New(EMissingScope, "scope is required"))
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, &Error{Code: EInvalidGrant}))
	assert.False(t, errors.Is(err, &Error{Code: EMissingScope, Msg: "other"}))
}

func TestMessageOfHidesInternalCauses(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("pg: connection refused")))
	assert.Equal(t, "not logged in as a customer", MessageOf(New(EInsufficientAuthentication, "not logged in as a customer")))
	assert.Equal(t, EInvalidToken, MessageOf(&Error{Code: EInvalidToken, Err: errors.New("sig")}))
}

func TestWriteOAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOAuth(rec, New(ENoSuchClient, "unknown client"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid_client", body["error"])
	assert.Equal(t, "unknown client", body["error_description"])
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_client")
}

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, New(EInvalidTenant, "invalid tenant identifier"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, Type("invalid-tenant"), body["type"])
	assert.Equal(t, "invalid tenant identifier", body["detail"])
}

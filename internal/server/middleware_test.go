package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSourceIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		header  string
		prefix  string
		want    string
		wantErr bool
	}{
		{name: "Direct", remote: "203.0.113.7:1234", want: "203.0.113.7"},
		{name: "DirectIPv6", remote: "[2001:db8::1]:1234", want: "2001:db8::1"},
		{name: "MappedIPv4", remote: "[::ffff:203.0.113.7]:1234", want: "203.0.113.7"},
		{name: "TrustedWithPort", remote: "172.18.0.2:1234", header: "10.0.0.5:9999", prefix: "172.", want: "10.0.0.5"},
		{name: "TrustedWithoutPort", remote: "172.18.0.2:1234", header: "10.0.0.5", prefix: "172.", want: "10.0.0.5"},
		{name: "TrustedEmptyHeader", remote: "172.18.0.2:1234", prefix: "172.", want: "172.18.0.2"},
		{name: "UntrustedHeaderIgnored", remote: "203.0.113.7:1234", header: "10.0.0.5", prefix: "172.", want: "203.0.113.7"},
		{name: "NoPrefixTrustsNobody", remote: "172.18.0.2:1234", header: "10.0.0.5", want: "172.18.0.2"},
		{name: "TrustedGarbageHeader", remote: "172.18.0.2:1234", header: "nope", prefix: "172.", wantErr: true},
		{name: "GarbageRemote", remote: "nope", wantErr: true},
		{name: "RemoteWithoutPort", remote: "203.0.113.7", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set("X-Real-IP", tt.header)
			}

			got, err := ResolveSourceIP(req, tt.prefix, "X-Real-IP")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadAddress)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	handler := AdminAuthMiddleware("token", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"Valid", "Bearer token", http.StatusNoContent},
		{"Missing", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic token", http.StatusUnauthorized},
		{"WrongToken", "Bearer other", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLoggingMiddleware_PassesStatus(t *testing.T) {
	s := &Server{}
	handler := s.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

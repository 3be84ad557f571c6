package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrBadAddress is returned when no usable client IP can be extracted from a request.
var ErrBadAddress = errors.New("invalid source address")

// ResolveSourceIP returns the address a heartbeat is stored under.
//
// The forwarded header is honored only when the raw RemoteAddr, before its port is stripped,
// starts with trustedPrefix. The header is attacker controlled otherwise, so the prefix check
// is the only guard. A port suffix is stripped from either source and IPv4-mapped IPv6 is unmapped.
func ResolveSourceIP(r *http.Request, trustedPrefix, header string) (string, error) {
	if trustedPrefix != "" && header != "" && strings.HasPrefix(r.RemoteAddr, trustedPrefix) {
		if fwd := strings.TrimSpace(r.Header.Get(header)); fwd != "" {
			return normalizeIP(fwd, true)
		}
	}

	return normalizeIP(r.RemoteAddr, false)
}

// normalizeIP strips an optional port and canonicalizes the address.
func normalizeIP(s string, portOptional bool) (string, error) {
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	} else if !portOptional {
		return "", fmt.Errorf("%w: %q", ErrBadAddress, s)
	}

	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadAddress, s)
	}

	return addr.Unmap().WithZone("").String(), nil
}

// clientIP is the resolved address for logging, falling back to the raw RemoteAddr.
func (s *Server) clientIP(r *http.Request) string {
	ip, err := ResolveSourceIP(r, s.trustedPrefix, s.realIPHeader)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs the details of each HTTP request, including method, path, IP, status and duration.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", s.clientIP(r)).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// AdminAuthMiddleware protects endpoints by requiring a valid Bearer token in the Authorization header.
func AdminAuthMiddleware(token string, next http.Handler) http.Handler {
	expected := []byte("Bearer " + token)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

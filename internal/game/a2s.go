// Package game queries registered game servers using the Source Engine Query (A2S) protocol.
package game

import (
	"context"
	"fmt"
	"net"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/masterlist/internal/config"
	"golang.org/x/time/rate"
)

// Info is the subset of A2S_INFO returned by the admin probe.
type Info struct {
	Name       string `json:"name"`
	Map        string `json:"map"`
	Game       string `json:"game"`
	Version    string `json:"version"`
	OS         string `json:"os"`
	Players    byte   `json:"players"`
	MaxPlayers byte   `json:"max_players"`
}

// QueryFunc performs a single A2S_INFO query.
type QueryFunc func(ip string, port int, options config.A2S) (*Info, error)

// Prober paces outbound A2S queries through one shared token bucket,
// so the admin API can not be used to flood servers with UDP.
type Prober struct {
	limiter *rate.Limiter
	query   QueryFunc
	options config.A2S
}

// NewProber creates a Prober using the real A2S client.
func NewProber(options config.A2S) *Prober {
	return NewProberWith(options, QueryServer)
}

// NewProberWith creates a Prober with a custom query function.
func NewProberWith(options config.A2S, query QueryFunc) *Prober {
	return &Prober{
		limiter: rate.NewLimiter(rate.Limit(options.Rate), options.Burst),
		query:   query,
		options: options,
	}
}

// Probe waits for a query slot and queries ip:port.
// IPv6 targets are rejected since the A2S client only speaks IPv4.
func (p *Prober) Probe(ctx context.Context, ip string, port int) (*Info, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return nil, fmt.Errorf("a2s probe %s: not an IPv4 address", ip)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("a2s probe %s:%d: %w", ip, port, err)
	}

	return p.query(ip, port, p.options)
}

// QueryServer connects to a game server via UDP and requests A2S_INFO.
func QueryServer(ip string, port int, options config.A2S) (*Info, error) {
	client, err := a2s.New(ip, port)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = options.BufferSize
	client.Timeout = options.Timeout

	info, err := client.GetInfo()
	if err != nil {
		return nil, err
	}

	return &Info{
		Name:       info.Name,
		Map:        info.Map,
		Game:       info.Game,
		Version:    info.Version,
		OS:         info.Environment.String(),
		Players:    info.Players,
		MaxPlayers: info.MaxPlayers,
	}, nil
}

package server

import (
	"context"
	"sync"
	"time"

	"github.com/woozymasta/masterlist/internal/game"
	"github.com/woozymasta/masterlist/internal/heartbeat"
	"github.com/woozymasta/masterlist/internal/models"
	"github.com/woozymasta/masterlist/internal/registry"
)

// HistoryStore records and lists heartbeat history.
type HistoryStore interface {
	RecordHeartbeat(ctx context.Context, e models.HistoryEntry) error
	History(ctx context.Context) ([]models.HistoryEntry, error)
}

// CountryResolver maps an IP address to an ISO country code.
type CountryResolver interface {
	CountryCode(ip string) string
}

// Prober queries a game server for its live A2S info.
type Prober interface {
	Probe(ctx context.Context, ip string, port int) (*game.Info, error)
}

// Deps are the collaborators the HTTP layer delegates to.
// History, Geo and Prober are optional and may be left nil.
type Deps struct {
	Registry *registry.Registry
	History  HistoryStore
	Geo      CountryResolver
	Prober   Prober
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests and background history recording.
type Server struct {
	// registry is the live server set every core endpoint operates on.
	registry *registry.Registry

	// history receives a row per accepted heartbeat. Nil disables history.
	history HistoryStore

	// geo resolves country codes for history rows. Nil disables lookup.
	geo CountryResolver

	// prober backs the admin probe endpoint. Nil disables it.
	prober Prober

	// queue passes accepted heartbeats from handlers to history workers.
	queue chan historyJob

	// authToken guards the admin API. Empty disables the admin routes.
	authToken string

	// trustedPrefix is the RemoteAddr prefix of a trusted reverse proxy. Empty trusts nobody.
	trustedPrefix string

	// realIPHeader carries the client address when the request came through the trusted proxy.
	realIPHeader string

	// rules validates heartbeats before the registry is touched.
	rules heartbeat.Rules

	// wg waits for history workers on shutdown.
	wg sync.WaitGroup

	// queueMu guards stopped. Senders hold the read lock so the queue is never closed under them.
	queueMu sync.RWMutex

	// stopped is set once the queue is closed.
	stopped bool

	// maxBody limits heartbeat request bodies in bytes.
	maxBody int64

	// workers is the number of history workers started by StartWorkers.
	workers int

	// historyTimeout bounds a single history write.
	historyTimeout time.Duration
}

// historyJob is an accepted heartbeat waiting to be written to history.
type historyJob struct {
	Seen   time.Time
	Record models.ServerRecord
}

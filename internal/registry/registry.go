// Package registry keeps the in-memory set of live servers and implements heartbeat deduplication.
//
// Records are kept in insertion order. A heartbeat is matched first by id, then by (ip, port),
// and replaces the matched record in place; otherwise it is appended. Removal is by id only and
// there is no time based expiry.
package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/woozymasta/masterlist/internal/models"
)

// Outcome describes what a registry mutation did.
type Outcome int

// Outcomes of Upsert and Remove.
const (
	Created Outcome = iota + 1
	Updated
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

var (
	// ErrNotFound is returned by Remove when no record has the given id.
	ErrNotFound = errors.New("server not found")

	// ErrLimitReached is returned by Upsert when inserting would exceed the per-IP record cap.
	ErrLimitReached = errors.New("too many servers for this address")
)

// Options tunes registry behaviour.
type Options struct {
	// MaxPerIP caps how many records may share one ip. Zero disables the cap.
	MaxPerIP int

	// NewID generates ids for records inserted without one. Defaults to a random UUID.
	NewID func() string
}

// Registry is the ordered set of known servers. It is safe for concurrent use.
type Registry struct {
	newID    func() string
	records  []models.ServerRecord
	maxPerIP int
	mu       sync.RWMutex
}

// New creates an empty registry.
func New(opts Options) *Registry {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Registry{
		newID:    newID,
		maxPerIP: opts.MaxPerIP,
	}
}

// Upsert stores the candidate, replacing the record it matches or appending a new one.
// The candidate is expected to be validated and to carry the transport resolved ip.
func (r *Registry) Upsert(candidate models.ServerRecord) (Outcome, models.ServerRecord, error) {
	rec := candidate.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID != "" {
		if i := r.indexByID(rec.ID); i >= 0 {
			r.records[i] = rec
			return Updated, rec.Clone(), nil
		}
	}

	if i := r.indexByAddress(rec.Address()); i >= 0 {
		if rec.ID == "" {
			rec.ID = r.records[i].ID
		}
		r.records[i] = rec
		return Updated, rec.Clone(), nil
	}

	if r.maxPerIP > 0 && r.countByIP(rec.IP) >= r.maxPerIP {
		return 0, models.ServerRecord{}, ErrLimitReached
	}

	if rec.ID == "" {
		rec.ID = r.newID()
	}
	r.records = append(r.records, rec)

	return Created, rec.Clone(), nil
}

// Remove deletes the record with the given id, keeping the order of the others.
func (r *Registry) Remove(id string) (Outcome, error) {
	if id == "" {
		return 0, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return 0, ErrNotFound
	}

	r.records = append(r.records[:i], r.records[i+1:]...)

	return Removed, nil
}

// List returns a snapshot of all records in registry order. The result is never nil.
func (r *Registry) List() []models.ServerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ServerRecord, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Clone()
	}

	return out
}

// Get returns a copy of the record with the given id.
func (r *Registry) Get(id string) (models.ServerRecord, bool) {
	if id == "" {
		return models.ServerRecord{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByID(id)
	if i < 0 {
		return models.ServerRecord{}, false
	}

	return r.records[i].Clone(), true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}

// indexByID, indexByAddress and countByIP must be called with mu held.

func (r *Registry) indexByID(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}

	return -1
}

func (r *Registry) indexByAddress(key models.AddressKey) int {
	for i := range r.records {
		if r.records[i].Address() == key {
			return i
		}
	}

	return -1
}

func (r *Registry) countByIP(ip string) int {
	n := 0
	for i := range r.records {
		if r.records[i].IP == ip {
			n++
		}
	}

	return n
}

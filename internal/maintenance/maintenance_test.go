package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/woozymasta/masterlist/internal/config"
)

type fakePruner struct {
	cutoff time.Time
	id     string
	err    error
}

func (f *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func (f *fakePruner) DeleteByServerID(_ context.Context, id string) (int64, error) {
	f.id = id
	return 1, f.err
}

func TestRun_NoFlags(t *testing.T) {
	p := &fakePruner{}
	assert.False(t, Run(context.Background(), &config.Config{}, p, time.Now()))
	assert.True(t, p.cutoff.IsZero())
	assert.Empty(t, p.id)
}

func TestRun_PruneOlder(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	cfg := &config.Config{Storage: config.Storage{PruneOlder: 24 * time.Hour}}
	p := &fakePruner{}

	assert.True(t, Run(context.Background(), cfg, p, now))
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoff)
}

func TestRun_PruneServer(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{PruneServer: "srv1"}}
	p := &fakePruner{}

	assert.True(t, Run(context.Background(), cfg, p, time.Now()))
	assert.Equal(t, "srv1", p.id)
}

func TestRun_ErrorsStillExit(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{PruneOlder: time.Hour, PruneServer: "srv1"}}
	p := &fakePruner{err: errors.New("locked")}

	assert.True(t, Run(context.Background(), cfg, p, time.Now()))
	assert.Equal(t, "srv1", p.id)
}

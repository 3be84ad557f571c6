package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/masterlist/internal/models"
)

func record(id, ip string, port int, hostname string) models.ServerRecord {
	return models.ServerRecord{
		ID:       id,
		Type:     "dedicated",
		Hostname: hostname,
		MapName:  "mp_box",
		GameMode: "tdm",
		IP:       ip,
		Port:     port,
		Players:  []models.Player{},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func TestUpsert_IdempotentRefreshByID(t *testing.T) {
	reg := New(Options{})

	outcome, _, err := reg.Upsert(record("srv1", "1.1.1.1", 1000, "first"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	_, _, err = reg.Upsert(record("other", "2.2.2.2", 2000, "other"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		outcome, stored, err := reg.Upsert(record("srv1", "3.3.3.3", 3000+i, fmt.Sprintf("rev-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, Updated, outcome)
		assert.Equal(t, "srv1", stored.ID)
	}

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "srv1", list[0].ID)
	assert.Equal(t, "rev-4", list[0].Hostname)
	assert.Equal(t, "3.3.3.3", list[0].IP)
	assert.Equal(t, 3004, list[0].Port)
}

func TestUpsert_AddressFallback(t *testing.T) {
	reg := New(Options{NewID: sequentialIDs()})

	outcome, first, err := reg.Upsert(record("", "1.1.1.1", 37015, "first"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, "gen-1", first.ID)

	outcome, second, err := reg.Upsert(record("", "1.1.1.1", 37015, "second"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
	assert.Equal(t, "gen-1", second.ID, "id-less update keeps the stored id")

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Hostname)
}

func TestUpsert_AddressMatchWithNonMatchingID(t *testing.T) {
	reg := New(Options{})

	_, _, err := reg.Upsert(record("a", "1.1.1.1", 37015, "first"))
	require.NoError(t, err)

	outcome, stored, err := reg.Upsert(record("b", "1.1.1.1", 37015, "second"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
	assert.Equal(t, "b", stored.ID, "a payload id replaces the stored one")

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestUpsert_IdentityMatchWinsOverAddress(t *testing.T) {
	reg := New(Options{})

	_, _, _ = reg.Upsert(record("a", "1.1.1.1", 1, "a"))
	_, _, _ = reg.Upsert(record("b", "2.2.2.2", 2, "b"))

	// b moves to a's address: identity match updates b, a is untouched
	outcome, _, err := reg.Upsert(record("b", "1.1.1.1", 1, "b-moved"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Hostname)
	assert.Equal(t, "b-moved", list[1].Hostname)
}

func TestUpsert_Distinct(t *testing.T) {
	reg := New(Options{})
	before := reg.Len()

	_, _, err := reg.Upsert(record("a", "1.1.1.1", 1, "a"))
	require.NoError(t, err)
	_, _, err = reg.Upsert(record("b", "2.2.2.2", 2, "b"))
	require.NoError(t, err)

	assert.Equal(t, before+2, reg.Len())
}

func TestUpsert_OrderPreserved(t *testing.T) {
	tests := []struct {
		name   string
		update models.ServerRecord
	}{
		{"ByID", record("b", "9.9.9.9", 9, "B2")},
		{"ByAddress", record("", "2.2.2.2", 2, "B2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(Options{})
			_, _, _ = reg.Upsert(record("a", "1.1.1.1", 1, "A"))
			_, _, _ = reg.Upsert(record("b", "2.2.2.2", 2, "B"))
			_, _, _ = reg.Upsert(record("c", "3.3.3.3", 3, "C"))

			outcome, _, err := reg.Upsert(tt.update)
			require.NoError(t, err)
			assert.Equal(t, Updated, outcome)

			var names []string
			for _, r := range reg.List() {
				names = append(names, r.Hostname)
			}
			assert.Equal(t, []string{"A", "B2", "C"}, names)
		})
	}
}

func TestRemove(t *testing.T) {
	reg := New(Options{})
	_, _, _ = reg.Upsert(record("a", "1.1.1.1", 1, "A"))
	_, _, _ = reg.Upsert(record("srv1", "2.2.2.2", 2, "B"))
	_, _, _ = reg.Upsert(record("c", "3.3.3.3", 3, "C"))

	outcome, err := reg.Remove("srv1")
	require.NoError(t, err)
	assert.Equal(t, Removed, outcome)
	assert.Equal(t, 2, reg.Len())

	list := reg.List()
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	_, err = reg.Remove("srv1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.Remove("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsert_MaxPerIP(t *testing.T) {
	reg := New(Options{MaxPerIP: 2})

	_, _, err := reg.Upsert(record("a", "1.1.1.1", 1, "A"))
	require.NoError(t, err)
	_, _, err = reg.Upsert(record("b", "1.1.1.1", 2, "B"))
	require.NoError(t, err)

	_, _, err = reg.Upsert(record("c", "1.1.1.1", 3, "C"))
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Equal(t, 2, reg.Len())

	// updates are never capped
	outcome, _, err := reg.Upsert(record("b", "1.1.1.1", 2, "B2"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	_, _, err = reg.Upsert(record("d", "4.4.4.4", 3, "D"))
	assert.NoError(t, err)
}

func TestList_ReturnsCopies(t *testing.T) {
	reg := New(Options{})
	rec := record("a", "1.1.1.1", 1, "A")
	rec.Players = []models.Player{{Name: "p"}}
	_, _, _ = reg.Upsert(rec)

	// mutating the caller's value must not leak into the registry
	rec.Players[0].Name = "changed"

	list := reg.List()
	list[0].Players[0].Name = "mutated"

	again := reg.List()
	assert.Equal(t, "p", again[0].Players[0].Name)
	assert.NotNil(t, New(Options{}).List())
}

func TestGet(t *testing.T) {
	reg := New(Options{})
	_, _, _ = reg.Upsert(record("a", "1.1.1.1", 1, "A"))

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Hostname)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestUpsert_ConcurrentSameKeyNeverDuplicates(t *testing.T) {
	reg := New(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = reg.Upsert(record("", "1.1.1.1", 37015, fmt.Sprintf("h-%d", i)))
			_ = reg.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}

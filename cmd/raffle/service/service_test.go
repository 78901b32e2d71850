package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/lyzr/raffle/common/bootstrap"
	"github.com/lyzr/raffle/common/cache"
	"github.com/lyzr/raffle/common/config"
	"github.com/lyzr/raffle/common/db"
	"github.com/lyzr/raffle/common/lock"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/lyzr/raffle/common/queue"
	"github.com/lyzr/raffle/common/random"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/validation"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store        repository.ParticipantStore
	components   *bootstrap.Components
	raffle       *RaffleService
	participants *ParticipantService
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "error", "json")
}

func newStore(t *testing.T) repository.ParticipantStore {
	t.Helper()
	database, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "raffle.db"), quietLogger())
	require.NoError(t, err)
	store := repository.NewSQLiteParticipantRepository(database)
	t.Cleanup(store.Close)
	return store
}

func newComponents(t *testing.T, seed uint64) *bootstrap.Components {
	t.Helper()
	log := quietLogger()

	memCache := cache.NewMemoryCache(log)
	memQueue := queue.NewMemoryQueue(64, log)
	t.Cleanup(func() {
		_ = memQueue.Close()
		_ = memCache.Close()
	})

	return &bootstrap.Components{
		Config: &config.Config{
			Cache:  config.CacheConfig{Enabled: true, DefaultTTL: time.Minute},
			Raffle: config.RaffleConfig{Seed: seed, LockTTL: 5 * time.Second},
		},
		Logger:   log,
		Locker:   lock.NewLocalLocker(),
		Shuffler: random.NewSource(seed),
		Cache:    memCache,
		Queue:    memQueue,
	}
}

func newFixture(t *testing.T, seed uint64) *fixture {
	t.Helper()
	return newFixtureWithStore(t, newStore(t), seed)
}

func newFixtureWithStore(t *testing.T, store repository.ParticipantStore, seed uint64) *fixture {
	t.Helper()
	components := newComponents(t, seed)
	raffle := NewRaffleService(store, components)
	return &fixture{
		store:        store,
		components:   components,
		raffle:       raffle,
		participants: NewParticipantService(store, validation.New(), raffle, components.Logger),
	}
}

func (f *fixture) addParticipants(t *testing.T, names ...string) []*models.Participant {
	t.Helper()
	created := make([]*models.Participant, 0, len(names))
	for _, name := range names {
		p, err := f.participants.Create(context.Background(), models.ParticipantInput{
			Name:    name,
			Contact: fmt.Sprintf("%s@example.com", name),
		})
		require.NoError(t, err)
		created = append(created, p)
	}
	return created
}

// recipients maps every participant id to its recipient id as stored
func (f *fixture) recipients(t *testing.T) map[int64]*int64 {
	t.Helper()
	all, err := f.store.List(context.Background())
	require.NoError(t, err)

	out := make(map[int64]*int64, len(all))
	for _, p := range all {
		out[p.ID] = p.RecipientID
	}
	return out
}

// requireSingleCycle checks that following recipient links from any
// participant visits all n participants and returns after exactly n hops
func requireSingleCycle(t *testing.T, links map[int64]*int64) {
	t.Helper()
	n := len(links)

	for start := range links {
		seen := make(map[int64]bool, n)
		current := start
		for hop := 0; hop < n; hop++ {
			next := links[current]
			require.NotNil(t, next, "participant %d has no recipient", current)
			if n > 1 {
				require.NotEqual(t, current, *next, "participant %d assigned to itself", current)
			}
			require.False(t, seen[current], "participant %d visited twice", current)
			seen[current] = true
			current = *next
		}
		require.Equal(t, start, current, "cycle from %d does not close after %d hops", start, n)
		require.Len(t, seen, n)
	}
}

// faultyStore fails SetRecipient after failAfter successful calls
type faultyStore struct {
	repository.ParticipantStore
	failAfter int
	calls     *int
}

func newFaultyStore(inner repository.ParticipantStore, failAfter int) *faultyStore {
	return &faultyStore{ParticipantStore: inner, failAfter: failAfter, calls: new(int)}
}

func (f *faultyStore) SetRecipient(ctx context.Context, giverID, recipientID int64) error {
	*f.calls++
	if *f.calls > f.failAfter {
		return &repository.StoreError{Op: "set recipient", Err: errors.New("disk I/O error")}
	}
	return f.ParticipantStore.SetRecipient(ctx, giverID, recipientID)
}

func (f *faultyStore) InTx(ctx context.Context, fn func(tx repository.ParticipantStore) error) error {
	return f.ParticipantStore.InTx(ctx, func(tx repository.ParticipantStore) error {
		return fn(&faultyStore{ParticipantStore: tx, failAfter: f.failAfter, calls: f.calls})
	})
}

func (f *faultyStore) AssignmentRows(ctx context.Context) ([]models.AssignmentRow, error) {
	if f.failAfter < 0 {
		return nil, &repository.StoreError{Op: "query assignments", Err: errors.New("connection reset")}
	}
	return f.ParticipantStore.AssignmentRows(ctx)
}

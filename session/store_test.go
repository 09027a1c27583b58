package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminaide/planforge/plan"
)

func newTestSession(id string) *Session {
	return &Session{
		ID: id,
		Concept: plan.Concept{
			Name:     "todo-app",
			Features: []string{"task lists"},
		},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Create(newTestSession("s1")))

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreCreateDuplicate(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Create(newTestSession("s1")))

	err := store.Create(newTestSession("s1"))
	assert.ErrorIs(t, err, ErrExists)
}

func TestStoreGetNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAcquire(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestSession("s1")))

	got, err := store.Acquire("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	// Second attach attempt is rejected.
	_, err = store.Acquire("s1")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStoreAcquireNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Acquire("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStoreAcquireSingleFlight hammers one session with concurrent attach
// attempts. Exactly one must win.
func TestStoreAcquireSingleFlight(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestSession("s1")))

	const attempts = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0
	rejected := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Acquire("s1")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				acquired++
			case err == ErrAlreadyRunning:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
	assert.Equal(t, attempts-1, rejected)
}

func TestStoreSetStatus(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestSession("s1")))

	store.SetStatus("s1", StatusComplete)

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)

	// No-op when the session is already gone.
	store.SetStatus("missing", StatusError)
}

func TestStoreDeleteIdempotent(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestSession("s1")))

	store.Delete("s1")
	store.Delete("s1")

	_, err := store.Get("s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestStoreSweepExpired(t *testing.T) {
	base := time.Now()
	current := base
	store := NewStore(WithClock(func() time.Time { return current }))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(newTestSession(fmt.Sprintf("old-%d", i))))
	}

	// One fresh session created later.
	current = base.Add(30 * time.Minute)
	require.NoError(t, store.Create(newTestSession("fresh")))

	removed := store.SweepExpired(base.Add(TTL + time.Minute))
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, store.Len())

	_, err := store.Get("fresh")
	assert.NoError(t, err)
}

// The sweep only reaps sessions that were never attached; a running session
// belongs to its streaming connection until the terminal event.
func TestStoreSweepSkipsRunningSessions(t *testing.T) {
	base := time.Now()
	store := NewStore(WithClock(func() time.Time { return base }))

	require.NoError(t, store.Create(newTestSession("attached")))
	require.NoError(t, store.Create(newTestSession("abandoned")))

	_, err := store.Acquire("attached")
	require.NoError(t, err)

	removed := store.SweepExpired(base.Add(TTL + time.Minute))
	assert.Equal(t, 1, removed)

	got, err := store.Get("attached")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)

	_, err = store.Get("abandoned")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Create sweeps opportunistically, so an expired session cannot block a
// fresh create under the same id.
func TestStoreCreateSweepsExpired(t *testing.T) {
	current := time.Now()
	store := NewStore(WithClock(func() time.Time { return current }))

	require.NoError(t, store.Create(newTestSession("s1")))

	current = current.Add(TTL + time.Minute)
	require.NoError(t, store.Create(newTestSession("s1")))

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

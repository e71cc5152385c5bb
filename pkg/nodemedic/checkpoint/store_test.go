package checkpoint

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeTest runs the Store contract tests against any implementation.
func storeTest(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Save("sess-1", []byte("state-1")))

		data, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("state-1"), data)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Save("sess-1", []byte("old")))
		require.NoError(t, store.Save("sess-1", []byte("new")))

		data, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), data)

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 2, infos[0].Sequence)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Load("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Save("sess-a", []byte("a")))
		require.NoError(t, store.Save("sess-b", []byte("bb")))

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 2)

		bySession := make(map[string]Info)
		for _, info := range infos {
			bySession[info.SessionID] = info
		}
		assert.Equal(t, int64(1), bySession["sess-a"].Size)
		assert.Equal(t, int64(2), bySession["sess-b"].Size)
		assert.False(t, bySession["sess-a"].UpdatedAt.IsZero())
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		infos, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.Save("sess-1", []byte("x")))
		require.NoError(t, store.Delete("sess-1"))

		_, err := store.Load("sess-1")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing session is not an error.
		assert.NoError(t, store.Delete("sess-1"))
	})

	t.Run("ClosedStore", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Save("s", []byte("x")), ErrStoreClosed)
		_, err := store.Load("s")
		assert.ErrorIs(t, err, ErrStoreClosed)
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				assert.NoError(t, store.Save("sess-1", []byte{byte(n)}))
			}(i)
		}
		wg.Wait()

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 10, infos[0].Sequence)
	})
}

func TestMemoryStore(t *testing.T) {
	storeTest(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTest(t, func(t *testing.T) Store {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		return store
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("sess-1", []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	cp := New("sess-1", "classify", 3, []byte(`{"messages":[]}`), "respond").
		WithPrevStep("")

	data, err := cp.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, Version, restored.Version)
	assert.Equal(t, "sess-1", restored.SessionID)
	assert.Equal(t, "classify", restored.Step)
	assert.Equal(t, 3, restored.Sequence)
	assert.Equal(t, "respond", restored.NextStep)
	assert.JSONEq(t, `{"messages":[]}`, string(restored.State))
}

func TestSessionLocker_SerializesSameSession(t *testing.T) {
	locker := NewSessionLocker()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("sess-1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "same-session turns must not overlap")
}

func TestSessionLocker_IndependentSessions(t *testing.T) {
	locker := NewSessionLocker()

	unlockA := locker.Lock("sess-a")
	defer unlockA()

	// A different session's lock must be acquirable while sess-a is held.
	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock("sess-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent session blocked")
	}
}

func TestSessionLocker_EntryRemovedWhenIdle(t *testing.T) {
	locker := NewSessionLocker()

	unlock := locker.Lock("sess-1")
	unlock()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks)
}

package attendance

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firestoreEmulator connects to the emulator named by FIRESTORE_EMULATOR_HOST;
// the client library routes there on its own when the variable is set.
func firestoreEmulator(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "presensi-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreStore(client)
}

func TestFirestoreApplyWritesOnce(t *testing.T) {
	store := firestoreEmulator(t)
	ctx := context.Background()
	key := RecordKey("s-"+uuid.NewString(), "2026-10-14")

	rec, err := store.Apply(ctx, key, checkInPatch)
	require.NoError(t, err)
	assert.Equal(t, "07:15:00", rec.CheckIn)
	assert.EqualValues(t, 1, rec.Version)

	_, err = store.Apply(ctx, key, checkInPatch)
	assert.ErrorIs(t, err, ErrAlreadyRecorded)

	rec, err = store.Apply(ctx, key, zuhurHaid)
	require.NoError(t, err)
	assert.Equal(t, StatusHaid, rec.Status)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "07:15:00", got.CheckIn)
	assert.Equal(t, "12:05 H", got.Zuhur)
	assert.Empty(t, got.Duha)
	assert.EqualValues(t, 2, got.Version)
}

func TestFirestoreApplyConcurrentFirstScans(t *testing.T) {
	store := firestoreEmulator(t)
	ctx := context.Background()
	key := RecordKey("s-"+uuid.NewString(), "2026-10-14")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, key, checkInPatch)
			if err == nil {
				mu.Lock()
				written++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrAlreadyRecorded), err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, written)
}

func TestFirestoreGetMissing(t *testing.T) {
	store := firestoreEmulator(t)
	_, err := store.Get(context.Background(), RecordKey("s-"+uuid.NewString(), "2026-10-14"))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

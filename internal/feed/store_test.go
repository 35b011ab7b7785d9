package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// stubCache is an in-memory SnapshotCache.
type stubCache struct {
	mu       sync.Mutex
	saved    *models.FeedSnapshot
	loadErr  error
	saveErr  error
	saves    int
}

func (c *stubCache) SaveSnapshot(_ context.Context, snapshot *models.FeedSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.saved = snapshot
	return nil
}

func (c *stubCache) LoadLatestSnapshot(_ context.Context) (*models.FeedSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved, c.loadErr
}

func TestStoreStartsEmpty(t *testing.T) {
	store := NewStore(NewIngestor("nowhere.zip", testLogger()), nil, testLogger())

	assert.False(t, store.HasData())
	assert.True(t, store.LastIngestedAt().IsZero())

	snapshot, index := store.Current()
	require.NotNil(t, snapshot)
	require.NotNil(t, index)
	assert.Equal(t, 0, index.Size())
}

func TestStoreIngestRotatesSnapshotAndIndexTogether(t *testing.T) {
	path := writeFeedFile(t, minimalFeedTables())
	store := NewStore(NewIngestor(path, testLogger()), nil, testLogger())

	require.NoError(t, store.Ingest(context.Background()))

	snapshot, index := store.Current()
	assert.True(t, snapshot.HasData())
	assert.Equal(t, 2, index.Size())
	assert.False(t, store.LastIngestedAt().IsZero())
}

func TestStoreFailedIngestKeepsPreviousSnapshot(t *testing.T) {
	data := buildFeedArchive(t, minimalFeedTables())
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(data) // nolint:errcheck
	}))
	defer server.Close()

	store := NewStore(NewIngestor(server.URL, testLogger()), nil, testLogger())
	require.NoError(t, store.Ingest(context.Background()))
	before, _ := store.Current()

	fail.Store(true)
	err := store.Ingest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	after, index := store.Current()
	assert.Same(t, before, after)
	assert.Equal(t, 2, index.Size())
}

func TestStoreSingleFlightIngestion(t *testing.T) {
	data := buildFeedArchive(t, minimalFeedTables())
	var requests atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Write(data) // nolint:errcheck
	}))
	defer server.Close()

	store := NewStore(NewIngestor(server.URL, testLogger()), nil, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 5)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = store.Ingest(context.Background())
	}()
	<-started

	// Callers arriving while a fetch is in flight wait for it instead of
	// starting their own.
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Ingest(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), requests.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, store.HasData())
}

func TestStoreIngestWaiterRespectsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	defer close(release)

	store := NewStore(NewIngestor(server.URL, testLogger()), nil, testLogger())

	go store.Ingest(context.Background()) // nolint:errcheck
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := store.Ingest(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreConcurrentReadersSeeConsistentState(t *testing.T) {
	path := writeFeedFile(t, minimalFeedTables())
	store := NewStore(NewIngestor(path, testLogger()), nil, testLogger())
	require.NoError(t, store.Ingest(context.Background()))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					snapshot, index := store.Current()
					// The index is always the one built from this snapshot.
					if snapshot.HasData() {
						assert.Equal(t, len(snapshot.Stops), index.Size())
					}
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Ingest(context.Background()))
	}
	close(stop)
	wg.Wait()
}

func TestStoreIngestIfStale(t *testing.T) {
	data := buildFeedArchive(t, minimalFeedTables())
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(data) // nolint:errcheck
	}))
	defer server.Close()

	store := NewStore(NewIngestor(server.URL, testLogger()), nil, testLogger())

	require.NoError(t, store.IngestIfStale(context.Background(), time.Hour))
	assert.Equal(t, int32(1), requests.Load())

	// Fresh snapshot, no new fetch.
	require.NoError(t, store.IngestIfStale(context.Background(), time.Hour))
	assert.Equal(t, int32(1), requests.Load())

	// Zero max age means always stale.
	require.NoError(t, store.IngestIfStale(context.Background(), 0))
	assert.Equal(t, int32(2), requests.Load())
}

func TestStoreSavesToCacheAfterIngest(t *testing.T) {
	path := writeFeedFile(t, minimalFeedTables())
	cache := &stubCache{}
	store := NewStore(NewIngestor(path, testLogger()), cache, testLogger())

	require.NoError(t, store.Ingest(context.Background()))
	require.NotNil(t, cache.saved)
	assert.Len(t, cache.saved.Stops, 2)
}

func TestStoreCacheFailureIsNotFatal(t *testing.T) {
	path := writeFeedFile(t, minimalFeedTables())
	cache := &stubCache{saveErr: errors.New("disk full")}
	store := NewStore(NewIngestor(path, testLogger()), cache, testLogger())

	require.NoError(t, store.Ingest(context.Background()))
	assert.True(t, store.HasData())
}

func TestStoreWarmStart(t *testing.T) {
	snapshot := models.NewFeedSnapshot(
		[]models.Stop{{ID: "S1", Name: "Cached Stop", Lat: 21.30, Lon: -157.86}},
		[]models.Route{{ID: "8", ShortName: "8"}},
		map[string][]string{"S1": {"8"}},
		time.Now(),
	)

	t.Run("fresh cached snapshot is used", func(t *testing.T) {
		store := NewStore(nil, &stubCache{saved: snapshot}, testLogger())
		assert.True(t, store.WarmStart(context.Background(), time.Hour))
		assert.True(t, store.HasData())
		assert.Equal(t, 1, store.GeoIndex().Size())
	})

	t.Run("stale cached snapshot is rejected", func(t *testing.T) {
		stale := models.NewFeedSnapshot(snapshot.Stops, snapshot.Routes, snapshot.StopRoutes,
			time.Now().Add(-48*time.Hour))
		store := NewStore(nil, &stubCache{saved: stale}, testLogger())
		assert.False(t, store.WarmStart(context.Background(), time.Hour))
		assert.False(t, store.HasData())
	})

	t.Run("empty cache", func(t *testing.T) {
		store := NewStore(nil, &stubCache{}, testLogger())
		assert.False(t, store.WarmStart(context.Background(), time.Hour))
	})

	t.Run("no cache configured", func(t *testing.T) {
		store := NewStore(nil, nil, testLogger())
		assert.False(t, store.WarmStart(context.Background(), time.Hour))
	})

	t.Run("cache read error", func(t *testing.T) {
		store := NewStore(nil, &stubCache{loadErr: errors.New("corrupt")}, testLogger())
		assert.False(t, store.WarmStart(context.Background(), time.Hour))
	})
}

func TestStoreShutdownIsIdempotent(t *testing.T) {
	store := NewStore(nil, nil, testLogger())
	store.StartBackgroundRefresh(time.Hour)
	store.Shutdown()
	store.Shutdown()
}

func TestNewStaticStore(t *testing.T) {
	snapshot := models.NewFeedSnapshot(
		[]models.Stop{{ID: "S1", Lat: 21.30, Lon: -157.86}},
		nil, nil, time.Now(),
	)
	store := NewStaticStore(snapshot, testLogger())
	assert.True(t, store.HasData())
	assert.Equal(t, 1, store.GeoIndex().Size())

	empty := NewStaticStore(nil, testLogger())
	assert.False(t, empty.HasData())
}

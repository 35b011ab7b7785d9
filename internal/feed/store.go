package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/geo"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// SnapshotCache persists snapshots to durable storage so cold starts can
// skip network ingestion. Implemented by the feeddb package.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, snapshot *models.FeedSnapshot) error
	LoadLatestSnapshot(ctx context.Context) (*models.FeedSnapshot, error)
}

// state is the unit of rotation: a snapshot and the spatial index built from
// it always travel together, so a reader can never observe a new index over
// old coordinates or vice versa.
type state struct {
	snapshot *models.FeedSnapshot
	index    *geo.Index
	diags    Diagnostics
}

// ingestCall tracks one in-flight ingestion so concurrent callers can wait
// on its result instead of starting a redundant fetch.
type ingestCall struct {
	done chan struct{}
	err  error
}

// Store owns the current feed snapshot and rotates it atomically. Readers
// take the whole state pointer under a read lock; the swap happens only
// after a new snapshot and its index are fully built and validated off-path.
// At most one ingestion is in flight at a time.
type Store struct {
	ingestor *Ingestor
	cache    SnapshotCache
	logger   *slog.Logger

	mu      sync.RWMutex
	current *state

	callMu  sync.Mutex
	pending *ingestCall

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewStore(ingestor *Ingestor, cache SnapshotCache, logger *slog.Logger) *Store {
	empty := models.EmptyFeedSnapshot()
	return &Store{
		ingestor:     ingestor,
		cache:        cache,
		logger:       logger,
		current:      &state{snapshot: empty, index: geo.NewIndex(nil)},
		shutdownChan: make(chan struct{}),
	}
}

// Current returns the snapshot and spatial index as one consistent pair.
func (s *Store) Current() (*models.FeedSnapshot, *geo.Index) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.snapshot, s.current.index
}

// CurrentSnapshot returns the current snapshot.
func (s *Store) CurrentSnapshot() *models.FeedSnapshot {
	snapshot, _ := s.Current()
	return snapshot
}

// GeoIndex returns the spatial index for the current snapshot.
func (s *Store) GeoIndex() *geo.Index {
	_, index := s.Current()
	return index
}

// HasData reports whether a non-empty snapshot has been loaded.
func (s *Store) HasData() bool {
	return s.CurrentSnapshot().HasData()
}

// LastIngestedAt returns the ingestion time of the current snapshot, zero if
// no ingestion has completed.
func (s *Store) LastIngestedAt() time.Time {
	return s.CurrentSnapshot().IngestedAt
}

// Diagnostics returns the parse diagnostics of the current snapshot.
func (s *Store) Diagnostics() Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.diags
}

// Ingest runs a full fetch-parse-rotate cycle. If an ingestion is already in
// flight, the call waits for that result instead of starting another fetch.
// The shared work is detached from the caller's context: an individual
// caller's disconnection never cancels an ingestion other requests are
// waiting on. A failed ingestion leaves the previous snapshot serving.
func (s *Store) Ingest(ctx context.Context) error {
	s.callMu.Lock()
	if call := s.pending; call != nil {
		s.callMu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &ingestCall{done: make(chan struct{})}
	s.pending = call
	s.callMu.Unlock()

	call.err = s.doIngest(context.WithoutCancel(ctx))

	s.callMu.Lock()
	s.pending = nil
	s.callMu.Unlock()
	close(call.done)

	return call.err
}

// IngestIfStale ingests only when the current snapshot is missing or older
// than maxAge. Freshness is re-checked after any in-flight ingestion settles.
func (s *Store) IngestIfStale(ctx context.Context, maxAge time.Duration) error {
	if s.HasData() && time.Since(s.LastIngestedAt()) < maxAge {
		return nil
	}
	return s.Ingest(ctx)
}

func (s *Store) doIngest(ctx context.Context) error {
	started := time.Now()

	snapshot, diags, err := s.ingestor.Ingest(ctx)
	if err != nil {
		logging.LogError(s.logger, "feed ingestion failed, keeping previous snapshot", err)
		return err
	}

	s.rotate(snapshot, diags)

	logging.LogOperation(s.logger, "feed_ingested",
		slog.Int("stops", len(snapshot.Stops)),
		slog.Int("routes", len(snapshot.Routes)),
		slog.Duration("duration", time.Since(started)))

	if s.cache != nil {
		if err := s.cache.SaveSnapshot(ctx, snapshot); err != nil {
			logging.LogError(s.logger, "failed to cache feed snapshot", err)
		}
	}

	return nil
}

// rotate builds the spatial index off-path and swaps the whole state in one
// pointer assignment.
func (s *Store) rotate(snapshot *models.FeedSnapshot, diags *Diagnostics) {
	next := &state{
		snapshot: snapshot,
		index:    geo.NewIndex(snapshot.Stops),
	}
	if diags != nil {
		next.diags = *diags
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

// WarmStart tries to serve from the durable cache instead of the network.
// Returns true when a cached snapshot no older than maxAge was loaded.
func (s *Store) WarmStart(ctx context.Context, maxAge time.Duration) bool {
	if s.cache == nil {
		return false
	}

	snapshot, err := s.cache.LoadLatestSnapshot(ctx)
	if err != nil {
		logging.LogError(s.logger, "failed to load cached snapshot", err)
		return false
	}
	if snapshot == nil || !snapshot.HasData() {
		return false
	}
	if maxAge > 0 && time.Since(snapshot.IngestedAt) > maxAge {
		return false
	}

	s.rotate(snapshot, nil)
	logging.LogOperation(s.logger, "feed_warm_start",
		slog.Int("stops", len(snapshot.Stops)),
		slog.Time("ingested_at", snapshot.IngestedAt))
	return true
}

// StartBackgroundRefresh re-ingests the feed on a fixed interval until
// Shutdown. Refresh failures are logged and the last good snapshot keeps
// serving.
func (s *Store) StartBackgroundRefresh(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := s.Ingest(ctx); err != nil {
					logging.LogError(s.logger, "background feed refresh failed", err)
				}
				cancel()
			case <-s.shutdownChan:
				logging.LogOperation(s.logger, "shutting_down_feed_refresh")
				return
			}
		}
	}()
}

// Shutdown stops background refresh and waits for it to exit.
func (s *Store) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.wg.Wait()
	})
}

package feed

import (
	"log/slog"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// NewStaticStore builds a Store pre-populated with a snapshot and no
// ingestor. Used by tests and by tooling that already holds feed data.
func NewStaticStore(snapshot *models.FeedSnapshot, logger *slog.Logger) *Store {
	if snapshot == nil {
		snapshot = models.EmptyFeedSnapshot()
	}
	store := NewStore(nil, nil, logger)
	store.rotate(snapshot, nil)
	return store
}

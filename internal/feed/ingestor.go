package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// Ingestor downloads and parses a packaged static feed into a FeedSnapshot.
// The source can be either a URL or a local file path.
type Ingestor struct {
	source      string
	isLocalFile bool
	client      *http.Client
	logger      *slog.Logger
}

func NewIngestor(source string, logger *slog.Logger) *Ingestor {
	isLocalFile := !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")
	return &Ingestor{
		source:      source,
		isLocalFile: isLocalFile,
		client:      &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

// Ingest fetches the archive, parses the required tables, derives the
// stop-to-routes index and returns a validated snapshot. Returns an error
// wrapping ErrFetch on transport failure and ErrParse when a required table
// is missing or unreadable. Missing optional tables are reported only in
// diagnostics.
func (ing *Ingestor) Ingest(ctx context.Context) (*models.FeedSnapshot, *Diagnostics, error) {
	data, err := ing.rawFeedData(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ing.buildSnapshot(data)
}

// buildSnapshot parses raw archive bytes into a snapshot. Split out from
// Ingest so identical bytes always produce content-equal snapshots
// regardless of where they came from.
func (ing *Ingestor) buildSnapshot(data []byte) (*models.FeedSnapshot, *Diagnostics, error) {
	parsed, diags, err := parseArchive(data)
	if err != nil {
		return nil, nil, err
	}

	stopRoutes := buildStopRoutes(parsed)
	dropDanglingReferences(parsed, stopRoutes, diags)
	snapshot := models.NewFeedSnapshot(parsed.stops, parsed.routes, stopRoutes, time.Now())

	// Stop records carry their own route set for convenience; the snapshot's
	// deduplicated index is authoritative.
	for i := range snapshot.Stops {
		snapshot.Stops[i].RouteIDs = snapshot.RoutesForStop(snapshot.Stops[i].ID)
	}

	if err := validateSnapshot(snapshot); err != nil {
		return nil, nil, err
	}

	if len(diags.MissingOptionalTables) > 0 {
		logging.LogError(ing.logger, "optional feed tables missing", ErrPartialData,
			slog.String("tables", strings.Join(diags.MissingOptionalTables, ",")))
	}
	if diags.TotalSkippedRows() > 0 || diags.ZeroCoordinateStops > 0 {
		logging.LogOperation(ing.logger, "feed_parse_diagnostics",
			slog.Int("skipped_rows", diags.TotalSkippedRows()),
			slog.Int("zero_coordinate_stops", diags.ZeroCoordinateStops))
	}

	return snapshot, diags, nil
}

func (ing *Ingestor) rawFeedData(ctx context.Context) ([]byte, error) {
	if ing.isLocalFile {
		b, err := os.ReadFile(ing.source)
		if err != nil {
			return nil, fmt.Errorf("%w: reading local feed file: %v", ErrFetch, err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ing.source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := ing.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading feed: %v", ErrFetch, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		ing.logger, "feed_download_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed source returned HTTP %d", ErrFetch, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feed body: %v", ErrFetch, err)
	}
	return b, nil
}

// dropDanglingReferences removes stop-routes entries that point at stops or
// routes absent from their tables. Dangling rows are a data-quality problem
// in the feed, not a reason to fail the whole ingestion; they are counted as
// skipped stop_times rows.
func dropDanglingReferences(parsed *parsedFeed, stopRoutes map[string][]string, diags *Diagnostics) {
	knownStops := make(map[string]struct{}, len(parsed.stops))
	for _, stop := range parsed.stops {
		knownStops[stop.ID] = struct{}{}
	}
	knownRoutes := make(map[string]struct{}, len(parsed.routes))
	for _, route := range parsed.routes {
		knownRoutes[route.ID] = struct{}{}
	}

	for stopID, routeIDs := range stopRoutes {
		if _, ok := knownStops[stopID]; !ok {
			delete(stopRoutes, stopID)
			diags.skip("stop_times.txt")
			continue
		}
		kept := routeIDs[:0]
		for _, routeID := range routeIDs {
			if _, ok := knownRoutes[routeID]; ok {
				kept = append(kept, routeID)
			} else {
				diags.skip("stop_times.txt")
			}
		}
		if len(kept) == 0 {
			delete(stopRoutes, stopID)
		} else {
			stopRoutes[stopID] = kept
		}
	}
}

// validateSnapshot checks internal consistency before the snapshot may be
// rotated in: every route referenced by the stop-routes index must exist in
// routes, and every indexed stop must exist in stops.
func validateSnapshot(snapshot *models.FeedSnapshot) error {
	for stopID, routeIDs := range snapshot.StopRoutes {
		if snapshot.StopByID(stopID) == nil {
			return fmt.Errorf("%w: stop-routes index references unknown stop %q", ErrParse, stopID)
		}
		for _, routeID := range routeIDs {
			if snapshot.RouteByID(routeID) == nil {
				return fmt.Errorf("%w: stop %q references unknown route %q", ErrParse, stopID, routeID)
			}
		}
	}
	return nil
}

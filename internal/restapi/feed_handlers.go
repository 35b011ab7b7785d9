package restapi

import (
	"net/http"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/feed"
)

type feedStatusResponse struct {
	HasData        bool             `json:"hasData"`
	LastIngestedAt *time.Time       `json:"lastIngestedAt,omitempty"`
	StopCount      int              `json:"stopCount"`
	RouteCount     int              `json:"routeCount"`
	Diagnostics    feed.Diagnostics `json:"diagnostics"`
}

func (api *RestAPI) feedStatusHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := api.FeedStore.CurrentSnapshot()

	response := feedStatusResponse{
		HasData:     snapshot.HasData(),
		StopCount:   len(snapshot.Stops),
		RouteCount:  len(snapshot.Routes),
		Diagnostics: api.FeedStore.Diagnostics(),
	}
	if !snapshot.IngestedAt.IsZero() {
		ingestedAt := snapshot.IngestedAt
		response.LastIngestedAt = &ingestedAt
	}

	api.sendResponse(w, r, response)
}

// feedRefreshHandler triggers a re-ingestion. Concurrent refresh requests
// coalesce onto the single in-flight ingestion; a recent snapshot short-
// circuits the refresh entirely.
func (api *RestAPI) feedRefreshHandler(w http.ResponseWriter, r *http.Request) {
	const minRefreshInterval = time.Minute

	if err := api.FeedStore.IngestIfStale(r.Context(), minRefreshInterval); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.feedStatusHandler(w, r)
}

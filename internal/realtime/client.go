// Package realtime consumes live trip-update and vehicle-position feeds and
// reconciles them against planned itineraries. The live source is assumed
// unreliable: every failure path degrades to static data.
package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

type Config struct {
	TripUpdatesURL      string
	VehiclePositionsURL string
	AuthHeaderKey       string
	AuthHeaderValue     string
	RefreshInterval     time.Duration
	FetchTimeout        time.Duration
}

// Enabled reports whether live data URLs are configured at all.
func (config Config) Enabled() bool {
	return config.TripUpdatesURL != "" || config.VehiclePositionsURL != ""
}

func (config Config) refreshInterval() time.Duration {
	if config.RefreshInterval > 0 {
		return config.RefreshInterval
	}
	return 30 * time.Second
}

func (config Config) fetchTimeout() time.Duration {
	if config.FetchTimeout > 0 {
		return config.FetchTimeout
	}
	return 15 * time.Second
}

// Client polls the live transit feeds and exposes per-stop arrivals and
// per-route vehicle positions. Reads are served from the last successful
// fetch under a read lock; a failed fetch keeps the previous data.
type Client struct {
	config Config
	logger *slog.Logger

	mu       sync.RWMutex
	trips    []gtfs.Trip
	vehicles []gtfs.Vehicle

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewClient(config Config, logger *slog.Logger) *Client {
	return &Client{
		config:       config,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
}

// Start performs an initial fetch and begins periodic refreshes.
func (c *Client) Start(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.config.fetchTimeout())
	defer cancel()
	c.refresh(fetchCtx)

	c.wg.Add(1)
	go c.refreshPeriodically()
}

// Shutdown stops the refresh goroutine and waits for it to exit.
func (c *Client) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.shutdownChan)
		c.wg.Wait()
	})
}

func (c *Client) refreshPeriodically() {
	defer c.wg.Done()

	logger := c.logger.With(slog.String("component", "realtime_updater"))

	ticker := time.NewTicker(c.config.refreshInterval())
	defer ticker.Stop()

	for { // nolint
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.fetchTimeout())
			ctx = logging.WithLogger(ctx, logger)
			c.refresh(ctx)
			cancel()
		case <-c.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}

// refresh fetches trip updates and vehicle positions concurrently. The two
// feeds are independent: one failing or timing out must not block the other.
func (c *Client) refresh(ctx context.Context) {
	logger := logging.FromContext(ctx).With(slog.String("component", "realtime_feed"))

	headers := map[string]string{}
	if c.config.AuthHeaderKey != "" && c.config.AuthHeaderValue != "" {
		headers[c.config.AuthHeaderKey] = c.config.AuthHeaderValue
	}

	var wg sync.WaitGroup
	var tripData, vehicleData *gtfs.Realtime
	var tripErr, vehicleErr error

	if c.config.TripUpdatesURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tripData, tripErr = fetchRealtime(ctx, c.config.TripUpdatesURL, headers)
			if tripErr != nil {
				logging.LogError(logger, "error loading live trip updates", tripErr,
					slog.String("url", c.config.TripUpdatesURL))
			}
		}()
	}

	if c.config.VehiclePositionsURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vehicleData, vehicleErr = fetchRealtime(ctx, c.config.VehiclePositionsURL, headers)
			if vehicleErr != nil {
				logging.LogError(logger, "error loading live vehicle positions", vehicleErr,
					slog.String("url", c.config.VehiclePositionsURL))
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tripData != nil && tripErr == nil {
		c.trips = tripData.Trips
	}
	if vehicleData != nil && vehicleErr == nil {
		c.vehicles = vehicleData.Vehicles
	}
}

func fetchRealtime(ctx context.Context, source string, headers map[string]string) (*gtfs.Realtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Add(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "realtime_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("realtime source returned HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return gtfs.ParseRealtime(b, &gtfs.ParseRealtimeOptions{})
}

// setTestData replaces the live data directly. Test hook.
func (c *Client) setTestData(trips []gtfs.Trip, vehicles []gtfs.Vehicle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips = trips
	c.vehicles = vehicles
}

// ArrivalsForStop returns live arrival predictions for a stop, converted at
// this boundary into the internal record type. Entries without a usable
// predicted time are dropped here so nothing downstream sees raw payloads.
func (c *Client) ArrivalsForStop(stopID string) []models.RealtimeArrival {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var arrivals []models.RealtimeArrival
	for i := range c.trips {
		trip := &c.trips[i]
		for _, update := range trip.StopTimeUpdates {
			if update.StopID == nil || *update.StopID != stopID {
				continue
			}
			if update.Arrival == nil || update.Arrival.Time == nil {
				continue
			}

			arrival := models.RealtimeArrival{
				StopID:    stopID,
				RouteID:   trip.ID.RouteID,
				Predicted: *update.Arrival.Time,
			}
			if update.Arrival.Delay != nil {
				arrival.DelaySeconds = int(update.Arrival.Delay.Seconds())
			}
			if trip.Vehicle != nil {
				if trip.Vehicle.ID != nil {
					arrival.VehicleID = trip.Vehicle.ID.ID
				}
				arrival.Occupancy = mapOccupancy(trip.Vehicle.OccupancyStatus)
			}
			arrivals = append(arrivals, arrival)
		}
	}
	return arrivals
}

// VehiclesForRoute returns live positions of vehicles serving a route.
func (c *Client) VehiclesForRoute(routeID string) []models.VehiclePosition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var positions []models.VehiclePosition
	for i := range c.vehicles {
		vehicle := &c.vehicles[i]
		if vehicle.Trip == nil || vehicle.Trip.ID.RouteID != routeID {
			continue
		}
		if vehicle.Position == nil || vehicle.Position.Latitude == nil || vehicle.Position.Longitude == nil {
			continue
		}

		position := models.VehiclePosition{
			RouteID: routeID,
			Lat:     float64(*vehicle.Position.Latitude),
			Lon:     float64(*vehicle.Position.Longitude),
		}
		if vehicle.ID != nil {
			position.VehicleID = vehicle.ID.ID
		}
		if vehicle.Position.Bearing != nil {
			position.Bearing = float64(*vehicle.Position.Bearing)
		}
		if vehicle.Timestamp != nil {
			position.Reported = *vehicle.Timestamp
		}
		positions = append(positions, position)
	}
	return positions
}

// mapOccupancy converts the wire occupancy enum to the internal ordinal.
// A nil status means no data, which stays OccupancyUnknown.
func mapOccupancy(status *gtfs.OccupancyStatus) models.Occupancy {
	if status == nil {
		return models.OccupancyUnknown
	}
	switch int32(*status) {
	case 0:
		return models.OccupancyEmpty
	case 1:
		return models.OccupancyManySeats
	case 2:
		return models.OccupancyFewSeats
	case 3:
		return models.OccupancyStandingRoom
	case 4:
		return models.OccupancyCrushed
	case 5, 6:
		return models.OccupancyFull
	default:
		return models.OccupancyUnknown
	}
}

package feeddb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rprovine/oahu-transit-hub-sub001/internal/logging"
	"github.com/rprovine/oahu-transit-hub-sub001/internal/models"
)

// SaveSnapshot writes a snapshot as the newest cached version and prunes all
// older versions. The write is a single transaction: a crash mid-save leaves
// the previous cached snapshot intact.
func (c *Client) SaveSnapshot(ctx context.Context, snapshot *models.FeedSnapshot) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	// No-op after a successful commit.
	defer logging.SafeRollbackWithLogging(tx, slog.Default(), "save_snapshot")

	result, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (ingested_at, feed_version) VALUES (?, ?);`,
		snapshot.IngestedAt.Unix(), "")
	if err != nil {
		return fmt.Errorf("error inserting snapshot row: %w", err)
	}
	snapshotID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading snapshot id: %w", err)
	}

	if err := insertStops(ctx, tx, snapshotID, snapshot.Stops); err != nil {
		return err
	}
	if err := insertRoutes(ctx, tx, snapshotID, snapshot.Routes); err != nil {
		return err
	}
	if err := insertStopRoutes(ctx, tx, snapshotID, snapshot.StopRoutes); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id != ?;`, snapshotID); err != nil {
		return fmt.Errorf("error pruning old snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func insertStops(ctx context.Context, tx *sql.Tx, snapshotID int64, stops []models.Stop) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stops (snapshot_id, stop_id, stop_name, stop_lat, stop_lon)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing stops statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, stop := range stops {
		if _, err := stmt.ExecContext(ctx, snapshotID, stop.ID, stop.Name, stop.Lat, stop.Lon); err != nil {
			return fmt.Errorf("error inserting stop: %w", err)
		}
	}
	return nil
}

func insertRoutes(ctx context.Context, tx *sql.Tx, snapshotID int64, routes []models.Route) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO routes (snapshot_id, route_id, route_short_name, route_long_name, mode)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing routes statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, route := range routes {
		if _, err := stmt.ExecContext(ctx, snapshotID, route.ID, route.ShortName, route.LongName, int(route.Mode)); err != nil {
			return fmt.Errorf("error inserting route: %w", err)
		}
	}
	return nil
}

func insertStopRoutes(ctx context.Context, tx *sql.Tx, snapshotID int64, stopRoutes map[string][]string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stop_routes (snapshot_id, stop_id, route_id)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing stop_routes statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for stopID, routeIDs := range stopRoutes {
		for _, routeID := range routeIDs {
			if _, err := stmt.ExecContext(ctx, snapshotID, stopID, routeID); err != nil {
				return fmt.Errorf("error inserting stop_route: %w", err)
			}
		}
	}
	return nil
}

// LoadLatestSnapshot reads the newest cached snapshot, or nil when the cache
// is empty.
func (c *Client) LoadLatestSnapshot(ctx context.Context) (*models.FeedSnapshot, error) {
	var snapshotID int64
	var ingestedAtUnix int64
	err := c.DB.QueryRowContext(ctx,
		`SELECT id, ingested_at FROM snapshots ORDER BY id DESC LIMIT 1;`,
	).Scan(&snapshotID, &ingestedAtUnix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot row: %w", err)
	}

	stops, err := c.loadStops(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	routes, err := c.loadRoutes(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	stopRoutes, err := c.loadStopRoutes(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	snapshot := models.NewFeedSnapshot(stops, routes, stopRoutes, time.Unix(ingestedAtUnix, 0))
	for i := range snapshot.Stops {
		snapshot.Stops[i].RouteIDs = snapshot.RoutesForStop(snapshot.Stops[i].ID)
	}
	return snapshot, nil
}

func (c *Client) loadStops(ctx context.Context, snapshotID int64) ([]models.Stop, error) {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops WHERE snapshot_id = ? ORDER BY stop_id;`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("error querying stops: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var stops []models.Stop
	for rows.Next() {
		var stop models.Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Lat, &stop.Lon); err != nil {
			return nil, fmt.Errorf("error scanning stop: %w", err)
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

func (c *Client) loadRoutes(ctx context.Context, snapshotID int64) ([]models.Route, error) {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT route_id, route_short_name, route_long_name, mode FROM routes WHERE snapshot_id = ? ORDER BY route_id;`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("error querying routes: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var routes []models.Route
	for rows.Next() {
		var route models.Route
		var mode int
		if err := rows.Scan(&route.ID, &route.ShortName, &route.LongName, &mode); err != nil {
			return nil, fmt.Errorf("error scanning route: %w", err)
		}
		route.Mode = models.RouteMode(mode)
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

func (c *Client) loadStopRoutes(ctx context.Context, snapshotID int64) (map[string][]string, error) {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT stop_id, route_id FROM stop_routes WHERE snapshot_id = ? ORDER BY stop_id, route_id;`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("error querying stop_routes: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	stopRoutes := make(map[string][]string)
	for rows.Next() {
		var stopID, routeID string
		if err := rows.Scan(&stopID, &routeID); err != nil {
			return nil, fmt.Errorf("error scanning stop_route: %w", err)
		}
		stopRoutes[stopID] = append(stopRoutes[stopID], routeID)
	}
	return stopRoutes, rows.Err()
}

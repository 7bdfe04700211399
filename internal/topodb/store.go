package topodb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/transit"
)

// ErrNoTopology is returned by LoadTopology when nothing has been saved yet.
var ErrNoTopology = errors.New("topodb: no topology stored")

const (
	metaVersion = "version"
	metaSource  = "source"
	metaSavedAt = "saved_at"
)

// Meta describes the stored snapshot.
type Meta struct {
	Version string
	Source  string
	SavedAt time.Time
}

// SaveTopology replaces the stored snapshot with topo in a single transaction.
func (c *Client) SaveTopology(ctx context.Context, topo *transit.Topology, source string, savedAt time.Time) error {
	logger := c.logger.With(slog.String("operation", "save_topology"))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "save_topology")

	for _, table := range []string{"stations", "station_stops", "station_transfers", "trains", "train_statuses", "routing_lines", "routing_paths", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	if err := insertStations(ctx, tx, topo.Stations()); err != nil {
		return err
	}
	if err := insertTrains(ctx, tx, topo.Trains()); err != nil {
		return err
	}
	if err := insertRoutings(ctx, tx, topo); err != nil {
		return err
	}

	meta := map[string]string{
		metaVersion: topo.Version(),
		metaSource:  source,
		metaSavedAt: savedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("error writing meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit topology: %w", err)
	}

	logging.LogOperation(logger, "topology_saved",
		slog.String("version", topo.Version()),
		slog.Int("stations", len(topo.Stations())),
		slog.Int("lines", len(topo.LineIDs())))
	return nil
}

func insertStations(ctx context.Context, tx *sql.Tx, stations []transit.Station) error {
	stationStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO stations (id, name, secondary_name, latitude, longitude) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stationStmt.Close() }()

	stopStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO station_stops (station_id, direction, line_id) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stopStmt.Close() }()

	transferStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO station_transfers (station_id, transfer_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = transferStmt.Close() }()

	for _, s := range stations {
		if _, err := stationStmt.ExecContext(ctx, s.ID, s.Name, s.SecondaryName, s.Latitude, s.Longitude); err != nil {
			return fmt.Errorf("error inserting station %s: %w", s.ID, err)
		}
		for _, d := range transit.Directions {
			for _, line := range s.StopsFor(d).Sorted() {
				if _, err := stopStmt.ExecContext(ctx, s.ID, string(d), line); err != nil {
					return fmt.Errorf("error inserting stop %s/%s/%s: %w", s.ID, d, line, err)
				}
			}
		}
		for _, id := range s.Transfers.Sorted() {
			if _, err := transferStmt.ExecContext(ctx, s.ID, id); err != nil {
				return fmt.Errorf("error inserting transfer %s->%s: %w", s.ID, id, err)
			}
		}
	}
	return nil
}

func insertTrains(ctx context.Context, tx *sql.Tx, trains []transit.Train) error {
	for _, tr := range trains {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO trains (id, name, color, text_color) VALUES (?, ?, ?, ?)",
			tr.ID, tr.Name, tr.Color, tr.TextColor); err != nil {
			return fmt.Errorf("error inserting train %s: %w", tr.ID, err)
		}
		for _, d := range transit.Directions {
			status, ok := tr.DirectionStatuses[d]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO train_statuses (train_id, direction, status) VALUES (?, ?, ?)",
				tr.ID, string(d), status); err != nil {
				return fmt.Errorf("error inserting status %s/%s: %w", tr.ID, d, err)
			}
		}
	}
	return nil
}

func insertRoutings(ctx context.Context, tx *sql.Tx, topo *transit.Topology) error {
	pathStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO routing_paths (line_id, direction, path_index, position, token) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = pathStmt.Close() }()

	for _, lineID := range topo.LineIDs() {
		if _, err := tx.ExecContext(ctx, "INSERT INTO routing_lines (line_id) VALUES (?)", lineID); err != nil {
			return fmt.Errorf("error inserting routing line %s: %w", lineID, err)
		}
		r, _ := topo.Routings(lineID)
		for _, d := range transit.Directions {
			for i, path := range r.Paths(d) {
				for pos, token := range path {
					if _, err := pathStmt.ExecContext(ctx, lineID, string(d), i, pos, token); err != nil {
						return fmt.Errorf("error inserting routing %s/%s[%d]: %w", lineID, d, i, err)
					}
				}
			}
		}
	}
	return nil
}

// LoadTopology rebuilds the stored snapshot. It returns ErrNoTopology when the
// store is empty.
func (c *Client) LoadTopology(ctx context.Context) (*transit.Topology, error) {
	meta, err := c.Meta(ctx)
	if err != nil {
		return nil, err
	}

	stations, err := c.loadStations(ctx)
	if err != nil {
		return nil, err
	}
	trains, err := c.loadTrains(ctx)
	if err != nil {
		return nil, err
	}
	routings, err := c.loadRoutings(ctx)
	if err != nil {
		return nil, err
	}

	topo, err := transit.NewTopology(stations, trains, routings)
	if err != nil {
		return nil, fmt.Errorf("stored topology is invalid: %w", err)
	}
	if topo.Version() != meta.Version {
		c.logger.Warn("stored topology version mismatch",
			slog.String("stored", meta.Version),
			slog.String("rebuilt", topo.Version()))
	}
	return topo, nil
}

// Meta returns the bookkeeping of the stored snapshot.
func (c *Client) Meta(ctx context.Context) (Meta, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "meta_rows")

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Meta{}, err
	}

	version, ok := values[metaVersion]
	if !ok {
		return Meta{}, ErrNoTopology
	}
	meta := Meta{Version: version, Source: values[metaSource]}
	if raw := values[metaSavedAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			meta.SavedAt = t
		}
	}
	return meta, nil
}

func (c *Client) loadStations(ctx context.Context) ([]transit.Station, error) {
	rows, err := c.DB.QueryContext(ctx,
		"SELECT id, name, secondary_name, latitude, longitude FROM stations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "station_rows")

	var stations []transit.Station
	index := make(map[string]int)
	for rows.Next() {
		s := transit.Station{
			SouthStops: transit.NewIDSet(),
			NorthStops: transit.NewIDSet(),
			Transfers:  transit.NewIDSet(),
		}
		if err := rows.Scan(&s.ID, &s.Name, &s.SecondaryName, &s.Latitude, &s.Longitude); err != nil {
			return nil, err
		}
		index[s.ID] = len(stations)
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the connection before the next query; :memory: stores have one.
	_ = rows.Close()

	stopRows, err := c.DB.QueryContext(ctx, "SELECT station_id, direction, line_id FROM station_stops")
	if err != nil {
		return nil, fmt.Errorf("query station_stops: %w", err)
	}
	defer logging.SafeCloseWithLogging(stopRows, c.logger, "station_stop_rows")
	for stopRows.Next() {
		var stationID, dir, line string
		if err := stopRows.Scan(&stationID, &dir, &line); err != nil {
			return nil, err
		}
		i, ok := index[stationID]
		if !ok {
			continue
		}
		switch transit.Direction(dir) {
		case transit.South:
			stations[i].SouthStops.Add(line)
		case transit.North:
			stations[i].NorthStops.Add(line)
		}
	}
	if err := stopRows.Err(); err != nil {
		return nil, err
	}
	_ = stopRows.Close()

	transferRows, err := c.DB.QueryContext(ctx, "SELECT station_id, transfer_id FROM station_transfers")
	if err != nil {
		return nil, fmt.Errorf("query station_transfers: %w", err)
	}
	defer logging.SafeCloseWithLogging(transferRows, c.logger, "station_transfer_rows")
	for transferRows.Next() {
		var stationID, transferID string
		if err := transferRows.Scan(&stationID, &transferID); err != nil {
			return nil, err
		}
		if i, ok := index[stationID]; ok {
			stations[i].Transfers.Add(transferID)
		}
	}
	return stations, transferRows.Err()
}

func (c *Client) loadTrains(ctx context.Context) ([]transit.Train, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT id, name, color, text_color FROM trains ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query trains: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "train_rows")

	var trains []transit.Train
	index := make(map[string]int)
	for rows.Next() {
		tr := transit.Train{DirectionStatuses: make(map[transit.Direction]string, 2)}
		if err := rows.Scan(&tr.ID, &tr.Name, &tr.Color, &tr.TextColor); err != nil {
			return nil, err
		}
		index[tr.ID] = len(trains)
		trains = append(trains, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	statusRows, err := c.DB.QueryContext(ctx, "SELECT train_id, direction, status FROM train_statuses")
	if err != nil {
		return nil, fmt.Errorf("query train_statuses: %w", err)
	}
	defer logging.SafeCloseWithLogging(statusRows, c.logger, "train_status_rows")
	for statusRows.Next() {
		var trainID, dir, status string
		if err := statusRows.Scan(&trainID, &dir, &status); err != nil {
			return nil, err
		}
		if i, ok := index[trainID]; ok {
			trains[i].DirectionStatuses[transit.Direction(dir)] = status
		}
	}
	return trains, statusRows.Err()
}

func (c *Client) loadRoutings(ctx context.Context) (map[string]transit.Routings, error) {
	routings := make(map[string]transit.Routings)

	lineRows, err := c.DB.QueryContext(ctx, "SELECT line_id FROM routing_lines")
	if err != nil {
		return nil, fmt.Errorf("query routing_lines: %w", err)
	}
	defer logging.SafeCloseWithLogging(lineRows, c.logger, "routing_line_rows")
	for lineRows.Next() {
		var lineID string
		if err := lineRows.Scan(&lineID); err != nil {
			return nil, err
		}
		routings[lineID] = transit.Routings{}
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	_ = lineRows.Close()

	rows, err := c.DB.QueryContext(ctx,
		"SELECT line_id, direction, path_index, token FROM routing_paths ORDER BY line_id, direction, path_index, position")
	if err != nil {
		return nil, fmt.Errorf("query routing_paths: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "routing_path_rows")

	for rows.Next() {
		var lineID, dir, token string
		var pathIndex int
		if err := rows.Scan(&lineID, &dir, &pathIndex, &token); err != nil {
			return nil, err
		}
		r := routings[lineID]
		switch transit.Direction(dir) {
		case transit.South:
			r.South = appendToken(r.South, pathIndex, token)
		case transit.North:
			r.North = appendToken(r.North, pathIndex, token)
		}
		routings[lineID] = r
	}
	return routings, rows.Err()
}

// appendToken grows paths so that index exists, then appends token to it.
// Rows arrive ordered by path index and position.
func appendToken(paths [][]string, index int, token string) [][]string {
	for len(paths) <= index {
		paths = append(paths, nil)
	}
	paths[index] = append(paths[index], token)
	return paths
}

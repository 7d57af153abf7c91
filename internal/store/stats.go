package store

import (
	"context"
	"fmt"
	"os"
)

// Stats summarizes stored episodes and the trends of their entries.
type Stats struct {
	DBPath        string         `json:"dbPath"`
	DBSizeBytes   int64          `json:"dbSizeBytes"`
	DeviceID      string         `json:"deviceId,omitempty"`
	Devices       int            `json:"devices"`
	TotalEpisodes int            `json:"totalEpisodes"`
	TotalEntries  int            `json:"totalEntries"`
	ByStatus      map[string]int `json:"byStatus"`
	ByTrend       map[string]int `json:"byTrend"`
}

// deviceFilter matches every device when the bound id is empty.
const deviceFilter = `(? = '' OR device_id = ?)`

// Stats counts episodes by status and analyzed entries by trend. An empty
// deviceID covers every device.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, deviceID string) (*Stats, error) {
	st := &Stats{
		DBPath:   dbPath,
		DeviceID: deviceID,
		ByStatus: map[string]int{},
		ByTrend:  map[string]int{},
	}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT device_id) FROM episodes WHERE `+deviceFilter,
		deviceID, deviceID).Scan(&st.TotalEpisodes, &st.Devices); err != nil {
		return st, fmt.Errorf("count episodes: %w", err)
	}
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE episode_id IN (SELECT id FROM episodes WHERE `+deviceFilter+`)`,
		deviceID, deviceID).Scan(&st.TotalEntries); err != nil {
		return st, fmt.Errorf("count entries: %w", err)
	}

	if err := s.countInto(ctx, st.ByStatus,
		`SELECT status, COUNT(*) FROM episodes WHERE `+deviceFilter+` GROUP BY status`,
		deviceID, deviceID); err != nil {
		return st, fmt.Errorf("count by status: %w", err)
	}
	if err := s.countInto(ctx, st.ByTrend, `
		SELECT json_extract(progression, '$.trend') AS trend, COUNT(*)
		FROM entries
		WHERE progression IS NOT NULL
		  AND episode_id IN (SELECT id FROM episodes WHERE `+deviceFilter+`)
		GROUP BY trend`, deviceID, deviceID); err != nil {
		return st, fmt.Errorf("count by trend: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) countInto(ctx context.Context, dst map[string]int, query string, args ...interface{}) error {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

// DeviceInfo summarizes one device's episodes.
type DeviceInfo struct {
	DeviceID  string `json:"deviceId"`
	Episodes  int    `json:"episodes"`
	Active    int    `json:"active"`
	LastEntry string `json:"lastEntry,omitempty"`
}

// ListDevices returns every device with episode counts, ordered by device id.
func (s *SQLiteStore) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT device_id, COUNT(*),
			SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END),
			COALESCE(MAX(last_entry_date), '')
		FROM episodes
		GROUP BY device_id
		ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceInfo
	for rows.Next() {
		var d DeviceInfo
		if err := rows.Scan(&d.DeviceID, &d.Episodes, &d.Active, &d.LastEntry); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/symptrack/internal/model"
)

// SearchParams holds parameters for searching entries.
type SearchParams struct {
	DeviceID string
	Query    string
	Limit    int
}

// SearchResult wraps a matching entry with its episode's device.
type SearchResult struct {
	model.SymptomEntry
	DeviceID string `json:"deviceId"`
}

// Search finds entries whose notes or symptoms contain the query substring.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	q := "%" + strings.ToLower(p.Query) + "%"
	where := []string{"(LOWER(e.notes) LIKE ? OR LOWER(e.symptoms) LIKE ?)"}
	args := []interface{}{q, q}

	if p.DeviceID != "" {
		where = append(where, "ep.device_id = ?")
		args = append(args, p.DeviceID)
	}

	cols := "e." + strings.ReplaceAll(entryColumns, ", ", ", e.")
	query := fmt.Sprintf(`
		SELECT %s, ep.device_id
		FROM entries e
		INNER JOIN episodes ep ON ep.id = e.episode_id
		WHERE %s
		ORDER BY e.date DESC, e.created_at DESC
		LIMIT ?`, cols, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		e, err := scanEntry(withTrailing(rows, &r.DeviceID))
		if err != nil {
			return nil, err
		}
		r.SymptomEntry = e
		results = append(results, r)
	}
	return results, rows.Err()
}

// trailingScanner appends extra destinations after the entry columns.
type trailingScanner struct {
	row   scanner
	extra []interface{}
}

func withTrailing(row scanner, extra ...interface{}) scanner {
	return trailingScanner{row: row, extra: extra}
}

func (t trailingScanner) Scan(dest ...interface{}) error {
	return t.row.Scan(append(dest, t.extra...)...)
}

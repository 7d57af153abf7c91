package store

import (
	"context"
	"fmt"

	"github.com/rcliao/symptrack/internal/model"
)

// Export is the interchange document for episodes and their entries.
type Export struct {
	Episodes []model.Episode      `json:"episodes"`
	Entries  []model.SymptomEntry `json:"entries"`
}

// ExportAll returns every episode and entry, optionally filtered by device.
func (s *SQLiteStore) ExportAll(ctx context.Context, deviceID string) (*Export, error) {
	episodes, err := s.ListEpisodes(ctx, ListEpisodesParams{DeviceID: deviceID})
	if err != nil {
		return nil, err
	}

	out := &Export{Episodes: []model.Episode{}, Entries: []model.SymptomEntry{}}
	for _, ep := range episodes {
		out.Episodes = append(out.Episodes, ep)
		entries, err := s.ListEntries(ctx, ep.ID)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, entries...)
	}
	return out, nil
}

// Import stores episodes and entries from an export, keeping their ids.
// Rows whose id already exists are skipped. Returns the number of episodes
// and entries inserted.
func (s *SQLiteStore) Import(ctx context.Context, doc *Export) (int, int, error) {
	episodes, entries := 0, 0
	err := s.withTx(ctx, func(tx *SQLiteStore) error {
		for _, ep := range doc.Episodes {
			args, err := episodeArgs(ep)
			if err != nil {
				return err
			}
			res, err := tx.q.ExecContext(ctx,
				`INSERT OR IGNORE INTO episodes (`+episodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				args...)
			if err != nil {
				return fmt.Errorf("import episode %s: %w", ep.ID, err)
			}
			n, _ := res.RowsAffected()
			episodes += int(n)
		}

		for _, e := range doc.Entries {
			if e.ID == "" {
				e.ID = tx.newID()
			}
			var before int
			if err := tx.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE id = ?`, e.ID).Scan(&before); err != nil {
				return fmt.Errorf("import entry %s: %w", e.ID, err)
			}
			if before > 0 {
				continue
			}
			if err := tx.insertEntry(ctx, e); err != nil {
				return fmt.Errorf("import entry %s: %w", e.ID, err)
			}
			entries++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return episodes, entries, nil
}

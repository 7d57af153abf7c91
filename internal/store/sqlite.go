package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/symptrack/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	q   querier // db, or the open transaction of a tx-scoped store
	tx  *sql.Tx
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// Immediate transactions take the write lock up front, so concurrent
	// processes serialize on it instead of failing to upgrade a read lock.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, q: db, now: time.Now}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// InTx runs fn against a store bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Calls on a store that
// is already inside a transaction join it.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.withTx(ctx, func(tx *SQLiteStore) error { return fn(tx) })
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*SQLiteStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteStore{db: s.db, q: tx, tx: tx, now: s.now}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id              TEXT PRIMARY KEY,
		device_id       TEXT NOT NULL,
		start_date      TEXT NOT NULL,
		end_date        TEXT,
		entry_count     INTEGER NOT NULL DEFAULT 0,
		severity        TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'active',
		symptoms        TEXT NOT NULL,
		recent_symptoms TEXT,
		last_entry_date TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_device ON episodes(device_id, start_date DESC);
	CREATE INDEX IF NOT EXISTS idx_episodes_status ON episodes(status);

	CREATE TABLE IF NOT EXISTS entries (
		id                 TEXT PRIMARY KEY,
		episode_id         TEXT NOT NULL REFERENCES episodes(id),
		date               TEXT NOT NULL,
		symptoms           TEXT NOT NULL,
		notes              TEXT,
		severity           TEXT NOT NULL DEFAULT '',
		symptom_severities TEXT,
		ai_analysis        TEXT,
		progression        TEXT,
		created_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_episode ON entries(episode_id, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

const episodeColumns = `id, device_id, start_date, end_date, entry_count, severity, status, symptoms, recent_symptoms, last_entry_date, created_at, updated_at`

const entryColumns = `id, episode_id, date, symptoms, notes, severity, symptom_severities, ai_analysis, progression, created_at`

func (s *SQLiteStore) CreateEpisode(ctx context.Context, ep model.Episode) error {
	args, err := episodeArgs(ep)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO episodes (`+episodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEpisode(ctx context.Context, ep model.Episode) error {
	args, err := episodeArgs(ep)
	if err != nil {
		return err
	}
	// args[0] is the id; move it to the WHERE clause.
	res, err := s.q.ExecContext(ctx,
		`UPDATE episodes SET device_id = ?, start_date = ?, end_date = ?, entry_count = ?, severity = ?,
		        status = ?, symptoms = ?, recent_symptoms = ?, last_entry_date = ?, created_at = ?, updated_at = ?
		 WHERE id = ?`,
		append(args[1:], args[0])...)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("episode %s: %w", ep.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetEpisode(ctx context.Context, id string) (*model.Episode, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context, p ListEpisodesParams) ([]model.Episode, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if p.DeviceID != "" {
		where = append(where, "device_id = ?")
		args = append(args, p.DeviceID)
	}
	if p.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(p.Status))
	}

	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY start_date DESC, id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []model.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func (s *SQLiteStore) AddEntry(ctx context.Context, p AddEntryParams) (*model.SymptomEntry, error) {
	if p.EpisodeID == "" {
		return nil, fmt.Errorf("episode id is required")
	}
	if p.Date.IsZero() {
		return nil, fmt.Errorf("entry date is required")
	}
	if len(p.Symptoms) == 0 {
		return nil, fmt.Errorf("at least one symptom is required")
	}

	e := model.SymptomEntry{
		ID:                s.newID(),
		EpisodeID:         p.EpisodeID,
		Date:              p.Date,
		Symptoms:          p.Symptoms,
		Notes:             p.Notes,
		Severity:          p.Severity,
		SymptomSeverities: p.SymptomSeverities,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.insertEntry(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) insertEntry(ctx context.Context, e model.SymptomEntry) error {
	symptoms, _ := json.Marshal(e.Symptoms)

	var sevJSON *string
	if len(e.SymptomSeverities) > 0 {
		b, _ := json.Marshal(e.SymptomSeverities)
		v := string(b)
		sevJSON = &v
	}
	var notes *string
	if e.Notes != "" {
		notes = &e.Notes
	}
	var ai *string
	if len(e.AIAnalysis) > 0 {
		v := string(e.AIAnalysis)
		ai = &v
	}
	var progression *string
	if e.Progression != nil {
		b, err := json.Marshal(stripPrevious(e.Progression))
		if err != nil {
			return fmt.Errorf("encode progression: %w", err)
		}
		v := string(b)
		progression = &v
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EpisodeID, model.FormatDate(e.Date), string(symptoms), notes, string(e.Severity),
		sevJSON, ai, progression, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, episodeID string) ([]model.SymptomEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE episode_id = ? ORDER BY date, created_at, id`, episodeID)
}

// GetEntry retrieves a single entry by id.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*model.SymptomEntry, error) {
	entries, err := s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return &entries[0], nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]model.SymptomEntry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.SymptomEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) SaveProgression(ctx context.Context, entryID string, a *model.EpisodeProgressionAnalysis) error {
	b, err := json.Marshal(stripPrevious(a))
	if err != nil {
		return fmt.Errorf("encode progression: %w", err)
	}
	return s.updateEntryColumn(ctx, entryID, "progression", string(b))
}

func (s *SQLiteStore) SetAIAnalysis(ctx context.Context, entryID string, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("ai analysis for entry %s is not valid JSON", entryID)
	}
	return s.updateEntryColumn(ctx, entryID, "ai_analysis", string(payload))
}

func (s *SQLiteStore) updateEntryColumn(ctx context.Context, entryID, column, value string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE entries SET `+column+` = ? WHERE id = ?`, value, entryID)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return nil
}

// Close closes the database. It is a no-op on a tx-scoped store.
func (s *SQLiteStore) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// stripPrevious drops the embedded prior entries; their ids are kept.
func stripPrevious(a *model.EpisodeProgressionAnalysis) *model.EpisodeProgressionAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	out.PreviousEntries = nil
	return &out
}

func episodeArgs(ep model.Episode) ([]interface{}, error) {
	if ep.ID == "" {
		return nil, fmt.Errorf("episode id is required")
	}
	symptoms, _ := json.Marshal(ep.Symptoms)
	var recent *string
	if len(ep.RecentSymptoms) > 0 {
		b, _ := json.Marshal(ep.RecentSymptoms)
		v := string(b)
		recent = &v
	}
	status := ep.Status
	if status == "" {
		status = model.StatusActive
	}
	return []interface{}{
		ep.ID, ep.DeviceID, model.FormatDate(ep.StartDate), formatDatePtr(ep.EndDate), ep.EntryCount,
		string(ep.Severity), string(status), string(symptoms), recent, formatDatePtr(ep.LastEntryDate),
		ep.CreatedAt.UTC().Format(time.RFC3339Nano), ep.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := model.FormatDate(*t)
	return &v
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEpisode(row scanner) (model.Episode, error) {
	var ep model.Episode
	var startDate, severity, status, symptoms, createdAt, updatedAt string
	var endDate, recent, lastEntry sql.NullString

	err := row.Scan(
		&ep.ID, &ep.DeviceID, &startDate, &endDate, &ep.EntryCount, &severity, &status,
		&symptoms, &recent, &lastEntry, &createdAt, &updatedAt,
	)
	if err != nil {
		return ep, err
	}

	ep.StartDate, _ = model.ParseDate(startDate)
	ep.Severity = model.Severity(severity)
	ep.Status = model.Status(status)
	ep.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	ep.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	json.Unmarshal([]byte(symptoms), &ep.Symptoms)
	if endDate.Valid {
		t, _ := model.ParseDate(endDate.String)
		ep.EndDate = &t
	}
	if recent.Valid {
		json.Unmarshal([]byte(recent.String), &ep.RecentSymptoms)
	}
	if lastEntry.Valid {
		t, _ := model.ParseDate(lastEntry.String)
		ep.LastEntryDate = &t
	}
	return ep, nil
}

func scanEntry(row scanner) (model.SymptomEntry, error) {
	var e model.SymptomEntry
	var date, symptoms, severity, createdAt string
	var notes, sevJSON, ai, progression sql.NullString

	err := row.Scan(
		&e.ID, &e.EpisodeID, &date, &symptoms, &notes, &severity, &sevJSON,
		&ai, &progression, &createdAt,
	)
	if err != nil {
		return e, err
	}

	e.Date, _ = model.ParseDate(date)
	e.Severity = model.Severity(severity)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	json.Unmarshal([]byte(symptoms), &e.Symptoms)
	if notes.Valid {
		e.Notes = notes.String
	}
	if sevJSON.Valid {
		json.Unmarshal([]byte(sevJSON.String), &e.SymptomSeverities)
	}
	if ai.Valid {
		e.AIAnalysis = json.RawMessage(ai.String)
	}
	if progression.Valid {
		var a model.EpisodeProgressionAnalysis
		if err := json.Unmarshal([]byte(progression.String), &a); err == nil {
			e.Progression = &a
		}
	}
	return e, nil
}

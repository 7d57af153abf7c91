package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/symptrack/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func testEpisode(t *testing.T, id, device, start string) model.Episode {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return model.Episode{
		ID:        id,
		DeviceID:  device,
		StartDate: mustDate(t, start),
		Status:    model.StatusActive,
		Symptoms:  []string{"cough", "fever"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetEpisode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ep := testEpisode(t, "ep1", "dev", "2024-01-01")
	if err := s.CreateEpisode(ctx, ep); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetEpisode(ctx, "ep1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeviceID != "dev" || got.Status != model.StatusActive {
		t.Errorf("unexpected episode %+v", got)
	}
	if !got.StartDate.Equal(ep.StartDate) {
		t.Errorf("start date: got %v, want %v", got.StartDate, ep.StartDate)
	}
	if len(got.Symptoms) != 2 || got.Symptoms[0] != "cough" {
		t.Errorf("symptoms: got %v", got.Symptoms)
	}
	if got.EndDate != nil || got.LastEntryDate != nil {
		t.Error("expected nil end and last entry dates")
	}
	if !got.CreatedAt.Equal(ep.CreatedAt) {
		t.Errorf("created_at: got %v, want %v", got.CreatedAt, ep.CreatedAt)
	}
}

func TestGetEpisodeNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEpisode(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEpisode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ep := testEpisode(t, "ep1", "dev", "2024-01-01")
	s.CreateEpisode(ctx, ep)

	end := mustDate(t, "2024-01-04")
	last := mustDate(t, "2024-01-03")
	ep.EndDate = &end
	ep.LastEntryDate = &last
	ep.Status = model.StatusResolved
	ep.EntryCount = 3
	ep.Severity = model.SeverityHigh
	ep.RecentSymptoms = []string{"cough"}
	if err := s.UpdateEpisode(ctx, ep); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetEpisode(ctx, "ep1")
	if got.Status != model.StatusResolved || got.EntryCount != 3 || got.Severity != model.SeverityHigh {
		t.Errorf("unexpected episode after update %+v", got)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("end date: got %v", got.EndDate)
	}
	if len(got.RecentSymptoms) != 1 {
		t.Errorf("recent symptoms: got %v", got.RecentSymptoms)
	}

	if err := s.UpdateEpisode(ctx, testEpisode(t, "nope", "dev", "2024-01-01")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown episode, got %v", err)
	}
}

func TestListEpisodes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateEpisode(ctx, testEpisode(t, "a", "dev1", "2024-01-01"))
	s.CreateEpisode(ctx, testEpisode(t, "b", "dev1", "2024-02-01"))
	closed := testEpisode(t, "c", "dev2", "2024-01-15")
	closed.Status = model.StatusResolved
	s.CreateEpisode(ctx, closed)

	all, _ := s.ListEpisodes(ctx, ListEpisodesParams{})
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].ID != "b" {
		t.Errorf("expected most recent start first, got %s", all[0].ID)
	}

	dev1, _ := s.ListEpisodes(ctx, ListEpisodesParams{DeviceID: "dev1"})
	if len(dev1) != 2 {
		t.Errorf("expected 2 for dev1, got %d", len(dev1))
	}

	resolved, _ := s.ListEpisodes(ctx, ListEpisodesParams{Status: model.StatusResolved})
	if len(resolved) != 1 || resolved[0].ID != "c" {
		t.Errorf("expected only c resolved, got %v", resolved)
	}

	limited, _ := s.ListEpisodes(ctx, ListEpisodesParams{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 with limit, got %d", len(limited))
	}
}

func TestAddAndListEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.CreateEpisode(ctx, testEpisode(t, "ep1", "dev", "2024-01-01"))

	second, err := s.AddEntry(ctx, AddEntryParams{
		EpisodeID: "ep1", Date: mustDate(t, "2024-01-02"), Symptoms: []string{"cough"},
		Severity:          model.SeverityLow,
		SymptomSeverities: map[string]model.Severity{"cough": model.SeverityLow},
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if second.ID == "" {
		t.Error("expected non-empty ID")
	}
	s.AddEntry(ctx, AddEntryParams{
		EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough", "fever"}, Notes: "rough night",
	})

	entries, err := s.ListEntries(ctx, "ep1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Notes != "rough night" {
		t.Errorf("expected entries ascending by date, got %q first", entries[0].Notes)
	}
	if entries[1].SymptomSeverities["cough"] != model.SeverityLow {
		t.Errorf("symptom severities not persisted: %v", entries[1].SymptomSeverities)
	}
}

func TestAddEntryValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AddEntry(ctx, AddEntryParams{Date: mustDate(t, "2024-01-01"), Symptoms: []string{"a"}}); err == nil {
		t.Error("expected error without episode id")
	}
	if _, err := s.AddEntry(ctx, AddEntryParams{EpisodeID: "ep", Symptoms: []string{"a"}}); err == nil {
		t.Error("expected error without date")
	}
	if _, err := s.AddEntry(ctx, AddEntryParams{EpisodeID: "ep", Date: mustDate(t, "2024-01-01")}); err == nil {
		t.Error("expected error without symptoms")
	}
}

func TestSaveProgressionAndAIAnalysis(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.CreateEpisode(ctx, testEpisode(t, "ep1", "dev", "2024-01-01"))
	e, _ := s.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough"}})

	a := &model.EpisodeProgressionAnalysis{
		Trend:              model.TrendWorsening,
		DayNumber:          2,
		ProgressionSummary: "Day 2: worsening; 1 ongoing.",
		PreviousEntries:    []model.SymptomEntry{{ID: "old"}},
		PreviousEntryIDs:   []string{"old"},
	}
	if err := s.SaveProgression(ctx, e.ID, a); err != nil {
		t.Fatalf("save progression: %v", err)
	}
	if err := s.SetAIAnalysis(ctx, e.ID, json.RawMessage(`{"narrative":"getting worse"}`)); err != nil {
		t.Fatalf("set ai analysis: %v", err)
	}

	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Progression == nil || got.Progression.Trend != model.TrendWorsening {
		t.Fatalf("progression not persisted: %+v", got.Progression)
	}
	if len(got.Progression.PreviousEntries) != 0 {
		t.Error("embedded previous entries should not be persisted")
	}
	if len(got.Progression.PreviousEntryIDs) != 1 {
		t.Errorf("expected previous entry ids, got %v", got.Progression.PreviousEntryIDs)
	}
	if string(got.AIAnalysis) != `{"narrative":"getting worse"}` {
		t.Errorf("ai analysis: got %s", got.AIAnalysis)
	}

	if err := s.SetAIAnalysis(ctx, e.ID, json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := s.SaveProgression(ctx, "missing", a); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.CreateEpisode(ctx, testEpisode(t, "ep1", "dev", "2024-01-01"))
	src.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough"}})
	src.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-02"), Symptoms: []string{"fever"}})

	doc, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStore(t)
	eps, entries, err := dst.Import(ctx, doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if eps != 1 || entries != 2 {
		t.Errorf("expected 1 episode and 2 entries, got %d and %d", eps, entries)
	}

	// Re-import skips existing rows.
	eps, entries, _ = dst.Import(ctx, doc)
	if eps != 0 || entries != 0 {
		t.Errorf("expected duplicates skipped, got %d and %d", eps, entries)
	}

	got, _ := dst.ListEntries(ctx, "ep1")
	if len(got) != 2 || got[0].ID != doc.Entries[0].ID {
		t.Errorf("entry ids not preserved: %v", got)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.CreateEpisode(ctx, testEpisode(t, "ep1", "dev1", "2024-01-01"))
	s.CreateEpisode(ctx, testEpisode(t, "ep2", "dev2", "2024-01-01"))
	e, _ := s.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough"}})
	s.SaveProgression(ctx, e.ID, &model.EpisodeProgressionAnalysis{Trend: model.TrendStable, DayNumber: 1})

	st, err := s.Stats(ctx, filepath.Join(t.TempDir(), "none.db"), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalEpisodes != 2 || st.Devices != 2 || st.TotalEntries != 1 {
		t.Errorf("unexpected totals %+v", st)
	}
	if st.ByStatus["active"] != 2 {
		t.Errorf("expected 2 active, got %v", st.ByStatus)
	}
	if st.ByTrend["stable"] != 1 {
		t.Errorf("expected 1 stable, got %v", st.ByTrend)
	}

	dev2, err := s.Stats(ctx, "", "dev2")
	if err != nil {
		t.Fatalf("stats dev2: %v", err)
	}
	if dev2.TotalEpisodes != 1 || dev2.Devices != 1 || dev2.TotalEntries != 0 || len(dev2.ByTrend) != 0 {
		t.Errorf("unexpected dev2 stats %+v", dev2)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestListDevices(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ep1 := testEpisode(t, "ep1", "dev-b", "2024-01-01")
	last := mustDate(t, "2024-01-04")
	ep1.LastEntryDate = &last
	s.CreateEpisode(ctx, ep1)
	ep2 := testEpisode(t, "ep2", "dev-b", "2024-02-01")
	ep2.Status = model.StatusArchived
	end := mustDate(t, "2024-02-02")
	ep2.EndDate = &end
	s.CreateEpisode(ctx, ep2)
	s.CreateEpisode(ctx, testEpisode(t, "ep3", "dev-a", "2024-01-01"))

	devices, err := s.ListDevices(ctx)
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].DeviceID != "dev-a" || devices[0].LastEntry != "" {
		t.Errorf("unexpected first device %+v", devices[0])
	}
	b := devices[1]
	if b.Episodes != 2 || b.Active != 1 || b.LastEntry != "2024-01-04" {
		t.Errorf("unexpected second device %+v", b)
	}
}

func TestStatsClosedStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := s.Stats(context.Background(), dbPath, ""); err == nil {
		t.Fatal("expected error from closed store")
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.CreateEpisode(ctx, testEpisode(t, "ep1", "dev", "2024-01-01"))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Store) error {
		if err := tx.CreateEpisode(ctx, testEpisode(t, "ep2", "dev", "2024-01-05")); err != nil {
			return err
		}
		ep, err := tx.GetEpisode(ctx, "ep1")
		if err != nil {
			return err
		}
		ep.EntryCount = 7
		if err := tx.UpdateEpisode(ctx, *ep); err != nil {
			return err
		}
		if _, err := tx.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.GetEpisode(ctx, "ep2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ep2 rolled back, got %v", err)
	}
	ep, err := s.GetEpisode(ctx, "ep1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ep.EntryCount != 0 {
		t.Errorf("expected entry count rolled back, got %d", ep.EntryCount)
	}
	entries, _ := s.ListEntries(ctx, "ep1")
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestInTxCommitsAndJoinsNested(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.InTx(ctx, func(tx Store) error {
		if err := tx.CreateEpisode(ctx, testEpisode(t, "ep1", "dev", "2024-01-01")); err != nil {
			return err
		}
		// Nested calls run on the same transaction and see its writes.
		return tx.InTx(ctx, func(inner Store) error {
			if _, err := inner.GetEpisode(ctx, "ep1"); err != nil {
				return err
			}
			_, err := inner.AddEntry(ctx, AddEntryParams{EpisodeID: "ep1", Date: mustDate(t, "2024-01-01"), Symptoms: []string{"cough"}})
			return err
		})
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}

	entries, err := s.ListEntries(ctx, "ep1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 committed entry, got %d", len(entries))
	}
}

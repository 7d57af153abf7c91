package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize episodes by status and entries by trend",
		Long: `Summarize tracked illness episodes.

Reports how many episodes are active, resolved or archived, and how the
analyzed entries split across improving, worsening and stable trends.
Pass --device to scope the summary to one device; the default covers all
devices in the database.`,
		Run: runStats,
	}
	cmd.Flags().String("format", "json", "Output format: json or text")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "text" {
		exitErr("stats", fmt.Errorf("unknown format %q", format))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath(), deviceFlag)
	if err != nil {
		exitErr("stats", err)
	}

	if format == "text" {
		writeStatsText(os.Stdout, stats)
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func writeStatsText(w io.Writer, st *store.Stats) {
	scope := "all devices"
	if st.DeviceID != "" {
		scope = "device " + st.DeviceID
	}
	fmt.Fprintf(w, "%d episode(s), %d entr(ies) across %s\n", st.TotalEpisodes, st.TotalEntries, scope)

	fmt.Fprintln(w, "episodes:")
	for _, status := range []model.Status{model.StatusActive, model.StatusResolved, model.StatusArchived} {
		fmt.Fprintf(w, "  %-10s %d\n", status, st.ByStatus[string(status)])
	}

	fmt.Fprintln(w, "trends:")
	trends := make([]string, 0, len(st.ByTrend))
	for trend := range st.ByTrend {
		trends = append(trends, trend)
	}
	sort.Strings(trends)
	for _, trend := range trends {
		fmt.Fprintf(w, "  %-10s %d\n", trend, st.ByTrend[trend])
	}
}

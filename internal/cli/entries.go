package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/symptrack/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "entries <episode-id>",
		Short: "Show an episode with its entries",
		Args:  cobra.ExactArgs(1),
		Run:   runEntries,
	}

	cmd.Flags().Bool("summary", false, "Only output each entry's date, trend and progression summary")

	RootCmd.AddCommand(cmd)
}

type entrySummary struct {
	Date      string      `json:"date"`
	DayNumber int         `json:"dayNumber,omitempty"`
	Trend     model.Trend `json:"trend,omitempty"`
	Summary   string      `json:"summary,omitempty"`
}

func runEntries(cmd *cobra.Command, args []string) {
	summaryOnly, _ := cmd.Flags().GetBool("summary")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ep, err := s.GetEpisode(cmd.Context(), args[0])
	if err != nil {
		exitErr("entries", err)
	}
	entries, err := s.ListEntries(cmd.Context(), ep.ID)
	if err != nil {
		exitErr("entries", err)
	}

	if summaryOnly {
		out := make([]entrySummary, 0, len(entries))
		for _, e := range entries {
			es := entrySummary{Date: model.FormatDate(e.Date)}
			if e.Progression != nil {
				es.DayNumber = e.Progression.DayNumber
				es.Trend = e.Progression.Trend
				es.Summary = e.Progression.ProgressionSummary
			}
			out = append(out, es)
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
		return
	}

	b, _ := json.MarshalIndent(struct {
		Episode *model.Episode       `json:"episode"`
		Entries []model.SymptomEntry `json:"entries"`
	}{ep, entries}, "", "  ")
	fmt.Println(string(b))
}

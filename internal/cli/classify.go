package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "classify [symptoms...]",
		Short: "Show which episode an entry would join, without saving it",
		Args:  cobra.MinimumNArgs(1),
		Run:   runClassify,
	}

	cmd.Flags().String("date", "", "Entry date YYYY-MM-DD (default: today)")
	cmd.Flags().Int("threshold", 0, "Day threshold for continuing an episode; 0 continues same-day only (default: policy)")

	RootCmd.AddCommand(cmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	threshold := getThreshold(cmd)
	date := parseDateFlag(cmd, "date")
	device := getDeviceID()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	existing, err := s.ListEpisodes(cmd.Context(), store.ListEpisodesParams{DeviceID: device})
	if err != nil {
		exitErr("classify", err)
	}

	res, err := newClassifier().DetermineEpisode(model.EpisodeDeterminationParams{
		DeviceID:     device,
		Date:         date,
		Symptoms:     splitSymptoms(args),
		DayThreshold: threshold,
	}, existing)
	if err != nil {
		exitErr("classify", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/tracker"
	"github.com/spf13/cobra"
)

func init() {
	closeCmd := &cobra.Command{
		Use:   "close <episode-id>",
		Short: "Mark an episode resolved",
		Args:  cobra.ExactArgs(1),
		Run:   runClose,
	}
	closeCmd.Flags().String("end", "", "End date YYYY-MM-DD (default: today)")

	archiveCmd := &cobra.Command{
		Use:   "archive <episode-id>",
		Short: "Archive an episode so new entries never continue it",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}

	reopenCmd := &cobra.Command{
		Use:   "reopen <episode-id>",
		Short: "Reopen a resolved episode",
		Args:  cobra.ExactArgs(1),
		Run:   runReopen,
	}

	RootCmd.AddCommand(closeCmd, archiveCmd, reopenCmd)
}

func runClose(cmd *cobra.Command, args []string) {
	end := parseDateFlag(cmd, "end")
	changeStatus(cmd, "close", func(t *tracker.Tracker) (*model.Episode, error) {
		return t.CloseEpisode(cmd.Context(), args[0], end)
	})
}

func runArchive(cmd *cobra.Command, args []string) {
	changeStatus(cmd, "archive", func(t *tracker.Tracker) (*model.Episode, error) {
		return t.ArchiveEpisode(cmd.Context(), args[0])
	})
}

func runReopen(cmd *cobra.Command, args []string) {
	changeStatus(cmd, "reopen", func(t *tracker.Tracker) (*model.Episode, error) {
		return t.ReopenEpisode(cmd.Context(), args[0])
	})
}

func changeStatus(cmd *cobra.Command, name string, fn func(*tracker.Tracker) (*model.Episode, error)) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ep, err := fn(newTracker(s))
	if err != nil {
		exitErr(name, err)
	}

	b, _ := json.MarshalIndent(ep, "", "  ")
	fmt.Println(string(b))
}

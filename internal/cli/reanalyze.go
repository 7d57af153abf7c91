package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reanalyze <episode-id>",
		Short: "Recompute progression for every entry of an episode",
		Args:  cobra.ExactArgs(1),
		Run:   runReanalyze,
	}

	RootCmd.AddCommand(cmd)
}

func runReanalyze(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := newTracker(s).Reanalyze(cmd.Context(), args[0])
	if err != nil {
		exitErr("reanalyze", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"episodeId":%q,"entries":%d}`+"\n", args[0], n)
}

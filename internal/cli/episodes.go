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
		Use:   "episodes",
		Short: "List episodes",
		Run:   runEpisodes,
	}

	cmd.Flags().String("status", "", "Filter by status: active, resolved, archived")
	cmd.Flags().Bool("all-devices", false, "List episodes of every device")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output episode ids")

	RootCmd.AddCommand(cmd)
}

func runEpisodes(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	allDevices, _ := cmd.Flags().GetBool("all-devices")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	if status != "" && !model.ValidStatuses[model.Status(status)] {
		exitErr("episodes", fmt.Errorf("invalid status %q (valid: active, resolved, archived)", status))
	}

	params := store.ListEpisodesParams{Status: model.Status(status), Limit: limit}
	if !allDevices {
		params.DeviceID = getDeviceID()
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	episodes, err := s.ListEpisodes(cmd.Context(), params)
	if err != nil {
		exitErr("episodes", err)
	}

	if idsOnly {
		for _, ep := range episodes {
			fmt.Println(ep.ID)
		}
		return
	}

	if len(episodes) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(episodes, "", "  ")
	fmt.Println(string(b))
}

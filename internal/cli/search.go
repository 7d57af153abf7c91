package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/symptrack/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries by keyword",
		Long:  "Search entry notes and symptoms for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().Bool("all-devices", false, "Search entries of every device")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	allDevices, _ := cmd.Flags().GetBool("all-devices")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	params := store.SearchParams{Query: query, Limit: limit}
	if !allDevices {
		params.DeviceID = getDeviceID()
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), params)
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

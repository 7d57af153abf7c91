package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices with episode counts",
		Run:   runDevices,
	}

	RootCmd.AddCommand(cmd)
}

func runDevices(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.ListDevices(cmd.Context())
	if err != nil {
		exitErr("list devices", err)
	}
	if len(rows) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

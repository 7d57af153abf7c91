package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export episodes and entries as JSON",
		Long:  "Export episodes and their entries as a single JSON document. Filter by device with --device.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	doc, err := s.ExportAll(cmd.Context(), deviceFlag)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(b))
}

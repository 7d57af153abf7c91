package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/symptrack/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import episodes and entries from JSON",
		Long:  "Import episodes and entries from JSON (file or stdin). Expects the format produced by export. Existing ids are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var doc store.Export
	if err := json.Unmarshal(data, &doc); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	episodes, entries, err := s.Import(cmd.Context(), &doc)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"episodes":%d,"entries":%d}`+"\n", episodes, entries)
}

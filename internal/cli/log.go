package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/tracker"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "log [symptoms...]",
		Short: "Log a symptom entry",
		Long:  "Log a symptom entry. Symptoms are positional args (comma or space separated). Notes can be piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLog,
	}

	cmd.Flags().String("date", "", "Entry date YYYY-MM-DD (default: today)")
	cmd.Flags().String("notes", "", "Free-text notes")
	cmd.Flags().StringP("severity", "s", "", "Overall severity: low, moderate, high")
	cmd.Flags().StringToString("symptom-severity", nil, "Per-symptom severity, e.g. cough=high,fever=low")
	cmd.Flags().Int("threshold", 0, "Day threshold for continuing an episode; 0 continues same-day only (default: policy)")

	RootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, args []string) {
	notes, _ := cmd.Flags().GetString("notes")
	sevStr, _ := cmd.Flags().GetString("severity")
	perSymptom, _ := cmd.Flags().GetStringToString("symptom-severity")
	threshold := getThreshold(cmd)
	date := parseDateFlag(cmd, "date")

	if notes == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			notes = strings.TrimSpace(string(b))
		}
	}

	severity, err := model.ParseSeverity(sevStr)
	if err != nil {
		exitErr("log", err)
	}
	var severities map[string]model.Severity
	if len(perSymptom) > 0 {
		severities = make(map[string]model.Severity, len(perSymptom))
		for name, v := range perSymptom {
			sev, err := model.ParseSeverity(v)
			if err != nil {
				exitErr("log", fmt.Errorf("symptom %s: %w", name, err))
			}
			severities[name] = sev
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := newTracker(s).LogEntry(cmd.Context(), tracker.LogParams{
		DeviceID:          getDeviceID(),
		Date:              date,
		Symptoms:          splitSymptoms(args),
		Notes:             notes,
		Severity:          severity,
		SymptomSeverities: severities,
		DayThreshold:      threshold,
	})
	if err != nil {
		exitErr("log", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}

func splitSymptoms(args []string) []string {
	var out []string
	for _, a := range args {
		for _, s := range strings.Split(a, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

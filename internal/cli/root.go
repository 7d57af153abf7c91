// Package cli implements the symptrack CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rcliao/symptrack/internal/config"
	"github.com/rcliao/symptrack/internal/engine"
	"github.com/rcliao/symptrack/internal/model"
	"github.com/rcliao/symptrack/internal/narrative"
	"github.com/rcliao/symptrack/internal/store"
	"github.com/rcliao/symptrack/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	deviceFlag string

	cfg      *config.Config
	closeLog func() error
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "symptrack",
	Short: "Track symptom episodes and how they progress",
	Long:  "Log symptom entries, group them into illness episodes and follow each episode's trend. SQLite-backed, single binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		c, err := config.Load(configPath)
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c
		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.Level())
		slog.SetDefault(logger)
		closeLog = cleanup
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			closeLog()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SYMPTRACK_DB_PATH or ~/.symptrack/symptrack.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./symptrack.yaml)")
	RootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "Device id (default: $SYMPTRACK_DEVICE_ID)")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

func getDeviceID() string {
	if deviceFlag != "" {
		return deviceFlag
	}
	return cfg.DeviceID
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newClassifier() *engine.Classifier {
	return engine.NewClassifier(engine.WithPolicy(cfg.Policy))
}

func newTracker(s store.Store) *tracker.Tracker {
	n, err := narrative.New(cfg.Narrative)
	if err != nil {
		exitErr("narrative", err)
	}
	return tracker.New(s, newClassifier(), n, slog.Default())
}

// parseDateFlag reads a YYYY-MM-DD flag, defaulting to today.
// getThreshold returns the --threshold override, or nil when the flag was
// not given so the classifier policy applies.
func getThreshold(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("threshold") {
		return nil
	}
	v, _ := cmd.Flags().GetInt("threshold")
	return &v
}

func parseDateFlag(cmd *cobra.Command, name string) time.Time {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return engine.Day(time.Now())
	}
	d, err := model.ParseDate(v)
	if err != nil {
		exitErr("parse --"+name, err)
	}
	return d
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	if tracker.IsValidation(err) {
		os.Exit(2)
	}
	os.Exit(1)
}

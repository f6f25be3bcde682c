package cmd

import (
	"fmt"
	"time"

	"github.com/matheuskafuri/xupdate/internal/config"
	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/matheuskafuri/xupdate/internal/render"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the API's stats endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Fprintln(cmd.OutOrStdout(), s.loader.LoadStats(cmd.Context()))
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show what the local cache holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		dbPath := config.CachePath()
		count, size, err := s.db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache: %s\n", dbPath)
		fmt.Fprintf(out, "Entries: %d\n", count)
		fmt.Fprintf(out, "Size: %s\n", formatBytes(size))

		snap, ok := s.loader.Cached()
		fmt.Fprintln(out, describeSnapshot(snap, ok, s.cfg.Location()))
		return nil
	},
}

func describeSnapshot(snap feed.Snapshot, ok bool, loc *time.Location) string {
	if !ok {
		return "Updates: none cached"
	}
	return fmt.Sprintf("Updates: %d, cached %s", len(snap.Updates), render.FormatTime(snap.Time(), loc))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

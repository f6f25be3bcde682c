package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/matheuskafuri/xupdate/internal/render"
	"github.com/spf13/cobra"
)

var (
	flagFilter string
	flagOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch once and write the feed as a standalone HTML page",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		page := renderOnce(cmd.Context(), s.loader, s.cfg.APIBase, flagFilter, s.cfg.Location())

		if flagOut == "" {
			_, err := fmt.Fprint(cmd.OutOrStdout(), page)
			return err
		}
		if err := os.WriteFile(flagOut, []byte(page), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", flagOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", flagOut)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&flagFilter, "filter", "", "only include updates matching this text")
	renderCmd.Flags().StringVar(&flagOut, "out", "", "write the page to a file instead of stdout")
}

// renderOnce runs both loaders and renders the resulting page. A filter
// renders from the cached sequence, like typing into the filter box.
func renderOnce(ctx context.Context, loader *feed.Loader, apiBase, filter string, loc *time.Location) string {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		res   feed.Result
		stats string
		wg    sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res = loader.LoadUpdates(ctx)
	}()
	go func() {
		defer wg.Done()
		stats = loader.LoadStats(ctx)
	}()
	wg.Wait()

	data := render.PageData{
		APIBase:     apiBase,
		Status:      res.Status,
		Records:     res.Records,
		Unreachable: res.Unreachable(),
		Query:       filter,
		Note:        render.Note(res, loc),
		Stats:       stats,
		Location:    loc,
	}
	if strings.TrimSpace(filter) != "" {
		data.Records = loader.CachedRecords()
		data.Unreachable = false
	}
	return render.Page(data)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheuskafuri/xupdate/internal/browser"
	"github.com/matheuskafuri/xupdate/internal/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagListen string
	flagOpen   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the update feed as a web page",
	Long: `Serve the update feed as an HTML page that reloads itself every poll interval.

The page, its state as JSON (/api/state) and prometheus metrics (/metrics) are
served on the listen address from config unless overridden with --listen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		addr := s.cfg.ListenAddr()
		if flagListen != "" {
			addr = flagListen
		}

		w := server.NewWidget(server.ServerConfig{
			Loader:       s.loader,
			APIBase:      s.cfg.APIBase,
			PollInterval: s.cfg.PollDuration(),
			Location:     s.cfg.Location(),
			AllowOrigins: s.cfg.AllowOrigins,
		})
		app := server.Server(w)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go w.Poll(ctx)

		errc := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("Serving update feed")
			errc <- app.Listen(addr)
		}()

		if flagOpen {
			pageURL := browser.URLFor(addr)
			if err := browser.Open(pageURL); err != nil {
				log.WithError(err).WithField("url", pageURL).Warn("Opening browser failed")
			}
		}

		select {
		case err := <-errc:
			return fmt.Errorf("serving on %s: %w", addr, err)
		case <-ctx.Done():
		}

		log.Info("Shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "address to listen on (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().BoolVar(&flagOpen, "open", false, "open the page in the default browser")
}

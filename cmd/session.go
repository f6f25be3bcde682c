package cmd

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/matheuskafuri/xupdate/internal/cache"
	"github.com/matheuskafuri/xupdate/internal/client"
	"github.com/matheuskafuri/xupdate/internal/config"
	"github.com/matheuskafuri/xupdate/internal/feed"
	log "github.com/sirupsen/logrus"
)

// session is what every command needs: config, the cache and a loader over both.
type session struct {
	cfg    *config.Config
	db     *cache.Cache
	loader *feed.Loader
	logs   io.Closer
}

// openSession loads config, sets up logging and opens the cache. With
// logToFile set, logs go to the state directory instead of stderr.
func openSession(logToFile bool) (*session, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagAPI != "" {
		if err := checkAPIBase(flagAPI); err != nil {
			return nil, err
		}
		cfg.APIBase = flagAPI
	}

	logs, err := setupLogging(cfg.LogLevel, logToFile)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	loader := feed.NewLoader(feed.LoaderOpts{
		Client:     client.New(cfg.TimeoutDuration()),
		Store:      db,
		CacheKey:   config.CacheKey,
		UpdatesURL: cfg.UpdatesURL(),
		StatsURL:   cfg.StatsURL(),
	})

	log.WithFields(log.Fields{
		"api_base": cfg.APIBase,
		"cache":    config.CachePath(),
	}).Debug("Session opened")

	return &session{cfg: cfg, db: db, loader: loader, logs: logs}, nil
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		log.WithError(err).Warn("Closing cache failed")
	}
	s.logs.Close()
}

func checkAPIBase(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid --api value: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("--api scheme must be http or https, got %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("--api %q has no host", raw)
	}
	return nil
}

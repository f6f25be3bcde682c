package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/matheuskafuri/xupdate/internal/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Loader       *feed.Loader
	APIBase      string
	PollInterval time.Duration
	Location     *time.Location
	AllowOrigins []string
}

// State is the widget as last rendered: status indicator, list, note and stats.
type State struct {
	sync.RWMutex
	status      feed.Status
	records     []feed.Record
	unreachable bool
	note        string
	stats       string
}

type stateView struct {
	Status      string        `json:"status"`
	Records     []feed.Record `json:"updates"`
	Unreachable bool          `json:"unreachable"`
	Note        string        `json:"note"`
	Stats       string        `json:"stats"`
}

func (s *State) snapshot() stateView {
	s.RLock()
	defer s.RUnlock()
	records := s.records
	if records == nil {
		records = []feed.Record{}
	}
	return stateView{
		Status:      s.status.String(),
		Records:     records,
		Unreachable: s.unreachable,
		Note:        s.note,
		Stats:       s.stats,
	}
}

// Widget owns the shared state and the loaders that write it. Loads are not
// serialized; concurrent writers overwrite each other wholesale.
type Widget struct {
	cfg   ServerConfig
	state *State
}

func NewWidget(cfg ServerConfig) *Widget {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Widget{
		cfg:   cfg,
		state: &State{status: feed.StatusChecking, stats: "Loading…"},
	}
}

func (w *Widget) LoadUpdates(ctx context.Context) {
	w.state.Lock()
	w.state.status = feed.StatusChecking
	w.state.note = ""
	w.state.Unlock()

	res := w.cfg.Loader.LoadUpdates(ctx)

	w.state.Lock()
	defer w.state.Unlock()
	w.state.status = res.Status
	w.state.records = res.Records
	w.state.unreachable = res.Unreachable()
	w.state.note = render.Note(res, w.cfg.Location)
}

func (w *Widget) LoadStats(ctx context.Context) {
	text := w.cfg.Loader.LoadStats(ctx)

	w.state.Lock()
	defer w.state.Unlock()
	w.state.stats = text
}

// Refresh runs both loaders concurrently and waits for them.
func (w *Widget) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.LoadUpdates(ctx)
	}()
	go func() {
		defer wg.Done()
		w.LoadStats(ctx)
	}()
	wg.Wait()
}

// Poll loads updates and stats immediately, then reloads updates every poll
// interval until ctx is done.
func (w *Widget) Poll(ctx context.Context) {
	w.Refresh(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping update poller")
			return
		case <-ticker.C:
			w.LoadUpdates(ctx)
		}
	}
}

// Page renders the widget. A non-empty query filters the cached sequence, the
// same way typing into the filter box does.
func (w *Widget) Page(query string) string {
	view := w.state.snapshot()

	status := feed.StatusChecking
	switch view.Status {
	case feed.StatusOnline.String():
		status = feed.StatusOnline
	case feed.StatusOffline.String():
		status = feed.StatusOffline
	}

	data := render.PageData{
		APIBase:       w.cfg.APIBase,
		Status:        status,
		Records:       view.Records,
		Unreachable:   view.Unreachable,
		Query:         query,
		Note:          view.Note,
		Stats:         view.Stats,
		Location:      w.cfg.Location,
		RefreshAction: "/refresh",
		ReloadSeconds: int(w.cfg.PollInterval.Seconds()),
	}
	if strings.TrimSpace(query) != "" {
		data.Records = w.cfg.Loader.CachedRecords()
		data.Unreachable = false
	}
	return render.Page(data)
}

func Server(w *Widget) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Request logging
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Debug("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if len(w.cfg.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(w.cfg.AllowOrigins, ","),
			AllowMethods: "GET,POST",
		}))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Type("html", "utf-8")
		return c.SendString(w.Page(c.Query("q")))
	})

	app.Post("/refresh", func(c *fiber.Ctx) error {
		w.Refresh(c.UserContext())
		return c.Redirect("/", fiber.StatusSeeOther)
	})

	app.Get("/api/state", func(c *fiber.Ctx) error {
		view := w.state.snapshot()
		if q := c.Query("q"); strings.TrimSpace(q) != "" {
			view.Records = render.Filter(w.cfg.Loader.CachedRecords(), q)
			view.Unreachable = false
		}
		return c.JSON(view)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheuskafuri/xupdate/internal/cache"
	"github.com/matheuskafuri/xupdate/internal/client"
	log "github.com/sirupsen/logrus"
)

// StatsUnavailable is shown whenever the stats endpoint cannot be read.
const StatsUnavailable = "Stats unavailable (optional endpoint)."

type Status int

const (
	StatusChecking Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "checking"
	}
}

// Label is the human-readable indicator text.
func (s Status) Label() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusOffline:
		return "Offline"
	default:
		return "Checking…"
	}
}

// Snapshot is the cached copy of the last successful updates response.
type Snapshot struct {
	At      int64    `json:"at"`
	Updates []Record `json:"updates"`
}

func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.At)
}

// Result is the outcome of one update load.
type Result struct {
	ID        string
	Status    Status
	Records   []Record
	FetchedAt time.Time
	FromCache bool
	CachedAt  time.Time
	Err       error
}

// Unreachable reports a failed load with nothing cached to fall back on.
func (r Result) Unreachable() bool {
	return r.Status == StatusOffline && !r.FromCache
}

// ErrorText is the message shown when nothing could be rendered.
func (r Result) ErrorText() string {
	if r.Err == nil || r.Err.Error() == "" {
		return "Fetch failed"
	}
	return r.Err.Error()
}

type Store interface {
	Put(key string, value []byte) error
	Get(key string) (cache.Entry, error)
}

type Loader struct {
	client     client.Getter
	store      Store
	key        string
	updatesURL string
	statsURL   string
	now        func() time.Time
}

type LoaderOpts struct {
	Client     client.Getter
	Store      Store
	CacheKey   string
	UpdatesURL string
	StatsURL   string
	Now        func() time.Time
}

func NewLoader(opts LoaderOpts) *Loader {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Loader{
		client:     opts.Client,
		store:      opts.Store,
		key:        opts.CacheKey,
		updatesURL: opts.UpdatesURL,
		statsURL:   opts.StatsURL,
		now:        now,
	}
}

func (l *Loader) UpdatesURL() string {
	return l.updatesURL
}

// LoadUpdates fetches the updates endpoint. On success the records are
// cached; on failure the last cached records are returned if there are any.
func (l *Loader) LoadUpdates(ctx context.Context) Result {
	id := uuid.NewString()
	entry := log.WithFields(log.Fields{"load_id": id, "url": l.updatesURL})

	records, err := l.fetchUpdates(ctx)
	if err == nil {
		now := l.now()
		if err := l.save(Snapshot{At: now.UnixMilli(), Updates: records}); err != nil {
			entry.WithError(err).Warn("Caching updates failed")
		}
		entry.WithField("count", len(records)).Info("Updates loaded")
		return Result{ID: id, Status: StatusOnline, Records: records, FetchedAt: now}
	}

	entry.WithError(err).Warn("Updates fetch failed")
	res := Result{ID: id, Status: StatusOffline, Err: err}
	if snap, ok := l.Cached(); ok && len(snap.Updates) > 0 {
		res.FromCache = true
		res.Records = snap.Updates
		res.CachedAt = snap.Time()
	}
	return res
}

func (l *Loader) fetchUpdates(ctx context.Context) ([]Record, error) {
	payload, err := l.client.Get(ctx, l.updatesURL)
	if err != nil {
		return nil, err
	}
	return Normalize(payload)
}

func (l *Loader) save(s Snapshot) error {
	if s.Updates == nil {
		s.Updates = []Record{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return l.store.Put(l.key, data)
}

// Cached returns the last stored snapshot. A missing or unreadable entry is
// reported as absent.
func (l *Loader) Cached() (Snapshot, bool) {
	entry, err := l.store.Get(l.key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.WithError(err).Warn("Reading cached updates failed")
		}
		return Snapshot{}, false
	}
	var s Snapshot
	if err := json.Unmarshal(entry.Value, &s); err != nil {
		log.WithError(err).Debug("Ignoring unreadable cache entry")
		return Snapshot{}, false
	}
	return s, true
}

// CachedRecords is the sequence the filter re-renders from.
func (l *Loader) CachedRecords() []Record {
	s, _ := l.Cached()
	return s.Updates
}

// LoadStats fetches the stats endpoint and returns it pretty-printed, or
// StatsUnavailable on any failure.
func (l *Loader) LoadStats(ctx context.Context) string {
	payload, err := l.client.Get(ctx, l.statsURL)
	if err != nil {
		log.WithError(err).WithField("url", l.statsURL).Debug("Stats fetch failed")
		return StatsUnavailable
	}
	text, err := PrettyJSON(payload)
	if err != nil {
		return StatsUnavailable
	}
	return text
}

// PrettyJSON renders a payload as two-space indented JSON, keeping the key
// order of the response body.
func PrettyJSON(p *client.Payload) (string, error) {
	if p.IsJSON() {
		if p.Value == nil {
			return "null", nil
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, bytes.TrimSpace(p.Raw), "", "  "); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p.Text()); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

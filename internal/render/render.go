// Package render turns update records into display text and HTML.
package render

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/samber/lo"
)

// DisplayLayout is a medium date plus short time.
const DisplayLayout = "Jan 2, 2006, 3:04 PM"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape makes s safe to interpolate into HTML text and attribute values.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Filter keeps records whose title, text and body contain query,
// case-insensitively. A blank query keeps everything.
func Filter(records []feed.Record, query string) []feed.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}
	return lo.Filter(records, func(r feed.Record, _ int) bool {
		return strings.Contains(strings.ToLower(r.SearchText()), q)
	})
}

// FormatTime formats a raw timestamp in loc. Numbers are epoch milliseconds;
// strings are parsed leniently. Anything unparseable is returned as-is.
func FormatTime(v any, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.In(loc).Format(DisplayLayout)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return feed.Stringify(v)
		}
		return time.UnixMilli(int64(t)).In(loc).Format(DisplayLayout)
	case int64:
		return time.UnixMilli(t).In(loc).Format(DisplayLayout)
	case string:
		parsed, err := dateparse.ParseIn(t, loc)
		if err != nil {
			return t
		}
		return parsed.In(loc).Format(DisplayLayout)
	default:
		return feed.Stringify(v)
	}
}

// Item is a record resolved for display.
type Item struct {
	Title string
	Tag   string
	When  string
	Text  string
}

func Items(records []feed.Record, loc *time.Location) []Item {
	return lo.Map(records, func(r feed.Record, _ int) Item {
		var when string
		if d := r.Date(); d != nil {
			when = FormatTime(d, loc)
		}
		return Item{Title: r.Title(), Tag: r.Tag(), When: when, Text: r.Text()}
	})
}

// Note is the line shown under the list after a load.
func Note(res feed.Result, loc *time.Location) string {
	switch {
	case res.Status == feed.StatusOnline:
		return "Last updated: " + FormatTime(res.FetchedAt, loc)
	case res.FromCache:
		return "API failed. Showing cached updates from " + FormatTime(res.CachedAt, loc) + "."
	case res.Status == feed.StatusOffline:
		return res.ErrorText()
	default:
		return ""
	}
}

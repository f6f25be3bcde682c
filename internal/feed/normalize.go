package feed

import (
	"errors"
	"strings"
	"time"

	"github.com/matheuskafuri/xupdate/internal/client"
	"github.com/mmcdole/gofeed"
)

// ErrUnexpectedShape is returned when a JSON response body could not be
// decoded into anything usable.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Normalize extracts the update sequence from a response. Accepted shapes are
// a bare array, an object wrapping the array under "updates" or "data", and an
// RSS/Atom/JSON Feed document. Any other body yields an empty sequence.
func Normalize(p *client.Payload) ([]Record, error) {
	if p == nil {
		return nil, ErrUnexpectedShape
	}

	switch v := p.Value.(type) {
	case nil:
		return nil, ErrUnexpectedShape
	case []any:
		return fromArray(v), nil
	case map[string]any:
		for _, key := range []string{"updates", "data"} {
			if inner := v[key]; truthy(inner) {
				if arr, ok := inner.([]any); ok {
					return fromArray(arr), nil
				}
				return []Record{}, nil
			}
		}
		return []Record{}, nil
	case string:
		if records, ok := fromFeed(v); ok {
			return records, nil
		}
		return []Record{}, nil
	default:
		return []Record{}, nil
	}
}

func fromArray(arr []any) []Record {
	out := make([]Record, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			out = append(out, Record{})
			continue
		}
		out = append(out, Record(m))
	}
	return out
}

func fromFeed(body string) ([]Record, bool) {
	if strings.TrimSpace(body) == "" {
		return nil, false
	}
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, false
	}

	out := make([]Record, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		r := Record{}
		setIf(r, "title", item.Title)
		text := item.Description
		if text == "" {
			text = item.Content
		}
		setIf(r, "text", text)
		switch {
		case item.PublishedParsed != nil:
			r["date"] = item.PublishedParsed.Format(time.RFC3339)
		case item.UpdatedParsed != nil:
			r["date"] = item.UpdatedParsed.Format(time.RFC3339)
		default:
			setIf(r, "date", item.Published)
		}
		if len(item.Categories) > 0 {
			setIf(r, "tag", item.Categories[0])
		}
		setIf(r, "link", item.Link)
		out = append(out, r)
	}
	return out, true
}

func setIf(r Record, key, value string) {
	if value != "" {
		r[key] = value
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single GET when no timeout is configured.
const DefaultTimeout = 12 * time.Second

// ErrTimeout is returned when a request does not complete within the timeout.
var ErrTimeout = errors.New("request timed out")

// StatusError is returned for responses outside the 2xx range. Data holds
// whatever body could be decoded.
type StatusError struct {
	StatusCode int
	Data       any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Payload is a decoded response body. For JSON responses Value is the decoded
// value (nil if the body did not parse); otherwise Value is the body text.
type Payload struct {
	ContentType string
	Value       any
	Raw         []byte
}

// IsJSON reports whether the response declared a JSON content type.
func (p *Payload) IsJSON() bool {
	return strings.Contains(p.ContentType, "json")
}

// Text returns the body as text when the response was not JSON.
func (p *Payload) Text() string {
	s, _ := p.Value.(string)
	return s
}

// Getter is the fetch-with-timeout contract used by the loaders.
type Getter interface {
	Get(ctx context.Context, url string) (*Payload, error)
}

type Client struct {
	http    *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Get issues a GET against url and aborts it once the timeout elapses.
func (c *Client) Get(ctx context.Context, url string) (*Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	endpoint := endpointLabel(url)
	payload, status, err := c.get(ctx, url)
	elapsed := time.Since(start)

	fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	fetchTotal.WithLabelValues(endpoint, outcome(err)).Inc()

	log.WithFields(log.Fields{
		"url":     url,
		"status":  status,
		"elapsed": elapsed,
	}).Debug("GET")

	return payload, err
}

func (c *Client) get(ctx context.Context, url string) (*Payload, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload := &Payload{ContentType: resp.Header.Get("Content-Type")}
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, resp.StatusCode, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}

	if payload.IsJSON() {
		// Undecodable JSON becomes nil rather than an error
		if readErr == nil {
			payload.Raw = raw
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				payload.Value = v
			}
		}
	} else {
		payload.Value = ""
		if readErr == nil {
			payload.Raw = raw
			payload.Value = string(raw)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return payload, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Data: payload.Value}
	}
	return payload, resp.StatusCode, nil
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

// endpointLabel keeps metric cardinality bounded to the last path segment.
func endpointLabel(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

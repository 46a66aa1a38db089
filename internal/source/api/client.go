// Package api fetches schedule items from the remote scheduling service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
)

// ErrUnauthorized signals that the service rejected the credentials.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(e.Body, 220))
}

type Options struct {
	BaseURL string
	Token   string
	// Rate is the sustained request rate per second; zero disables pacing.
	Rate       float64
	Burst      int
	Timeout    time.Duration
	HTTPClient *http.Client
	Location   *time.Location
	Logger     *zap.Logger
}

// Client is a window.Source backed by GET {base}/items.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	loc     *time.Location
	log     *zap.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("api base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %s", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Client{
		base:    base,
		token:   opts.Token,
		http:    httpClient,
		limiter: limiter,
		loc:     loc,
		log:     logging.OrNop(opts.Logger).Named("api"),
	}, nil
}

// Fetch returns the items starting on days in [start, end]. Records that
// cannot be decoded are logged and skipped.
func (c *Client) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	u := *c.base
	u.Path += "/items"
	q := u.Query()
	q.Set("start", start.String())
	q.Set("end", end.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request items: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("request items: %w", ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	// Records are decoded one at a time so a badly typed field only costs
	// that record.
	var decoded struct {
		Days map[string][]json.RawMessage `json:"days"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}

	batch := make(schedule.Batch, len(decoded.Days))
	for key, records := range decoded.Days {
		day, err := dates.ParseDay(key)
		if err != nil {
			c.log.Warn("skipping day with bad key", zap.String("day", key), zap.Int("records", len(records)))
			continue
		}
		if _, ok := batch[day]; !ok {
			batch[day] = []schedule.Item{}
		}
		for _, raw := range records {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				c.log.Warn("skipping malformed item", zap.String("item", idOf(raw)), zap.Error(err))
				continue
			}
			it, err := rec.Decode(c.loc)
			if err != nil {
				c.log.Warn("skipping malformed item", zap.String("item", rec.ID), zap.Error(err))
				continue
			}
			batch.Add(it)
		}
	}

	c.log.Debug("fetched items",
		zap.Stringer("start", start),
		zap.Stringer("end", end),
		zap.Int("items", batch.Len()))
	return batch, nil
}

// idOf pulls the id out of a record that failed to decode, for logging.
func idOf(raw json.RawMessage) string {
	var rec struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &rec)
	return rec.ID
}

// CurrentUser reads the subject claim of the bearer token. The signature
// is not checked; the service does that.
func (c *Client) CurrentUser() (string, error) {
	return SubjectOf(c.token)
}

// SubjectOf extracts the sub claim from a JWT without verifying it.
func SubjectOf(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", errors.New("no token")
	}
	claims := jwt.MapClaims{}
	parser := new(jwt.Parser)
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "..."
}

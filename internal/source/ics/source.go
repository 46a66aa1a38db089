// Package ics reads iCalendar files and feeds their events to the grid.
package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
)

type Options struct {
	Location       *time.Location
	HTTPClient     *http.Client
	MaxOccurrences int
	Logger         *zap.Logger
}

// Source reads one or more calendars, local paths or http(s) URLs, on
// every fetch.
type Source struct {
	origins []string
	loc     *time.Location
	http    *http.Client
	max     int
	log     *zap.Logger
}

func New(origins []string, opts Options) *Source {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}
	return &Source{
		origins: origins,
		loc:     opts.Location,
		http:    opts.HTTPClient,
		max:     opts.MaxOccurrences,
		log:     logging.OrNop(opts.Logger).Named("ics"),
	}
}

// Files returns the local calendar paths, for watching.
func (s *Source) Files() []string {
	var files []string
	for _, o := range s.origins {
		if !isURL(o) {
			files = append(files, o)
		}
	}
	return files
}

// Fetch expands every calendar over [start, end]. A calendar that cannot
// be read is logged and skipped; the fetch fails only if none could be.
func (s *Source) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	batch := schedule.Batch{}
	var errs []error

	for _, origin := range s.origins {
		body, err := s.read(ctx, origin)
		if err == nil {
			var events []vevent
			events, err = parse(bytes.NewReader(body), origin, s.log)
			if err == nil {
				x := expander{
					from:   start.Time(s.loc),
					to:     end.AddDays(1).Time(s.loc),
					loc:    s.loc,
					max:    s.max,
					origin: origin,
					log:    s.log,
				}
				for _, it := range x.expand(events) {
					batch.Add(it)
				}
				continue
			}
		}
		s.log.Error("calendar unavailable", zap.String("origin", origin), zap.Error(err))
		errs = append(errs, err)
	}

	if len(s.origins) > 0 && len(errs) == len(s.origins) {
		return nil, errors.Join(errs...)
	}
	return batch, nil
}

func (s *Source) read(ctx context.Context, origin string) ([]byte, error) {
	if !isURL(origin) {
		data, err := os.ReadFile(origin)
		if err != nil {
			return nil, fmt.Errorf("read calendar: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request calendar: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request calendar: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	return data, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

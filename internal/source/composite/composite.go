// Package composite merges several item sources into one.
package composite

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/window"
)

// Named pairs a source with the name it is logged under.
type Named struct {
	Name   string
	Source window.Source
}

// Source fetches from every member concurrently and merges the results.
// Items are deduplicated by id, the first member listed winning. Failed
// members are logged and skipped unless all of them fail.
type Source struct {
	mu      sync.RWMutex
	members []Named
	log     *zap.Logger
}

func New(log *zap.Logger, members ...Named) *Source {
	return &Source{
		members: members,
		log:     logging.OrNop(log).Named("composite"),
	}
}

func (c *Source) Add(name string, src window.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = append(c.members, Named{Name: name, Source: src})
}

func (c *Source) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

func (c *Source) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	c.mu.RLock()
	members := append([]Named(nil), c.members...)
	c.mu.RUnlock()

	if len(members) == 0 {
		return nil, window.ErrNoSource
	}

	batches := make([]schedule.Batch, len(members))
	errs := make([]error, len(members))
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m Named) {
			defer wg.Done()
			batches[i], errs[i] = m.Source.Fetch(ctx, start, end)
		}(i, m)
	}
	wg.Wait()

	merged := schedule.Batch{}
	seen := make(map[string]bool)
	failed := 0
	for i, m := range members {
		if errs[i] != nil {
			failed++
			c.log.Warn("source failed", zap.String("source", m.Name), zap.Error(errs[i]))
			continue
		}
		for d := start; !d.After(end); d = d.AddDays(1) {
			if _, ok := merged[d]; !ok {
				merged[d] = nil
			}
			for _, it := range batches[i][d] {
				if seen[it.ID] {
					continue
				}
				seen[it.ID] = true
				merged[d] = append(merged[d], it)
			}
		}
	}

	if failed == len(members) {
		return nil, errors.Join(errs...)
	}
	return merged, nil
}

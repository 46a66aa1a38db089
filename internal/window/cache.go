// Package window keeps a day-keyed cache of schedule items in step with the
// visible date window.
package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
)

const (
	// DefaultPadding is how many days either side of the window are fetched.
	DefaultPadding = 7
	// DefaultMaxDays bounds the number of cached day buckets.
	DefaultMaxDays = 372
)

// ErrNoSource is reported when the cache has nothing to fetch from.
var ErrNoSource = errors.New("no item source configured")

// Source fetches every item starting on a day in [start, end].
type Source interface {
	Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, start, end dates.Day) (schedule.Batch, error)

func (f SourceFunc) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	return f(ctx, start, end)
}

// Options configure a Cache. Zero values select the defaults; a negative
// Padding fetches exactly the visible days.
type Options struct {
	Padding  int
	MaxDays  int
	Location *time.Location
	Logger   *zap.Logger
}

// State is what the view needs to show progress and failures.
type State struct {
	Window  []time.Time
	Loading bool
	Err     error
}

type status int

const (
	statusIdle status = iota
	statusInFlight
	statusLoaded
	statusFailed
)

// Cache maps calendar days to the items starting on them. A day is either
// absent (never fetched) or present with its complete, possibly empty,
// list. Fetches are tagged with a generation; only the result of the most
// recent request is ever applied.
type Cache struct {
	mu sync.Mutex

	src     Source
	padding int
	maxDays int
	loc     *time.Location
	log     *zap.Logger

	buckets map[dates.Day][]schedule.Item
	window  []time.Time
	gen     uint64
	status  status
	err     error
}

// New creates a cache over src. src may be nil, in which case every
// window change fails with ErrNoSource.
func New(src Source, opts Options) *Cache {
	if opts.Padding < 0 {
		opts.Padding = 0
	} else if opts.Padding == 0 {
		opts.Padding = DefaultPadding
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultMaxDays
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Cache{
		src:     src,
		padding: opts.Padding,
		maxDays: opts.MaxDays,
		loc:     opts.Location,
		log:     logging.OrNop(opts.Logger).Named("window"),
		buckets: make(map[dates.Day][]schedule.Item),
	}
}

// Fetch is one outstanding request for a padded range. Do may run on any
// goroutine; its Result must be handed back to Apply.
type Fetch struct {
	Gen   uint64
	Start dates.Day
	End   dates.Day

	src Source
}

// Result is the outcome of a Fetch.
type Result struct {
	Gen   uint64
	Start dates.Day
	End   dates.Day
	Batch schedule.Batch
	Err   error
}

// Do calls the source. It never touches the cache.
func (f *Fetch) Do(ctx context.Context) Result {
	r := Result{Gen: f.Gen, Start: f.Start, End: f.End}
	batch, err := f.src.Fetch(ctx, f.Start, f.End)
	if err != nil {
		r.Err = fmt.Errorf("fetch %s..%s: %w", f.Start, f.End, err)
		return r
	}
	r.Batch = batch
	return r
}

// SetWindow declares the visible days. It returns the fetch to run, or nil
// when the window is unchanged and its data is loaded or already on its
// way. A window whose last fetch failed is fetched again.
func (c *Cache) SetWindow(days []time.Time) *Fetch {
	c.mu.Lock()
	defer c.mu.Unlock()

	norm := make([]time.Time, len(days))
	for i, d := range days {
		norm[i] = dates.DayOf(d).Time(c.loc)
	}

	if sameDays(norm, c.window) && (c.status == statusInFlight || c.status == statusLoaded) {
		return nil
	}
	c.window = norm
	if len(norm) == 0 {
		c.gen++
		c.status = statusIdle
		c.err = nil
		return nil
	}
	return c.beginLocked()
}

// Refresh refetches the current window regardless of its state.
func (c *Cache) Refresh() *Fetch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.window) == 0 {
		return nil
	}
	return c.beginLocked()
}

func (c *Cache) beginLocked() *Fetch {
	c.gen++
	if c.src == nil {
		c.status = statusFailed
		c.err = ErrNoSource
		return nil
	}
	c.status = statusInFlight
	c.err = nil

	first, last, _ := dates.Span(c.window)
	f := &Fetch{
		Gen:   c.gen,
		Start: first.AddDays(-c.padding),
		End:   last.AddDays(c.padding),
		src:   c.src,
	}
	c.log.Debug("fetching window",
		zap.Uint64("gen", f.Gen),
		zap.Stringer("start", f.Start),
		zap.Stringer("end", f.End))
	return f
}

// Apply commits a fetch result. It returns false when the result belongs
// to a superseded request and was dropped. A failed result leaves the
// cached buckets untouched and records the error.
func (c *Cache) Apply(r Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Gen != c.gen {
		c.log.Debug("dropping stale response",
			zap.Uint64("gen", r.Gen),
			zap.Uint64("current", c.gen))
		return false
	}

	if r.Err != nil {
		c.status = statusFailed
		c.err = r.Err
		c.log.Error("window fetch failed", zap.Error(r.Err))
		return true
	}

	fresh := make(map[dates.Day][]schedule.Item, r.End.Sub(r.Start)+1)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		fresh[d] = []schedule.Item{}
	}

	keys := make([]dates.Day, 0, len(r.Batch))
	for d := range r.Batch {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	skipped := 0
	for _, key := range keys {
		for _, it := range r.Batch[key] {
			if err := it.Validate(); err != nil {
				c.log.Warn("skipping malformed item", zap.String("item", it.ID), zap.Error(err))
				skipped++
				continue
			}
			day := dates.DayOf(it.Start.In(c.loc))
			bucket, ok := fresh[day]
			if !ok {
				c.log.Warn("skipping item outside fetched range",
					zap.String("item", it.ID),
					zap.Stringer("day", day))
				skipped++
				continue
			}
			fresh[day] = append(bucket, it)
		}
	}

	for d, items := range fresh {
		c.buckets[d] = items
	}
	c.status = statusLoaded
	c.err = nil
	c.evictLocked(r.Start, r.End)

	c.log.Debug("applied window",
		zap.Uint64("gen", r.Gen),
		zap.Int("days", len(fresh)),
		zap.Int("skipped", skipped))
	return true
}

// Load sets the window and, if a fetch is needed, runs and applies it.
func (c *Cache) Load(ctx context.Context, days []time.Time) error {
	f := c.SetWindow(days)
	if f == nil {
		return c.State().Err
	}
	r := f.Do(ctx)
	c.Apply(r)
	return r.Err
}

// evictLocked drops the buckets farthest from the window until the cache
// fits. Days of the range just fetched are never evicted.
func (c *Cache) evictLocked(keepStart, keepEnd dates.Day) {
	limit := c.maxDays
	if span := keepEnd.Sub(keepStart) + 1; limit < span {
		limit = span
	}
	if len(c.buckets) <= limit {
		return
	}

	first, last, _ := dates.Span(c.window)
	distance := func(d dates.Day) int {
		switch {
		case d.Before(first):
			return first.Sub(d)
		case d.After(last):
			return d.Sub(last)
		default:
			return 0
		}
	}

	var candidates []dates.Day
	for d := range c.buckets {
		if d.Before(keepStart) || d.After(keepEnd) {
			candidates = append(candidates, d)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := distance(candidates[i]), distance(candidates[j])
		if di != dj {
			return di > dj
		}
		return candidates[i].Before(candidates[j])
	})

	excess := len(c.buckets) - limit
	for _, d := range candidates[:excess] {
		delete(c.buckets, d)
	}
	c.log.Debug("evicted cached days", zap.Int("count", excess))
}

// VisibleItems returns every cached item starting on a visible day.
func (c *Cache) VisibleItems() []schedule.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []schedule.Item{}
	for _, d := range c.window {
		out = append(out, c.buckets[dates.DayOf(d)]...)
	}
	return out
}

// Bucket returns the items cached for t's calendar date. The time of day
// is ignored. ok is false when the day was never fetched.
func (c *Cache) Bucket(t time.Time) ([]schedule.Item, bool) {
	return c.Day(dates.DayOf(t))
}

// Day is Bucket keyed by a civil date.
func (c *Cache) Day(d dates.Day) ([]schedule.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.buckets[d]
	if !ok {
		return nil, false
	}
	return append([]schedule.Item(nil), items...), true
}

// Item finds a cached item by id. Visible days are searched first, in
// order, then the other cached days by date, so an id that appears on
// several days always resolves to the same item.
func (c *Cache) Item(id string) (schedule.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := make(map[dates.Day]bool, len(c.window))
	order := make([]dates.Day, 0, len(c.buckets))
	for _, t := range c.window {
		d := dates.DayOf(t)
		visible[d] = true
		order = append(order, d)
	}
	rest := make([]dates.Day, 0, len(c.buckets))
	for d := range c.buckets {
		if !visible[d] {
			rest = append(rest, d)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Before(rest[j]) })
	order = append(order, rest...)

	for _, d := range order {
		for _, it := range c.buckets[d] {
			if it.ID == id {
				return it, true
			}
		}
	}
	return schedule.Item{}, false
}

// Len reports how many days are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// State returns a snapshot of the window and fetch status.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Window:  append([]time.Time(nil), c.window...),
		Loading: c.status == statusInFlight,
		Err:     c.err,
	}
}

// Location is the zone items are bucketed in.
func (c *Cache) Location() *time.Location {
	return c.loc
}

func sameDays(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Package calendar ties the window cache, the layout engine and the zoom
// setting together behind the operations a view needs.
package calendar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/settings"
	"github.com/cwarden/timegrid/internal/window"
)

// ZoomKey is the settings key the zoom percentage is stored under.
const ZoomKey = "zoom"

// ActivateFunc receives an activated item's kind and payload. What to do
// with them is up to the view.
type ActivateFunc func(id string, kind schedule.Kind, payload schedule.Payload)

type Options struct {
	Mode          dates.Mode
	WeekStart     time.Weekday
	Reference     time.Time
	PixelsPerHour float64
	Strategy      schedule.Strategy
	// Zoom is used when the settings store holds no zoom yet.
	Zoom       int
	Settings   settings.Store
	OnActivate ActivateFunc
	Logger     *zap.Logger
	Now        func() time.Time
}

// Calendar is the state behind one time-grid view. It is not safe for
// concurrent use; the cache it wraps is.
type Calendar struct {
	cache *window.Cache

	mode      dates.Mode
	ref       time.Time
	weekStart time.Weekday
	basePPH   float64
	strategy  schedule.Strategy
	zoom      int

	store      settings.Store
	onActivate ActivateFunc
	log        *zap.Logger
	now        func() time.Time
}

func New(cache *window.Cache, opts Options) *Calendar {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Settings == nil {
		opts.Settings = settings.NewMemStore()
	}
	if opts.Reference.IsZero() {
		opts.Reference = opts.Now()
	}
	if opts.PixelsPerHour <= 0 {
		opts.PixelsPerHour = schedule.BasePixelsPerHour
	}

	zoom := schedule.DefaultZoom
	if opts.Zoom != 0 {
		zoom = schedule.ClampZoom(opts.Zoom)
	}
	if stored, ok := opts.Settings.Get(ZoomKey); ok {
		zoom = schedule.ParseZoom(stored)
	}

	return &Calendar{
		cache:      cache,
		mode:       opts.Mode,
		ref:        opts.Reference.In(cache.Location()),
		weekStart:  opts.WeekStart,
		basePPH:    opts.PixelsPerHour,
		strategy:   opts.Strategy,
		zoom:       zoom,
		store:      opts.Settings,
		onActivate: opts.OnActivate,
		log:        logging.OrNop(opts.Logger).Named("calendar"),
		now:        opts.Now,
	}
}

func (c *Calendar) Mode() dates.Mode { return c.mode }

func (c *Calendar) Reference() time.Time { return c.ref }

func (c *Calendar) Strategy() schedule.Strategy { return c.strategy }

// Window is the list of visible days for the current mode and reference.
func (c *Calendar) Window() []time.Time {
	return dates.Window(c.mode, c.ref, c.weekStart)
}

// Sync tells the cache about the current window. The returned fetch, if
// any, must be run and its result passed to Apply.
func (c *Calendar) Sync() *window.Fetch {
	return c.cache.SetWindow(c.Window())
}

// Navigate moves the reference by n days, weeks or months.
func (c *Calendar) Navigate(n int) *window.Fetch {
	c.ref = dates.Step(c.mode, c.ref, n)
	return c.Sync()
}

func (c *Calendar) SetMode(m dates.Mode) *window.Fetch {
	c.mode = m
	return c.Sync()
}

func (c *Calendar) GoTo(t time.Time) *window.Fetch {
	c.ref = t.In(c.cache.Location())
	return c.Sync()
}

func (c *Calendar) Today() *window.Fetch {
	return c.GoTo(c.now())
}

// Refresh refetches the current window.
func (c *Calendar) Refresh() *window.Fetch {
	return c.cache.Refresh()
}

func (c *Calendar) Apply(r window.Result) bool {
	return c.cache.Apply(r)
}

// Load synchronizes and waits for the fetch, for callers without an event
// loop.
func (c *Calendar) Load(ctx context.Context) error {
	return c.cache.Load(ctx, c.Window())
}

func (c *Calendar) State() window.State {
	return c.cache.State()
}

// Items returns the cached items of the visible days.
func (c *Calendar) Items() []schedule.Item {
	return c.cache.VisibleItems()
}

// PixelsPerHour is the hour height at the current zoom.
func (c *Calendar) PixelsPerHour() float64 {
	return schedule.PixelsPerHour(c.basePPH, c.zoom)
}

// Geometry lays out the visible items at the current zoom.
func (c *Calendar) Geometry() []schedule.Geometry {
	return schedule.Layout(c.Items(), c.Window(), schedule.Options{
		PixelsPerHour: c.PixelsPerHour(),
		Strategy:      c.strategy,
	})
}

// Indicator places the current-time line, if today is visible.
func (c *Calendar) Indicator(now time.Time) (schedule.Indicator, bool) {
	return schedule.NowIndicator(now, c.Window(), c.PixelsPerHour())
}

func (c *Calendar) Zoom() int { return c.zoom }

// SetZoom clamps and persists the zoom. The new value takes effect even
// when persisting fails.
func (c *Calendar) SetZoom(pct int) error {
	pct = schedule.ClampZoom(pct)
	if pct == c.zoom {
		return nil
	}
	c.zoom = pct
	if err := c.store.Set(ZoomKey, strconv.Itoa(pct)); err != nil {
		c.log.Warn("could not persist zoom", zap.Int("zoom", pct), zap.Error(err))
		return fmt.Errorf("save zoom: %w", err)
	}
	return nil
}

func (c *Calendar) ZoomIn() error {
	return c.SetZoom(c.zoom + schedule.ZoomStep)
}

func (c *Calendar) ZoomOut() error {
	return c.SetZoom(c.zoom - schedule.ZoomStep)
}

// Activate looks up a cached item and hands its kind and payload to the
// activation hook.
func (c *Calendar) Activate(id string) (schedule.Item, bool) {
	it, ok := c.cache.Item(id)
	if !ok {
		c.log.Debug("activate unknown item", zap.String("item", id))
		return schedule.Item{}, false
	}
	if c.onActivate != nil {
		c.onActivate(it.ID, it.Kind(), it.Payload)
	}
	return it, true
}

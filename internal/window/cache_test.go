package window

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

// fakeSource serves items from a fixed list, filtered to the requested
// range, and records each call.
type fakeSource struct {
	mu    sync.Mutex
	items []schedule.Item
	err   error
	calls [][2]dates.Day
}

func (f *fakeSource) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]dates.Day{start, end})
	if f.err != nil {
		return nil, f.err
	}
	b := schedule.Batch{}
	for _, it := range f.items {
		d := dates.DayOf(it.Start)
		if d.Before(start) || d.After(end) {
			continue
		}
		b.Add(it)
	}
	return b, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func item(id string, start time.Time) schedule.Item {
	return schedule.Item{
		ID:              id,
		Title:           id,
		Start:           start,
		DurationMinutes: 30,
		Payload:         schedule.EventPayload{},
	}
}

func date(month time.Month, day, hour int) time.Time {
	return time.Date(2025, month, day, hour, 0, 0, 0, time.UTC)
}

func newCache(src Source) *Cache {
	return New(src, Options{Padding: 2, Location: time.UTC})
}

func ids(items []schedule.Item) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it.ID] = true
	}
	return m
}

func TestEmptyWeekHasNoError(t *testing.T) {
	src := &fakeSource{}
	c := newCache(src)
	week := dates.Week(date(time.September, 30, 0), time.Monday)

	if err := c.Load(context.Background(), week); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := c.VisibleItems()
	if got == nil || len(got) != 0 {
		t.Errorf("VisibleItems() = %v, want empty non-nil slice", got)
	}
	st := c.State()
	if st.Err != nil || st.Loading {
		t.Errorf("state = %+v, want idle without error", st)
	}
	if len(st.Window) != 7 {
		t.Errorf("window length = %d, want 7", len(st.Window))
	}
}

func TestSetWindowIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	c := newCache(src)
	week := dates.Week(date(time.September, 30, 0), time.Monday)

	f := c.SetWindow(week)
	if f == nil {
		t.Fatal("first SetWindow returned no fetch")
	}
	if again := c.SetWindow(week); again != nil {
		t.Error("SetWindow with an in-flight window started a second fetch")
	}
	c.Apply(f.Do(context.Background()))

	// Same days taken at a different time of day are the same window.
	shifted := make([]time.Time, len(week))
	for i, d := range week {
		shifted[i] = d.Add(13 * time.Hour)
	}
	if again := c.SetWindow(shifted); again != nil {
		t.Error("SetWindow with a loaded window started a fetch")
	}
	if n := src.callCount(); n != 1 {
		t.Errorf("source called %d times, want 1", n)
	}
}

func TestPaddedRange(t *testing.T) {
	src := &fakeSource{}
	c := newCache(src)
	week := dates.Week(date(time.September, 30, 0), time.Monday)

	f := c.SetWindow(week)
	wantStart := dates.Day{Year: 2025, Month: time.September, Day: 27}
	wantEnd := dates.Day{Year: 2025, Month: time.October, Day: 7}
	if f.Start != wantStart || f.End != wantEnd {
		t.Errorf("range = %s..%s, want %s..%s", f.Start, f.End, wantStart, wantEnd)
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{
		item("september", date(time.September, 10, 9)),
		item("november", date(time.November, 12, 9)),
	}}
	c := newCache(src)
	ctx := context.Background()

	f1 := c.SetWindow(dates.Week(date(time.September, 10, 0), time.Monday))
	f2 := c.SetWindow(dates.Week(date(time.November, 12, 0), time.Monday))

	if !c.Apply(f2.Do(ctx)) {
		t.Fatal("current response was not applied")
	}
	if c.Apply(f1.Do(ctx)) {
		t.Error("stale response was applied")
	}

	got := ids(c.VisibleItems())
	if !got["november"] || got["september"] {
		t.Errorf("visible = %v, want only november", got)
	}
	if st := c.State(); st.Err != nil || st.Loading {
		t.Errorf("state = %+v after stale drop", st)
	}
	if _, ok := c.Bucket(date(time.September, 10, 0)); ok {
		t.Error("stale response wrote a bucket")
	}
}

func TestStaleFailureIsDropped(t *testing.T) {
	c := newCache(&fakeSource{})
	f1 := c.SetWindow(dates.DayWindow(date(time.October, 1, 0)))
	f2 := c.SetWindow(dates.DayWindow(date(time.October, 2, 0)))

	c.Apply(f2.Do(context.Background()))
	if c.Apply(Result{Gen: f1.Gen, Err: errors.New("timeout")}) {
		t.Error("stale failure was applied")
	}
	if err := c.State().Err; err != nil {
		t.Errorf("state error = %v, want nil", err)
	}
}

func TestFailureKeepsContents(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{item("a", date(time.October, 1, 9))}}
	c := newCache(src)
	ctx := context.Background()
	day := dates.DayWindow(date(time.October, 1, 0))

	if err := c.Load(ctx, day); err != nil {
		t.Fatalf("Load: %v", err)
	}

	src.err = errors.New("connection refused")
	f := c.Refresh()
	if f == nil {
		t.Fatal("Refresh returned no fetch")
	}
	if st := c.State(); !st.Loading {
		t.Error("state not loading during refresh")
	}
	c.Apply(f.Do(ctx))

	st := c.State()
	if st.Err == nil || st.Loading {
		t.Errorf("state = %+v, want error and not loading", st)
	}
	if !errors.Is(st.Err, src.err) {
		t.Errorf("error %v does not wrap the source error", st.Err)
	}
	if got := ids(c.VisibleItems()); !got["a"] {
		t.Errorf("previous contents lost: %v", got)
	}
}

func TestFailedWindowIsRefetched(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	c := newCache(src)
	day := dates.DayWindow(date(time.October, 1, 0))

	if err := c.Load(context.Background(), day); err == nil {
		t.Fatal("expected fetch error")
	}
	src.err = nil
	if err := c.Load(context.Background(), day); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := src.callCount(); n != 2 {
		t.Errorf("source called %d times, want 2", n)
	}
}

func TestNoSource(t *testing.T) {
	c := New(nil, Options{})
	err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0)))
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Load error = %v, want ErrNoSource", err)
	}
}

func TestEmptyDaysArePresent(t *testing.T) {
	c := newCache(&fakeSource{})
	if err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}
	for _, d := range []int{29, 30} {
		items, ok := c.Bucket(date(time.September, d, 0))
		if !ok || len(items) != 0 {
			t.Errorf("Sep %d: items=%v ok=%v, want present and empty", d, items, ok)
		}
	}
	if _, ok := c.Bucket(date(time.September, 28, 0)); ok {
		t.Error("day outside padded range is present")
	}
}

func TestBucketIgnoresTimeOfDay(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{
		item("morning", date(time.October, 1, 8)),
		item("evening", date(time.October, 1, 20)),
	}}
	c := newCache(src)
	if err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}

	midnight, _ := c.Bucket(date(time.October, 1, 0))
	for _, h := range []int{1, 12, 23} {
		got, ok := c.Bucket(date(time.October, 1, h))
		if !ok || len(got) != len(midnight) || len(got) != 2 {
			t.Errorf("hour %d: %d items (ok=%v), want 2", h, len(got), ok)
		}
	}
}

func TestMergeKeepsOtherDays(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{
		item("early", date(time.October, 1, 9)),
		item("late", date(time.October, 20, 9)),
	}}
	c := newCache(src)
	ctx := context.Background()

	if err := c.Load(ctx, dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(ctx, dates.DayWindow(date(time.October, 20, 0))); err != nil {
		t.Fatal(err)
	}
	if items, ok := c.Bucket(date(time.October, 1, 0)); !ok || len(items) != 1 {
		t.Errorf("earlier window evicted: items=%v ok=%v", items, ok)
	}
	if got := ids(c.VisibleItems()); !got["late"] || got["early"] {
		t.Errorf("visible = %v, want only late", got)
	}
}

func TestRefetchReplacesBuckets(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{item("old", date(time.October, 1, 9))}}
	c := newCache(src)
	ctx := context.Background()
	day := dates.DayWindow(date(time.October, 1, 0))

	if err := c.Load(ctx, day); err != nil {
		t.Fatal(err)
	}
	src.items = []schedule.Item{item("new", date(time.October, 1, 10))}
	c.Apply(c.Refresh().Do(ctx))

	if got := ids(c.VisibleItems()); got["old"] || !got["new"] {
		t.Errorf("visible = %v, want only new", got)
	}
}

func TestMalformedAndMisplacedItemsAreSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	day := dates.Day{Year: 2025, Month: time.October, Day: 1}
	src := SourceFunc(func(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
		return schedule.Batch{
			day: {
				item("good", date(time.October, 1, 9)),
				{ID: "", Start: date(time.October, 1, 10), Payload: schedule.EventPayload{}},
				{ID: "no-start", Payload: schedule.EventPayload{}},
				// Filed under the wrong key; it belongs to Oct 2.
				item("rekeyed", date(time.October, 2, 9)),
				// Outside the requested range.
				item("far", date(time.December, 1, 9)),
			},
		}, nil
	})
	c := New(src, Options{Padding: 1, Location: time.UTC, Logger: zap.New(core)})

	if err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}

	got := ids(c.VisibleItems())
	if len(got) != 1 || !got["good"] {
		t.Errorf("visible = %v, want only good", got)
	}
	if items, _ := c.Bucket(date(time.October, 2, 0)); len(items) != 1 || items[0].ID != "rekeyed" {
		t.Errorf("Oct 2 bucket = %v, want rekeyed", items)
	}
	if n := logs.Len(); n != 3 {
		t.Errorf("logged %d warnings, want 3", n)
	}
}

func TestEvictionPrefersDistantDays(t *testing.T) {
	c := New(&fakeSource{}, Options{Padding: 1, MaxDays: 6, Location: time.UTC})
	ctx := context.Background()

	for _, d := range []int{1, 10, 11} {
		if err := c.Load(ctx, dates.DayWindow(date(time.October, d, 0))); err != nil {
			t.Fatal(err)
		}
	}
	if n := c.Len(); n != 6 {
		t.Errorf("cached days = %d, want 6", n)
	}
	if _, ok := c.Bucket(date(time.September, 30, 0)); ok {
		t.Error("farthest day was kept")
	}
	for _, d := range []int{9, 10, 11, 12} {
		if _, ok := c.Bucket(date(time.October, d, 0)); !ok {
			t.Errorf("Oct %d evicted", d)
		}
	}
}

func TestItemLookup(t *testing.T) {
	src := &fakeSource{items: []schedule.Item{item("a", date(time.October, 1, 9))}}
	c := newCache(src)
	if err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}
	if it, ok := c.Item("a"); !ok || it.Title != "a" {
		t.Errorf("Item(a) = %+v, %v", it, ok)
	}
	if _, ok := c.Item("missing"); ok {
		t.Error("found missing item")
	}
}

func TestItemLookupPrefersVisibleDays(t *testing.T) {
	titled := func(id, title string, start time.Time) schedule.Item {
		it := item(id, start)
		it.Title = title
		return it
	}
	src := &fakeSource{items: []schedule.Item{
		titled("dup", "before", date(time.September, 30, 9)),
		titled("dup", "visible", date(time.October, 1, 9)),
		titled("dup", "after", date(time.October, 2, 9)),
		titled("hidden", "later", date(time.October, 3, 9)),
		titled("hidden", "earlier", date(time.October, 2, 9)),
	}}
	c := newCache(src)
	if err := c.Load(context.Background(), dates.DayWindow(date(time.October, 1, 0))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		want string
	}{
		{"dup", "visible"},
		{"hidden", "earlier"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				it, ok := c.Item(tt.id)
				if !ok || it.Title != tt.want {
					t.Fatalf("Item(%s) = %q, %v, want %q", tt.id, it.Title, ok, tt.want)
				}
			}
		})
	}
}

func TestConcurrentFetchesLastRequestWins(t *testing.T) {
	release := make(chan struct{})
	src := SourceFunc(func(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
		<-release
		b := schedule.Batch{}
		b.Add(item(start.String(), start.Time(time.UTC).Add(9*time.Hour)))
		return b, nil
	})
	c := New(src, Options{Padding: -1, Location: time.UTC})

	var fetches []*Fetch
	for d := 1; d <= 5; d++ {
		fetches = append(fetches, c.SetWindow(dates.DayWindow(date(time.October, d, 0))))
	}

	results := make(chan Result, len(fetches))
	var wg sync.WaitGroup
	for _, f := range fetches {
		wg.Add(1)
		go func(f *Fetch) {
			defer wg.Done()
			results <- f.Do(context.Background())
		}(f)
	}
	close(release)
	wg.Wait()
	close(results)

	applied := 0
	for r := range results {
		if c.Apply(r) {
			applied++
		}
	}
	if applied != 1 {
		t.Errorf("applied %d results, want 1", applied)
	}
	got := c.VisibleItems()
	if len(got) != 1 || got[0].ID != "2025-10-05" {
		t.Errorf("visible = %v, want the Oct 5 item", got)
	}
}

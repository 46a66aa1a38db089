package composite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/window"
)

var (
	sep30 = dates.Day{Year: 2025, Month: time.September, Day: 30}
	oct1  = dates.Day{Year: 2025, Month: time.October, Day: 1}
)

func item(id, title string, day dates.Day) schedule.Item {
	return schedule.Item{
		ID:              id,
		Title:           title,
		Start:           day.Time(time.UTC).Add(9 * time.Hour),
		DurationMinutes: 30,
		Payload:         schedule.EventPayload{},
	}
}

func fixed(items ...schedule.Item) window.Source {
	return window.SourceFunc(func(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
		b := schedule.Batch{}
		for _, it := range items {
			b.Add(it)
		}
		return b, nil
	})
}

func failing(msg string) window.Source {
	return window.SourceFunc(func(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
		return nil, errors.New(msg)
	})
}

func TestCompositeMergesAndDeduplicates(t *testing.T) {
	src := New(nil,
		Named{"ics", fixed(item("a", "from ics", sep30), item("b", "review", oct1))},
		Named{"api", fixed(item("a", "from api", sep30), item("c", "room", sep30))},
	)

	batch, err := src.Fetch(context.Background(), sep30, oct1)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 3 {
		t.Errorf("items = %d, want 3", batch.Len())
	}
	day := batch[sep30]
	if len(day) != 2 || day[0].Title != "from ics" || day[1].ID != "c" {
		t.Errorf("Sep 30 = %+v", day)
	}
}

func TestCompositeToleratesPartialFailure(t *testing.T) {
	src := New(nil, Named{"down", failing("connection refused")})
	src.Add("ics", fixed(item("a", "kept", sep30)))

	batch, err := src.Fetch(context.Background(), sep30, sep30)
	if err != nil {
		t.Fatalf("partial failure returned %v", err)
	}
	if batch.Len() != 1 {
		t.Errorf("items = %d, want 1", batch.Len())
	}
}

func TestCompositeFailsWhenAllFail(t *testing.T) {
	src := New(nil, Named{"a", failing("first")}, Named{"b", failing("second")})
	_, err := src.Fetch(context.Background(), sep30, sep30)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"first", "second"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestCompositeEmpty(t *testing.T) {
	if _, err := New(nil).Fetch(context.Background(), sep30, sep30); !errors.Is(err, window.ErrNoSource) {
		t.Errorf("error = %v, want ErrNoSource", err)
	}
}

func TestCompositeKeepsEmptyDays(t *testing.T) {
	src := New(nil, Named{"empty", fixed()})
	batch, err := src.Fetch(context.Background(), sep30, oct1)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []dates.Day{sep30, oct1} {
		if _, ok := batch[d]; !ok {
			t.Errorf("day %s missing from batch", d)
		}
	}
}

package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindEvent, KindRoomReservation} {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if _, err := ParseKind("meeting"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestItemKind(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want Kind
	}{
		{"event", Item{Payload: EventPayload{}}, KindEvent},
		{"reservation", Item{Payload: ReservationPayload{Room: "Blue"}}, KindRoomReservation},
		{"no payload", Item{}, KindEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItemValidate(t *testing.T) {
	start := at(30, 9, 0)
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{"valid", Item{ID: "a", Start: start, Payload: EventPayload{}}, false},
		{"negative duration is valid", Item{ID: "a", Start: start, DurationMinutes: -5, Payload: EventPayload{}}, false},
		{"missing id", Item{Start: start, Payload: EventPayload{}}, true},
		{"blank id", Item{ID: "  ", Start: start, Payload: EventPayload{}}, true},
		{"missing start", Item{ID: "a", Payload: EventPayload{}}, true},
		{"missing payload", Item{ID: "a", Start: start}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

func TestItemEnd(t *testing.T) {
	it := Item{Start: at(30, 9, 0), DurationMinutes: 45}
	if want := at(30, 9, 45); !it.End().Equal(want) {
		t.Errorf("End() = %v, want %v", it.End(), want)
	}
	it.DurationMinutes = -10
	if !it.End().Equal(it.Start) {
		t.Errorf("negative duration End() = %v, want start", it.End())
	}
}

func TestBatchAdd(t *testing.T) {
	b := Batch{}
	b.Add(event("a", at(30, 9, 0), 30))
	b.Add(event("b", at(30, 23, 59), 30))
	b.Add(event("c", at(29, 0, 0), 30))

	day := dates.Day{Year: 2025, Month: time.September, Day: 30}
	if got := len(b[day]); got != 2 {
		t.Errorf("items on %s = %d, want 2", day, got)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}

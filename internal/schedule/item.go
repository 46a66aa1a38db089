package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

// ErrMalformed marks an item that is missing required fields.
var ErrMalformed = errors.New("malformed item")

// Kind identifies which variant an item's payload is.
type Kind int

const (
	KindEvent Kind = iota
	KindRoomReservation
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindRoomReservation:
		return "room_reservation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the wire names of kinds back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event":
		return KindEvent, nil
	case "room_reservation", "roomreservation", "reservation":
		return KindRoomReservation, nil
	default:
		return 0, fmt.Errorf("unknown item kind: %q", s)
	}
}

// Payload is the kind-specific detail of an item. The set of
// implementations is closed: EventPayload and ReservationPayload.
type Payload interface {
	kind() Kind
}

// EventPayload carries the details of a calendar event.
type EventPayload struct {
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Organizer   string   `json:"organizer,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
}

func (EventPayload) kind() Kind { return KindEvent }

// ReservationPayload carries the details of a room booking.
type ReservationPayload struct {
	Room       string   `json:"room"`
	ReservedBy string   `json:"reservedBy,omitempty"`
	Purpose    string   `json:"purpose,omitempty"`
	Attendance []string `json:"attendance,omitempty"`
}

func (ReservationPayload) kind() Kind { return KindRoomReservation }

// Item is one schedulable entry. Items are values; nothing in the layout
// or cache mutates one after it has been decoded.
type Item struct {
	ID              string
	Title           string
	Start           time.Time
	DurationMinutes int
	Payload         Payload
}

// Kind reports the variant of the item's payload.
func (it Item) Kind() Kind {
	if it.Payload == nil {
		return KindEvent
	}
	return it.Payload.kind()
}

// Duration returns the non-negative duration of the item.
func (it Item) Duration() time.Duration {
	if it.DurationMinutes <= 0 {
		return 0
	}
	return time.Duration(it.DurationMinutes) * time.Minute
}

// End returns Start + Duration; equal to Start for degenerate items.
func (it Item) End() time.Time {
	return it.Start.Add(it.Duration())
}

// Day is the calendar date the item is bucketed under.
func (it Item) Day() dates.Day {
	return dates.DayOf(it.Start)
}

// Validate reports why an item cannot be placed on the grid. Zero or
// negative durations are valid.
func (it Item) Validate() error {
	switch {
	case strings.TrimSpace(it.ID) == "":
		return fmt.Errorf("%w: missing id", ErrMalformed)
	case it.Start.IsZero():
		return fmt.Errorf("%w: %s: missing start", ErrMalformed, it.ID)
	case it.Payload == nil:
		return fmt.Errorf("%w: %s: missing payload", ErrMalformed, it.ID)
	}
	return nil
}

// Batch maps each fetched calendar day to the items starting on it, in
// the order the collaborator returned them.
type Batch map[dates.Day][]Item

// Add appends it under its own start day.
func (b Batch) Add(it Item) {
	day := it.Day()
	b[day] = append(b[day], it)
}

// Len returns the total number of items in the batch.
func (b Batch) Len() int {
	n := 0
	for _, items := range b {
		n += len(items)
	}
	return n
}

package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

// Response is the body of GET /items: items grouped under ISO date keys.
type Response struct {
	Days map[string][]Record `json:"days"`
}

// Record is one item as it travels over the wire.
type Record struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Kind            string          `json:"kind"`
	Start           string          `json:"start"`
	DurationMinutes int             `json:"durationMinutes"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// Accepted start layouts, most specific first. Layouts without an offset
// are read in the decoder's location.
var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start %q", s)
}

// Decode converts a record into an item. Errors wrap schedule.ErrMalformed.
func (r Record) Decode(loc *time.Location) (schedule.Item, error) {
	if loc == nil {
		loc = time.Local
	}
	it := schedule.Item{
		ID:              r.ID,
		Title:           r.Title,
		DurationMinutes: r.DurationMinutes,
	}

	start, err := parseStart(r.Start, loc)
	if err != nil {
		return it, fmt.Errorf("%w: %s: %v", schedule.ErrMalformed, r.ID, err)
	}
	it.Start = start

	kind, err := schedule.ParseKind(r.Kind)
	if err != nil {
		return it, fmt.Errorf("%w: %s: %v", schedule.ErrMalformed, r.ID, err)
	}

	switch kind {
	case schedule.KindEvent:
		var p schedule.EventPayload
		if err := unmarshalPayload(r.Payload, &p); err != nil {
			return it, fmt.Errorf("%w: %s: event payload: %v", schedule.ErrMalformed, r.ID, err)
		}
		it.Payload = p
	case schedule.KindRoomReservation:
		var p schedule.ReservationPayload
		if err := unmarshalPayload(r.Payload, &p); err != nil {
			return it, fmt.Errorf("%w: %s: reservation payload: %v", schedule.ErrMalformed, r.ID, err)
		}
		it.Payload = p
	}

	if err := it.Validate(); err != nil {
		return it, err
	}
	return it, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Encode converts an item into its wire record.
func Encode(it schedule.Item) (Record, error) {
	r := Record{
		ID:              it.ID,
		Title:           it.Title,
		Kind:            it.Kind().String(),
		Start:           it.Start.Format(time.RFC3339),
		DurationMinutes: it.DurationMinutes,
	}
	if it.Payload != nil {
		raw, err := json.Marshal(it.Payload)
		if err != nil {
			return r, fmt.Errorf("encode payload %s: %w", it.ID, err)
		}
		r.Payload = raw
	}
	return r, nil
}

// EncodeBatch builds a response with a key for every day in [start, end],
// so clients can tell empty days from missing ones.
func EncodeBatch(b schedule.Batch, start, end dates.Day) (Response, error) {
	resp := Response{Days: make(map[string][]Record, end.Sub(start)+1)}
	for d := start; !d.After(end); d = d.AddDays(1) {
		resp.Days[d.String()] = []Record{}
	}
	for day, items := range b {
		key := day.String()
		for _, it := range items {
			rec, err := Encode(it)
			if err != nil {
				return Response{}, err
			}
			resp.Days[key] = append(resp.Days[key], rec)
		}
	}
	return resp, nil
}

package ics

import (
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/schedule"
)

const defaultMaxOccurrences = 5000

// occurrenceNamespace scopes the ids generated for calendar occurrences.
var occurrenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("timegrid:ics"))

type expander struct {
	from, to time.Time
	loc      *time.Location
	max      int
	origin   string
	log      *zap.Logger
}

// expand turns parsed events into items starting in [from, to). Recurring
// events are expanded with their EXDATEs removed; RECURRENCE-ID overrides
// replace the instance they name.
func (x expander) expand(events []vevent) []schedule.Item {
	base := make(map[string][]vevent)
	overrides := make(map[string][]vevent)
	var order []string
	for _, ev := range events {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := base[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	for uid, ovs := range overrides {
		for i := range ovs {
			ovs[i] = x.rebase(ovs[i])
		}
		overrides[uid] = ovs
	}

	var out []schedule.Item
	for _, uid := range order {
		for _, ev := range base[uid] {
			out = append(out, x.expandEvent(ev, overrides[uid])...)
		}
	}
	// Overrides whose series is not in the calendar stand on their own.
	for uid, ovs := range overrides {
		if _, ok := base[uid]; ok {
			continue
		}
		for _, ov := range ovs {
			if x.inRange(ov.Start) {
				out = append(out, x.item(ov, *ov.Recurrence, ov.Start, ov.End))
			}
		}
	}
	return out
}

func (x expander) expandEvent(ev vevent, overrides []vevent) []schedule.Item {
	ev = x.rebase(ev)
	if ev.RRule == "" {
		if !x.inRange(ev.Start) {
			return nil
		}
		return []schedule.Item{x.item(ev, ev.Start, ev.Start, ev.End)}
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		x.log.Warn("skipping event with bad RRULE",
			zap.String("uid", ev.UID),
			zap.String("rrule", ev.RRule),
			zap.Error(err))
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(x.from.In(ev.Start.Location()), x.to.In(ev.Start.Location()), true)
	if len(starts) > x.max {
		x.log.Warn("truncating recurrence", zap.String("uid", ev.UID), zap.Int("cap", x.max))
		starts = starts[:x.max]
	}

	// An override replaces its instance wherever either of them falls, so
	// it is placed by its own start, not by the instance it names.
	moved := make(map[time.Time]bool, len(overrides))
	var out []schedule.Item
	for _, ov := range overrides {
		key := ov.Recurrence.UTC()
		if moved[key] {
			continue
		}
		moved[key] = true
		if x.inRange(ov.Start) {
			out = append(out, x.item(ov, *ov.Recurrence, ov.Start, ov.End))
		}
	}

	length := ev.End.Sub(ev.Start)
	for _, s := range starts {
		if !x.inRange(s) || moved[s.UTC()] {
			continue
		}
		out = append(out, x.item(ev, s, s, s.Add(length)))
	}
	return out
}

// rebase moves an all-day event onto midnight of the same calendar date in
// the display location, since a DATE value names a day, not an instant.
func (x expander) rebase(ev vevent) vevent {
	if !ev.AllDay {
		return ev
	}
	onDate := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, x.loc)
	}
	ev.Start = onDate(ev.Start)
	ev.End = onDate(ev.End)
	for i, ex := range ev.ExDates {
		ev.ExDates[i] = onDate(ex)
	}
	if ev.Recurrence != nil {
		r := onDate(*ev.Recurrence)
		ev.Recurrence = &r
	}
	return ev
}

func (x expander) inRange(t time.Time) bool {
	return !t.Before(x.from) && t.Before(x.to)
}

// item builds the schedule item for one occurrence. key is the original
// instance start, so an overridden instance keeps its id.
func (x expander) item(ev vevent, key, start, end time.Time) schedule.Item {
	var minutes int
	if ev.AllDay {
		y, m, d := start.Date()
		ey, em, ed := end.Date()
		days := int(time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)).Hours() / 24)
		if days < 1 {
			days = 1
		}
		start = time.Date(y, m, d, 0, 0, 0, 0, x.loc)
		minutes = days * 24 * 60
	} else {
		start = start.In(x.loc)
		minutes = int(end.Sub(start).Minutes())
	}

	id := uuid.NewSHA1(occurrenceNamespace, []byte(ev.UID+"|"+key.UTC().Format(time.RFC3339)))
	return schedule.Item{
		ID:              id.String(),
		Title:           ev.Summary,
		Start:           start,
		DurationMinutes: minutes,
		Payload: schedule.EventPayload{
			Description: ev.Description,
			Location:    ev.Location,
			Organizer:   ev.Organizer,
			Attendees:   ev.Attendees,
			Tags:        ev.Categories,
			Source:      x.origin,
		},
	}
}

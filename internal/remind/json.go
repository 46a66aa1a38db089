package remind

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

// defaultPriority is what remind assigns when a reminder names none.
const defaultPriority = 5000

var entryNamespace = uuid.MustParse("6f1c2b0e-8a52-4d4e-9d55-3a8e2c0f7b14")

// Month is one element of the array printed by remind -ppp.
type Month struct {
	MonthName   string  `json:"monthname"`
	Year        int     `json:"year"`
	DaysInMonth int     `json:"daysinmonth"`
	FirstWkDay  int     `json:"firstwkday"`
	MondayFirst int     `json:"mondayfirst"`
	Entries     []Entry `json:"entries"`
}

// Entry is a single triggered reminder.
type Entry struct {
	Date     string   `json:"date"`
	Filename string   `json:"filename"`
	LineNo   int      `json:"lineno"`
	Duration *int     `json:"duration,omitempty"`
	Time     *int     `json:"time,omitempty"`
	Priority int      `json:"priority"`
	RawBody  string   `json:"rawbody"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags,omitempty"`
}

// ParseMonths decodes remind's JSON calendar output.
func ParseMonths(data []byte) ([]Month, error) {
	var months []Month
	if err := json.Unmarshal(data, &months); err != nil {
		return nil, fmt.Errorf("parse remind json: %w", err)
	}
	return months, nil
}

// Item converts the entry into a schedule item in loc. Untimed reminders
// span the whole day.
func (e Entry) Item(loc *time.Location) (schedule.Item, error) {
	day, err := dates.ParseDay(e.Date)
	if err != nil {
		return schedule.Item{}, fmt.Errorf("%w: %s:%d: %v", schedule.ErrMalformed, e.Filename, e.LineNo, err)
	}

	start := day.Time(loc)
	minutes := 24 * 60
	key := fmt.Sprintf("%s:%d:%s", e.Filename, e.LineNo, e.Date)
	if e.Time != nil {
		// remind times are wall clock minutes, not elapsed time since midnight.
		start = time.Date(day.Year, day.Month, day.Day, 0, *e.Time, 0, 0, loc)
		minutes = 0
		if e.Duration != nil {
			minutes = *e.Duration
		}
		key = fmt.Sprintf("%s@%d", key, *e.Time)
	}

	tags := append([]string(nil), e.Tags...)
	if p := priorityTag(e.Priority); p != "" {
		tags = append(tags, p)
	}

	it := schedule.Item{
		ID:              uuid.NewSHA1(entryNamespace, []byte(key)).String(),
		Title:           e.Body,
		Start:           start,
		DurationMinutes: minutes,
		Payload: schedule.EventPayload{
			Description: e.RawBody,
			Tags:        tags,
			Source:      fmt.Sprintf("%s:%d", e.Filename, e.LineNo),
		},
	}
	return it, it.Validate()
}

// Higher values mean more urgent; the default priority gets no tag.
func priorityTag(p int) string {
	switch {
	case p >= 7000:
		return "priority:high"
	case p >= 6000:
		return "priority:medium"
	case p > defaultPriority:
		return "priority:low"
	default:
		return ""
	}
}

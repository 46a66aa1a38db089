package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

func (m *Model) viewHelp() string {
	actions := make(map[string][]string)
	for key, action := range m.cfg.KeyBindings {
		actions[action] = append(actions[action], key)
	}
	names := make([]string, 0, len(actions))
	for action := range actions {
		names = append(names, action)
	}
	sort.Strings(names)

	lines := []string{
		m.styles.Header.Render("timegrid help"),
		"",
	}
	for _, action := range names {
		keys := actions[action]
		sort.Strings(keys)
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("  %-12s %s", strings.Join(keys, " "), action)))
	}
	lines = append(lines, "", m.styles.Help.Render("Press any key to return..."))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderSidebar(width int) string {
	lines := []string{
		m.styles.Header.Render(m.rangeLabel()),
		"",
	}
	if m.detail != nil {
		lines = append(lines, m.renderDetail(width-2))
	} else {
		lines = append(lines, m.styles.Help.Render(wordwrap.String("tab selects the next item, enter shows its details.", width-2)))
	}

	lines = append(lines, "", m.styles.Header.Render("Legend"))
	lines = append(lines,
		m.styles.Event.Render(" event "),
		m.styles.Reservation.Render(" room "),
	)
	if m.user != "" {
		lines = append(lines, m.styles.Mine.Render(" booked by "+m.user+" "))
	}
	return strings.Join(lines, "\n")
}

// renderDetail describes the activated item.
func (m *Model) renderDetail(width int) string {
	if m.detail == nil {
		return ""
	}
	it := *m.detail
	wrap := func(s string) string {
		if m.cfg.WrapText {
			return wordwrap.String(s, width)
		}
		return truncate.StringWithTail(s, uint(width), "…")
	}

	lines := []string{
		m.styles.Today.Render(wrap(it.Title)),
		wrap(it.Start.In(m.cal.Window()[0].Location()).Format(m.cfg.DateFormat) + " " + m.timeSpan(it)),
	}
	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, wrap(label+": "+value))
		}
	}

	switch it.Kind() {
	case schedule.KindRoomReservation:
		p, _ := it.Payload.(schedule.ReservationPayload)
		field("Room", p.Room)
		field("Reserved by", p.ReservedBy)
		field("Purpose", p.Purpose)
		field("Attendance", strings.Join(p.Attendance, ", "))
	case schedule.KindEvent:
		p, _ := it.Payload.(schedule.EventPayload)
		field("Location", p.Location)
		field("Organizer", p.Organizer)
		field("Attendees", strings.Join(p.Attendees, ", "))
		field("Tags", strings.Join(p.Tags, ", "))
		field("Source", p.Source)
		if p.Description != "" && p.Description != it.Title {
			lines = append(lines, "", wrap(p.Description))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) rangeLabel() string {
	days := m.cal.Window()
	switch m.cal.Mode() {
	case dates.ModeDay:
		return days[0].Format("Monday, " + m.cfg.DateFormat)
	case dates.ModeMonth:
		return m.cal.Reference().Format("January 2006")
	}
	first, last := days[0], days[len(days)-1]
	return first.Format(m.cfg.DateFormat) + " – " + last.Format(m.cfg.DateFormat)
}

func (m *Model) statusLine() string {
	state := m.cal.State()
	left := fmt.Sprintf(" %s | %s | zoom %d%%", m.rangeLabel(), m.cal.Mode(), m.cal.Zoom())
	switch {
	case state.Loading:
		left += " | loading…"
	case state.Err != nil:
		left += " | load failed"
	}
	return left
}

func (m *Model) statusLayers() []*lipgloss.Layer {
	y := m.height - statusRows
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(m.styles.Help.Render(truncate.String(m.statusLine(), uint(m.width)))).
			X(0).
			Y(y).
			Z(2000),
	}

	var second string
	switch {
	case m.prompting:
		second = m.styles.Selected.Render("Go to: " + m.input + "█")
	case m.message != "" && m.messageErr:
		second = m.styles.Error.Render(truncate.String(m.message, uint(max(m.width-2, 0))))
	case m.message != "":
		second = m.styles.Message.Render(truncate.String(m.message, uint(max(m.width-2, 0))))
	default:
		hint := "h/l:prev/next  d/w/m:view  +/-:zoom  tab:item  enter:details  g:goto  t:today  ?:help  q:quit"
		second = m.styles.Help.Width(m.width).Align(lipgloss.Right).Render(truncate.String(hint, uint(m.width)))
	}
	layers = append(layers, lipgloss.NewLayer(second).X(0).Y(y+1).Z(2000))
	return layers
}

package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

// itemsByDay groups the visible items by their start day in loc, each
// day sorted by start.
func itemsByDay(items []schedule.Item, loc *time.Location) map[dates.Day][]schedule.Item {
	out := make(map[dates.Day][]schedule.Item)
	for _, it := range items {
		d := dates.DayOf(it.Start.In(loc))
		out[d] = append(out[d], it)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Start.Before(list[j].Start)
		})
	}
	return out
}

// monthCell renders one day of the month grid into exactly w x h cells.
func (m *Model) monthCell(day time.Time, items []schedule.Item, w, h int, inMonth bool) string {
	now := m.clockNow()
	style := m.styles.Normal
	switch {
	case dates.SameDay(day, now):
		style = m.styles.Today
	case !inMonth:
		style = m.styles.Help
	case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
		style = m.styles.Weekend
	}

	lines := []string{style.Render(fmt.Sprintf("%2d", day.Day()))}
	room := h - 1
	for i, it := range items {
		if i == room-1 && len(items) > room {
			lines = append(lines, m.styles.Help.Render(fmt.Sprintf("+%d more", len(items)-i)))
			break
		}
		if i >= room {
			break
		}
		label := it.Start.In(day.Location()).Format(m.cfg.TimeFormat) + " " + it.Title
		itemStyle := m.styles.ItemStyle(it, m.user)
		if it.ID == m.selected {
			itemStyle = m.styles.Selected
		}
		lines = append(lines, itemStyle.Render(truncate.StringWithTail(label, uint(max(w-1, 1)), "…")))
	}

	return lipgloss.NewStyle().
		Width(w).
		Height(h).
		MaxWidth(w).
		MaxHeight(h).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) viewMonth() string {
	days := m.cal.Window()
	if len(days) == 0 {
		return ""
	}
	byDay := itemsByDay(m.cal.Items(), days[0].Location())
	ref := m.cal.Reference()

	cellW := m.width / 7
	weeks := (len(days) + 6) / 7
	cellH := (m.height - headerRows - statusRows) / weeks
	if cellH < 2 {
		cellH = 2
	}

	var layers []*lipgloss.Layer
	for i := 0; i < 7 && i < len(days); i++ {
		name := days[i].Format("Mon")
		layers = append(layers, lipgloss.NewLayer(m.styles.Header.Render(name)).X(i*cellW).Y(0).Z(0))
	}
	for i, d := range days {
		inMonth := d.Month() == ref.Month() && d.Year() == ref.Year()
		cell := m.monthCell(d, byDay[dates.DayOf(d)], cellW, cellH, inMonth)
		layers = append(layers, lipgloss.NewLayer(cell).
			X((i%7)*cellW).
			Y(headerRows+(i/7)*cellH).
			Z(1))
	}

	if m.detail != nil {
		box := m.styles.Border.Render(m.renderDetail(max(m.width/2, 20)))
		layers = append(layers, lipgloss.NewLayer(box).X(m.width/4).Y(headerRows+1).Z(1500))
	}
	layers = append(layers, m.statusLayers()...)
	return lipgloss.NewCanvas(layers...).Render()
}

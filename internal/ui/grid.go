package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
)

const (
	// rowPixels is how many layout pixels one terminal row covers, so an
	// hour is two rows at 100% zoom.
	rowPixels = schedule.BasePixelsPerHour / 2

	timeWidth    = 6 // "HH:MM "
	headerRows   = 1
	statusRows   = 2
	sidebarWidth = 34
	minGridWidth = 40
)

// frame is the part of the screen the day columns occupy.
type frame struct {
	X, Y   int
	Width  int
	Rows   int
	Days   int
	Scroll int
}

func (f frame) columnX(col int) int {
	return f.X + int(float64(col)*float64(f.Width)/float64(f.Days))
}

func (f frame) columnWidth(col int) int {
	return f.columnX(col+1) - f.columnX(col)
}

// rowOf maps a pixel offset from midnight to a row of the full day.
func rowOf(px float64) int {
	return int(math.Floor(px / rowPixels))
}

func totalRows(pph float64) int {
	return int(math.Ceil(24 * pph / rowPixels))
}

type block struct {
	Item schedule.Item
	X, Y int
	W, H int
	Z    int
	// Head is set when the item's first row is on screen.
	Head bool
}

// placeBlocks turns geometries into screen rectangles, clipped to the
// frame. Items not in items are skipped.
func placeBlocks(geoms []schedule.Geometry, items map[string]schedule.Item, f frame) []block {
	var out []block
	top, bottom := f.Scroll, f.Scroll+f.Rows
	for _, g := range geoms {
		it, ok := items[g.ItemID]
		if !ok {
			continue
		}
		first := rowOf(g.Top)
		last := int(math.Ceil(g.Bottom() / rowPixels))
		if last <= first {
			last = first + 1
		}
		if last <= top || first >= bottom {
			continue
		}
		clippedFirst, clippedLast := max(first, top), min(last, bottom)

		x := f.X + int(math.Round(g.Left(f.Days)*float64(f.Width)))
		w := int(g.Width(f.Days) * float64(f.Width))
		if w < 1 {
			w = 1
		}
		out = append(out, block{
			Item: it,
			X:    x,
			Y:    f.Y + clippedFirst - top,
			W:    w,
			H:    clippedLast - clippedFirst,
			Z:    10 + g.Z,
			Head: first >= top,
		})
	}
	return out
}

func (m *Model) sidebarWidth() int {
	if m.width-sidebarWidth-1-timeWidth < minGridWidth {
		return 0
	}
	return sidebarWidth
}

func (m *Model) viewportRows() int {
	rows := m.height - headerRows - statusRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) gridFrame() frame {
	width := m.width - timeWidth
	if sb := m.sidebarWidth(); sb > 0 {
		width -= sb + 1
	}
	days := len(m.cal.Window())
	if days == 0 {
		days = 1
	}
	return frame{
		X:      timeWidth,
		Y:      headerRows,
		Width:  width,
		Rows:   m.viewportRows(),
		Days:   days,
		Scroll: m.scroll,
	}
}

func (m *Model) viewGrid() string {
	f := m.gridFrame()
	days := m.cal.Window()
	now := m.clockNow()

	var layers []*lipgloss.Layer
	layers = append(layers, m.headerLayers(f, days, now)...)
	layers = append(layers, m.timeColumnLayers(f)...)
	layers = append(layers, m.blockLayers(f)...)
	layers = append(layers, m.nowLayers(f, now)...)

	if sb := m.sidebarWidth(); sb > 0 {
		layers = append(layers, lipgloss.NewLayer(m.renderSidebar(sb)).
			X(m.width-sb).
			Y(0).
			Z(1000))
	} else if m.detail != nil {
		box := m.styles.Border.Render(m.renderDetail(m.width / 2))
		layers = append(layers, lipgloss.NewLayer(box).
			X(m.width/4).
			Y(headerRows+1).
			Z(1500))
	}

	layers = append(layers, m.statusLayers()...)
	return lipgloss.NewCanvas(layers...).Render()
}

func (m *Model) headerLayers(f frame, days []time.Time, now time.Time) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	for i, d := range days {
		w := f.columnWidth(i)
		label := d.Format("Mon 01/02")
		if w < len(label)+1 {
			label = d.Format("Mon 2")
		}
		label = truncate.String(label, uint(max(w-1, 0)))

		style := m.styles.Header
		switch {
		case dates.SameDay(d, now):
			style = m.styles.Today
		case d.Weekday() == time.Saturday || d.Weekday() == time.Sunday:
			style = m.styles.Weekend
		}
		layers = append(layers, lipgloss.NewLayer(style.Render(label)).
			X(f.columnX(i)).
			Y(0).
			Z(0))
	}
	return layers
}

func (m *Model) timeColumnLayers(f frame) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	pph := m.cal.PixelsPerHour()
	lastRow := -1
	for h := 0; h < 24; h++ {
		row := rowOf(float64(h) * pph)
		if row == lastRow || row < f.Scroll || row >= f.Scroll+f.Rows {
			continue
		}
		lastRow = row
		label := fmt.Sprintf("%02d:00", h)
		layers = append(layers, lipgloss.NewLayer(m.styles.Normal.Render(label)).
			X(0).
			Y(f.Y+row-f.Scroll).
			Z(0))
	}
	return layers
}

func (m *Model) blockLayers(f frame) []*lipgloss.Layer {
	items := m.itemsByID()
	blocks := placeBlocks(m.cal.Geometry(), items, f)

	layers := make([]*lipgloss.Layer, 0, len(blocks))
	for _, b := range blocks {
		style := m.styles.ItemStyle(b.Item, m.user)
		if b.Item.ID == m.selected {
			style = m.styles.Selected
		}
		content := ""
		if b.Head {
			content = m.blockText(b.Item, b.W, b.H)
		}
		rendered := style.
			Width(b.W).
			Height(b.H).
			MaxWidth(b.W).
			MaxHeight(b.H).
			Render(content)
		layers = append(layers, lipgloss.NewLayer(rendered).X(b.X).Y(b.Y).Z(b.Z))
	}
	return layers
}

// blockText is the title, then the time span and the place when the block
// has room for them.
func (m *Model) blockText(it schedule.Item, w, h int) string {
	fit := func(s string) string {
		return truncate.StringWithTail(s, uint(w), "…")
	}
	lines := []string{fit(it.Title)}
	if h >= 2 {
		lines = append(lines, fit(m.timeSpan(it)))
	}
	if h >= 3 {
		if place := placeOf(it); place != "" {
			lines = append(lines, fit(place))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) nowLayers(f frame, now time.Time) []*lipgloss.Layer {
	ind, ok := m.cal.Indicator(now)
	if !ok {
		return nil
	}
	row := rowOf(ind.Top)
	if row < f.Scroll || row >= f.Scroll+f.Rows {
		return nil
	}
	y := f.Y + row - f.Scroll
	line := strings.Repeat("─", max(f.columnWidth(ind.Column), 1))
	return []*lipgloss.Layer{
		lipgloss.NewLayer(m.styles.Now.Render(line)).X(f.columnX(ind.Column)).Y(y).Z(900),
		lipgloss.NewLayer(m.styles.Now.Render(now.Format("15:04"))).X(0).Y(y).Z(901),
	}
}

func (m *Model) itemsByID() map[string]schedule.Item {
	items := m.cal.Items()
	byID := make(map[string]schedule.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID
}

// orderedItems lists the laid out items left to right, top to bottom.
func (m *Model) orderedItems() []schedule.Geometry {
	geoms := m.cal.Geometry()
	sort.SliceStable(geoms, func(i, j int) bool {
		if geoms[i].Column != geoms[j].Column {
			return geoms[i].Column < geoms[j].Column
		}
		return geoms[i].Top < geoms[j].Top
	})
	return geoms
}

func (m *Model) timeSpan(it schedule.Item) string {
	loc := m.cal.Window()[0].Location()
	start := it.Start.In(loc)
	if it.DurationMinutes <= 0 {
		return start.Format(m.cfg.TimeFormat)
	}
	return start.Format(m.cfg.TimeFormat) + "–" + it.End().In(loc).Format(m.cfg.TimeFormat)
}

func placeOf(it schedule.Item) string {
	switch p := it.Payload.(type) {
	case schedule.ReservationPayload:
		return p.Room
	case schedule.EventPayload:
		return p.Location
	}
	return ""
}

func (m *Model) clampScroll() {
	maxScroll := totalRows(m.cal.PixelsPerHour()) - m.viewportRows()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// scrollToMinute puts minute-of-day near the top of the viewport.
func (m *Model) scrollToMinute(minute int) {
	if minute < 0 {
		minute = 0
	}
	m.scroll = rowOf(float64(minute) / 60 * m.cal.PixelsPerHour())
	m.clampScroll()
}

// topMinute is the minute-of-day at the top of the viewport.
func (m *Model) topMinute() int {
	return int(float64(m.scroll) * rowPixels / m.cal.PixelsPerHour() * 60)
}

// ensureVisible scrolls the least needed to show the item's first row.
func (m *Model) ensureVisible(g schedule.Geometry) {
	row := rowOf(g.Top)
	switch {
	case row < m.scroll:
		m.scroll = row
	case row >= m.scroll+m.viewportRows():
		m.scroll = row - m.viewportRows() + 1
	}
	m.clampScroll()
}

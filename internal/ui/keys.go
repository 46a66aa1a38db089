package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/parser"
)

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.prompting {
		return m.handleGotoInput(msg)
	}

	if m.view == ViewHelp {
		m.view = ViewGrid
		return m, nil
	}

	action, ok := m.cfg.Action(key)
	if !ok {
		return m, nil
	}
	return m, m.perform(action)
}

func (m *Model) handleGotoInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		input := m.input
		m.prompting = false
		m.input = ""
		if input == "" {
			return m, nil
		}
		target, err := parser.Parse(input, m.now())
		if err != nil {
			return m, m.showError(err.Error())
		}
		cmd := m.fetch(m.cal.GoTo(target.Date))
		if target.HasTime {
			m.scrollToMinute(target.Minute - 60)
		}
		return m, cmd

	case tea.KeyEsc:
		m.prompting = false
		m.input = ""
		return m, nil

	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

// perform runs a bound action.
func (m *Model) perform(action string) tea.Cmd {
	m.log.Debug("action", zap.String("action", action))

	switch action {
	case "quit":
		return tea.Quit

	case "help":
		m.view = ViewHelp

	case "today":
		return m.fetch(m.cal.Today())

	case "refresh":
		return tea.Batch(m.fetch(m.cal.Refresh()), m.showMessage("Refreshing..."))

	case "next":
		return m.fetch(m.cal.Navigate(1))

	case "prev":
		return m.fetch(m.cal.Navigate(-1))

	case "down":
		m.scroll++
		m.clampScroll()

	case "up":
		m.scroll--
		m.clampScroll()

	case "next_item":
		m.cycleSelection(1)

	case "prev_item":
		m.cycleSelection(-1)

	case "activate":
		if m.selected == "" {
			return nil
		}
		it, ok := m.cal.Activate(m.selected)
		if !ok {
			m.selected = ""
			return m.showError("Item is no longer loaded")
		}
		m.detail = &it

	case "day_view":
		return m.fetch(m.cal.SetMode(dates.ModeDay))

	case "week_view":
		return m.fetch(m.cal.SetMode(dates.ModeWeek))

	case "month_view":
		return m.fetch(m.cal.SetMode(dates.ModeMonth))

	case "zoom_in", "zoom_out":
		top := m.topMinute()
		var err error
		if action == "zoom_in" {
			err = m.cal.ZoomIn()
		} else {
			err = m.cal.ZoomOut()
		}
		m.scrollToMinute(top)
		if err != nil {
			return m.showError(err.Error())
		}

	case "goto_date":
		m.prompting = true
		m.input = ""

	case "close":
		m.detail = nil

	default:
		m.log.Warn("unknown action", zap.String("action", action))
	}
	return nil
}

// cycleSelection moves the selection dir steps through the laid out items
// and scrolls it into view.
func (m *Model) cycleSelection(dir int) {
	geoms := m.orderedItems()
	if len(geoms) == 0 {
		m.selected = ""
		return
	}

	idx := -1
	for i, g := range geoms {
		if g.ItemID == m.selected {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && dir < 0:
		idx = len(geoms) - 1
	case idx < 0:
		idx = 0
	default:
		idx = (idx + dir + len(geoms)) % len(geoms)
	}

	m.selected = geoms[idx].ItemID
	if m.cal.Mode() != dates.ModeMonth {
		m.ensureVisible(geoms[idx])
	}
}

package ui

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/clock"
	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/window"
)

type ViewMode int

const (
	ViewGrid ViewMode = iota
	ViewHelp
)

// FilesChangedMsg tells the model a watched source file was written.
type FilesChangedMsg struct {
	Path string
}

type fetchedMsg struct {
	result window.Result
}

type tickMsg time.Time

type refreshMsg struct{}

type messageTimeoutMsg struct {
	seq int
}

type Options struct {
	Config   *config.Config
	Calendar *calendar.Calendar
	// Ticker drives the current-time line; nil leaves it where it was
	// first drawn.
	Ticker *clock.Ticker
	// User is matched against reservation holders.
	User    string
	Logger  *zap.Logger
	Now     func() time.Time
	Context context.Context
}

type Model struct {
	cfg    *config.Config
	cal    *calendar.Calendar
	ticker *clock.Ticker
	user   string
	log    *zap.Logger
	now    func() time.Time
	ctx    context.Context
	styles Styles

	view     ViewMode
	width    int
	height   int
	scroll   int
	lastTick time.Time

	selected string
	detail   *schedule.Item

	prompting bool
	input     string

	message    string
	messageErr bool
	messageSeq int
}

func NewModel(opts Options) *Model {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	m := &Model{
		cfg:      opts.Config,
		cal:      opts.Calendar,
		ticker:   opts.Ticker,
		user:     opts.User,
		log:      logging.OrNop(opts.Logger).Named("ui"),
		now:      opts.Now,
		ctx:      opts.Context,
		styles:   StylesFromColors(opts.Config.Colors),
		lastTick: clock.NextMinute(opts.Now()).Add(-time.Minute),
	}
	m.scrollToMinute(m.lastTick.Hour()*60 + m.lastTick.Minute() - 60)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetch(m.cal.Sync()),
		m.waitTick(),
		m.autoRefresh(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case fetchedMsg:
		if !m.cal.Apply(msg.result) {
			return m, nil
		}
		if msg.result.Err != nil {
			return m, m.showError("Load failed: " + msg.result.Err.Error())
		}
		m.dropStaleSelection()
		return m, nil

	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, m.waitTick()

	case refreshMsg:
		return m, tea.Batch(m.fetch(m.cal.Refresh()), m.autoRefresh())

	case FilesChangedMsg:
		m.log.Debug("source changed", zap.String("path", msg.Path))
		return m, tea.Batch(
			m.fetch(m.cal.Refresh()),
			m.showMessage("Reloaded "+filepath.Base(msg.Path)),
		)

	case messageTimeoutMsg:
		if msg.seq == m.messageSeq {
			m.message = ""
			m.messageErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.view {
	case ViewHelp:
		return m.viewHelp()
	}
	if m.cal.Mode() == dates.ModeMonth {
		return m.viewMonth()
	}
	return m.viewGrid()
}

// fetch runs f off the event loop and hands the result back to Update.
func (m *Model) fetch(f *window.Fetch) tea.Cmd {
	if f == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return fetchedMsg{result: f.Do(ctx)}
	}
}

func (m *Model) waitTick() tea.Cmd {
	if m.ticker == nil {
		return nil
	}
	c := m.ticker.C
	return func() tea.Msg {
		t, ok := <-c
		if !ok {
			return nil
		}
		return tickMsg(t)
	}
}

func (m *Model) autoRefresh() tea.Cmd {
	if !m.cfg.AutoRefresh || m.cfg.RefreshRate <= 0 {
		return nil
	}
	return tea.Tick(m.cfg.RefreshRate, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m *Model) showMessage(msg string) tea.Cmd {
	return m.setMessage(msg, false)
}

func (m *Model) showError(msg string) tea.Cmd {
	return m.setMessage(msg, true)
}

func (m *Model) setMessage(msg string, isErr bool) tea.Cmd {
	m.messageSeq++
	m.message = msg
	m.messageErr = isErr
	seq := m.messageSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return messageTimeoutMsg{seq: seq}
	})
}

// clockNow is the minute the current-time line is drawn at.
func (m *Model) clockNow() time.Time {
	return m.lastTick
}

// dropStaleSelection forgets a selected item that is no longer visible.
func (m *Model) dropStaleSelection() {
	if m.selected == "" {
		return
	}
	for _, g := range m.cal.Geometry() {
		if g.ItemID == m.selected {
			return
		}
	}
	m.selected = ""
}

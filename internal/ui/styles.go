package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/cwarden/timegrid/internal/schedule"
)

type Styles struct {
	Normal      lipgloss.Style
	Selected    lipgloss.Style
	Today       lipgloss.Style
	Weekend     lipgloss.Style
	Header      lipgloss.Style
	Event       lipgloss.Style
	Reservation lipgloss.Style
	Mine        lipgloss.Style
	Now         lipgloss.Style
	Help        lipgloss.Style
	Message     lipgloss.Style
	Error       lipgloss.Style
	Border      lipgloss.Style
}

// namedColors maps the color names accepted in the rc file to ANSI
// indexes.
var namedColors = map[string]int{
	"black":   0,
	"red":     1,
	"green":   2,
	"yellow":  3,
	"blue":    4,
	"magenta": 5,
	"cyan":    6,
	"white":   7,
	"gray":    8,
	"grey":    8,
}

// colorSpec is one "color" line value: a color, or an attribute.
type colorSpec struct {
	index   int
	ok      bool
	reverse bool
	bold    bool
}

func parseColorSpec(spec string) colorSpec {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "reverse":
		return colorSpec{reverse: true}
	case "bold":
		return colorSpec{bold: true}
	}
	if n, ok := namedColors[spec]; ok {
		return colorSpec{index: n, ok: true}
	}
	if n, err := strconv.Atoi(spec); err == nil && n >= 0 && n < 256 {
		return colorSpec{index: n, ok: true}
	}
	return colorSpec{}
}

func (c colorSpec) foreground(base lipgloss.Style) lipgloss.Style {
	switch {
	case c.reverse:
		return base.Reverse(true)
	case c.bold:
		return base.Bold(true)
	case c.ok:
		return base.Foreground(lipgloss.Color(strconv.Itoa(c.index)))
	}
	return base
}

func (c colorSpec) background(base lipgloss.Style) lipgloss.Style {
	switch {
	case c.reverse:
		return base.Reverse(true)
	case c.bold:
		return base.Bold(true)
	case c.ok:
		return base.Background(lipgloss.Color(strconv.Itoa(c.index))).
			Foreground(lipgloss.Color(contrastFor(c.index)))
	}
	return base
}

// contrastFor picks black or white text for an ANSI background.
func contrastFor(index int) string {
	switch {
	case index == 0 || index == 1 || index == 4 || index == 5 || index == 8:
		return "15"
	case index < 16:
		return "0"
	case index >= 232:
		if index < 244 {
			return "15"
		}
		return "0"
	}
	// 6x6x6 cube: sum of the channel levels as a rough luminance.
	i := index - 16
	if i/36+(i/6)%6+i%6 < 8 {
		return "15"
	}
	return "0"
}

func DefaultStyles() Styles {
	return Styles{
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("220")).
			Bold(true),
		Today: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true),
		Weekend: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true),
		Event: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("15")),
		Reservation: lipgloss.NewStyle().
			Background(lipgloss.Color("30")).
			Foreground(lipgloss.Color("15")),
		Mine: lipgloss.NewStyle().
			Background(lipgloss.Color("208")).
			Foreground(lipgloss.Color("0")),
		Now: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("124")).
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")),
	}
}

// StylesFromColors applies rc file color settings on top of the defaults.
// Item kinds take the color as a block background; everything else as the
// text color.
func StylesFromColors(colors map[string]string) Styles {
	s := DefaultStyles()
	for name, value := range colors {
		spec := parseColorSpec(value)
		switch name {
		case "normal":
			s.Normal = spec.foreground(s.Normal)
		case "today":
			s.Today = spec.foreground(s.Today)
		case "selected":
			s.Selected = spec.background(s.Selected)
		case "weekend":
			s.Weekend = spec.foreground(s.Weekend)
		case "header":
			s.Header = spec.foreground(s.Header)
		case "now":
			s.Now = spec.foreground(s.Now)
		case "event":
			s.Event = spec.background(s.Event)
		case "reservation":
			s.Reservation = spec.background(s.Reservation)
		case "mine":
			s.Mine = spec.background(s.Mine)
		}
	}
	return s
}

// ItemStyle picks the block style for an item. Reservations held by user
// stand out from everyone else's.
func (s Styles) ItemStyle(it schedule.Item, user string) lipgloss.Style {
	switch it.Kind() {
	case schedule.KindRoomReservation:
		p, ok := it.Payload.(schedule.ReservationPayload)
		if ok && user != "" && strings.EqualFold(p.ReservedBy, user) {
			return s.Mine
		}
		return s.Reservation
	case schedule.KindEvent:
		return s.Event
	}
	return s.Event
}

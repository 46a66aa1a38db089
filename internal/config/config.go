package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/window"
)

type Config struct {
	// Path of the rc file that was loaded, if any
	Path string

	// Sources
	RemindFiles   []string
	RemindCommand string
	ICSFiles      []string
	APIURL        string
	APIToken      string
	APIRate       float64

	// Display settings
	WeekStartDay  time.Weekday
	TimeFormat    string
	DateFormat    string
	StartupView   dates.Mode
	Zoom          int
	PixelsPerHour float64
	Layout        schedule.Strategy

	// Cache
	PaddingDays   int
	MaxCachedDays int

	// UI settings
	Colors      map[string]string
	KeyBindings map[string]string

	// Behavior settings
	AutoRefresh bool
	RefreshRate time.Duration
	WrapText    bool

	// Files and services
	SettingsFile string
	LogFile      string
	Debug        bool
	Listen       string
	ServerSecret string
	ServerRate   float64
}

var (
	setRe   = regexp.MustCompile(`^set\s+(\w+)\s+(.+)$`)
	bindRe  = regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	colorRe = regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
)

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	state := stateDir(home)

	return &Config{
		RemindCommand: "remind",
		APIRate:       5,

		WeekStartDay:  time.Monday,
		TimeFormat:    "15:04",
		DateFormat:    "Jan 2, 2006",
		StartupView:   dates.ModeWeek,
		Zoom:          schedule.DefaultZoom,
		PixelsPerHour: schedule.BasePixelsPerHour,
		Layout:        schedule.StrategyProximity,

		PaddingDays:   window.DefaultPadding,
		MaxCachedDays: window.DefaultMaxDays,

		Colors: map[string]string{
			"normal":      "7",
			"today":       "11",
			"selected":    "12",
			"weekend":     "4",
			"event":       "2",
			"reservation": "5",
			"mine":        "13",
			"now":         "9",
			"header":      "15",
		},

		KeyBindings: map[string]string{
			"q":         "quit",
			"?":         "help",
			"t":         "today",
			"r":         "refresh",
			"l":         "next",
			"h":         "prev",
			"right":     "next",
			"left":      "prev",
			"j":         "down",
			"k":         "up",
			"tab":       "next_item",
			"shift+tab": "prev_item",
			"enter":     "activate",
			"d":         "day_view",
			"w":         "week_view",
			"m":         "month_view",
			"+":         "zoom_in",
			"=":         "zoom_in",
			"-":         "zoom_out",
			"g":         "goto_date",
			"esc":       "close",
		},

		AutoRefresh: true,
		RefreshRate: 5 * time.Minute,
		WrapText:    true,

		SettingsFile: filepath.Join(state, "settings.yaml"),
		LogFile:      filepath.Join(state, "timegrid.log"),
		Listen:       "127.0.0.1:8765",
		ServerRate:   10,
	}
}

// LoadConfig reads the first rc file found and then applies environment
// overrides.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	v := newEnv()
	home := os.Getenv("HOME")
	configPaths := []string{
		v.GetString("config"),
		filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "timegrid", "timegridrc"),
		filepath.Join(home, ".config", "timegrid", "timegridrc"),
		filepath.Join(home, ".timegridrc"),
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); err == nil {
			if err := config.loadFromFile(path); err != nil {
				return nil, fmt.Errorf("error loading config from %s: %w", path, err)
			}
			config.Path = path
			break
		}
	}

	config.applyEnv(v)
	return config, nil
}

// LoadFile reads a single rc file on top of the defaults, then applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.loadFromFile(path); err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config.Path = path
	config.applyEnv(newEnv())
	return config, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TIMEGRID")
	v.AutomaticEnv()

	_ = v.BindEnv("config", "TIMEGRID_CONFIG")
	_ = v.BindEnv("api_url", "TIMEGRID_API_URL")
	_ = v.BindEnv("api_token", "TIMEGRID_API_TOKEN")
	_ = v.BindEnv("listen", "TIMEGRID_LISTEN")
	_ = v.BindEnv("debug", "TIMEGRID_DEBUG")
	_ = v.BindEnv("log_file", "TIMEGRID_LOG_FILE")
	_ = v.BindEnv("server_secret", "TIMEGRID_SERVER_SECRET")
	return v
}

// applyEnv lets set environment variables win over the rc file.
func (c *Config) applyEnv(v *viper.Viper) {
	if v.IsSet("api_url") {
		c.APIURL = strings.TrimSpace(v.GetString("api_url"))
	}
	if v.IsSet("api_token") {
		c.APIToken = strings.TrimSpace(v.GetString("api_token"))
	}
	if v.IsSet("listen") {
		c.Listen = strings.TrimSpace(v.GetString("listen"))
	}
	if v.IsSet("log_file") {
		c.LogFile = expandHome(strings.TrimSpace(v.GetString("log_file")))
	}
	if v.IsSet("server_secret") {
		c.ServerSecret = strings.TrimSpace(v.GetString("server_secret"))
	}
	if v.IsSet("debug") {
		c.Debug = v.GetBool("debug")
	}
}

func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func (c *Config) parseLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	// set variable value
	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], matches[2])
	}

	// bind key action
	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		c.KeyBindings[matches[1]] = matches[2]
		return nil
	}

	// color element color_spec
	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = strings.Trim(matches[2], `"'`)
		return nil
	}

	return fmt.Errorf("unknown config line: %s", line)
}

func (c *Config) setVariable(name, value string) error {
	// Remove quotes if present
	value = strings.Trim(value, `"'`)

	switch name {
	case "remind_file", "remind_files":
		c.RemindFiles = splitPaths(value)

	case "remind_command":
		c.RemindCommand = value

	case "ics", "ics_files":
		c.ICSFiles = splitPaths(value)

	case "api_url":
		c.APIURL = value

	case "api_token":
		c.APIToken = value

	case "api_rate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate < 0 {
			return fmt.Errorf("invalid api_rate: %s", value)
		}
		c.APIRate = rate

	case "week_start_day":
		switch strings.ToLower(value) {
		case "sunday", "sun", "0":
			c.WeekStartDay = time.Sunday
		case "monday", "mon", "1":
			c.WeekStartDay = time.Monday
		default:
			return fmt.Errorf("invalid week_start_day: %s", value)
		}

	case "time_format":
		c.TimeFormat = value

	case "date_format":
		c.DateFormat = value

	case "view", "startup_view":
		mode, err := dates.ParseMode(value)
		if err != nil {
			return fmt.Errorf("invalid view: %w", err)
		}
		c.StartupView = mode

	case "zoom":
		zoom, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil {
			return fmt.Errorf("invalid zoom: %s", value)
		}
		c.Zoom = schedule.ClampZoom(zoom)

	case "pixels_per_hour":
		pph, err := strconv.ParseFloat(value, 64)
		if err != nil || pph <= 0 {
			return fmt.Errorf("invalid pixels_per_hour: %s", value)
		}
		c.PixelsPerHour = pph

	case "layout":
		strategy, err := schedule.ParseStrategy(value)
		if err != nil {
			return err
		}
		c.Layout = strategy

	case "padding_days":
		days, err := strconv.Atoi(value)
		if err != nil || days < 0 {
			return fmt.Errorf("invalid padding_days: %s", value)
		}
		c.PaddingDays = days

	case "max_cached_days":
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			return fmt.Errorf("invalid max_cached_days: %s", value)
		}
		c.MaxCachedDays = days

	case "auto_refresh":
		c.AutoRefresh = parseBool(value)

	case "refresh_rate":
		rate, err := time.ParseDuration(value)
		if err != nil {
			// Try parsing as seconds
			if seconds, err2 := strconv.Atoi(value); err2 == nil {
				rate = time.Duration(seconds) * time.Second
			} else {
				return fmt.Errorf("invalid refresh_rate: %s", value)
			}
		}
		c.RefreshRate = rate

	case "wrap_text":
		c.WrapText = parseBool(value)

	case "settings_file":
		c.SettingsFile = expandHome(value)

	case "log_file":
		c.LogFile = expandHome(value)

	case "debug":
		c.Debug = parseBool(value)

	case "listen":
		c.Listen = value

	case "server_secret":
		c.ServerSecret = value

	case "server_rate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate < 0 {
			return fmt.Errorf("invalid server_rate: %s", value)
		}
		c.ServerRate = rate

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

// Padding converts PaddingDays to the cache's convention, where zero
// selects the default and a negative value disables padding.
func (c *Config) Padding() int {
	if c.PaddingDays == 0 {
		return -1
	}
	return c.PaddingDays
}

// Action returns the action bound to key, if any.
func (c *Config) Action(key string) (string, bool) {
	action, ok := c.KeyBindings[key]
	return action, ok
}

func splitPaths(value string) []string {
	var out []string
	for _, file := range strings.Split(value, ",") {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		out = append(out, expandHome(file))
	}
	return out
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

func stateDir(home string) string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "timegrid")
	}
	return filepath.Join(home, ".local", "state", "timegrid")
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/settings"
)

var (
	listView    string
	listLayout  bool
	listTimeout time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List today's items and exit",
	Long: `List the items of the current day, week or month in a simple text
format and exit. With --layout each item also shows its grid placement.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listView, "view", "day", "Range to list: day, week or month")
	listCmd.Flags().BoolVar(&listLayout, "layout", false, "Show each item's column, offset and width")
	listCmd.Flags().DurationVar(&listTimeout, "timeout", 30*time.Second, "Give up fetching after this long")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Ensure config is loaded
	if cfg == nil {
		initConfig()
	}

	mode, err := dates.ParseMode(listView)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Path: cfg.LogFile, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer log.Sync()

	src, _, err := buildSource(log)
	if err != nil {
		return err
	}
	cal := newCalendar(src, settings.NewMemStore(), log)
	cal.SetMode(mode)

	ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
	defer cancel()
	if err := cal.Load(ctx); err != nil {
		return fmt.Errorf("error getting items: %w", err)
	}

	printItems(cmd.OutOrStdout(), cal)
	return nil
}

func printItems(w io.Writer, cal *calendar.Calendar) {
	days := cal.Window()
	geoms := make(map[string]schedule.Geometry)
	if listLayout {
		for _, g := range cal.Geometry() {
			geoms[g.ItemID] = g
		}
	}

	byDay := make(map[dates.Day][]schedule.Item)
	for _, it := range cal.Items() {
		d := dates.DayOf(it.Start.In(days[0].Location()))
		byDay[d] = append(byDay[d], it)
	}

	found := false
	for _, day := range days {
		items := byDay[dates.DayOf(day)]
		if len(items) == 0 {
			continue
		}
		found = true
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Start.Before(items[j].Start)
		})

		fmt.Fprintf(w, "Items for %s:\n", day.Format(cfg.DateFormat))
		for _, it := range items {
			fmt.Fprintf(w, "  %s - %s%s\n", spanOf(it, day.Location()), it.Title, detailOf(it))
			if g, ok := geoms[it.ID]; ok {
				fmt.Fprintf(w, "    col %d, top %.0fpx, height %.0fpx, left %.0f%%, width %.0f%%, overlap %d\n",
					g.Column, g.Top, g.Height, g.LeftOffsetFraction*100, g.WidthFraction*100, g.OverlapCount)
			}
			if p, ok := it.Payload.(schedule.EventPayload); ok && len(p.Tags) > 0 {
				fmt.Fprintf(w, "    Tags: %v\n", p.Tags)
			}
		}
	}
	if !found {
		fmt.Fprintln(w, "No items found.")
	}
}

func spanOf(it schedule.Item, loc *time.Location) string {
	start := it.Start.In(loc)
	if it.DurationMinutes >= 24*60 && start.Hour() == 0 && start.Minute() == 0 {
		return "All day"
	}
	if it.DurationMinutes <= 0 {
		return start.Format(cfg.TimeFormat)
	}
	return start.Format(cfg.TimeFormat) + "-" + it.End().In(loc).Format(cfg.TimeFormat)
}

func detailOf(it schedule.Item) string {
	switch p := it.Payload.(type) {
	case schedule.ReservationPayload:
		parts := []string{p.Room}
		if p.ReservedBy != "" {
			parts = append(parts, "by "+p.ReservedBy)
		}
		return " [" + strings.Join(parts, " ") + "]"
	case schedule.EventPayload:
		if p.Location != "" {
			return " @ " + p.Location
		}
	}
	return ""
}

// Package remind reads reminders out of remind(1) files through the
// command's JSON calendar output.
package remind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/schedule"
)

// SyntaxError is a problem remind reported in one of its input files.
type SyntaxError struct {
	File    string
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	switch {
	case e.File == "":
		return e.Message
	case e.Line == 0:
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	default:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
}

var syntaxErrorRe = regexp.MustCompile(`^(.+)\((\d+)\): (.+)$`)

// parseSyntaxError picks the first file(line): message out of remind's
// diagnostics. Any other non-empty output becomes a message-only error.
func parseSyntaxError(output string) *SyntaxError {
	var first string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := syntaxErrorRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			return &SyntaxError{File: m[1], Line: n, Message: m[3]}
		}
		if first == "" {
			first = line
		}
	}
	if first == "" {
		return nil
	}
	return &SyntaxError{Message: first}
}

type Options struct {
	// Command is the remind binary; "remind" when empty.
	Command  string
	Location *time.Location
	Logger   *zap.Logger
}

// Source is a window.Source over a set of remind files.
type Source struct {
	command string
	files   []string
	loc     *time.Location
	log     *zap.Logger
}

func New(files []string, opts Options) *Source {
	if opts.Command == "" {
		opts.Command = "remind"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Source{
		command: opts.Command,
		files:   append([]string(nil), files...),
		loc:     opts.Location,
		log:     logging.OrNop(opts.Logger).Named("remind"),
	}
}

// Files returns the remind files read on every fetch.
func (s *Source) Files() []string {
	return append([]string(nil), s.files...)
}

// Fetch runs remind once per file over the months covering [start, end].
// A file that fails is logged and skipped; the fetch fails only when every
// file does.
func (s *Source) Fetch(ctx context.Context, start, end dates.Day) (schedule.Batch, error) {
	if len(s.files) == 0 {
		return nil, errors.New("no remind files configured")
	}

	batch := schedule.Batch{}
	var errs []error
	for _, file := range s.files {
		months, err := s.run(ctx, file, start, end)
		if err != nil {
			s.log.Warn("remind failed", zap.String("file", file), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		s.collect(batch, months, start, end)
	}
	if len(errs) == len(s.files) {
		return nil, errors.Join(errs...)
	}
	return batch, nil
}

func (s *Source) run(ctx context.Context, file string, start, end dates.Day) ([]Month, error) {
	args := []string{
		fmt.Sprintf("-ppp%d", monthsBetween(start, end)),
		"-q",
		file,
		start.String(),
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if syntaxErr := parseSyntaxError(stderr.String()); syntaxErr != nil {
			return nil, fmt.Errorf("run remind on %s: %w", file, syntaxErr)
		}
		return nil, fmt.Errorf("run remind on %s: %w", file, err)
	}
	if syntaxErr := parseSyntaxError(stderr.String()); syntaxErr != nil {
		s.log.Warn("remind reported a problem", zap.Error(syntaxErr))
	}
	return ParseMonths(stdout.Bytes())
}

func (s *Source) collect(batch schedule.Batch, months []Month, start, end dates.Day) {
	for _, m := range months {
		for _, e := range m.Entries {
			it, err := e.Item(s.loc)
			if err != nil {
				s.log.Warn("skipping reminder", zap.Error(err))
				continue
			}
			if day := it.Day(); day.Before(start) || day.After(end) {
				continue
			}
			batch.Add(it)
		}
	}
}

// monthsBetween counts the calendar months touched by [start, end].
func monthsBetween(start, end dates.Day) int {
	n := (end.Year-start.Year)*12 + int(end.Month) - int(start.Month) + 1
	if n < 1 {
		return 1
	}
	return n
}

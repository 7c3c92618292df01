package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"warren/internal/converge"
	pkgstrings "warren/pkg/strings"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newTable creates a new table with standard styling.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func colorEvent(t converge.EventType) string {
	switch t {
	case converge.EventChanged, converge.EventRefreshed:
		return text.FgGreen.Sprint(t)
	case converge.EventWouldChange:
		return text.FgYellow.Sprint(t)
	case converge.EventFailed:
		return text.FgRed.Sprint(t)
	case converge.EventSkipped:
		return text.FgHiBlack.Sprint(t)
	default:
		return string(t)
	}
}

// maxChangeLines bounds the change list shown per resource; --diff has the rest.
const maxChangeLines = 6

// printReport renders the events of a run as a table. Unchanged resources
// are left out unless all is set.
func printReport(w io.Writer, report *converge.Report, all, diffs bool) {
	t := newTable(w)
	t.AppendHeader(header("RESOURCE", "RESULT", "DETAILS"))

	for _, ev := range report.Events {
		if ev.Type == converge.EventUnchanged && !all {
			continue
		}
		details := pkgstrings.TruncateLines(strings.Join(ev.Changes, "\n"), maxChangeLines)
		switch {
		case ev.Err != nil:
			details = pkgstrings.Truncate(ev.Err.Error(), pkgstrings.DefaultCellMaxLen)
		case ev.Type == converge.EventSkipped:
			details = fmt.Sprintf("requires %s", ev.Cause)
		}
		t.AppendRow(table.Row{ev.Resource, colorEvent(ev.Type), details})
	}
	if t.Length() > 0 {
		t.Render()
	}

	if diffs {
		for _, ev := range report.Events {
			if ev.Diff == "" {
				continue
			}
			fmt.Fprintf(w, "\n%s\n%s", text.Bold.Sprint(ev.Resource), ev.Diff)
		}
	}

	verb := "Applied"
	if report.Noop {
		verb = "Planned"
	}
	fmt.Fprintf(w, "%s run %s: %s (%s)\n", verb, report.RunID, report.Summary(),
		report.Finished.Sub(report.Started).Round(time.Millisecond))
}

// progress shows a spinner on interactive terminals while resources
// converge. On anything else it does nothing.
type progress struct {
	s *spinner.Spinner
}

func startProgress(w io.Writer, label string) *progress {
	if !isTerminal(w) || !quietLogs() {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + label
	s.Start()
	return &progress{s: s}
}

func (p *progress) Observe(ev converge.Event) {
	if p.s != nil {
		p.s.Suffix = fmt.Sprintf(" %s %s", ev.Resource, ev.Type)
	}
}

func (p *progress) Stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// quietLogs reports whether info logs are filtered out. The spinner would
// otherwise be redrawn over log lines.
func quietLogs() bool {
	return logLevel == "warn" || logLevel == "error"
}

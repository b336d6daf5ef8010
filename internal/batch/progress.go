package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/elitetrack/audiogen/internal/manifest"
	"github.com/mattn/go-runewidth"
)

const previewWidth = 60

// Preview collapses whitespace in s and truncates it to width display
// columns, so wide (e.g. Hangul) text lines up with ASCII.
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "...")
}

// Reporter receives progress events from a run.
type Reporter interface {
	Start(total int)
	Advance(done int, e manifest.Entry, status Status)
	Finish(stats Stats)
}

type nopReporter struct{}

func (nopReporter) Start(int)                           {}
func (nopReporter) Advance(int, manifest.Entry, Status) {}
func (nopReporter) Finish(Stats)                        {}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"})
)

// BarReporter draws a progress bar line per entry.
type BarReporter struct {
	w     io.Writer
	bar   progress.Model
	total int
}

// NewBarReporter returns a reporter writing to w, usually a terminal.
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Start records the number of entries.
func (b *BarReporter) Start(total int) {
	b.total = total
}

// Advance draws the bar after an entry finished.
func (b *BarReporter) Advance(done int, e manifest.Entry, status Status) {
	if b.total == 0 {
		return
	}
	pct := float64(done) / float64(b.total)
	fmt.Fprintf(b.w, "%s %d/%d %s %s\n", b.bar.ViewAs(pct), done, b.total, styleStatus(status), e.ID)
}

// Finish writes nothing; the summary is printed by the caller.
func (b *BarReporter) Finish(Stats) {}

func styleStatus(s Status) string {
	switch s {
	case StatusSuccess:
		return okStyle.Render(s.String())
	case StatusSkipped:
		return skipStyle.Render(s.String())
	default:
		return failStyle.Render(s.String())
	}
}

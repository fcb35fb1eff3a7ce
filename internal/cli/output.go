package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/workflow"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))             // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	streamStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))           // grey
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

// Printer renders workflow events as terminal lines. The text matches the
// log view of the window.
type Printer struct {
	out     io.Writer
	state   *workflow.State
	printed int
}

// NewPrinter creates a printer writing to out. Its log is unbounded so
// every line is printed exactly once.
func NewPrinter(out io.Writer) *Printer {
	state := workflow.NewState()
	state.MaxLogLines = 0
	return &Printer{out: out, state: state}
}

// State returns the state folded from every printed event
func (p *Printer) State() *workflow.State {
	return p.state
}

// Print applies ev and writes the log lines it added
func (p *Printer) Print(ev model.Event) {
	p.state.Apply(ev)

	style := styleFor(ev)
	for _, line := range p.state.Log[p.printed:] {
		fmt.Fprintln(p.out, style.Render(line))
	}
	p.printed = len(p.state.Log)

	if started, ok := ev.(model.DownloadStarted); ok {
		p.Header("Downloading " + started.URL)
	}
}

// Header prints a section title
func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, headerStyle.Render(text))
}

// Error prints an error line
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, errorStyle.Render("Error: "+err.Error()))
}

func styleFor(ev model.Event) lipgloss.Style {
	switch ev.(type) {
	case model.LogLine:
		return streamStyle
	case model.Failed, model.AnalysisFailed:
		return errorStyle
	case model.Completed, model.AnalysisCompleted:
		return successStyle
	}
	return infoStyle
}

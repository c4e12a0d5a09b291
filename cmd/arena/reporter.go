package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spboyer/codearena/internal/arena"
	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
	"github.com/spboyer/codearena/internal/spinner"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff41")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	verdictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff41"))

	personaStyles = map[string]lipgloss.Style{
		persona.Sentinel: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0055")).Bold(true),
		persona.Flash:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00")).Bold(true),
		persona.Sage:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true),
	}
)

// textReporter prints a battle as it happens. The spinner, when enabled,
// runs between critiques and while the consensus is compiled.
type textReporter struct {
	out     io.Writer
	status  io.Writer
	animate bool
	total   int

	round int
	spin  *spinner.Spinner
}

func newTextReporter(out, status io.Writer, animate bool, total int) *textReporter {
	return &textReporter{out: out, status: status, animate: animate, total: total}
}

// OnProgress is an arena.ProgressListener.
func (r *textReporter) OnProgress(ev arena.ProgressEvent) {
	switch ev.EventType {
	case arena.EventBattleStart:
		fmt.Fprintf(r.out, "%s\n\n", titleStyle.Render("CODE // ARENA")) //nolint:errcheck
		r.startSpinner("Agents are fighting...")
	case arena.EventCritique:
		r.stopSpinner()
		r.printMessage(*ev.Message)
		if len(ev.Transcript) >= r.total {
			r.startSpinner("Compiling consensus...")
		} else {
			r.startSpinner("Agents are fighting...")
		}
	case arena.EventConsensus:
		r.stopSpinner()
	}
}

// Finish stops the spinner and prints the verdict of snap, if any.
func (r *textReporter) Finish(snap models.Snapshot) {
	r.stopSpinner()
	if snap.Consensus == nil {
		return
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("🏆 FINAL VERDICT") + "\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 40)) + "\n")
	b.WriteString(verdictStyle.Render(strings.TrimRight(snap.Consensus.Rewritten, "\n")) + "\n")
	if issues := snap.Consensus.Issues; issues != nil {
		writeList(&b, "Critical", issues.Critical)
		writeList(&b, "Suggestions", issues.Suggestions)
	}
	fmt.Fprint(r.out, b.String()) //nolint:errcheck
}

func (r *textReporter) printMessage(m models.Message) {
	if m.Round > 1 && m.Round != r.round {
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("── round %d ──", m.Round))) //nolint:errcheck
	}
	r.round = m.Round
	fmt.Fprintf(r.out, "%s %s\n", personaLabel(m.Persona), m.Content) //nolint:errcheck
}

func (r *textReporter) startSpinner(msg string) {
	if !r.animate {
		return
	}
	r.spin = spinner.Start(r.status, msg)
}

func (r *textReporter) stopSpinner() {
	if r.spin != nil {
		r.spin.Stop()
		r.spin = nil
	}
}

// labelWidth fits the widest "icon name" label.
var labelWidth = func() int {
	w := 0
	for _, p := range persona.All() {
		w = max(w, runewidth.StringWidth(p.Icon+" "+p.Name))
	}
	return w
}()

// personaLabel renders "icon Name" padded to a common display width.
func personaLabel(name string) string {
	text := name
	if p, err := persona.Lookup(name); err == nil {
		text = p.Icon + " " + p.Name
	}
	text = padRight(text, labelWidth) + " │"
	if style, ok := personaStyles[name]; ok {
		return style.Render(text)
	}
	return text
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + titleStyle.Render(title) + "\n")
	for _, it := range items {
		b.WriteString("  - " + it + "\n")
	}
}

// Package transcript renders a finished battle as JSON or Markdown.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "json", "markdown" or "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json or markdown)", s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".json"
}

// Report is the exported form of a battle.
type Report struct {
	RunID       string                  `json:"runId"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Input       string                  `json:"input"`
	Transcript  models.Transcript       `json:"transcript"`
	Consensus   *models.ConsensusResult `json:"consensus,omitempty"`
}

// NewReport builds a report from a session snapshot.
func NewReport(snap models.Snapshot, at time.Time) Report {
	return Report{
		RunID:       snap.RunID,
		GeneratedAt: at.UTC(),
		Input:       snap.Input,
		Transcript:  snap.Transcript.Clone(),
		Consensus:   snap.Consensus,
	}
}

// Render writes r to w in format f.
func Render(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		return nil
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	}
	return fmt.Errorf("unknown export format %q", f)
}

// Markdown renders r as a Markdown document.
func Markdown(r Report) string {
	var b strings.Builder

	b.WriteString("# CODE // ARENA\n\n")
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`, %s\n\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	}

	b.WriteString("## Input\n\n")
	writeFenced(&b, r.Input)

	b.WriteString("## Critiques\n\n")
	if len(r.Transcript) == 0 {
		b.WriteString("_No critiques._\n\n")
	}
	for _, m := range r.Transcript {
		fmt.Fprintf(&b, "### %d. %s (round %d)\n\n%s\n\n", m.Seq, label(m.Persona), m.Round, strings.TrimSpace(m.Content))
	}

	if r.Consensus != nil {
		b.WriteString("## 🏆 FINAL VERDICT\n\n")
		writeFenced(&b, r.Consensus.Rewritten)

		if is := r.Consensus.Issues; is != nil {
			writeList(&b, "Critical", is.Critical)
			writeList(&b, "Suggestions", is.Suggestions)
		}
	}

	return b.String()
}

func label(name string) string {
	p, err := persona.Lookup(name)
	if err != nil {
		return name
	}
	return p.Icon + " " + p.Name
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

// writeFenced writes s in a code fence longer than any backtick run inside it.
func writeFenced(b *strings.Builder, s string) {
	fence := "```"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	b.WriteString(fence)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(s, "\n"))
	b.WriteString("\n")
	b.WriteString(fence)
	b.WriteString("\n\n")
}

// sanitize replaces characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the export filename for a run.
func Filename(runID string, ts time.Time, f Format) string {
	id := sanitizeName(runID)
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("arena-%s-%s%s", ts.UTC().Format("20060102-150405"), id, f.Ext())
}

// Write renders r into dir and returns the file path.
func Write(dir string, r Report, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, Filename(r.RunID, r.GeneratedAt, f))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if err := Render(file, r, f); err != nil {
		return "", err
	}
	return path, nil
}

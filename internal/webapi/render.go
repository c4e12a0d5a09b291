package webapi

import (
	"bytes"
	"html"
	"log/slog"

	"github.com/spboyer/codearena/internal/models"
	"github.com/spboyer/codearena/internal/persona"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns critique Markdown into HTML. Raw HTML in the input is not
// passed through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with GitHub-flavored Markdown.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// HTML renders src. On failure the escaped source is returned.
func (r *Renderer) HTML(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		slog.Debug("markdown render failed", "error", err)
		return html.EscapeString(src)
	}
	return buf.String()
}

// Messages decorates a transcript for the page.
func (r *Renderer) Messages(t models.Transcript) []MessageView {
	out := make([]MessageView, 0, len(t))
	for _, m := range t {
		view := MessageView{Message: m, HTML: r.HTML(m.Content)}
		if p, err := persona.Lookup(m.Persona); err == nil {
			view.Icon = p.Icon
			view.Style = p.Style
		}
		out = append(out, view)
	}
	return out
}

// State converts a snapshot into its API form.
func (r *Renderer) State(snap models.Snapshot) StateResponse {
	return StateResponse{
		RunID:      snap.RunID,
		State:      snap.State,
		Input:      snap.Input,
		Transcript: r.Messages(snap.Transcript),
		Consensus:  snap.Consensus,
	}
}

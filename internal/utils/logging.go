package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// previewLen bounds how much generated text goes into a single debug line.
const previewLen = 120

// SessionToSlog mirrors Copilot session events into the debug log.
func SessionToSlog(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", event.Type,
	}

	attrs = addIf(attrs, "content", previewPtr(event.Data.Content))
	attrs = addIf(attrs, "message", event.Data.Message)

	slog.Debug("Event received", attrs...)
}

// Preview shortens s to at most n runes, marking the cut with an ellipsis.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func previewPtr(s *string) *string {
	if s == nil {
		return nil
	}
	p := Preview(*s, previewLen)
	return &p
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}

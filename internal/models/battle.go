package models

// Message is a single critique appended to a transcript.
type Message struct {
	Persona string `json:"persona"`
	Content string `json:"content"`
	// Seq starts at 1 and strictly increases within a run. It is the only
	// reliable replay order; persona order may be shuffled per round.
	Seq   int `json:"seq"`
	Round int `json:"round"`
}

// Transcript is the ordered history of critiques for the current run.
type Transcript []Message

// Personas returns the persona name of every message, in sequence order.
func (t Transcript) Personas() []string {
	names := make([]string, 0, len(t))
	for _, m := range t {
		names = append(names, m.Persona)
	}
	return names
}

// Clone returns a copy that does not alias t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// IssueSummary is the optional pair of categorized issue lists that can
// accompany a rewrite.
type IssueSummary struct {
	Critical    []string `json:"critical"`
	Suggestions []string `json:"suggestions"`
}

// ConsensusResult is the single rewritten snippet produced after the critiques.
type ConsensusResult struct {
	// Source is the snippet the rewrite was produced from.
	Source    string        `json:"source"`
	Rewritten string        `json:"rewritten"`
	Issues    *IssueSummary `json:"issues,omitempty"`
}

// Package persona holds the fixed critique personas, their instructions and
// the canned lines used when critiques are produced offline.
package persona

import (
	"errors"
	"fmt"

	"github.com/spboyer/codearena/internal/models"
)

// ErrUnknownPersona is returned when a name is not in the catalog.
var ErrUnknownPersona = errors.New("unknown persona")

const (
	Sentinel = "Sentinel"
	Flash    = "Flash"
	Sage     = "Sage"
)

// JudgeInstruction frames the consensus rewrite request.
const JudgeInstruction = `You are the 'Judge'. You have heard the agents critique the code.
Now, rewrite the user's code to fix the issues mentioned (Security, Performance, Style).
Add comments explaining the changes.
Return ONLY the raw code block (no markdown ticks).`

// entry bundles everything the catalog knows about one persona.
type entry struct {
	persona     models.Persona
	instruction string
	canned      []string
}

var entries = []entry{
	{
		persona: models.Persona{Name: Sentinel, Focus: models.FocusSecurity, Order: 1, Icon: "🛡️", Style: "sentinel"},
		instruction: "You are 'Sentinel', a ruthless Security Expert. You look for vulnerabilities (SQLi, XSS, plaintext creds). " +
			"Critique the following code in 1-2 sharp sentences. Focus ONLY on security.",
		canned: []string{
			"Input flows straight into the logic with zero validation; one crafted payload and this is an injection vector.",
			"Secrets in source? Move credentials to the environment or a vault before this ships.",
			"No bounds or type checks on external data. Treat every input as hostile.",
			"Error messages leak internals. An attacker learns your stack trace for free.",
		},
	},
	{
		persona: models.Persona{Name: Flash, Focus: models.FocusPerformance, Order: 2, Icon: "⚡", Style: "flash"},
		instruction: "You are 'Flash', a Performance Optimizer. You hate O(n^2), slow I/O, and memory leaks. " +
			"Critique the following code in 1-2 sharp sentences. Focus ONLY on speed and efficiency.",
		canned: []string{
			"Nested iteration detected. That's O(n^2) waiting to melt your CPU on real data.",
			"You're doing I/O inside a hot path. Batch it or cache it.",
			"Allocating in a loop again? Preallocate and stop feeding the garbage collector.",
			"Repeated lookups on a list. A map would make this O(1).",
		},
	},
	{
		persona: models.Persona{Name: Sage, Focus: models.FocusStyle, Order: 3, Icon: "🦉", Style: "sage"},
		instruction: "You are 'Sage', a Code Purist. You care about PEP8, readability, variable names, and DRY. " +
			"Critique the following code in 1-2 sharp sentences. Focus ONLY on style.",
		canned: []string{
			"Single-letter names tell the reader nothing. Name things for what they mean.",
			"This logic is duplicated; extract it and keep the code DRY.",
			"No docstring, no comments, no mercy for the next maintainer.",
			"Inconsistent formatting. Pick a style guide and follow it.",
		},
	},
}

// All returns the fixed personas in display order.
func All() []models.Persona {
	out := make([]models.Persona, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.persona)
	}
	return out
}

// Lookup returns the persona with the given name.
func Lookup(name string) (models.Persona, error) {
	e, err := find(name)
	if err != nil {
		return models.Persona{}, err
	}
	return e.persona, nil
}

// Instruction returns the fixed system instruction for the named persona.
func Instruction(name string) (string, error) {
	e, err := find(name)
	if err != nil {
		return "", err
	}
	return e.instruction, nil
}

// Canned returns the offline critique pool for the named persona.
func Canned(name string) ([]string, error) {
	e, err := find(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.canned))
	copy(out, e.canned)
	return out, nil
}

// Contains reports whether name belongs to the fixed persona set.
func Contains(name string) bool {
	_, err := find(name)
	return err == nil
}

func find(name string) (*entry, error) {
	for i := range entries {
		if entries[i].persona.Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
}

package models

// Focus is the review area a persona is restricted to.
type Focus string

const (
	FocusSecurity    Focus = "security"
	FocusPerformance Focus = "performance"
	FocusStyle       Focus = "style"
)

// Persona is one of the fixed critique personalities.
type Persona struct {
	Name  string `json:"name"`
	Focus Focus  `json:"focus"`
	// Order is the display priority; lower values are shown first.
	Order int    `json:"order"`
	Icon  string `json:"icon"`
	// Style is the presentation class (e.g. "sentinel") used by the web page.
	Style string `json:"style"`
}

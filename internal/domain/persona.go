package domain

// PersonaContext is the identity and grounding text the twin speaks from.
// It is loaded once at startup and is read-only afterwards, so it is shared
// by every conversation without synchronization.
type PersonaContext struct {
	Name       string `json:"name"`
	Highlights string `json:"highlights,omitempty"`
	Knowledge  string `json:"knowledge"`
	Profile    string `json:"profile"`
}

package visualizer

import "github.com/amp-labs/viewfsm/statemachine"

// Options configures the visualization output.
type Options struct {
	// ShowEffects lists the entry effects of each state in its node
	ShowEffects bool

	// ShowEvents labels each arrow with its event
	ShowEvents bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right)
	Direction string

	// HighlightPath highlights states the view passed through
	HighlightPath []statemachine.State

	// Theme selects a Mermaid theme: "default", "dark", "forest"
	Theme string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowEffects: true,
		ShowEvents:  true,
		Direction:   "TB",
		Theme:       "default",
	}
}

// WithShowEffects enables/disables effect details.
func (o Options) WithShowEffects(show bool) Options {
	o.ShowEffects = show

	return o
}

// WithShowEvents enables/disables arrow labels.
func (o Options) WithShowEvents(show bool) Options {
	o.ShowEvents = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []statemachine.State) Options {
	o.HighlightPath = path

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}

// Package visualizer renders transition tables as Mermaid state diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/amp-labs/viewfsm/statemachine"
)

// ErrTableNil is returned when no table is given.
var ErrTableNil = errors.New("table cannot be nil")

// GenerateMermaid converts a Table to a Mermaid state diagram.
func GenerateMermaid(table *statemachine.Table) (string, error) {
	return GenerateMermaidWithOptions(table, DefaultOptions())
}

// GenerateMermaidFromFile loads a table from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	table, err := statemachine.LoadTable(path)
	if err != nil {
		return "", fmt.Errorf("failed to load table: %w", err)
	}

	return GenerateMermaid(table)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions(table *statemachine.Table, opts Options) (string, error) {
	if table == nil {
		return "", ErrTableNil
	}

	entries := table.Entries()

	var sb strings.Builder

	sb.WriteString("```mermaid\n")

	if opts.Theme != "" && opts.Theme != "default" {
		sb.WriteString(fmt.Sprintf("%%%%{init: {'theme': '%s'}}%%%%\n", opts.Theme))
	}

	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		sb.WriteString(fmt.Sprintf("    direction %s\n", opts.Direction))
	}

	sb.WriteString(fmt.Sprintf("    [*] --> %s\n", table.InitialState()))

	// Effects run on entering the target state, so they belong to its node.
	effects := make(map[statemachine.State][]string)

	for _, entry := range entries {
		for _, id := range entry.Effects {
			if !slices.Contains(effects[entry.To], string(id)) {
				effects[entry.To] = append(effects[entry.To], string(id))
			}
		}
	}

	for _, state := range usedStates(table.InitialState(), entries) {
		if opts.ShowEffects && len(effects[state]) > 0 {
			sb.WriteString(fmt.Sprintf("    %s: %s\\n[%s]\n",
				state, state, strings.Join(effects[state], ", ")))
		}

		for _, entry := range entries {
			if entry.From != state {
				continue
			}

			label := ""
			if opts.ShowEvents {
				label = ": " + string(entry.Event)
			}

			sb.WriteString(fmt.Sprintf("    %s --> %s%s\n", entry.From, entry.To, label))
		}
	}

	highlighted := make(map[statemachine.State]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlighted[state] = true
	}

	for _, state := range usedStates(table.InitialState(), entries) {
		switch {
		case highlighted[state]:
			sb.WriteString(fmt.Sprintf("    class %s highlighted\n", state))
		case state == statemachine.StateRejected:
			sb.WriteString(fmt.Sprintf("    class %s errorState\n", state))
		case len(effects[state]) > 0:
			sb.WriteString(fmt.Sprintf("    class %s effectState\n", state))
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef effectState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef errorState fill:#ffcdd2,stroke:#c62828,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	sb.WriteString("```\n")

	return sb.String(), nil
}

// usedStates lists the initial state and every state an entry names, in the
// order of statemachine.States.
func usedStates(initial statemachine.State, entries []statemachine.Entry) []statemachine.State {
	used := map[statemachine.State]bool{initial: true}

	for _, entry := range entries {
		used[entry.From] = true
		used[entry.To] = true
	}

	states := make([]statemachine.State, 0, len(used))

	for _, state := range statemachine.States() {
		if used[state] {
			states = append(states, state)
		}
	}

	return states
}

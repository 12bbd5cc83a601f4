package validator

import (
	"errors"
	"fmt"

	"github.com/amp-labs/viewfsm/statemachine"
)

var (
	// ErrTransitionExists is returned when attempting to add a transition that already exists.
	ErrTransitionExists = errors.New("transition already exists")
	// ErrStateNotFound is returned when attempting to remove a state the table does not use.
	ErrStateNotFound = errors.New("state not found")
	// ErrDuplicateNotFound is returned when attempting to remove a duplicate that doesn't exist.
	ErrDuplicateNotFound = errors.New("duplicate not found")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(config *statemachine.TableConfig) error
}

// AddFailureTransition creates a fix that lets state take a Failure.
func AddFailureTransition(state statemachine.State) *Fix {
	return addTransition(statemachine.Entry{
		From:  state,
		Event: statemachine.EventFailure,
		To:    statemachine.StateRejected,
	})
}

// AddRecoveryTransition creates a fix that lets the rejected state retry the fetch.
func AddRecoveryTransition() *Fix {
	return addTransition(statemachine.Entry{
		From:    statemachine.StateRejected,
		Event:   statemachine.EventRequest,
		To:      statemachine.StatePending,
		Effects: []statemachine.EffectID{statemachine.EffectFetchPersons},
	})
}

func addTransition(entry statemachine.Entry) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Add transition from '%s' on '%s' to '%s'", entry.From, entry.Event, entry.To),
		Apply: func(config *statemachine.TableConfig) error {
			for _, t := range config.Transitions {
				if t.From == entry.From && t.Event == entry.Event {
					return fmt.Errorf("%w: (%s, %s)", ErrTransitionExists, entry.From, entry.Event)
				}
			}

			config.Transitions = append(config.Transitions, entry)

			return nil
		},
	}
}

// RemoveUnreachableState creates a fix that drops every transition into or
// out of state.
func RemoveUnreachableState(state statemachine.State) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", state),
		Apply: func(config *statemachine.TableConfig) error {
			kept := make([]statemachine.Entry, 0, len(config.Transitions))

			for _, t := range config.Transitions {
				if t.From != state && t.To != state {
					kept = append(kept, t)
				}
			}

			if len(kept) == len(config.Transitions) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, state)
			}

			config.Transitions = kept

			return nil
		},
	}
}

// RemoveDuplicateTransition creates a fix that keeps only the first entry for
// (state, event).
func RemoveDuplicateTransition(state statemachine.State, event statemachine.Event) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove duplicate '%s' transitions from '%s'", event, state),
		Apply: func(config *statemachine.TableConfig) error {
			kept := make([]statemachine.Entry, 0, len(config.Transitions))
			seen := false
			found := false

			for _, t := range config.Transitions {
				if t.From == state && t.Event == event {
					if seen {
						found = true

						continue
					}

					seen = true
				}

				kept = append(kept, t)
			}

			if !found {
				return ErrDuplicateNotFound
			}

			config.Transitions = kept

			return nil
		},
	}
}

// ApplyFixes applies a list of fixes to a config.
func ApplyFixes(config *statemachine.TableConfig, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			err := fix.Apply(config)
			if err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}

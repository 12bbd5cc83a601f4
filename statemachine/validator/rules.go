//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"slices"

	"github.com/amp-labs/viewfsm/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a table configuration for one kind of issue.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.TableConfig) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&structureRule{},
		&duplicateTransitionRule{},
		&unreachableStateRule{},
		&deadEndRule{},
		&recoveryRule{},
		&failureCoverageRule{},
		&effectResultRule{},
		&selectionRule{},
	}
}

// structureRule reports what would stop the table from being built.
type structureRule struct{}

func (r *structureRule) Name() string { return "Structure" }

func (r *structureRule) Severity() Severity { return SeverityError }

func (r *structureRule) Check(config *statemachine.TableConfig) RuleResult {
	var errors []ValidationError

	if config.Name == "" {
		errors = append(errors, ValidationError{
			Code:    "MISSING_NAME",
			Message: "Table has no name",
		})
	}

	if config.InitialState == "" {
		errors = append(errors, ValidationError{
			Code:    "MISSING_INITIAL_STATE",
			Message: "Table has no initial state",
		})
	} else if _, err := statemachine.ParseState(string(config.InitialState)); err != nil {
		errors = append(errors, ValidationError{
			Code:     "UNKNOWN_NAME",
			Message:  fmt.Sprintf("Initial state: %v", err),
			Location: Location{State: config.InitialState},
		})
	}

	if len(config.Transitions) == 0 {
		errors = append(errors, ValidationError{
			Code:    "NO_TRANSITIONS",
			Message: "Table declares no transitions",
		})
	}

	for i, entry := range config.Transitions {
		for _, err := range entryNameErrors(entry) {
			errors = append(errors, ValidationError{
				Code:     "UNKNOWN_NAME",
				Message:  err.Error(),
				Location: Location{Entry: i + 1, State: entry.From, Event: entry.Event},
			})
		}
	}

	return RuleResult{Errors: errors}
}

func entryNameErrors(entry statemachine.Entry) []error {
	var errs []error

	if _, err := statemachine.ParseState(string(entry.From)); err != nil {
		errs = append(errs, err)
	}

	if _, err := statemachine.ParseEvent(string(entry.Event)); err != nil {
		errs = append(errs, err)
	}

	if _, err := statemachine.ParseState(string(entry.To)); err != nil {
		errs = append(errs, err)
	}

	for _, id := range entry.Effects {
		if _, err := statemachine.ParseEffectID(string(id)); err != nil {
			errs = append(errs, err)
		}
	}

	for _, field := range entry.Clears {
		if _, err := statemachine.ParseField(string(field)); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// duplicateTransitionRule checks for two entries on the same (state, event).
type duplicateTransitionRule struct{}

func (r *duplicateTransitionRule) Name() string { return "DuplicateTransition" }

func (r *duplicateTransitionRule) Severity() Severity { return SeverityError }

func (r *duplicateTransitionRule) Check(config *statemachine.TableConfig) RuleResult {
	var errors []ValidationError

	type key struct {
		state statemachine.State
		event statemachine.Event
	}

	seen := make(map[key]bool)

	for i, entry := range config.Transitions {
		k := key{entry.From, entry.Event}
		if seen[k] {
			errors = append(errors, ValidationError{
				Code:     "DUPLICATE_TRANSITION",
				Message:  fmt.Sprintf("Event '%s' is declared more than once in state '%s'", entry.Event, entry.From),
				Location: Location{Entry: i + 1, State: entry.From, Event: entry.Event},
				Fix:      RemoveDuplicateTransition(entry.From, entry.Event),
			})
		}

		seen[k] = true
	}

	return RuleResult{Errors: errors}
}

// unreachableStateRule checks for states used by the table that no path
// from the initial state can enter. The rejected state is always reachable
// because illegal events land there.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string { return "UnreachableState" }

func (r *unreachableStateRule) Severity() Severity { return SeverityError }

func (r *unreachableStateRule) Check(config *statemachine.TableConfig) RuleResult {
	var errors []ValidationError

	reachable := reachableStates(config)

	for _, state := range usedStates(config) {
		if reachable[state] {
			continue
		}

		errors = append(errors, ValidationError{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state, config.InitialState),
			Location: Location{State: state},
			Fix:      RemoveUnreachableState(state),
		})
	}

	return RuleResult{Errors: errors}
}

// deadEndRule checks for reachable states with no outgoing transitions. A
// view has no final state, so such a state can never be left.
type deadEndRule struct{}

func (r *deadEndRule) Name() string { return "DeadEnd" }

func (r *deadEndRule) Severity() Severity { return SeverityError }

func (r *deadEndRule) Check(config *statemachine.TableConfig) RuleResult {
	var errors []ValidationError

	reachable := reachableStates(config)
	outgoing := outgoingEvents(config)

	for _, state := range statemachine.States() {
		// Reported by recoveryRule.
		if state == statemachine.StateRejected {
			continue
		}

		if reachable[state] && len(outgoing[state]) == 0 {
			errors = append(errors, ValidationError{
				Code:     "MISSING_TRANSITION",
				Message:  fmt.Sprintf("State '%s' has no outgoing transitions", state),
				Location: Location{State: state},
			})
		}
	}

	return RuleResult{Errors: errors}
}

// recoveryRule requires a way out of the rejected state.
type recoveryRule struct{}

func (r *recoveryRule) Name() string { return "Recovery" }

func (r *recoveryRule) Severity() Severity { return SeverityError }

func (r *recoveryRule) Check(config *statemachine.TableConfig) RuleResult {
	if len(outgoingEvents(config)[statemachine.StateRejected]) > 0 {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "NO_RECOVERY",
		Message:  "State 'rejected' has no outgoing transitions; a failed view can never retry",
		Location: Location{State: statemachine.StateRejected},
		Fix:      AddRecoveryTransition(),
	}}}
}

// failureCoverageRule warns about states that cannot take a Failure. Illegal
// events in those states skip the failure transition and land in the
// rejected state directly.
type failureCoverageRule struct{}

func (r *failureCoverageRule) Name() string { return "FailureCoverage" }

func (r *failureCoverageRule) Severity() Severity { return SeverityWarning }

func (r *failureCoverageRule) Check(config *statemachine.TableConfig) RuleResult {
	var warnings []ValidationWarning

	reachable := reachableStates(config)
	outgoing := outgoingEvents(config)

	for _, state := range statemachine.States() {
		if state == config.InitialState || state == statemachine.StateRejected || !reachable[state] {
			continue
		}

		if slices.Contains(outgoing[state], statemachine.EventFailure) {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "MISSING_FAILURE",
			Message:  fmt.Sprintf("State '%s' does not declare '%s'", state, statemachine.EventFailure),
			Location: Location{State: state, Event: statemachine.EventFailure},
			Fix:      AddFailureTransition(state),
		})
	}

	return RuleResult{Warnings: warnings}
}

// effectResultRule warns when an entry starts a fetch in a state that cannot
// accept its Success result.
type effectResultRule struct{}

func (r *effectResultRule) Name() string { return "EffectResult" }

func (r *effectResultRule) Severity() Severity { return SeverityWarning }

func (r *effectResultRule) Check(config *statemachine.TableConfig) RuleResult {
	var warnings []ValidationWarning

	outgoing := outgoingEvents(config)

	for i, entry := range config.Transitions {
		if !slices.Contains(entry.Effects, statemachine.EffectFetchPersons) {
			continue
		}

		if slices.Contains(outgoing[entry.To], statemachine.EventSuccess) {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code: "UNHANDLED_EFFECT_RESULT",
			Message: fmt.Sprintf("Effect '%s' starts on entering '%s', which does not accept '%s'",
				statemachine.EffectFetchPersons, entry.To, statemachine.EventSuccess),
			Location: Location{Entry: i + 1, State: entry.From, Event: entry.Event},
		})
	}

	return RuleResult{Warnings: warnings}
}

// selectionRule warns about entering the detail state by any event other
// than selectItem, which is the only event that carries an index.
type selectionRule struct{}

func (r *selectionRule) Name() string { return "Selection" }

func (r *selectionRule) Severity() Severity { return SeverityWarning }

func (r *selectionRule) Check(config *statemachine.TableConfig) RuleResult {
	var warnings []ValidationWarning

	for i, entry := range config.Transitions {
		if entry.To != statemachine.StateDetailSelected || entry.Event == statemachine.EventSelectItem {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "SELECTION_WITHOUT_INDEX",
			Message:  fmt.Sprintf("'%s' enters '%s' without a selected index and will be rejected unless one is kept", entry.Event, entry.To),
			Location: Location{Entry: i + 1, State: entry.From, Event: entry.Event},
		})
	}

	return RuleResult{Warnings: warnings}
}

// Helper functions

func reachableStates(config *statemachine.TableConfig) map[statemachine.State]bool {
	reachable := map[statemachine.State]bool{
		config.InitialState:       true,
		statemachine.StateRejected: true,
	}

	queue := []statemachine.State{config.InitialState, statemachine.StateRejected}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, entry := range config.Transitions {
			if entry.From == current && !reachable[entry.To] {
				reachable[entry.To] = true
				queue = append(queue, entry.To)
			}
		}
	}

	return reachable
}

func outgoingEvents(config *statemachine.TableConfig) map[statemachine.State][]statemachine.Event {
	outgoing := make(map[statemachine.State][]statemachine.Event)

	for _, entry := range config.Transitions {
		outgoing[entry.From] = append(outgoing[entry.From], entry.Event)
	}

	return outgoing
}

// usedStates lists the known states named by the table, in declaration order.
func usedStates(config *statemachine.TableConfig) []statemachine.State {
	used := make(map[statemachine.State]bool)

	for _, entry := range config.Transitions {
		used[entry.From] = true
		used[entry.To] = true
	}

	var states []statemachine.State

	for _, state := range statemachine.States() {
		if used[state] {
			states = append(states, state)
		}
	}

	return states
}

package statemachine

// Engine computes transitions from a table. It performs no side effects.
type Engine struct {
	table *Table
}

// NewEngine creates an engine over table.
func NewEngine(table *Table) *Engine {
	return &Engine{table: table}
}

// Table returns the table the engine reads.
func (e *Engine) Table() *Table {
	return e.table
}

// Transition returns the next state and the ordered entry effects for event
// in current. It returns an *InvalidTransitionError when the table has no
// entry for the pair.
func (e *Engine) Transition(current State, event Event) (TransitionResult, error) {
	entry, ok := e.table.Lookup(current, event)
	if !ok {
		return TransitionResult{}, &InvalidTransitionError{State: current, Event: event}
	}

	return TransitionResult{
		From:    current,
		Event:   event,
		Next:    entry.To,
		Effects: entry.Effects,
		Clears:  entry.Clears,
	}, nil
}

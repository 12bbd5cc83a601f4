package statemachine

import (
	"fmt"
	"slices"
)

// DefaultTableName is the name of the built-in persons table.
const DefaultTableName = "persons"

// Entry is one row of a transition table: on Event in From, move to To,
// initiate Effects in order and unset the Clears fields.
type Entry struct {
	From    State      `json:"from"              yaml:"from"`
	Event   Event      `json:"event"             yaml:"event"`
	To      State      `json:"to"                yaml:"to"`
	Effects []EffectID `json:"effects,omitempty" yaml:"effects,omitempty"`
	Clears  []Field    `json:"clears,omitempty"  yaml:"clears,omitempty"`
}

type tableKey struct {
	state State
	event Event
}

// Table is an immutable transition table. A (state, event) pair without an
// entry is illegal.
type Table struct {
	name    string
	initial State
	entries []Entry
	index   map[tableKey]int
}

// NewTable builds a table. Entries keep their declaration order.
func NewTable(name string, initial State, entries ...Entry) (*Table, error) {
	if name == "" {
		return nil, ErrTableNameRequired
	}

	if initial == "" {
		return nil, ErrInitialStateRequired
	}

	if _, err := ParseState(string(initial)); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrTransitionRequired
	}

	table := &Table{
		name:    name,
		initial: initial,
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[tableKey]int, len(entries)),
	}

	for i, entry := range entries {
		if err := checkEntry(entry); err != nil {
			return nil, &TableError{Index: i, State: entry.From, Event: entry.Event, Err: err}
		}

		key := tableKey{state: entry.From, event: entry.Event}
		if _, exists := table.index[key]; exists {
			return nil, &TableError{Index: i, State: entry.From, Event: entry.Event, Err: ErrDuplicateTransition}
		}

		table.index[key] = len(table.entries)
		table.entries = append(table.entries, cloneEntry(entry))
	}

	return table, nil
}

func checkEntry(entry Entry) error {
	if _, err := ParseState(string(entry.From)); err != nil {
		return err
	}

	if _, err := ParseEvent(string(entry.Event)); err != nil {
		return err
	}

	if _, err := ParseState(string(entry.To)); err != nil {
		return err
	}

	for _, id := range entry.Effects {
		if _, err := ParseEffectID(string(id)); err != nil {
			return err
		}
	}

	for _, field := range entry.Clears {
		if _, err := ParseField(string(field)); err != nil {
			return err
		}
	}

	return nil
}

func cloneEntry(entry Entry) Entry {
	entry.Effects = slices.Clone(entry.Effects)
	entry.Clears = slices.Clone(entry.Clears)

	return entry
}

var defaultTable = mustTable(NewTable(DefaultTableName, StateIdle,
	Entry{From: StateIdle, Event: EventRequest, To: StatePending, Effects: []EffectID{EffectFetchPersons}},
	Entry{From: StatePending, Event: EventSuccess, To: StateListLoaded},
	Entry{From: StatePending, Event: EventFailure, To: StateRejected},
	Entry{From: StateListLoaded, Event: EventSelectItem, To: StateDetailSelected},
	Entry{From: StateListLoaded, Event: EventFailure, To: StateRejected},
	Entry{From: StateDetailSelected, Event: EventReturn, To: StateListLoaded, Clears: []Field{FieldIndex}},
	Entry{From: StateDetailSelected, Event: EventFailure, To: StateRejected},
	Entry{From: StateRejected, Event: EventRequest, To: StatePending, Effects: []EffectID{EffectFetchPersons}},
))

func mustTable(table *Table, err error) *Table {
	if err != nil {
		panic(fmt.Sprintf("statemachine: invalid built-in table: %v", err))
	}

	return table
}

// DefaultTable returns the persons list/detail table.
func DefaultTable() *Table {
	return defaultTable
}

// Name returns the table name. It labels logs and metrics.
func (t *Table) Name() string {
	return t.name
}

// InitialState returns the state a new machine starts in.
func (t *Table) InitialState() State {
	return t.initial
}

// Lookup returns the entry for (state, event), if one is declared.
func (t *Table) Lookup(state State, event Event) (Entry, bool) {
	i, ok := t.index[tableKey{state: state, event: event}]
	if !ok {
		return Entry{}, false
	}

	return cloneEntry(t.entries[i]), true
}

// Entries returns a copy of all entries in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, entry := range t.entries {
		out[i] = cloneEntry(entry)
	}

	return out
}

// LegalEvents returns the events that have an entry from state.
func (t *Table) LegalEvents(state State) []Event {
	var events []Event

	for _, event := range Events() {
		if _, ok := t.index[tableKey{state: state, event: event}]; ok {
			events = append(events, event)
		}
	}

	return events
}

// Allows reports whether event is legal in state.
func (t *Table) Allows(state State, event Event) bool {
	_, ok := t.index[tableKey{state: state, event: event}]

	return ok
}

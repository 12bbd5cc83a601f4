package statemachine

import "slices"

// Record is one item produced by a fetch effect, keyed by field name.
type Record map[string]any

// Payload carries the data accumulated by transitions.
//
// Merging is additive: a field that is set on the incoming payload replaces
// the previous value and a field that is unset keeps it. A nil Items slice,
// a nil Index and a nil Err all mean "unset". Fields are only removed when
// a table entry lists them in Clears.
type Payload struct {
	Items []Record
	Index *int
	Err   error
}

// Has reports whether the field is set.
func (p Payload) Has(field Field) bool {
	switch field {
	case FieldItems:
		return p.Items != nil
	case FieldIndex:
		return p.Index != nil
	case FieldErr:
		return p.Err != nil
	default:
		return false
	}
}

// Merge returns a new payload with next's set fields laid over p.
func (p Payload) Merge(next Payload) Payload {
	out := p.clone()

	if next.Items != nil {
		out.Items = slices.Clone(next.Items)
	}

	if next.Index != nil {
		idx := *next.Index
		out.Index = &idx
	}

	if next.Err != nil {
		out.Err = next.Err
	}

	return out
}

// Without returns a copy of p with the given fields unset.
func (p Payload) Without(fields ...Field) Payload {
	out := p.clone()

	for _, field := range fields {
		switch field {
		case FieldItems:
			out.Items = nil
		case FieldIndex:
			out.Index = nil
		case FieldErr:
			out.Err = nil
		}
	}

	return out
}

func (p Payload) clone() Payload {
	out := Payload{Err: p.Err}

	if p.Items != nil {
		out.Items = slices.Clone(p.Items)
	}

	if p.Index != nil {
		idx := *p.Index
		out.Index = &idx
	}

	return out
}

// WithItems is shorthand for a payload carrying only items.
func WithItems(items []Record) Payload {
	if items == nil {
		items = []Record{}
	}

	return Payload{Items: items}
}

// WithIndex is shorthand for a payload carrying only a selection index.
func WithIndex(index int) Payload {
	return Payload{Index: &index}
}

// WithErr is shorthand for a payload carrying only an error.
func WithErr(err error) Payload {
	return Payload{Err: err}
}

// Snapshot is the observable output of a machine. A new value is committed on
// every successful dispatch; committed snapshots are never modified.
type Snapshot struct {
	State   State
	Payload Payload
	// Seq is the number of commits that produced this snapshot.
	Seq uint64
}

// Selected returns the item the index points to, if the index is valid.
func (s Snapshot) Selected() (Record, bool) {
	idx := s.Payload.Index
	if idx == nil || *idx < 0 || *idx >= len(s.Payload.Items) {
		return nil, false
	}

	return s.Payload.Items[*idx], true
}

// InitialSnapshot is the snapshot every machine starts from.
func InitialSnapshot(initial State) Snapshot {
	return Snapshot{State: initial}
}

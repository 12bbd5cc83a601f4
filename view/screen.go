// Package view maps machine snapshots to screens and renders them as text.
package view

import (
	"fmt"

	"github.com/amp-labs/viewfsm/statemachine"
)

// Kind identifies which of the four screens a snapshot shows.
type Kind string

const (
	KindLoading Kind = "loading"
	KindList    Kind = "list"
	KindDetail  Kind = "detail"
	KindError   Kind = "error"
)

// Item is one row of the list screen.
type Item struct {
	Index int
	Label string
}

// Field is one labelled value of the detail screen.
type Field struct {
	Key   string
	Label string
	Value string
}

// Screen is what the terminal shows for one snapshot.
type Screen struct {
	Kind  Kind
	Title string
	// Items is set on the list screen, in snapshot order.
	Items []Item
	// Fields is set on the detail screen.
	Fields []Field
	// Message is set on the error screen.
	Message string
	// Seq is the snapshot sequence the screen was selected from.
	Seq uint64
}

// Select picks the screen for a snapshot. It never fails: a detail snapshot
// without a valid selection and a rejected snapshot without an error both
// produce an error screen.
func Select(snapshot statemachine.Snapshot) Screen {
	screen := Screen{Seq: snapshot.Seq}

	switch snapshot.State {
	case statemachine.StateIdle, statemachine.StatePending:
		screen.Kind = KindLoading
		screen.Title = "Loading people"
	case statemachine.StateListLoaded:
		screen.Kind = KindList
		screen.Title = fmt.Sprintf("People (%d)", len(snapshot.Payload.Items))
		screen.Items = make([]Item, len(snapshot.Payload.Items))

		for i, record := range snapshot.Payload.Items {
			screen.Items[i] = Item{Index: i, Label: ItemLabel(record, i)}
		}
	case statemachine.StateDetailSelected:
		record, ok := snapshot.Selected()
		if !ok {
			return errorScreen(screen, "no item selected")
		}

		screen.Kind = KindDetail
		screen.Title = ItemLabel(record, *snapshot.Payload.Index)
		screen.Fields = Fields(record)
	case statemachine.StateRejected:
		if snapshot.Payload.Err == nil {
			return errorScreen(screen, "unknown error")
		}

		return errorScreen(screen, snapshot.Payload.Err.Error())
	default:
		return errorScreen(screen, fmt.Sprintf("unknown state %q", snapshot.State))
	}

	return screen
}

func errorScreen(screen Screen, message string) Screen {
	screen.Kind = KindError
	screen.Title = "Something went wrong"
	screen.Message = message

	return screen
}

// ItemLabel names a record by its name or title, falling back to its position.
func ItemLabel(record statemachine.Record, index int) string {
	for _, key := range []string{"name", "title"} {
		if s, ok := record[key].(string); ok && s != "" {
			return s
		}
	}

	return fmt.Sprintf("Item %d", index+1)
}

package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/amp-labs/viewfsm/statemachine"
	smtesting "github.com/amp-labs/viewfsm/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(state statemachine.State, payload statemachine.Payload) statemachine.Snapshot {
	return statemachine.Snapshot{State: state, Payload: payload, Seq: 7}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	persons := smtesting.Persons()
	items := statemachine.WithItems(persons)

	tests := []struct {
		name    string
		snap    statemachine.Snapshot
		kind    Kind
		title   string
		message string
	}{
		{"idle", snapshot(statemachine.StateIdle, statemachine.Payload{}), KindLoading, "Loading people", ""},
		{"pending", snapshot(statemachine.StatePending, statemachine.Payload{}), KindLoading, "Loading people", ""},
		{"list", snapshot(statemachine.StateListLoaded, items), KindList, "People (3)", ""},
		{
			"detail",
			snapshot(statemachine.StateDetailSelected, items.Merge(statemachine.WithIndex(2))),
			KindDetail, "Leia Organa", "",
		},
		{
			"detail without index",
			snapshot(statemachine.StateDetailSelected, items),
			KindError, "Something went wrong", "no item selected",
		},
		{
			"rejected",
			snapshot(statemachine.StateRejected, statemachine.WithErr(errors.New("connection refused"))),
			KindError, "Something went wrong", "connection refused",
		},
		{"rejected without error", snapshot(statemachine.StateRejected, statemachine.Payload{}), KindError, "Something went wrong", "unknown error"},
		{"unknown state", snapshot("paused", statemachine.Payload{}), KindError, "Something went wrong", `unknown state "paused"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			screen := Select(tt.snap)

			assert.Equal(t, tt.kind, screen.Kind)
			assert.Equal(t, tt.title, screen.Title)
			assert.Equal(t, tt.message, screen.Message)
			assert.Equal(t, uint64(7), screen.Seq)
		})
	}
}

func TestSelectListKeepsOrder(t *testing.T) {
	t.Parallel()

	screen := Select(snapshot(statemachine.StateListLoaded, statemachine.WithItems(append(smtesting.Persons(),
		statemachine.Record{"height": "96"}))))

	require.Len(t, screen.Items, 4)
	assert.Equal(t, []Item{
		{Index: 0, Label: "Luke Skywalker"},
		{Index: 1, Label: "C-3PO"},
		{Index: 2, Label: "Leia Organa"},
		{Index: 3, Label: "Item 4"},
	}, screen.Items)
}

func TestFields(t *testing.T) {
	t.Parallel()

	fields := Fields(statemachine.Record{
		"name":       "Luke Skywalker",
		"url":        "https://swapi.dev/api/people/1/",
		"eye_color":  "blue",
		"height":     "172",
		"films":      []any{"A New Hope", "Empire"},
		"vehicles":   []any{},
		"homeworld":  nil,
		"mass":       float64(77),
		"field10":    "ten",
		"field2":     "two",
		"birthYear":  "19BBY",
		"is_jedi":    true,
		"attributes": map[string]any{"a": 1},
	})

	keys := make([]string, len(fields))
	for i, field := range fields {
		keys[i] = field.Key
	}

	assert.Equal(t, []string{
		"attributes", "birthYear", "eye_color", "field2", "field10", "films",
		"height", "homeworld", "is_jedi", "mass", "vehicles",
	}, keys)

	values := make(map[string]Field, len(fields))
	for _, field := range fields {
		values[field.Key] = field
	}

	assert.Equal(t, "Eye Color", values["eye_color"].Label)
	assert.Equal(t, "Birth Year", values["birthYear"].Label)
	assert.Equal(t, "A New Hope, Empire", values["films"].Value)
	assert.Equal(t, "none", values["vehicles"].Value)
	assert.Equal(t, "n/a", values["homeworld"].Value)
	assert.Equal(t, "77", values["mass"].Value)
	assert.Equal(t, "true", values["is_jedi"].Value)
	assert.Equal(t, "{1 fields}", values["attributes"].Value)
}

func TestFieldsKeepsLinkValues(t *testing.T) {
	t.Parallel()

	fields := Fields(statemachine.Record{
		"name":      "Luke Skywalker",
		"url":       "https://swapi.dev/api/people/1/",
		"homeworld": "https://swapi.dev/api/planets/1/",
		"films":     []any{"https://swapi.dev/api/films/1/"},
	})

	require.Len(t, fields, 2)
	assert.Equal(t, Field{Key: "films", Label: "Films", Value: "https://swapi.dev/api/films/1/"}, fields[0])
	assert.Equal(t, Field{Key: "homeworld", Label: "Homeworld", Value: "https://swapi.dev/api/planets/1/"}, fields[1])
}

func TestRender(t *testing.T) {
	t.Parallel()

	persons := smtesting.Persons()

	tests := []struct {
		name   string
		screen Screen
		want   []string
	}{
		{"loading", Select(snapshot(statemachine.StatePending, statemachine.Payload{})), []string{"Loading people", "Loading…"}},
		{
			"list",
			Select(snapshot(statemachine.StateListLoaded, statemachine.WithItems(persons))),
			[]string{"People (3)", "  1. Luke Skywalker", "  2. C-3PO", "  3. Leia Organa"},
		},
		{"empty list", Select(snapshot(statemachine.StateListLoaded, statemachine.WithItems(nil))), []string{"No people found."}},
		{
			"detail",
			Select(snapshot(statemachine.StateDetailSelected,
				statemachine.WithItems(persons).Merge(statemachine.WithIndex(0)))),
			[]string{"Luke Skywalker", "Eye Color : blue", "Height    : 172"},
		},
		{
			"error",
			Select(snapshot(statemachine.StateRejected, statemachine.WithErr(errors.New("timeout")))),
			[]string{"Something went wrong", "  timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			require.NoError(t, Render(&buf, tt.screen, 40))

			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()

	banner := Banner("People", 20)
	lines := strings.Split(banner, "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "╒══════════════════╕", lines[0])
	assert.Equal(t, "│      People      │", lines[1])
	assert.Equal(t, "└──────────────────┘", lines[2])

	long := Banner(strings.Repeat("x", 50), 12)
	assert.Contains(t, long, "…")
}

func TestRenderWriteError(t *testing.T) {
	t.Parallel()

	err := Render(failingWriter{}, Screen{Kind: KindLoading}, 40)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render loading screen")
}

func TestTerminalWidthFallsBack(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultWidth, TerminalWidth(nil))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

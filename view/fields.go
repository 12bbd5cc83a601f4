package view

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/viewfsm/statemachine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fields lists a record's values in natural key order with human labels.
// The name is the screen title and is left out, as is the record's own url.
// Link fields such as homeworld and films are shown with their URL values.
func Fields(record statemachine.Record) []Field {
	keys := slices.Collect(maps.Keys(record))
	natsort.Sort(keys)

	fields := make([]Field, 0, len(keys))

	for _, key := range keys {
		if key == "name" || key == "url" {
			continue
		}

		fields = append(fields, Field{
			Key:   key,
			Label: Label(key),
			Value: FormatValue(record[key]),
		})
	}

	return fields
}

// Label turns a snake_case or camelCase key into title case: "eye_color"
// becomes "Eye Color".
func Label(key string) string {
	var words []string

	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		words = append(words, splitCamel(part)...)
	}

	return cases.Title(language.English).String(strings.Join(words, " "))
}

func splitCamel(s string) []string {
	var (
		words []string
		start int
	)

	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if runes[i] >= 'A' && runes[i] <= 'Z' && runes[i-1] >= 'a' && runes[i-1] <= 'z' {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}

	return append(words, string(runes[start:]))
}

// FormatValue renders a decoded JSON value on one line.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "n/a"
	case string:
		if v == "" {
			return "n/a"
		}

		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		if len(v) == 0 {
			return "none"
		}

		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = FormatValue(item)
		}

		return strings.Join(parts, ", ")
	case map[string]any:
		return fmt.Sprintf("{%d fields}", len(v))
	default:
		return fmt.Sprint(v)
	}
}

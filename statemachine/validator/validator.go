// Package validator checks transition tables for structural problems before
// they are loaded into a machine.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/viewfsm/statemachine"
)

// ValidationResult contains the results of validating a transition table.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE", "NO_RECOVERY"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // YAML example showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File  string             // Table file path
	Entry int                // 1-based transition index (0 if not entry-specific)
	State statemachine.State // State name if applicable
	Event statemachine.Event // Event name if applicable
}

// Validate checks a table configuration with the default rules.
func Validate(config *statemachine.TableConfig) ValidationResult {
	return ValidateWithRules(config, DefaultRules())
}

// ValidateTable checks an already built table.
func ValidateTable(table *statemachine.Table) ValidationResult {
	return Validate(table.Config())
}

// ValidateFile loads a table file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a table file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a table file and validates it with options.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	config, err := statemachine.LoadTableConfig(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "TABLE_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load table: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(config, DefaultRules())
	} else {
		result = Validate(config)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(config *statemachine.TableConfig, rules []Rule) ValidationResult {
	var result ValidationResult

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	result.Suggestions = generateSuggestions(config)

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(config *statemachine.TableConfig, rules []Rule) ValidationResult {
	result := ValidateWithRules(config, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
			Fix:      warning.Fix,
		})
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

func generateSuggestions(config *statemachine.TableConfig) []Suggestion {
	var suggestions []Suggestion

	entersDetail := false
	clearsIndex := false

	for _, entry := range config.Transitions {
		if entry.To == statemachine.StateDetailSelected {
			entersDetail = true
		}

		for _, field := range entry.Clears {
			if field == statemachine.FieldIndex {
				clearsIndex = true
			}
		}
	}

	if entersDetail && !clearsIndex {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider clearing the selected index when leaving the detail view",
			Example: `transitions:
  - from: detailSelected
    event: return
    to: listLoaded
    clears: [index]`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Fixes returns every fix attached to an error or warning, in report order.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, err := range r.Errors {
		if err.Fix != nil {
			fixes = append(fixes, err.Fix)
		}
	}

	for _, warn := range r.Warnings {
		if warn.Fix != nil {
			fixes = append(fixes, warn.Fix)
		}
	}

	return fixes
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Table is valid\n")
	} else {
		sb.WriteString(fmt.Sprintf("✗ Table has %d error(s)\n", len(r.Errors)))
	}

	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  [%s] %s%s\n", err.Code, err.Message, err.Location.suffix()))

		if err.Fix != nil {
			sb.WriteString(fmt.Sprintf("    Fix: %s\n", err.Fix.Description))
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("⚠ %d warning(s):\n", len(r.Warnings)))

		for _, warn := range r.Warnings {
			sb.WriteString(fmt.Sprintf("  [%s] %s%s\n", warn.Code, warn.Message, warn.Location.suffix()))
		}
	}

	for _, suggestion := range r.Suggestions {
		sb.WriteString(fmt.Sprintf("- %s\n", suggestion.Message))
	}

	return sb.String()
}

func (l Location) suffix() string {
	var parts []string

	if l.File != "" {
		parts = append(parts, "file: "+l.File)
	}

	if l.Entry > 0 {
		parts = append(parts, fmt.Sprintf("transition: %d", l.Entry))
	}

	if l.State != "" {
		parts = append(parts, "state: "+string(l.State))
	}

	if len(parts) == 0 {
		return ""
	}

	return " (" + strings.Join(parts, ", ") + ")"
}

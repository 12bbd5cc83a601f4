package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user leaves a prompt with Ctrl-C or Ctrl-D.
var ErrAborted = errors.New("aborted by user")

// Selector asks the user to pick one of items and returns its position.
type Selector interface {
	Select(label string, items []string) (int, error)
}

// PromptSelector is a Selector backed by a promptui list.
type PromptSelector struct {
	// Size is the number of rows shown at once. Defaults to promptui's.
	Size   int
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

var _ Selector = (*PromptSelector)(nil)

// Select runs the prompt. Typing filters items by a case-insensitive substring.
func (p *PromptSelector) Select(label string, items []string) (int, error) {
	sel := &promptui.Select{
		Label:  label,
		Items:  items,
		Size:   p.Size,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
		Searcher: func(input string, index int) bool {
			if input == "" {
				return true
			}

			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}

	idx, _, err := sel.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
			return 0, ErrAborted
		}

		return 0, err
	}

	return idx, nil
}

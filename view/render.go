package view

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

const (
	boxTopLeft     = "╒"
	boxTopRight    = "╕"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	ellipsis       = "…"

	boxPadding = 2
	minWidth   = 10
)

// TerminalWidth returns the width of f when it is a terminal, or DefaultWidth.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return DefaultWidth
	}

	width, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // fd fits in int
	if err != nil || width <= 0 {
		return DefaultWidth
	}

	return width
}

// Render writes screen as text, boxed to width columns.
func Render(w io.Writer, screen Screen, width int) error {
	width = max(width, minWidth)

	var sb strings.Builder

	sb.WriteString(Banner(screen.Title, width))
	sb.WriteString("\n")

	switch screen.Kind {
	case KindLoading:
		sb.WriteString("  Loading…\n")
	case KindList:
		if len(screen.Items) == 0 {
			sb.WriteString("  No people found.\n")
		}

		for _, item := range screen.Items {
			sb.WriteString(fmt.Sprintf("  %3d. %s\n", item.Index+1, truncate(item.Label, width-8))) //nolint:mnd
		}
	case KindDetail:
		labelWidth := 0
		for _, field := range screen.Fields {
			labelWidth = max(labelWidth, runewidth.StringWidth(field.Label))
		}

		for _, field := range screen.Fields {
			label := runewidth.FillRight(field.Label, labelWidth)
			value := truncate(field.Value, width-labelWidth-5) //nolint:mnd
			sb.WriteString(fmt.Sprintf("  %s : %s\n", label, value))
		}
	case KindError:
		sb.WriteString("  " + screen.Message + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("failed to render %s screen: %w", screen.Kind, err)
	}

	return nil
}

// Banner draws title centered in a box width columns wide.
func Banner(title string, width int) string {
	inner := max(width, minWidth) - boxPadding

	top := boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight
	middle := boxSide + padCenter(title, inner) + boxSide
	bottom := boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight

	return strings.Join([]string{top, middle, bottom}, "\n")
}

func padCenter(text string, width int) string {
	text = truncate(text, width)
	diff := width - runewidth.StringWidth(text)
	left := diff / 2 //nolint:mnd

	return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
}

// truncate shortens text to at most width display columns.
func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}

	return runewidth.Truncate(text, width, ellipsis)
}

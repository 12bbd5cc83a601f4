// Package cli drives a view machine from an interactive terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/amp-labs/viewfsm/view"
)

// ErrNotSettled is returned by RenderOnce when the machine is still loading
// after the timeout.
var ErrNotSettled = errors.New("view did not settle")

const (
	labelBack    = "[Back to list]"
	labelRefresh = "[Refresh]"
	labelRetry   = "[Retry]"
	labelQuit    = "[Quit]"
)

// Options configures Run and RenderOnce.
type Options struct {
	Out      io.Writer
	Width    int
	Selector Selector
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}

	if o.Width <= 0 {
		o.Width = view.TerminalWidth(os.Stdout)
	}

	if o.Selector == nil {
		o.Selector = &PromptSelector{}
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// action is one menu choice and the event it dispatches. A zero event quits.
type action struct {
	label   string
	event   statemachine.Event
	payload statemachine.Payload
}

// Run starts the machine and renders every settled screen, turning menu
// choices into events until the user quits or ctx ends. Quitting returns nil;
// Ctrl-C returns ErrAborted.
func Run(ctx context.Context, machine *statemachine.Machine, opts Options) error {
	opts = opts.withDefaults()

	changes := watch(machine)
	defer changes.stop()

	if err := machine.Start(ctx); err != nil && !errors.Is(err, statemachine.ErrAlreadyStarted) {
		return err
	}

	rendered := false

	var renderedSeq uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		snapshot := machine.Snapshot()
		screen := view.Select(snapshot)

		if !rendered || screen.Seq != renderedSeq {
			if err := view.Render(opts.Out, screen, opts.Width); err != nil {
				return err
			}

			rendered, renderedSeq = true, screen.Seq
		}

		actions := menu(machine.Table(), snapshot.State, screen)
		if len(actions) == 0 {
			if err := changes.wait(ctx, screen.Seq); err != nil {
				return err
			}

			continue
		}

		labels := make([]string, len(actions))
		for i, a := range actions {
			labels[i] = a.label
		}

		idx, err := opts.Selector.Select(screen.Title, labels)
		if err != nil {
			return err
		}

		if idx < 0 || idx >= len(actions) {
			return fmt.Errorf("%w: choice %d of %d", statemachine.ErrInvalidSelection, idx, len(actions))
		}

		chosen := actions[idx]
		if chosen.event == "" {
			opts.Logger.DebugContext(ctx, "user quit", "state", snapshot.State)

			return nil
		}

		opts.Logger.DebugContext(ctx, "user action", "state", snapshot.State, "event", chosen.event)

		machine.Dispatch(ctx, chosen.event, chosen.payload)
	}
}

// menu lists the choices for screen, offering only events the table allows
// in state. Loading screens have none.
func menu(table *statemachine.Table, state statemachine.State, screen view.Screen) []action {
	var actions []action

	allowed := func(event statemachine.Event) bool {
		return table.Allows(state, event)
	}

	switch screen.Kind {
	case view.KindLoading:
		return nil
	case view.KindList:
		if allowed(statemachine.EventSelectItem) {
			for _, item := range screen.Items {
				actions = append(actions, action{
					label:   item.Label,
					event:   statemachine.EventSelectItem,
					payload: statemachine.WithIndex(item.Index),
				})
			}
		}

		if allowed(statemachine.EventRequest) {
			actions = append(actions, action{label: labelRefresh, event: statemachine.EventRequest})
		}
	case view.KindDetail:
		if allowed(statemachine.EventReturn) {
			actions = append(actions, action{label: labelBack, event: statemachine.EventReturn})
		}
	case view.KindError:
		if allowed(statemachine.EventRequest) {
			actions = append(actions, action{label: labelRetry, event: statemachine.EventRequest})
		}
	}

	return append(actions, action{label: labelQuit})
}

// RenderOnce starts the machine, waits up to timeout for a screen other than
// loading, writes it to opts.Out and returns it.
func RenderOnce(
	ctx context.Context,
	machine *statemachine.Machine,
	opts Options,
	timeout time.Duration,
) (view.Screen, error) {
	opts = opts.withDefaults()

	changes := watch(machine)
	defer changes.stop()

	if err := machine.Start(ctx); err != nil && !errors.Is(err, statemachine.ErrAlreadyStarted) {
		return view.Screen{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		screen := view.Select(machine.Snapshot())
		if screen.Kind != view.KindLoading {
			return screen, view.Render(opts.Out, screen, opts.Width)
		}

		if err := changes.wait(ctx, screen.Seq); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return screen, fmt.Errorf("%w after %s", ErrNotSettled, timeout)
			}

			return screen, err
		}
	}
}

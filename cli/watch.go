package cli

import (
	"context"

	"github.com/amp-labs/viewfsm/statemachine"
)

// watcher wakes the terminal loop when the machine commits a snapshot.
type watcher struct {
	machine *statemachine.Machine
	notify  chan struct{}
	stop    func()
}

func watch(machine *statemachine.Machine) *watcher {
	w := &watcher{
		machine: machine,
		notify:  make(chan struct{}, 1),
	}

	w.stop = machine.Subscribe(func(statemachine.Snapshot) {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	})

	return w
}

// wait blocks until the committed sequence moves past seq or ctx ends.
func (w *watcher) wait(ctx context.Context, seq uint64) error {
	for w.machine.Snapshot().Seq == seq {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.notify:
		}
	}

	return nil
}

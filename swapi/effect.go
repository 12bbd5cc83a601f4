package swapi

import (
	"context"

	"github.com/amp-labs/viewfsm/statemachine"
)

// FetchPersons returns the fetchPersons effect. It fetches on the calling
// goroutine, so wrap it with statemachine.Async to keep dispatch unblocked.
// It dispatches Success with the people, or Failure with the error.
func FetchPersons(client *Client) statemachine.Effect {
	return func(ctx context.Context, _ statemachine.Event, dispatch statemachine.DispatchFunc) {
		people, err := client.People(ctx)
		if err != nil {
			dispatch(ctx, statemachine.EventFailure, statemachine.WithErr(err))

			return
		}

		dispatch(ctx, statemachine.EventSuccess, statemachine.WithItems(people))
	}
}

// Registry returns the effect registry for the persons table.
func Registry(effect statemachine.Effect) statemachine.EffectRegistry {
	return statemachine.EffectRegistry{
		statemachine.EffectFetchPersons: effect,
	}
}

package swapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/viewfsm/logger"
	"github.com/amp-labs/viewfsm/statemachine"
	smtesting "github.com/amp-labs/viewfsm/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/api", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return client
}

func TestPeople(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/people/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = io.WriteString(w, `{"count": 2, "next": null, "previous": null, "results": [
			{"name": "Luke Skywalker", "height": "172"},
			{"name": "C-3PO", "height": "167"}
		]}`)
	})

	people, err := client.People(t.Context())
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Luke Skywalker", people[0]["name"])
	assert.Equal(t, "C-3PO", people[1]["name"])
}

func TestPeoplePagination(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			_, _ = fmt.Fprintf(w, `{"count": 3, "next": "http://%s/api/people/?page=2", "results": [{"name": "Luke Skywalker"}]}`,
				r.Host)
		case "2":
			_, _ = io.WriteString(w, `{"count": 3, "next": "/api/people/?page=3", "results": [{"name": "C-3PO"}]}`)
		default:
			_, _ = io.WriteString(w, `{"count": 3, "next": null, "results": [{"name": "Leia Organa"}]}`)
		}
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name     string
		maxPages int
		want     []string
	}{
		{"single page by default", 0, []string{"Luke Skywalker"}},
		{"two pages", 2, []string{"Luke Skywalker", "C-3PO"}},
		{"stops at last page", 10, []string{"Luke Skywalker", "C-3PO", "Leia Organa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(server.URL+"/api/", WithMaxPages(tt.maxPages))
			require.NoError(t, err)

			people, err := client.People(t.Context())
			require.NoError(t, err)

			names := make([]string, len(people))
			for i, person := range people {
				names[i], _ = person["name"].(string)
			}

			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPeopleStatusError(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.People(t.Context())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "rate limited", statusErr.Body)
	assert.Contains(t, err.Error(), "429 Too Many Requests")

	keys := make([]string, 0, 2)
	for _, attr := range logger.ErrorAttrs(err) {
		keys = append(keys, attr.Key)
	}

	assert.Equal(t, []string{"swapi_url", "swapi_page"}, keys)
}

func TestPeopleInvalidBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"missing results", `{"count": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := peopleServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.People(t.Context())
			require.ErrorIs(t, err, ErrInvalidPage)
		})
	}
}

func TestPeopleEmptyList(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"count": 0, "results": []}`)
	})

	people, err := client.People(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, people)
	assert.Empty(t, people)
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient("/api")
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	_, err = NewClient("://bad")
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	client, err := NewClient(DefaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "https://swapi.dev/api/", client.baseURL.String())
}

func TestFetchPersonsDrivesMachine(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"count": 1, "results": [{"name": "Luke Skywalker"}]}`)
	})

	pool := pond.NewPool(1)
	t.Cleanup(pool.StopAndWait)

	machine := smtesting.NewTestMachine(t, nil, Registry(
		statemachine.Async(pool, statemachine.EffectFetchPersons, FetchPersons(client))))

	require.NoError(t, machine.Start(t.Context()))

	snapshot := machine.WaitFor(statemachine.StateListLoaded)
	assert.Equal(t, []statemachine.Record{{"name": "Luke Skywalker"}}, snapshot.Payload.Items)
	assert.Equal(t, uint64(2), snapshot.Seq)
}

func TestFetchPersonsFailure(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var (
		event   statemachine.Event
		payload statemachine.Payload
	)

	FetchPersons(client)(t.Context(), statemachine.EventRequest,
		func(_ context.Context, e statemachine.Event, p statemachine.Payload) {
			event, payload = e, p
		})

	assert.Equal(t, statemachine.EventFailure, event)

	var statusErr *StatusError
	require.True(t, errors.As(payload.Err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestFetchPersonsCanceled(t *testing.T) {
	t.Parallel()

	client := peopleServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var event statemachine.Event

	FetchPersons(client)(ctx, statemachine.EventRequest,
		func(_ context.Context, e statemachine.Event, _ statemachine.Payload) {
			event = e
		})

	assert.Equal(t, statemachine.EventFailure, event)
}

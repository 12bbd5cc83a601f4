package statemachine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
)

// Option configures a Machine.
type Option func(*options)

type options struct {
	id        string
	logger    Logger
	observers []Observer
}

// WithID sets the machine id used in logs and traces. Defaults to a random UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithLogger sets the logging hooks. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = nopLogger{}

			return
		}

		o.logger = logger
	}
}

// WithObserver registers an observer before the first dispatch.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observer)
	}
}

type queuedEvent struct {
	ctx     context.Context //nolint:containedctx // carried until the event is processed
	event   Event
	payload Payload
}

type observerEntry struct {
	id       int
	observer Observer
}

// Machine owns one view's snapshot and is the only thing that changes it.
//
// Dispatch calls run to completion one at a time. A call made while another
// is being processed (from an effect, an observer or another goroutine) is
// queued and processed by the active caller after the current commit, so
// every event observes the snapshot committed before it.
type Machine struct {
	id      string
	engine  *Engine
	runner  *EffectRunner
	logger  Logger
	labels  ObservabilityLabels
	current *atomic.Pointer[Snapshot]
	started *atomic.Bool

	mu        sync.Mutex
	queue     []queuedEvent
	draining  bool
	observers []observerEntry
	nextObsID int
}

// NewMachine creates a machine in the table's initial state. A nil table
// means DefaultTable.
func NewMachine(table *Table, registry EffectRegistry, opts ...Option) *Machine {
	if table == nil {
		table = DefaultTable()
	}

	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.id == "" {
		o.id = uuid.New().String()
	}

	if o.logger == nil {
		o.logger = NewDefaultLogger()
	}

	runner := NewEffectRunner(registry, o.logger)
	runner.table = table.Name()

	initial := InitialSnapshot(table.InitialState())

	m := &Machine{
		id:      o.id,
		engine:  NewEngine(table),
		runner:  runner,
		logger:  o.logger,
		labels:  ObservabilityLabels{MachineID: o.id, Table: table.Name()},
		current: atomic.NewPointer(&initial),
		started: atomic.NewBool(false),
	}

	for _, observer := range o.observers {
		m.Subscribe(observer)
	}

	return m
}

// ID returns the machine id.
func (m *Machine) ID() string {
	return m.id
}

// Table returns the machine's transition table.
func (m *Machine) Table() *Table {
	return m.engine.Table()
}

// Snapshot returns the last committed snapshot. The returned value shares
// item storage with the machine and must not be modified.
func (m *Machine) Snapshot() Snapshot {
	return *m.current.Load()
}

// Subscribe registers an observer that is called after every commit, on the
// goroutine that processed the event. It returns a function that removes it.
func (m *Machine) Subscribe(observer Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextObsID++
	id := m.nextObsID
	m.observers = append(m.observers, observerEntry{id: id, observer: observer})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for i, entry := range m.observers {
			if entry.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)

				return
			}
		}
	}
}

// Start issues the single Request that moves the machine out of its initial
// state. Calling it again returns ErrAlreadyStarted.
func (m *Machine) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	m.Dispatch(ctx, EventRequest, Payload{})

	return nil
}

// Dispatch submits an event. It is the only way to change the machine's state.
// Illegal events never surface as errors: they are turned into a Failure and
// end in the rejected state with Payload.Err set.
func (m *Machine) Dispatch(ctx context.Context, event Event, payload Payload) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	m.queue = append(m.queue, queuedEvent{ctx: ctx, event: event, payload: payload})

	if m.draining {
		m.mu.Unlock()

		return
	}

	m.draining = true

	// A panic in an observer or logger unwinds this caller. Events still
	// queued stay queued and are processed by the next Dispatch call.
	defer func() {
		if v := recover(); v != nil {
			m.mu.Lock()
			m.draining = false
			m.mu.Unlock()

			panic(v)
		}
	}()

	for len(m.queue) > 0 {
		next := m.queue[0]
		m.queue[0] = queuedEvent{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.process(next.ctx, next.event, next.payload)

		m.mu.Lock()
	}

	m.draining = false
	m.mu.Unlock()
}

// process runs one event: engine lookup, effect initiation, commit, notify.
func (m *Machine) process(ctx context.Context, event Event, payload Payload) {
	current := m.Snapshot()

	ctx = withLabels(ctx, m.labels)
	ctx, span := startDispatchSpan(ctx, current.State, event)

	defer span.End()

	m.logger.EventDispatched(ctx, current.State, event)

	result, err := m.engine.Transition(current.State, event)
	if err == nil {
		err = checkSelection(current, result, payload)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.redirect(ctx, current, event, err)

		return
	}

	m.apply(ctx, current, result, payload)
	span.SetStatus(codes.Ok, string(result.Next))
}

// redirect turns a rejected event into a single Failure. When Failure has no
// entry from the current state either, the machine lands in the rejected
// state directly instead of redirecting again. The rejected event's own
// payload is discarded.
func (m *Machine) redirect(ctx context.Context, current Snapshot, event Event, cause error) {
	table := sanitizeTable(m.labels.Table)

	dispatchTotal.WithLabelValues(table, string(current.State), string(event), outcomeRejected).Inc()
	m.logger.TransitionRejected(ctx, current.State, event, cause, false)

	result, err := m.engine.Transition(current.State, EventFailure)
	if err != nil {
		dispatchTotal.WithLabelValues(table, string(current.State), string(EventFailure), outcomeForced).Inc()
		m.logger.TransitionRejected(ctx, current.State, EventFailure, err, true)

		m.commit(ctx, Snapshot{
			State:   StateRejected,
			Payload: current.Payload.Merge(WithErr(cause)),
			Seq:     current.Seq + 1,
		})

		return
	}

	m.apply(ctx, current, result, WithErr(cause))
}

func (m *Machine) apply(ctx context.Context, current Snapshot, result TransitionResult, payload Payload) {
	m.runner.Run(ctx, result.Effects, result.Event, m.Dispatch)

	next := Snapshot{
		State:   result.Next,
		Payload: current.Payload.Merge(payload).Without(result.Clears...),
		Seq:     current.Seq + 1,
	}

	// The rejected state always carries an error.
	if next.State == StateRejected && next.Payload.Err == nil {
		next.Payload.Err = ErrFailureWithoutCause
	}

	table := sanitizeTable(m.labels.Table)

	m.logger.TransitionExecuted(ctx, result)
	transitionTotal.WithLabelValues(table, string(result.From), string(result.Next), string(result.Event)).Inc()
	dispatchTotal.WithLabelValues(table, string(result.From), string(result.Event), outcomeCommitted).Inc()

	m.commit(ctx, next)
}

func (m *Machine) commit(ctx context.Context, next Snapshot) {
	m.current.Store(&next)
	m.logger.SnapshotCommitted(ctx, next)

	m.mu.Lock()
	observers := make([]Observer, len(m.observers))

	for i, entry := range m.observers {
		observers[i] = entry.observer
	}
	m.mu.Unlock()

	for _, observer := range observers {
		observer(next)
	}
}

// checkSelection rejects entering the detail state without a valid index.
func checkSelection(current Snapshot, result TransitionResult, payload Payload) error {
	if result.Next != StateDetailSelected {
		return nil
	}

	merged := current.Payload.Merge(payload)
	count := len(merged.Items)

	if merged.Index == nil || *merged.Index < 0 || *merged.Index >= count {
		return &SelectionError{Index: merged.Index, Count: count}
	}

	return nil
}

package state

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Middleware is a side-effect handler invoked after every reducer pass. It
// receives the pre-action state, the action, the committed state and a
// dispatch function for follow-up actions. Middleware never mutates state;
// long-running work belongs in goroutines it launches, so one middleware
// never blocks the others or the next dispatched action.
type Middleware func(prev AppState, action Action, next AppState, dispatch func(Action))

// ErrNilAction reports a nil action sent to the store.
var ErrNilAction = errors.New("state: nil action dispatched")

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Initial    AppState
	Middleware []Middleware
	Logger     *zap.Logger
}

// Store owns the state tree. Dispatch applies the reducer under a single
// lock, publishes the committed tree to every subscriber, then invokes each
// middleware in registration order. No two reducer applications ever
// interleave; observers only ever see fully-reduced states in commit order.
type Store struct {
	mu          sync.Mutex
	state       AppState
	middleware  []Middleware
	logger      *zap.Logger
	subscribers map[int64]chan AppState
	nextID      int64
}

// NewStore constructs a Store around the initial tree.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:       cfg.Initial,
		middleware:  append([]Middleware(nil), cfg.Middleware...),
		logger:      logger,
		subscribers: make(map[int64]chan AppState),
	}
}

// State returns the current tree.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send applies the reducer synchronously, publishes the committed state, then
// runs the middleware pipeline for the action.
func (s *Store) Send(action Action) {
	if action == nil {
		s.logger.Warn("nil action dropped", zap.Error(ErrNilAction))
		return
	}

	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, action)
	s.state = next
	for _, stream := range s.subscribers {
		publishLatest(stream, next)
	}
	s.mu.Unlock()

	for _, mw := range s.middleware {
		mw(prev, action, next, s.Send)
	}
}

// Forward subscribes to an action stream and sends each emitted action
// through the synchronous dispatch path until the stream closes or the
// context ends.
func (s *Store) Forward(ctx context.Context, actions <-chan Action) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case action, ok := <-actions:
				if !ok {
					return
				}
				s.Send(action)
			}
		}
	}()
}

// Subscribe returns a stream of committed states, starting with the current
// one, plus a cancel function. The stream holds only the latest state: an
// observer that falls behind skips intermediate trees but never sees a
// partial or out-of-order one.
func (s *Store) Subscribe(ctx context.Context) (<-chan AppState, func()) {
	stream := make(chan AppState, 1)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers[id] = stream
	stream <- s.state
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return stream, cancel
}

// publishLatest keeps the one-slot stream holding the most recent state.
func publishLatest(stream chan AppState, next AppState) {
	for {
		select {
		case stream <- next:
			return
		default:
		}
		select {
		case <-stream:
		default:
		}
	}
}

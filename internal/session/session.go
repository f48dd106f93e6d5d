// Package session holds per-view state: who is looking, which teams this
// view has opened and when, and the live subscriptions the view owns.
// Two tabs of the same user are two sessions and never share markers.
package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"squadhub/internal/domain"
)

// ErrClosed is returned when attaching a handle to a closed session
var ErrClosed = errors.New("session closed")

type Session struct {
	ID       string
	Identity domain.Identity

	mu         sync.Mutex
	lastOpened map[string]time.Time
	owned      []io.Closer
	listeners  []chan struct{}
	closed     bool
	done       chan struct{}
}

func New(identity domain.Identity) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Identity:   identity,
		lastOpened: map[string]time.Time{},
		done:       make(chan struct{}),
	}
}

// Own ties c to the session lifetime. On a closed session c is closed
// immediately and ErrClosed is returned.
func (s *Session) Own(c io.Closer) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = c.Close()
		return ErrClosed
	}
	s.owned = append(s.owned, c)
	s.mu.Unlock()
	return nil
}

// MarkOpened records that this view opened teamID at and wakes local watchers
func (s *Session) MarkOpened(teamID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastOpened[teamID] = at
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// LastOpened returns the zero time for a team this view never opened
func (s *Session) LastOpened(teamID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOpened[teamID]
}

// Changes returns a channel signalled whenever a marker moves and a func
// that unregisters it. Callers must call stop once they stop reading.
func (s *Session) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if !s.closed {
		s.listeners = append(s.listeners, ch)
	}
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l == ch {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
	return ch, stop
}

// Listeners returns the number of registered change listeners
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Done is closed by Close
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close releases every owned handle
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	owned := s.owned
	s.owned = nil
	s.listeners = nil
	close(s.done)
	s.mu.Unlock()

	var errs []error
	for _, c := range owned {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

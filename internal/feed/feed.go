// Package feed carries change signals between writers and live views.
//
// Events say that something changed, not what it changed to: a watcher
// re-reads the state it renders on every event. That lets a slow watcher
// drop intermediate events without ever showing stale data.
package feed

import (
	"context"
	"sync"
	"time"

	"squadhub/internal/domain"
)

// Kind names the mutation that produced an event
type Kind string

const (
	KindTeamUpdated         Kind = "team.updated"
	KindTeamDisbanded       Kind = "team.disbanded"
	KindApplicationsChanged Kind = "applications.changed"
	KindMessageAppended     Kind = "message.appended"
	KindNoticeCreated       Kind = "notice.created"
	KindTournamentUpdated   Kind = "tournament.updated"
)

// Event is a change signal on one topic
type Event struct {
	Topic     string    `json:"topic"`
	Kind      Kind      `json:"kind"`
	SubjectID string    `json:"subject_id"`
	At        time.Time `json:"at"`
}

// Topics
func TeamTopic(teamID string) string             { return "team:" + teamID }
func ApplicationsTopic(teamID string) string     { return "team:" + teamID + ":applications" }
func ChatTopic(channel domain.ChannelID) string  { return "chat:" + string(channel) }
func ApplicantTopic(uid string) string           { return "applicant:" + uid }
func TournamentTopic(tournamentID string) string { return "tournament:" + tournamentID }

// Broker fans events out to subscribers
type Broker interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe returns once the subscription is live; events published
	// after it returns are delivered.
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// Subscription is a caller-owned handle. Its channel holds at most one
// pending event; later events are coalesced into it.
type Subscription struct {
	c    chan Event
	done chan struct{}
	once sync.Once
	stop func()
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{
		c:    make(chan Event, 1),
		done: make(chan struct{}),
		stop: stop,
	}
}

// C delivers events. It is never closed; select on Done as well.
func (s *Subscription) C() <-chan Event {
	return s.c
}

// Done is closed when the subscription is released
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
	})
	return nil
}

// deliver never blocks the publisher
func (s *Subscription) deliver(e Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.c <- e:
	default:
	}
}

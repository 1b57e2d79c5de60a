package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUserSignedUp      Type = "user.signed_up"
	TypeSessionSignedIn   Type = "session.signed_in"
	TypeSessionRefreshed  Type = "session.refreshed"
	TypeSessionSignedOut  Type = "session.signed_out"
	TypeTeamCreated       Type = "team.created"
	TypeTeamDeleted       Type = "team.deleted"
	TypeMembershipAdded   Type = "membership.added"
	TypeMembershipUpdated Type = "membership.updated"
	TypeMembershipRemoved Type = "membership.removed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   int64     `json:"actorId,omitempty"` // user that triggered the event
}

func New(typ Type, actorID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
	}
}

// Bus fans events out to subscribers. Publish must never block the caller.
type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel and unsubscribe function
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

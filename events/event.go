/*
Package events carries domain notifications out of the services.

PURPOSE:
  Services publish an Event after every committed mutation that another
  person may care about: a record waiting for approval, an approval, a
  withdrawal from the Impact Fund, a new account. Publishing is fire and
  forget from the service's point of view. A failed publish is logged by
  the caller and never rolls back the mutation.

PUBLISHERS:
  Nop             - Default when nothing is configured
  Multi           - Fan-out to several publishers
  AMQPPublisher   - RabbitMQ topic exchange (amqp.go)
  DiscordNotifier - Channel message for records awaiting approval (discord.go)

SEE ALSO:
  - cmd/notifier: Consumes the AMQP queue and forwards to Discord
  - mocks/publisher.go: Generated mock for tests
*/
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Type is the event name, also used as the AMQP routing key.
type Type string

const (
	RecordCreated  Type = "record.created"
	RecordPending  Type = "record.pending"
	RecordUpdated  Type = "record.updated"
	RecordApproved Type = "record.approved"
	RecordDeleted  Type = "record.deleted"

	WithdrawalCreated Type = "withdrawal.created"
	WithdrawalUpdated Type = "withdrawal.updated"
	WithdrawalDeleted Type = "withdrawal.deleted"

	AccountCreated         Type = "account.created"
	PasswordResetRequested Type = "account.password_reset_requested"
)

// Record kinds
const (
	KindTransaction = "transaction"
	KindExpense     = "expense"
	KindProject     = "project"
	KindWithdrawal  = "withdrawal"
	KindAccount     = "account"
)

// Event is a small message: enough to render a notification, never the
// full record.
type Event struct {
	Type      Type      `json:"type"`
	Kind      string    `json:"kind"`
	RecordID  string    `json:"recordId"`
	ActorID   string    `json:"actorId,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps an event with the current time.
func New(typ Type, kind, recordID, actorID, summary string) Event {
	return Event{
		Type:      typ,
		Kind:      kind,
		RecordID:  recordID,
		ActorID:   actorID,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

//go:generate mockgen -source=event.go -destination=mocks/publisher.go -package=mocks

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// OrNop returns p, or Nop when p is nil.
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package request correlates outbound actions with exactly one terminal
// server response or a timeout.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/apperrors"
	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
	"github.com/palemoky/for-sale/internal/transport"
)

// DefaultTimeout matches the server's round-trip expectation for create/join.
const DefaultTimeout = 10 * time.Second

// Kind identifies a correlated action; at most one call per kind is in flight.
type Kind string

const (
	KindCreateRoom Kind = "create_room"
	KindJoinRoom   Kind = "join_room"
)

// Conn is the part of the transport the tracker needs.
type Conn interface {
	Send(event protocol.EventName, payload any)
	SubscribeOnce(event protocol.EventName, h transport.Handler) transport.Subscription
	Unsubscribe(sub transport.Subscription)
}

// Params describes one correlated request.
type Params struct {
	Kind    Kind
	Event   protocol.EventName
	Payload any
	Success []protocol.EventName // any of these resolves the call
	Failure []protocol.EventName // any of these fails it with a *apperrors.ServerError
	Timeout time.Duration        // zero means DefaultTimeout

	// Excludes lists kinds that must not be in flight at the same time, e.g.
	// requests whose failure events are indistinguishable on the wire.
	Excludes []Kind
	// OnSuccess runs when the call resolves, whether or not anyone is still
	// waiting on it. It runs before Done is closed.
	OnSuccess func(Outcome)
}

// Outcome is the terminal success response.
type Outcome struct {
	Event protocol.EventName
	Data  json.RawMessage
}

// Call is the handle for an issued request.
type Call struct {
	ID       string
	Kind     Kind
	IssuedAt time.Time

	done    chan struct{}
	outcome Outcome
	err     error
}

// Done is closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx ends. Cancelling ctx abandons the
// wait only; the request stays in flight until it settles or times out.
func (c *Call) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.outcome, c.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

type pending struct {
	call      *Call
	onSuccess func(Outcome)
	subs      []transport.Subscription
	timer     clockwork.Timer
	settled   bool
}

// Tracker issues correlated requests over a shared connection.
type Tracker struct {
	conn  Conn
	clock clockwork.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[Kind]*pending
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// NewTracker creates a tracker bound to conn.
func NewTracker(conn Conn, opts ...Option) *Tracker {
	t := &Tracker{
		conn:    conn,
		clock:   clockwork.NewRealClock(),
		log:     zerolog.Nop(),
		pending: make(map[Kind]*pending),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With().Str("component", "request").Logger()
	return t
}

// Issue registers listeners and the timeout, then sends the request. A call
// whose kind, or any kind it Excludes, is outstanding fails with
// apperrors.ErrDuplicateRequest and nothing is sent.
func (t *Tracker) Issue(s Params) (*Call, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t.mu.Lock()
	if busy, ok := t.busyLocked(s); ok {
		t.mu.Unlock()
		t.log.Warn().Str("kind", string(s.Kind)).Str("busy", string(busy)).Msg("duplicate request rejected")
		return nil, apperrors.ErrDuplicateRequest
	}

	p := &pending{onSuccess: s.OnSuccess, call: &Call{
		ID:       uuid.NewString(),
		Kind:     s.Kind,
		IssuedAt: t.clock.Now(),
		done:     make(chan struct{}),
	}}
	t.pending[s.Kind] = p

	for _, ev := range s.Success {
		p.subs = append(p.subs, t.conn.SubscribeOnce(ev, t.onSuccess(p, ev)))
	}
	for _, ev := range s.Failure {
		p.subs = append(p.subs, t.conn.SubscribeOnce(ev, t.onFailure(p, ev)))
	}
	p.timer = t.clock.AfterFunc(timeout, func() {
		t.settle(p, Outcome{}, fmt.Errorf("%s after %s: %w", s.Kind, timeout, apperrors.ErrRequestTimeout))
	})
	t.mu.Unlock()

	t.log.Debug().
		Str("kind", string(s.Kind)).
		Str("request_id", p.call.ID).
		Dur("timeout", timeout).
		Msg("request issued")

	t.conn.Send(s.Event, s.Payload)
	return p.call, nil
}

func (t *Tracker) onSuccess(p *pending, ev protocol.EventName) transport.Handler {
	return func(data json.RawMessage) {
		t.settle(p, Outcome{Event: ev, Data: append(json.RawMessage(nil), data...)}, nil)
	}
}

func (t *Tracker) onFailure(p *pending, ev protocol.EventName) transport.Handler {
	return func(data json.RawMessage) {
		se := &apperrors.ServerError{Event: ev}
		if payload, err := codec.ParsePayload[protocol.MessagePayload](data); err == nil {
			se.Message = payload.Message
		}
		t.settle(p, Outcome{}, se)
	}
}

// settle resolves p once; later triggers are ignored.
func (t *Tracker) settle(p *pending, out Outcome, err error) {
	t.mu.Lock()
	if p.settled {
		t.mu.Unlock()
		return
	}
	p.settled = true
	if t.pending[p.call.Kind] == p {
		delete(t.pending, p.call.Kind)
	}
	subs := p.subs
	timer := p.timer
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	for _, sub := range subs {
		t.conn.Unsubscribe(sub)
	}

	if err == nil && p.onSuccess != nil {
		p.onSuccess(out)
	}
	p.call.outcome = out
	p.call.err = err
	close(p.call.done)

	ev := t.log.Debug()
	if err != nil {
		ev = t.log.Info().Err(err)
	}
	ev.Str("kind", string(p.call.Kind)).
		Str("request_id", p.call.ID).
		Time("issued_at", p.call.IssuedAt).
		Msg("request settled")
}

// busyLocked returns the in-flight kind that blocks s, if any.
func (t *Tracker) busyLocked(s Params) (Kind, bool) {
	if _, ok := t.pending[s.Kind]; ok {
		return s.Kind, true
	}
	for _, k := range s.Excludes {
		if _, ok := t.pending[k]; ok {
			return k, true
		}
	}
	return "", false
}

// Outstanding lists the kinds currently in flight.
func (t *Tracker) Outstanding() []Kind {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds := make([]Kind, 0, len(t.pending))
	for k := range t.pending {
		kinds = append(kinds, k)
	}
	return kinds
}

// InFlight reports whether a call of kind is outstanding.
func (t *Tracker) InFlight(kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[kind]
	return ok
}

// Package session mirrors the server's room and game state for one client.
package session

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
	"github.com/palemoky/for-sale/internal/transport"
)

// Identity exposes what the transport knows about this client.
type Identity interface {
	Status() transport.Status
	PlayerID() string
}

// Source is the transport surface the store listens on.
type Source interface {
	Identity
	Subscribe(event protocol.EventName, h transport.Handler) transport.Subscription
	Unsubscribe(sub transport.Subscription)
	OnStatusChange(h transport.StatusHandler)
}

// Archive receives every applied snapshot. Implementations must not block.
type Archive interface {
	Record(s Snapshot)
	Forget(roomID string)
}

// Hooks notify presentation. They run outside the store lock, on the
// goroutine that delivered the change.
type Hooks struct {
	OnSnapshot      func(View)
	OnEnteredGame   func(Snapshot)
	OnRoomDestroyed func(reason string)
	OnReset         func()
}

// Store owns the session aggregate.
type Store struct {
	id      Identity
	hooks   Hooks
	archive Archive
	log     zerolog.Logger

	mu         sync.RWMutex
	myPlayerID string
	roomID     string
	latest     *Snapshot

	src  Source
	subs []transport.Subscription
}

// Option configures a Store.
type Option func(*Store)

// WithHooks sets presentation callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Store) { s.hooks = h }
}

// WithArchive records applied snapshots.
func WithArchive(a Archive) Option {
	return func(s *Store) { s.archive = a }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates an empty store. id supplies the server-assigned player id.
func NewStore(id Identity, opts ...Option) *Store {
	s := &Store{id: id, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// Attach subscribes the store to room:state, room:destroyed and connection
// status on src. Call once.
func (s *Store) Attach(src Source) {
	s.src = src
	s.subs = append(s.subs,
		src.Subscribe(protocol.EvtRoomState, s.handleRoomState),
		src.Subscribe(protocol.EvtRoomDestroyed, s.handleRoomDestroyed),
	)
	src.OnStatusChange(s.handleStatus)
}

// Detach removes the store's event subscriptions.
func (s *Store) Detach() {
	if s.src == nil {
		return
	}
	for _, sub := range s.subs {
		s.src.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Store) handleRoomState(data json.RawMessage) {
	payload, err := codec.ParsePayload[protocol.RoomStatePayload](data)
	if err != nil {
		s.log.Warn().Err(err).Msg("room:state decode failed")
		return
	}
	s.ApplySnapshot(FromPayload(payload))
}

func (s *Store) handleRoomDestroyed(data json.RawMessage) {
	reason := ""
	if payload, err := codec.ParsePayload[protocol.MessagePayload](data); err == nil {
		reason = payload.Message
	}
	s.ApplyRoomDestroyed(reason)
}

// handleStatus 断线时清空玩家 ID，保留最后的快照用于展示
func (s *Store) handleStatus(st transport.Status) {
	if st != transport.StatusDisconnected {
		return
	}
	s.mu.Lock()
	s.myPlayerID = ""
	s.mu.Unlock()
}

// ApplySnapshot replaces the current snapshot wholesale.
func (s *Store) ApplySnapshot(snap Snapshot) {
	snap = snap.Clone()

	if err := snap.Validate(); err != nil {
		s.log.Warn().Err(err).Str("room_id", snap.RoomID).Msg("snapshot violates invariants")
	}

	s.mu.Lock()
	prev := s.latest
	if prev != nil && prev.RoomID == snap.RoomID && prev.Lifecycle == LifecyclePlaying &&
		snap.Lifecycle == LifecyclePlaying && snap.RoundNumber < prev.RoundNumber {
		s.log.Warn().
			Str("room_id", snap.RoomID).
			Int("round", snap.RoundNumber).
			Int("previous_round", prev.RoundNumber).
			Msg("round number went backwards")
	}

	if s.myPlayerID == "" && s.id != nil && s.id.Status() == transport.StatusConnected {
		s.myPlayerID = s.id.PlayerID()
	}
	s.latest = &snap
	if snap.RoomID != "" {
		s.roomID = snap.RoomID
	}
	entered := snap.Lifecycle == LifecyclePlaying && (prev == nil || prev.Lifecycle != LifecyclePlaying)
	view := s.viewLocked()
	s.mu.Unlock()

	s.log.Debug().
		Str("room_id", snap.RoomID).
		Str("lifecycle", string(snap.Lifecycle)).
		Str("phase", snap.RoundPhase).
		Int("round", snap.RoundNumber).
		Int("players", len(snap.Players)).
		Msg("snapshot applied")

	if s.archive != nil {
		s.archive.Record(snap.Clone())
	}
	if s.hooks.OnSnapshot != nil {
		s.hooks.OnSnapshot(view)
	}
	if entered && s.hooks.OnEnteredGame != nil {
		s.hooks.OnEnteredGame(snap.Clone())
	}
}

// ApplyRoomDestroyed returns the session to its pre-room state and surfaces reason.
func (s *Store) ApplyRoomDestroyed(reason string) {
	roomID := s.clear()
	s.log.Info().Str("room_id", roomID).Str("reason", reason).Msg("room destroyed")

	if s.hooks.OnRoomDestroyed != nil {
		s.hooks.OnRoomDestroyed(reason)
	}
}

// Reset returns the session to its pre-room state, e.g. after leaving.
func (s *Store) Reset() {
	roomID := s.clear()
	s.log.Info().Str("room_id", roomID).Msg("session reset")

	if s.hooks.OnReset != nil {
		s.hooks.OnReset()
	}
}

func (s *Store) clear() string {
	s.mu.Lock()
	roomID := s.roomID
	s.latest = nil
	s.roomID = ""
	s.myPlayerID = ""
	s.mu.Unlock()

	if s.archive != nil && roomID != "" {
		s.archive.Forget(roomID)
	}
	return roomID
}

// EnterRoom records the room id acknowledged by the server before any
// snapshot for it has arrived.
func (s *Store) EnterRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" {
		s.roomID = roomID
	}
}

package session

import "github.com/palemoky/for-sale/internal/transport"

// View is a read-only copy of the session for presentation.
type View struct {
	Status     transport.Status
	MyPlayerID string
	RoomID     string
	Snapshot   *Snapshot
}

// View returns a copy of the whole session.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *Store) viewLocked() View {
	v := View{MyPlayerID: s.myPlayerID, RoomID: s.roomID}
	if s.id != nil {
		v.Status = s.id.Status()
	}
	if s.latest != nil {
		c := s.latest.Clone()
		v.Snapshot = &c
	}
	return v
}

// Snapshot returns a copy of the latest snapshot.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return s.latest.Clone(), true
}

// MyPlayerID returns this client's player id, empty until the first snapshot.
func (s *Store) MyPlayerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.myPlayerID
}

// RoomID returns the current room, empty when not in one.
func (s *Store) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// InRoom reports whether the client is in a room.
func (s *Store) InRoom() bool {
	return s.RoomID() != ""
}

// Me returns this client's player from the latest snapshot.
func (s *Store) Me() (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Player{}, false
	}
	return s.latest.Player(s.myPlayerID)
}

// Others returns every other player in server order.
func (s *Store) Others() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	others := make([]Player, 0, len(s.latest.Players))
	for _, p := range s.latest.Players {
		if p.ID != s.myPlayerID {
			others = append(others, p)
		}
	}
	return others
}

// IsMyTurn reports whether the server marked this client as the current turn.
func (s *Store) IsMyTurn() bool {
	me, ok := s.Me()
	return ok && me.IsCurrentTurn
}

// PassPenalty is what passing now would forfeit.
func (s *Store) PassPenalty() int {
	me, ok := s.Me()
	if !ok {
		return 0
	}
	return PassPenalty(me.CurrentBid)
}

// PassPenalty 放弃时没收出价的一半，向下取整到 500 的倍数
func PassPenalty(bid int) int {
	if bid <= 0 {
		return 0
	}
	return bid / 2 / 500 * 500
}

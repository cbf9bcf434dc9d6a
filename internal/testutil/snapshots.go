//go:build !production

package testutil

import "github.com/palemoky/for-sale/internal/session"

// LobbySnapshot 构造一个大厅快照，第一个玩家为房主
func LobbySnapshot(roomID string, players ...session.Player) session.Snapshot {
	return session.Snapshot{
		RoomID:      roomID,
		Lifecycle:   session.LifecycleLobby,
		RoundPhase:  "waiting",
		Players:     players,
		RoundNumber: 1,
	}
}

// PlayingSnapshot 构造一个竞拍中的快照，turnID 为当前行动玩家
func PlayingSnapshot(roomID string, round int, turnID string, players ...session.Player) session.Snapshot {
	ps := make([]session.Player, len(players))
	for i, p := range players {
		p.IsCurrentTurn = p.ID == turnID
		ps[i] = p
	}
	return session.Snapshot{
		RoomID:            roomID,
		Lifecycle:         session.LifecyclePlaying,
		RoundPhase:        "bidding",
		Players:           ps,
		CurrentProperties: []int{3, 8, 12, 15},
		CurrentBid:        0,
		TurnPlayerID:      turnID,
		RoundNumber:       round,
	}
}

// NewPlayer 构造一个带初始金币的玩家
func NewPlayer(id, nickname string, host, ready bool) session.Player {
	return session.Player{
		ID:       id,
		Nickname: nickname,
		IsHost:   host,
		IsReady:  ready,
		Coins:    18000,
	}
}

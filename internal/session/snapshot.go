package session

import (
	"errors"
	"fmt"

	"github.com/palemoky/for-sale/internal/protocol"
)

// Lifecycle 房间生命周期阶段，由服务端决定
type Lifecycle string

const (
	LifecycleLobby   Lifecycle = "lobby"
	LifecyclePlaying Lifecycle = "playing"
)

// Player 快照中的玩家
type Player struct {
	ID            string `json:"id"`
	Nickname      string `json:"nickname"`
	Avatar        string `json:"avatar,omitempty"`
	IsHost        bool   `json:"isHost"`
	IsReady       bool   `json:"isReady"`
	Coins         int    `json:"coins"`
	PropertyCount int    `json:"propertyCount"`
	ChequeCount   int    `json:"chequeCount"`
	CurrentBid    int    `json:"currentBid"`
	HasPassed     bool   `json:"hasPassed"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

// Snapshot 服务端权威的房间状态，每次整体替换，从不逐字段合并
//
// 空字符串表示 HighBidderID / TurnPlayerID 不存在。
type Snapshot struct {
	RoomID            string    `json:"roomId"`
	Lifecycle         Lifecycle `json:"lifecycle"`
	RoundPhase        string    `json:"roundPhase"`
	Players           []Player  `json:"players"`
	CurrentProperties []int     `json:"currentProperties"`
	CurrentCheques    []int     `json:"currentCheques"`
	CurrentBid        int       `json:"currentBid"`
	HighBidderID      string    `json:"highBidderId,omitempty"`
	TurnPlayerID      string    `json:"turnPlayerId,omitempty"`
	RoundNumber       int       `json:"roundNumber"`
}

// FromPayload 将 room:state 数据转换为快照
func FromPayload(p *protocol.RoomStatePayload) Snapshot {
	s := Snapshot{
		RoomID:            p.RoomID,
		Lifecycle:         LifecycleLobby,
		RoundPhase:        p.Phase,
		Players:           make([]Player, len(p.Players)),
		CurrentProperties: append([]int(nil), p.CurrentProperties...),
		CurrentCheques:    append([]int(nil), p.CurrentCheques...),
		CurrentBid:        p.CurrentBid,
		RoundNumber:       p.RoundNumber,
	}
	if p.GameState == protocol.GameStatePlaying {
		s.Lifecycle = LifecyclePlaying
	}
	if p.CurrentHighBidder != nil {
		s.HighBidderID = *p.CurrentHighBidder
	}
	if p.CurrentTurn != nil {
		s.TurnPlayerID = *p.CurrentTurn
	}
	for i, pi := range p.Players {
		s.Players[i] = Player{
			ID:            pi.ID,
			Nickname:      pi.Nickname,
			Avatar:        pi.Avatar,
			IsHost:        pi.IsHost,
			IsReady:       pi.IsReady,
			Coins:         pi.Coins,
			PropertyCount: pi.PropertyCount,
			ChequeCount:   pi.ChequeCount,
			CurrentBid:    pi.CurrentBid,
			HasPassed:     pi.HasPassed,
			IsCurrentTurn: pi.IsCurrentTurn,
		}
	}
	return s
}

// Clone 深拷贝，调用方持有的副本与存储互不影响
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Players = append([]Player(nil), s.Players...)
	c.CurrentProperties = append([]int(nil), s.CurrentProperties...)
	c.CurrentCheques = append([]int(nil), s.CurrentCheques...)
	return c
}

// Player 按 ID 查找玩家
func (s Snapshot) Player(id string) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Host 返回房主
func (s Snapshot) Host() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

var (
	errMultipleHosts     = errors.New("more than one host")
	errUnknownHighBidder = errors.New("high bidder not in players")
	errUnknownTurn       = errors.New("turn player not in players")
	errNegativeValue     = errors.New("negative bid or coin value")
)

// Validate 检查快照的结构性约束，返回所有违反项
func (s Snapshot) Validate() error {
	var errs []error

	hosts := 0
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
		}
		if p.Coins < 0 || p.CurrentBid < 0 || p.PropertyCount < 0 || p.ChequeCount < 0 {
			errs = append(errs, fmt.Errorf("%w: player %s", errNegativeValue, p.ID))
		}
	}
	if hosts > 1 {
		errs = append(errs, errMultipleHosts)
	}
	if s.CurrentBid < 0 {
		errs = append(errs, errNegativeValue)
	}
	if _, ok := s.Player(s.HighBidderID); s.HighBidderID != "" && !ok {
		errs = append(errs, fmt.Errorf("%w: %s", errUnknownHighBidder, s.HighBidderID))
	}
	if _, ok := s.Player(s.TurnPlayerID); s.TurnPlayerID != "" && !ok {
		errs = append(errs, fmt.Errorf("%w: %s", errUnknownTurn, s.TurnPlayerID))
	}
	return errors.Join(errs...)
}

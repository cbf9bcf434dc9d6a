// Package dispatch turns player intents into protocol messages after checking
// local preconditions against the session.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/apperrors"
	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
	"github.com/palemoky/for-sale/internal/request"
	"github.com/palemoky/for-sale/internal/session"
	"github.com/palemoky/for-sale/internal/transport"
)

const (
	// RoomCodeLength 房间号长度
	RoomCodeLength = 6
	// MinPlayers 开局最少人数
	MinPlayers = 3
)

// Conn 出站连接
type Conn interface {
	Status() transport.Status
	Send(event protocol.EventName, payload any)
}

// Requester 关联请求发起方，由 *request.Tracker 实现
type Requester interface {
	Issue(s request.Params) (*request.Call, error)
}

// State 会话状态的读取与本地变更，由 *session.Store 实现
type State interface {
	Snapshot() (session.Snapshot, bool)
	Me() (session.Player, bool)
	IsMyTurn() bool
	InRoom() bool
	EnterRoom(roomID string)
	Reset()
}

// Dispatcher 是唯一的出站消息来源
type Dispatcher struct {
	conn    Conn
	req     Requester
	state   State
	timeout time.Duration
	log     zerolog.Logger
}

// Option 配置 Dispatcher
type Option func(*Dispatcher)

// WithTimeout 设置关联请求超时，零值使用 request.DefaultTimeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New 创建 Dispatcher
func New(conn Conn, req Requester, state State, opts ...Option) *Dispatcher {
	d := &Dispatcher{conn: conn, req: req, state: state, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("component", "dispatch").Logger()
	return d
}

// CreateRoom 创建房间并等待服务端分配房间号
func (d *Dispatcher) CreateRoom(ctx context.Context, nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if err := d.requireConnected(); err != nil {
		return "", err
	}
	if nickname == "" {
		return "", apperrors.ErrEmptyNickname
	}
	if d.state.InRoom() {
		return "", apperrors.ErrAlreadyInRoom
	}

	call, err := d.req.Issue(request.Params{
		Kind:     request.KindCreateRoom,
		Event:    protocol.EvtCreateRoom,
		Payload:  protocol.CreateRoomPayload{Nickname: nickname},
		Success:  []protocol.EventName{protocol.EvtRoomCreated},
		Failure:  []protocol.EventName{protocol.EvtRoomError, protocol.EvtRoomDestroyed},
		Timeout:  d.timeout,
		Excludes: []request.Kind{request.KindJoinRoom},
		// 调用方放弃等待后房间仍然存在，在结算时记录
		OnSuccess: func(out request.Outcome) {
			if payload, err := codec.ParsePayload[protocol.RoomCreatedPayload](out.Data); err == nil && payload.RoomID != "" {
				d.state.EnterRoom(payload.RoomID)
			}
		},
	})
	if err != nil {
		return "", err
	}

	out, err := call.Wait(ctx)
	if err != nil {
		return "", err
	}
	payload, err := codec.ParsePayload[protocol.RoomCreatedPayload](out.Data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", out.Event, err)
	}

	d.log.Info().Str("room_id", payload.RoomID).Str("request_id", call.ID).Msg("room created")
	return payload.RoomID, nil
}

// JoinRoom 加入房间，room:joined 或首个 room:state 任一先到即视为成功
func (d *Dispatcher) JoinRoom(ctx context.Context, roomID, nickname string) error {
	roomID = strings.TrimSpace(roomID)
	nickname = strings.TrimSpace(nickname)
	if err := d.requireConnected(); err != nil {
		return err
	}
	if nickname == "" {
		return apperrors.ErrEmptyNickname
	}
	if roomID == "" {
		return apperrors.ErrEmptyRoomCode
	}
	if utf8.RuneCountInString(roomID) != RoomCodeLength {
		return apperrors.ErrInvalidRoomCode
	}

	call, err := d.req.Issue(request.Params{
		Kind:      request.KindJoinRoom,
		Event:     protocol.EvtJoinRoom,
		Payload:   protocol.JoinRoomPayload{RoomID: roomID, Nickname: nickname},
		Success:   []protocol.EventName{protocol.EvtRoomJoined, protocol.EvtRoomState},
		Failure:   []protocol.EventName{protocol.EvtRoomError, protocol.EvtRoomDestroyed},
		Timeout:   d.timeout,
		Excludes:  []request.Kind{request.KindCreateRoom},
		OnSuccess: func(request.Outcome) { d.state.EnterRoom(roomID) },
	})
	if err != nil {
		return err
	}

	out, err := call.Wait(ctx)
	if err != nil {
		return err
	}

	d.log.Info().
		Str("room_id", roomID).
		Str("request_id", call.ID).
		Str("via", string(out.Event)).
		Msg("room joined")
	return nil
}

// SetReady 大厅中切换准备状态
func (d *Dispatcher) SetReady(ready bool) error {
	if err := d.requireRoom(); err != nil {
		return err
	}
	// 房间号已知但首个快照未到时视为大厅
	if snap, ok := d.state.Snapshot(); ok && snap.Lifecycle != session.LifecycleLobby {
		return apperrors.ErrNotInLobby
	}
	d.send(protocol.EvtPlayerReady, protocol.PlayerReadyPayload{Ready: ready})
	return nil
}

// StartGame 房主在人数足够且其他人都已准备时开局
func (d *Dispatcher) StartGame() error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	snap, ok := d.state.Snapshot()
	if !ok {
		return apperrors.ErrNotInRoom
	}
	me, ok := d.state.Me()
	if !ok || !me.IsHost {
		return apperrors.ErrNotHost
	}
	if len(snap.Players) < MinPlayers {
		return apperrors.ErrNotEnoughPlayers
	}
	for _, p := range snap.Players {
		if !p.IsHost && !p.IsReady {
			return apperrors.ErrPlayersNotReady
		}
	}
	d.send(protocol.EvtStartGame, protocol.EmptyPayload{})
	return nil
}

// PlaceBid 出价，必须高于当前最高价且不超过自己的金币
func (d *Dispatcher) PlaceBid(amount int) error {
	if err := d.requireTurn(); err != nil {
		return err
	}
	snap, _ := d.state.Snapshot()
	me, _ := d.state.Me()
	if amount <= snap.CurrentBid {
		return apperrors.ErrBidTooLow
	}
	if amount > me.Coins {
		return apperrors.ErrBidTooHigh
	}
	d.send(protocol.EvtPlaceBid, protocol.PlaceBidPayload{Amount: amount})
	return nil
}

// PassTurn 放弃本轮竞拍
func (d *Dispatcher) PassTurn() error {
	if err := d.requireTurn(); err != nil {
		return err
	}
	d.send(protocol.EvtPassTurn, protocol.EmptyPayload{})
	return nil
}

// PlayCard 出牌阶段打出一张房产卡
func (d *Dispatcher) PlayCard(cardID string) error {
	cardID = strings.TrimSpace(cardID)
	if err := d.requireRoom(); err != nil {
		return err
	}
	if snap, ok := d.state.Snapshot(); !ok || snap.Lifecycle != session.LifecyclePlaying {
		return apperrors.ErrNotPlaying
	}
	if cardID == "" {
		return apperrors.ErrEmptyCardID
	}
	d.send(protocol.EvtPlayCard, protocol.PlayCardPayload{CardID: cardID})
	return nil
}

// LeaveRoom 离开房间，不等待服务端确认，本地立即重置
func (d *Dispatcher) LeaveRoom() error {
	if err := d.requireRoom(); err != nil {
		return err
	}
	d.send(protocol.EvtLeaveRoom, protocol.EmptyPayload{})
	d.state.Reset()
	return nil
}

func (d *Dispatcher) send(event protocol.EventName, payload any) {
	d.log.Debug().Str("event", string(event)).Msg("action sent")
	d.conn.Send(event, payload)
}

func (d *Dispatcher) requireConnected() error {
	if d.conn.Status() != transport.StatusConnected {
		return apperrors.ErrNotConnected
	}
	return nil
}

func (d *Dispatcher) requireRoom() error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	if !d.state.InRoom() {
		return apperrors.ErrNotInRoom
	}
	return nil
}

func (d *Dispatcher) requireTurn() error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	if !d.state.IsMyTurn() {
		return apperrors.ErrNotYourTurn
	}
	return nil
}

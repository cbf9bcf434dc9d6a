package protocol

import "encoding/json"

// Message 基础消息结构（事件名 + 数据）
type Message struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventName 事件名
type EventName string

// 客户端 → 服务端 事件
const (
	// 房间操作
	EvtCreateRoom  EventName = "create_room"  // 创建房间
	EvtJoinRoom    EventName = "join_room"    // 加入房间
	EvtLeaveRoom   EventName = "leave_room"   // 离开房间
	EvtPlayerReady EventName = "player_ready" // 准备 / 取消准备

	// 游戏操作
	EvtStartGame EventName = "start_game" // 房主开始游戏
	EvtPlaceBid  EventName = "place_bid"  // 出价
	EvtPassTurn  EventName = "pass_turn"  // 放弃本轮竞拍
	EvtPlayCard  EventName = "play_card"  // 出牌（售卖阶段）
)

// 服务端 → 客户端 事件
const (
	// 连接相关
	EvtConnected EventName = "connected" // 连接成功，携带服务端分配的玩家 ID

	// 房间相关
	EvtRoomCreated   EventName = "room:created"   // 房间创建成功
	EvtRoomJoined    EventName = "room:joined"    // 加入房间成功
	EvtRoomState     EventName = "room:state"     // 房间完整状态快照
	EvtRoomDestroyed EventName = "room:destroyed" // 房间被销毁
	EvtRoomError     EventName = "room:error"     // 错误消息
)

// IsServerEvent 是否为服务端推送的事件
func (e EventName) IsServerEvent() bool {
	switch e {
	case EvtConnected, EvtRoomCreated, EvtRoomJoined, EvtRoomState, EvtRoomDestroyed, EvtRoomError:
		return true
	}
	return false
}

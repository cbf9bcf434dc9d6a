package protocol

// --- 客户端请求 Payloads ---

// CreateRoomPayload 创建房间请求
type CreateRoomPayload struct {
	Nickname string `json:"nickname"`
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
}

// PlayerReadyPayload 准备状态请求
type PlayerReadyPayload struct {
	Ready bool `json:"ready"`
}

// PlaceBidPayload 出价请求
type PlaceBidPayload struct {
	Amount int `json:"amount"`
}

// PlayCardPayload 出牌请求
type PlayCardPayload struct {
	CardID string `json:"cardId"`
}

// EmptyPayload 无参数请求，编码为 {}
type EmptyPayload struct{}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

// RoomCreatedPayload 房间创建成功响应
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// MessagePayload room:error / room:destroyed 携带的文本
type MessagePayload struct {
	Message string `json:"message"`
}

// Room lifecycle values carried in RoomStatePayload.GameState.
const (
	GameStateLobby   = "lobby"
	GameStatePlaying = "playing"
)

// RoomStatePayload 房间状态快照
type RoomStatePayload struct {
	RoomID            string       `json:"roomId"`
	GameState         string       `json:"gameState"` // lobby/playing
	Phase             string       `json:"phase"`
	Players           []PlayerInfo `json:"players"`
	CurrentProperties []int        `json:"currentProperties"`
	CurrentCheques    []int        `json:"currentCheques"`
	CurrentBid        int          `json:"currentBid"`
	CurrentHighBidder *string      `json:"currentHighBidder"`
	CurrentTurn       *string      `json:"currentTurn"`
	RoundNumber       int          `json:"roundNumber"`
}

// PlayerInfo 快照中的玩家信息
type PlayerInfo struct {
	ID            string `json:"id"`
	Nickname      string `json:"nickname"`
	Avatar        string `json:"avatar,omitempty"`
	IsReady       bool   `json:"isReady"`
	IsHost        bool   `json:"isHost"`
	Coins         int    `json:"coins"`
	PropertyCount int    `json:"propertyCount"`
	ChequeCount   int    `json:"chequeCount"`
	CurrentBid    int    `json:"currentBid"`
	HasPassed     bool   `json:"hasPassed"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

package protocol

// 错误码（客户端本地校验）
const (
	ErrCodeUnknown      = 1000
	ErrCodeNotConnected = 1001
	ErrCodeDuplicate    = 1002 // 重复请求
	ErrCodeTimeout      = 1003 // 请求超时

	ErrCodeInvalidNickname = 2001
	ErrCodeInvalidRoomCode = 2002
	ErrCodeAlreadyInRoom   = 2003
	ErrCodeNotInRoom       = 2004
	ErrCodeNotInLobby      = 2005
	ErrCodeNotPlaying      = 2006
	ErrCodeEmptyRoomCode   = 2007

	ErrCodeNotHost          = 3001
	ErrCodeNotEnoughPlayers = 3002
	ErrCodePlayersNotReady  = 3003
	ErrCodeNotYourTurn      = 3004
	ErrCodeBidTooLow        = 3005
	ErrCodeBidTooHigh       = 3006
	ErrCodeInvalidCard      = 3007
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:          "unknown error",
	ErrCodeNotConnected:     "not connected",
	ErrCodeDuplicate:        "duplicate request",
	ErrCodeTimeout:          "request timed out",
	ErrCodeInvalidNickname:  "nickname is required",
	ErrCodeInvalidRoomCode:  "invalid room code",
	ErrCodeAlreadyInRoom:    "already in a room",
	ErrCodeNotInRoom:        "not in a room",
	ErrCodeNotInLobby:       "room is not in the lobby",
	ErrCodeNotPlaying:       "game has not started",
	ErrCodeEmptyRoomCode:    "room code is required",
	ErrCodeNotHost:          "only the host can start the game",
	ErrCodeNotEnoughPlayers: "not enough players",
	ErrCodePlayersNotReady:  "not all players are ready",
	ErrCodeNotYourTurn:      "not your turn",
	ErrCodeBidTooLow:        "bid must exceed the current bid",
	ErrCodeBidTooHigh:       "bid exceeds your coins",
	ErrCodeInvalidCard:      "card id is required",
}

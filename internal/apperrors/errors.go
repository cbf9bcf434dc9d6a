// Package apperrors defines the errors surfaced to presentation.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/palemoky/for-sale/internal/protocol"
)

// ActionError 本地前置条件校验失败，请求不会发往服务端
type ActionError struct {
	Code    int
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

func newActionError(code int) *ActionError {
	return &ActionError{Code: code, Message: protocol.ErrorMessages[code]}
}

// 预定义错误
var (
	ErrNotConnected     = newActionError(protocol.ErrCodeNotConnected)
	ErrDuplicateRequest = newActionError(protocol.ErrCodeDuplicate)
	ErrEmptyNickname    = newActionError(protocol.ErrCodeInvalidNickname)
	ErrEmptyRoomCode    = newActionError(protocol.ErrCodeEmptyRoomCode)
	ErrInvalidRoomCode  = newActionError(protocol.ErrCodeInvalidRoomCode)
	ErrAlreadyInRoom    = newActionError(protocol.ErrCodeAlreadyInRoom)
	ErrNotInRoom        = newActionError(protocol.ErrCodeNotInRoom)
	ErrNotInLobby       = newActionError(protocol.ErrCodeNotInLobby)
	ErrNotPlaying       = newActionError(protocol.ErrCodeNotPlaying)
	ErrNotHost          = newActionError(protocol.ErrCodeNotHost)
	ErrNotEnoughPlayers = newActionError(protocol.ErrCodeNotEnoughPlayers)
	ErrPlayersNotReady  = newActionError(protocol.ErrCodePlayersNotReady)
	ErrNotYourTurn      = newActionError(protocol.ErrCodeNotYourTurn)
	ErrBidTooLow        = newActionError(protocol.ErrCodeBidTooLow)
	ErrBidTooHigh       = newActionError(protocol.ErrCodeBidTooHigh)
	ErrEmptyCardID      = newActionError(protocol.ErrCodeInvalidCard)
)

// ErrRequestTimeout 关联请求在超时窗口内没有收到任何终态响应
var ErrRequestTimeout = errors.New(protocol.ErrorMessages[protocol.ErrCodeTimeout])

// ServerError 服务端返回的错误，Message 原样展示给用户
type ServerError struct {
	Event   protocol.EventName
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (%s)", e.Event)
	}
	return e.Message
}

// IsLocal 是否为本地校验错误
func IsLocal(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// IsServer 是否为服务端错误
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsTimeout 是否为超时错误
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRequestTimeout)
}

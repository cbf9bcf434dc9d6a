// Package codec encodes and decodes event envelopes exchanged with the game server.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/palemoky/for-sale/internal/protocol"
)

// ErrMissingEvent 帧中缺少事件名
var ErrMissingEvent = errors.New("codec: frame has no event name")

// NewMessage 创建一个新消息，payload 为 nil 时编码为 {}
func NewMessage(event protocol.EventName, payload any) (*protocol.Message, error) {
	if payload == nil {
		payload = protocol.EmptyPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s payload: %w", event, err)
	}
	return &protocol.Message{Event: event, Data: data}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(event protocol.EventName, payload any) *protocol.Message {
	msg, err := NewMessage(event, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 将消息编码为 JSON 字节
func Encode(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	// Encoder 追加换行，去掉后复制出池中的缓冲区
	return append([]byte(nil), bytes.TrimRight(buf.Bytes(), "\n")...), nil
}

// Decode 从 JSON 字节解码消息
func Decode(data []byte) (*protocol.Message, error) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Event == "" {
		return nil, ErrMissingEvent
	}
	return &msg, nil
}

// ParsePayload 解析消息的数据到指定类型，空数据得到零值
func ParsePayload[T any](data json.RawMessage) (*T, error) {
	var payload T
	if len(data) == 0 || string(data) == "null" {
		return &payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

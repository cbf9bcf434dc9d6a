//go:build !production

package testutil

import (
	"encoding/json"
	"sync"

	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
	"github.com/palemoky/for-sale/internal/transport"
)

// Sent 记录一次发送
type Sent struct {
	Event   protocol.EventName
	Payload any
}

// FakeConn 内存中的传输层替身：记录发送的消息，并可模拟服务端推送
type FakeConn struct {
	*transport.Registry

	mu             sync.Mutex
	status         transport.Status
	playerID       string
	sent           []Sent
	statusHandlers []transport.StatusHandler
}

// NewFakeConn 创建未连接的替身
func NewFakeConn() *FakeConn {
	return &FakeConn{Registry: transport.NewRegistry()}
}

// NewConnectedFakeConn 创建已连接、玩家 ID 为 playerID 的替身
func NewConnectedFakeConn(playerID string) *FakeConn {
	c := NewFakeConn()
	c.status = transport.StatusConnected
	c.playerID = playerID
	return c
}

func (c *FakeConn) Status() transport.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *FakeConn) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Send 已连接时记录消息，未连接时与真实传输层一样静默丢弃
func (c *FakeConn) Send(event protocol.EventName, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != transport.StatusConnected {
		return
	}
	c.sent = append(c.sent, Sent{Event: event, Payload: payload})
}

func (c *FakeConn) OnStatusChange(h transport.StatusHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusHandlers = append(c.statusHandlers, h)
}

// SetStatus 切换连接状态并通知订阅者，断开时清空玩家 ID
func (c *FakeConn) SetStatus(s transport.Status, playerID string) {
	c.mu.Lock()
	c.status = s
	if s == transport.StatusConnected {
		c.playerID = playerID
	} else {
		c.playerID = ""
	}
	handlers := append([]transport.StatusHandler(nil), c.statusHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

// Emit 模拟服务端推送一个事件，返回是否被一次性订阅消费
func (c *FakeConn) Emit(event protocol.EventName, payload any) bool {
	msg := codec.MustNewMessage(event, payload)
	return c.Dispatch(msg)
}

// EmitRaw 推送原始 JSON 数据
func (c *FakeConn) EmitRaw(event protocol.EventName, data string) bool {
	return c.Dispatch(&protocol.Message{Event: event, Data: json.RawMessage(data)})
}

// Sent 返回已发送消息的副本
func (c *FakeConn) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// SentEvents 只返回事件名
func (c *FakeConn) SentEvents() []protocol.EventName {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.EventName, len(c.sent))
	for i, s := range c.sent {
		out[i] = s.Event
	}
	return out
}

// Reset 清空发送记录
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

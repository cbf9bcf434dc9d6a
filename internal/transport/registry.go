package transport

import (
	"encoding/json"
	"sync"

	"github.com/palemoky/for-sale/internal/protocol"
)

// Handler 事件处理函数
type Handler func(data json.RawMessage)

// Subscription 标识一次订阅，用于精确退订
type Subscription struct {
	event protocol.EventName
	id    uint64
}

// Event 返回订阅的事件名
func (s Subscription) Event() protocol.EventName {
	return s.event
}

type subscriber struct {
	id      uint64
	once    bool
	handler Handler
}

// Registry 事件订阅表，同一事件允许多个处理函数
//
// Dispatch 在锁外调用处理函数，处理函数内可以安全地订阅或退订。
type Registry struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[protocol.EventName][]subscriber
}

// NewRegistry 创建订阅表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[protocol.EventName][]subscriber)}
}

// Subscribe 订阅事件
func (r *Registry) Subscribe(event protocol.EventName, h Handler) Subscription {
	return r.add(event, h, false)
}

// SubscribeOnce 订阅事件，首次触发后自动退订
func (r *Registry) SubscribeOnce(event protocol.EventName, h Handler) Subscription {
	return r.add(event, h, true)
}

func (r *Registry) add(event protocol.EventName, h Handler, once bool) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.handlers[event] = append(r.handlers[event], subscriber{id: r.nextID, once: once, handler: h})
	return Subscription{event: event, id: r.nextID}
}

// Unsubscribe 只移除与 sub 对应的那一个处理函数，重复退订无副作用
func (r *Registry) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[sub.event]
	for i, s := range subs {
		if s.id == sub.id {
			r.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.handlers[sub.event]) == 0 {
		delete(r.handlers, sub.event)
	}
}

// Count 返回某事件当前的订阅数
func (r *Registry) Count(event protocol.EventName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[event])
}

// Dispatch 按订阅顺序调用处理函数，返回是否有一次性订阅消费了该消息
//
// 每个处理函数调用前都会确认仍在订阅中，前面的处理函数退订的不会再触发。
func (r *Registry) Dispatch(msg *protocol.Message) bool {
	r.mu.Lock()
	subs := make([]subscriber, len(r.handlers[msg.Event]))
	copy(subs, r.handlers[msg.Event])
	r.mu.Unlock()

	consumed := false
	for _, s := range subs {
		if !r.claim(msg.Event, s) {
			continue
		}
		if s.once {
			consumed = true
		}
		s.handler(msg.Data)
	}
	return consumed
}

// claim 确认订阅仍然存在，一次性订阅在此移除，保证只触发一次
func (r *Registry) claim(event protocol.EventName, s subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[event]
	for i, cur := range subs {
		if cur.id != s.id {
			continue
		}
		if s.once {
			r.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			if len(r.handlers[event]) == 0 {
				delete(r.handlers, event)
			}
		}
		return true
	}
	return false
}

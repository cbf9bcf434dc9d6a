// Package transport owns the single websocket connection to the game server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultHandshakeTimeout = 10 * time.Second
	defaultSendBuffer       = 256
	defaultNoticeBuffer     = 16
)

var (
	// ErrUnexpectedWelcome 服务端首帧不是 connected
	ErrUnexpectedWelcome = errors.New("transport: first frame was not a connected event")
	// ErrConnectCancelled 连接过程中调用了 Disconnect
	ErrConnectCancelled = errors.New("transport: connect cancelled by disconnect")
	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("transport: client closed")
)

// Notice 与任何待决请求无关的服务端错误通知
type Notice struct {
	Event   protocol.EventName
	Message string
}

// Options 客户端参数
type Options struct {
	HandshakeTimeout time.Duration // 同时约束 websocket 握手和 connected 欢迎帧
	SendBuffer       int
	NoticeBuffer     int
	Header           http.Header
	Logger           *zerolog.Logger
}

// Client WebSocket 客户端
type Client struct {
	ServerURL string

	opts     Options
	log      zerolog.Logger
	registry *Registry
	notices  chan Notice

	mu       sync.RWMutex
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	status   Status
	playerID string
	attempt  *dialAttempt
	closed   bool

	pumps     sync.WaitGroup
	closeOnce sync.Once

	statusMu       sync.Mutex
	statusHandlers []StatusHandler
}

// dialAttempt 一次进行中的连接，Disconnect 可以取消它
type dialAttempt struct {
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
	conn      *websocket.Conn // 握手完成、欢迎帧未到时的连接
	cancelled bool
}

// NewClient 创建客户端，不会立即连接
func NewClient(serverURL string, opts Options) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = defaultNoticeBuffer
	}
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = *opts.Logger
	}

	return &Client{
		ServerURL: serverURL,
		opts:      opts,
		log:       l.With().Str("component", "transport").Logger(),
		registry:  NewRegistry(),
		notices:   make(chan Notice, opts.NoticeBuffer),
	}
}

// Connect 连接服务器
//
// 已连接时直接返回；正在连接时等待同一次连接的结果，不会建立第二条连接。
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.status {
	case StatusConnected:
		c.mu.Unlock()
		return nil
	case StatusConnecting:
		a := c.attempt
		c.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	a := &dialAttempt{done: make(chan struct{}), cancel: cancel}
	c.attempt = a
	c.status = StatusConnecting
	c.mu.Unlock()
	c.notifyStatus(StatusConnecting)

	a.err = c.dial(dialCtx, a)
	cancel()
	close(a.done)
	return a.err
}

func (c *Client) dial(ctx context.Context, a *dialAttempt) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  c.opts.HandshakeTimeout,
		EnableCompression: false,
	}

	conn, _, err := dialer.DialContext(ctx, c.ServerURL, c.opts.Header)
	if err != nil {
		if c.failAttempt(a, err) {
			return ErrConnectCancelled
		}
		return fmt.Errorf("transport: dial %s: %w", c.ServerURL, err)
	}

	// 记录未完成的连接，Disconnect 关闭它以中断欢迎帧读取
	c.mu.Lock()
	if a.cancelled {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrConnectCancelled
	}
	a.conn = conn
	c.mu.Unlock()

	playerID, err := readWelcome(ctx, conn)
	if err != nil {
		_ = conn.Close()
		if c.failAttempt(a, err) {
			return ErrConnectCancelled
		}
		return fmt.Errorf("transport: handshake: %w", err)
	}

	done := make(chan struct{})
	send := make(chan []byte, c.opts.SendBuffer)

	c.mu.Lock()
	if a.cancelled || c.closed || c.attempt != a {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrConnectCancelled
	}
	c.conn = conn
	c.send = send
	c.done = done
	c.playerID = playerID
	c.status = StatusConnected
	c.attempt = nil
	c.pumps.Add(2)
	c.mu.Unlock()

	// 启动读写协程
	go c.readPump(conn, done)
	go c.writePump(conn, send, done)

	c.log.Info().Str("url", c.ServerURL).Str("player_id", playerID).Msg("connected")
	c.notifyStatus(StatusConnected)
	return nil
}

// readWelcome 读取服务端首帧 connected {playerId}
func readWelcome(ctx context.Context, conn *websocket.Conn) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	msg, err := codec.Decode(data)
	if err != nil {
		return "", err
	}
	if msg.Event != protocol.EvtConnected {
		return "", fmt.Errorf("%w: got %q", ErrUnexpectedWelcome, msg.Event)
	}
	payload, err := codec.ParsePayload[protocol.ConnectedPayload](msg.Data)
	if err != nil {
		return "", err
	}
	if payload.PlayerID == "" {
		return "", fmt.Errorf("%w: empty player id", ErrUnexpectedWelcome)
	}
	return payload.PlayerID, nil
}

// failAttempt 结束失败的连接，返回该连接是否已被 Disconnect 取消
func (c *Client) failAttempt(a *dialAttempt, err error) bool {
	c.mu.Lock()
	if a.cancelled {
		c.mu.Unlock()
		return true
	}
	c.status = StatusDisconnected
	c.playerID = ""
	c.attempt = nil
	c.mu.Unlock()

	c.log.Error().Err(err).Str("url", c.ServerURL).Msg("connect failed")
	c.notifyStatus(StatusDisconnected)
	return false
}

// Disconnect 主动断开连接，正在连接时取消该次连接，未连接时为空操作
func (c *Client) Disconnect() {
	c.mu.Lock()
	if a := c.attempt; a != nil {
		a.cancelled = true
		pending := a.conn
		c.attempt = nil
		c.status = StatusDisconnected
		c.playerID = ""
		c.mu.Unlock()

		a.cancel()
		if pending != nil {
			_ = pending.Close()
		}
		c.log.Info().Msg("connect cancelled")
		c.notifyStatus(StatusDisconnected)
		return
	}

	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusDisconnected
	c.playerID = ""
	close(c.done)
	c.mu.Unlock()

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = conn.Close()

	c.log.Info().Msg("disconnected")
	c.notifyStatus(StatusDisconnected)
}

// Close 断开连接并停止客户端，读写协程退出后关闭 Notices
//
// 关闭后 Connect 返回 ErrClosed。可重复调用，不能在事件处理函数中调用。
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
	c.pumps.Wait()
	c.closeOnce.Do(func() { close(c.notices) })
}

// teardown 连接被动断开时由 readPump 调用，只处理仍是当前连接的情况
func (c *Client) teardown(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusDisconnected
	c.playerID = ""
	close(c.done)
	c.mu.Unlock()

	_ = conn.Close()
	c.log.Warn().Err(cause).Msg("connection lost")
	c.notifyStatus(StatusDisconnected)
}

// Send 发送事件，未连接或发送队列已满时记录日志后丢弃
func (c *Client) Send(event protocol.EventName, payload any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.status != StatusConnected {
		c.log.Warn().Str("event", string(event)).Msg("send dropped: not connected")
		return
	}

	msg, err := codec.NewMessage(event, payload)
	if err != nil {
		c.log.Error().Err(err).Str("event", string(event)).Msg("send dropped: encode failed")
		return
	}
	data, err := codec.Encode(msg)
	if err != nil {
		c.log.Error().Err(err).Str("event", string(event)).Msg("send dropped: encode failed")
		return
	}

	select {
	case c.send <- data:
		c.log.Debug().Str("event", string(event)).Msg("sent")
	default:
		c.log.Warn().Str("event", string(event)).Msg("send dropped: buffer full")
	}
}

// Subscribe 订阅服务端事件
func (c *Client) Subscribe(event protocol.EventName, h Handler) Subscription {
	return c.registry.Subscribe(event, h)
}

// SubscribeOnce 订阅服务端事件，只触发一次
func (c *Client) SubscribeOnce(event protocol.EventName, h Handler) Subscription {
	return c.registry.SubscribeOnce(event, h)
}

// Unsubscribe 退订
func (c *Client) Unsubscribe(sub Subscription) {
	c.registry.Unsubscribe(sub)
}

// OnStatusChange 注册连接状态回调
func (c *Client) OnStatusChange(h StatusHandler) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.statusHandlers = append(c.statusHandlers, h)
}

func (c *Client) notifyStatus(s Status) {
	c.statusMu.Lock()
	handlers := make([]StatusHandler, len(c.statusHandlers))
	copy(handlers, c.statusHandlers)
	c.statusMu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

// Notices 与待决请求无关的 room:error 通知，Close 后关闭
func (c *Client) Notices() <-chan Notice {
	return c.notices
}

// Status 当前连接状态
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// PlayerID 服务端分配的玩家 ID，未连接时为空
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

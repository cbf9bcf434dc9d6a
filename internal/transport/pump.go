package transport

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/for-sale/internal/logger"
	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
)

var errPumpPanic = errors.New("transport: read pump panicked")

// readPump 从服务器读取消息，按到达顺序逐条分发
func (c *Client) readPump(conn *websocket.Conn, done chan struct{}) {
	var cause error
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			cause = errPumpPanic
		}
		c.teardown(conn, cause)
		c.pumps.Done()
	}()

	c.setupPongHandler(conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			cause = c.readError(err, done)
			return
		}

		msg, err := codec.Decode(message)
		if err != nil {
			c.log.Warn().Err(err).Msg("message decode failed")
			continue
		}

		c.processMessage(msg)
	}
}

func (c *Client) setupPongHandler(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

func (c *Client) readError(err error, done chan struct{}) error {
	select {
	case <-done:
		// 主动断开
		return nil
	default:
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		c.log.Error().Err(err).Msg("unexpected close")
	}
	return err
}

func (c *Client) processMessage(msg *protocol.Message) {
	c.log.Debug().Str("event", string(msg.Event)).Msg("received")

	consumed := c.registry.Dispatch(msg)

	// 未被任何待决请求消费的错误转为用户通知
	if msg.Event == protocol.EvtRoomError && !consumed {
		c.pushNotice(msg)
	}
}

func (c *Client) pushNotice(msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.MessagePayload](msg.Data)
	if err != nil {
		c.log.Warn().Err(err).Str("event", string(msg.Event)).Msg("notice decode failed")
		return
	}

	n := Notice{Event: msg.Event, Message: payload.Message}
	c.log.Warn().Str("event", string(n.Event)).Str("message", n.Message).Msg("server error")

	select {
	case c.notices <- n:
	default:
		c.log.Warn().Msg("notice dropped: buffer full")
	}
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		c.pumps.Done()
	}()

	for {
		select {
		case message := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}

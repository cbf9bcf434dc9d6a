package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/protocol/codec"
)

func baseArgs(t *testing.T, server string) []string {
	dir := t.TempDir()
	return []string{
		"-config", filepath.Join(dir, "missing.yaml"),
		"-env", filepath.Join(dir, "missing.env"),
		"-log", filepath.Join(dir, "client.log"),
		"-server", server,
	}
}

func TestRun_ConnectFailureReturnsExitCode(t *testing.T) {
	var out bytes.Buffer
	code := run(baseArgs(t, "ws://127.0.0.1:1/ws"), strings.NewReader(""), &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "connect failed")
}

func TestRun_BadFlag(t *testing.T) {
	assert.Equal(t, 2, run([]string{"-nope"}, strings.NewReader(""), &bytes.Buffer{}))
}

func TestRun_QuitShutsDownCleanly(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		data, _ := codec.Encode(codec.MustNewMessage(protocol.EvtConnected, protocol.ConnectedPayload{PlayerID: "sock-1"}))
		_ = c.WriteMessage(websocket.TextMessage, data)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	code := run(baseArgs(t, url), strings.NewReader("state\nquit\n"), &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "as sock-1")
	assert.Contains(t, out.String(), "not in a room")
}

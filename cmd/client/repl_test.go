package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/for-sale/internal/session"
	"github.com/palemoky/for-sale/internal/testutil"
	"github.com/palemoky/for-sale/internal/transport"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		cmd  string
		args []string
	}{
		{line: "", cmd: ""},
		{line: "   ", cmd: ""},
		{line: "START", cmd: "start", args: []string{}},
		{line: "join ABC123  Big Al", cmd: "join", args: []string{"ABC123", "Big", "Al"}},
	}

	for _, tt := range tests {
		cmd, args := parseCommand(tt.line)
		assert.Equal(t, tt.cmd, cmd, tt.line)
		if tt.args != nil {
			assert.Equal(t, tt.args, args, tt.line)
		}
	}
}

func TestFormatView(t *testing.T) {
	assert.Contains(t, formatView(session.View{Status: transport.StatusDisconnected}, 0), "not in a room")
	assert.Contains(t, formatView(session.View{Status: transport.StatusConnected, RoomID: "ABC123"}, 0), "waiting for state")

	players := []session.Player{
		testutil.NewPlayer("p1", "alice", true, false),
		testutil.NewPlayer("p2", "bob", false, true),
	}
	players[0].CurrentBid = 2000
	snap := testutil.PlayingSnapshot("ABC123", 2, "p1", players...)

	out := formatView(session.View{
		Status:     transport.StatusConnected,
		MyPlayerID: "p1",
		RoomID:     "ABC123",
		Snapshot:   &snap,
	}, session.PassPenalty(2000))

	assert.Contains(t, out, "round 2")
	assert.Contains(t, out, "properties: [3 8 12 15]")
	assert.Contains(t, out, "> alice")
	assert.Contains(t, out, "[you,host]")
	assert.Contains(t, out, "[ready]")
	assert.Contains(t, out, "passing now forfeits 1000")
}

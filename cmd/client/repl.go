package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/palemoky/for-sale/internal/client"
	"github.com/palemoky/for-sale/internal/session"
)

const helpText = `commands:
  create <nickname>         create a room
  join <room> <nickname>    join a room
  ready | unready           toggle ready in the lobby
  start                     start the game (host)
  bid <amount>              place a bid
  pass                      pass this turn
  play <card>               play a property card
  leave                     leave the room
  state                     print the current room
  history                   print archived snapshots
  quit`

// printer 串行化多个 goroutine 的输出
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) linef(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

type repl struct {
	core *client.Core
	out  *printer
}

func (r *repl) run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	r.out.linef("type 'help' for commands")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			cmd, args := parseCommand(line)
			if cmd == "quit" || cmd == "exit" {
				return
			}
			if err := r.exec(ctx, cmd, args); err != nil {
				r.out.linef("error: %v", err)
			}
		}
	}
}

// parseCommand 拆分命令和参数，命令名不区分大小写
func parseCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func (r *repl) exec(ctx context.Context, cmd string, args []string) error {
	a := r.core.Actions
	switch cmd {
	case "":
		return nil
	case "help":
		r.out.linef("%s", helpText)
		return nil
	case "create":
		roomID, err := a.CreateRoom(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		r.out.linef("room %s created", roomID)
		return nil
	case "join":
		if len(args) < 2 {
			return fmt.Errorf("usage: join <room> <nickname>")
		}
		if err := a.JoinRoom(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		r.out.linef("joined %s", args[0])
		return nil
	case "ready":
		return a.SetReady(true)
	case "unready":
		return a.SetReady(false)
	case "start":
		return a.StartGame()
	case "bid":
		if len(args) != 1 {
			return fmt.Errorf("usage: bid <amount>")
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		return a.PlaceBid(amount)
	case "pass":
		return a.PassTurn()
	case "play":
		if len(args) != 1 {
			return fmt.Errorf("usage: play <card>")
		}
		return a.PlayCard(args[0])
	case "leave":
		return a.LeaveRoom()
	case "state":
		r.out.linef("%s", formatView(r.core.Store.View(), r.core.Store.PassPenalty()))
		return nil
	case "history":
		return r.history(ctx)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (r *repl) history(ctx context.Context) error {
	archive := r.core.Archive()
	if archive == nil {
		return fmt.Errorf("archive disabled, set redis.enabled")
	}
	roomID := r.core.Store.RoomID()
	if roomID == "" {
		return fmt.Errorf("not in a room")
	}
	snaps, err := archive.History(ctx, roomID)
	if err != nil {
		return err
	}
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		r.out.linef("round %d %s/%s bid=%d turn=%s", s.RoundNumber, s.Lifecycle, s.RoundPhase, s.CurrentBid, s.TurnPlayerID)
	}
	return nil
}

// formatView 渲染会话的文本视图
func formatView(v session.View, penalty int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s", v.Status)
	if v.MyPlayerID != "" {
		fmt.Fprintf(&b, "  me: %s", v.MyPlayerID)
	}
	if v.RoomID == "" {
		b.WriteString("\nnot in a room")
		return b.String()
	}
	fmt.Fprintf(&b, "\nroom: %s", v.RoomID)
	if v.Snapshot == nil {
		b.WriteString("\nwaiting for state")
		return b.String()
	}

	s := v.Snapshot
	fmt.Fprintf(&b, "  %s", s.Lifecycle)
	if s.Lifecycle == session.LifecyclePlaying {
		fmt.Fprintf(&b, "  round %d (%s)  bid %d", s.RoundNumber, s.RoundPhase, s.CurrentBid)
		if len(s.CurrentProperties) > 0 {
			fmt.Fprintf(&b, "\nproperties: %v", s.CurrentProperties)
		}
		if len(s.CurrentCheques) > 0 {
			fmt.Fprintf(&b, "\ncheques: %v", s.CurrentCheques)
		}
	}
	for _, p := range s.Players {
		marker := " "
		if p.IsCurrentTurn {
			marker = ">"
		}
		var tags []string
		if p.ID == v.MyPlayerID {
			tags = append(tags, "you")
		}
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.IsReady {
			tags = append(tags, "ready")
		}
		if p.HasPassed {
			tags = append(tags, "passed")
		}
		fmt.Fprintf(&b, "\n%s %-12s coins=%-6d bid=%-5d props=%d", marker, p.Nickname, p.Coins, p.CurrentBid, p.PropertyCount)
		if len(tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(tags, ","))
		}
	}
	if penalty > 0 {
		fmt.Fprintf(&b, "\npassing now forfeits %d", penalty)
	}
	return b.String()
}

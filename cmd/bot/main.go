package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/clock"
)

// bot plays a scripted host: it drives world time from the wall clock,
// takes the first bounty on offer, reports every spawned target as slain
// and claims whatever becomes claimable.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		player = flag.String("player", "bot", "player id")
		start  = flag.Int64("world_time", 0, "world time in seconds at connect")
		scale  = flag.Float64("scale", 72, "world seconds per wall second")
		every  = flag.Duration("time_every", time.Second, "TIME act interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	wt := clock.Scaled{Epoch: time.Now(), Base: *start, Scale: *scale}
	b := &bot{conn: conn, logger: logger, clock: wt}

	now, _ := wt.Now()
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        *player,
		WorldTime:       now,
	}
	if err := b.send(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.readLoop()
	}()

	t := time.NewTicker(*every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		case <-done:
			return
		case <-t.C:
			now, _ := b.clock.Now()
			_ = b.act(protocol.ActMsg{Kind: protocol.ActTime, WorldTime: now})
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	logger *log.Logger
	clock  clock.Scaled

	mu      sync.Mutex
	seq     int
	claimed map[string]bool
}

func (b *bot) send(v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteJSON(v)
}

func (b *bot) act(a protocol.ActMsg) error {
	b.mu.Lock()
	b.seq++
	a.ID = fmt.Sprintf("A%06d", b.seq)
	b.mu.Unlock()
	a.Type = protocol.TypeAct
	a.ProtocolVersion = protocol.Version
	return b.send(a)
}

func (b *bot) readLoop() {
	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			b.logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.logger.Printf("WELCOME player=%s tick_rate=%d seed=%d catalogs=%s", w.PlayerID, w.Params.TickRateHz, w.Params.Seed, w.Catalogs.Digest)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.handleState(&st)

		case protocol.TypeSpawn:
			var sp protocol.SpawnMsg
			if err := json.Unmarshal(msg, &sp); err != nil {
				continue
			}
			b.logger.Printf("SPAWN handle=%s bounty=%s monster=%s add=%v", sp.Handle, sp.Binding.BountyID, sp.Binding.MonsterID, sp.Binding.IsAdd)
			_ = b.act(protocol.ActMsg{Kind: protocol.ActSlay, BountyID: sp.Binding.BountyID, MonsterID: sp.Binding.MonsterID, IsAdd: sp.Binding.IsAdd})

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if r.Kind == protocol.ActTime && r.Result == "OK" {
				continue
			}
			b.logger.Printf("RESULT act=%s kind=%s result=%s code=%s %s", r.ActID, r.Kind, r.Result, r.Code, r.Message)
		}
	}
}

func (b *bot) handleState(st *protocol.StateMsg) {
	for _, d := range st.Deliveries {
		b.logger.Printf("DELIVERY reason=%s items=%v", d.Reason, d.Items)
	}
	for _, c := range st.Bounties.Claimable {
		if b.claimed == nil {
			b.claimed = map[string]bool{}
		}
		if b.claimed[c.ID] {
			continue
		}
		b.claimed[c.ID] = true
		_ = b.act(protocol.ActMsg{Kind: protocol.ActClaim, BountyID: c.ID})
	}
	if st.Bounties.Active == nil && len(st.Bounties.Claimable) == 0 && len(st.Bounties.Available) > 0 {
		_ = b.act(protocol.ActMsg{Kind: protocol.ActAccept, BountyID: st.Bounties.Available[0].ID})
	}
}

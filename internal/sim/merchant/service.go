package merchant

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/result"
)

type AttachRequest struct {
	Hello protocol.HelloMsg
	Out   chan []byte
	Resp  chan protocol.WelcomeMsg
}

// ActLogEntry records one applied action. Entries sharing a Step were applied
// before the same Tick; Attach marks the time carried by a HELLO, which is
// followed by its own Tick.
type ActLogEntry struct {
	Step      uint64          `json:"step"`
	WorldTime int64           `json:"world_time"`
	PlayerID  string          `json:"player_id"`
	Act       protocol.ActMsg `json:"act"`
	Result    string          `json:"result"`
	Attach    bool            `json:"attach,omitempty"`
}

type ActLogger interface {
	WriteAct(entry ActLogEntry) error
}

// Service owns one Merchant on a single goroutine. Host connections attach to
// it and feed actions through the inbox; all mutation happens in step.
type Service struct {
	m       *Merchant
	logger  *log.Logger
	tickHz  int
	welcome protocol.WelcomeMsg

	inbox  chan protocol.ActMsg
	attach chan AttachRequest
	detach chan chan []byte
	snaps  chan chan snapshot.PlayerV1
	stop   chan struct{}

	clients map[chan []byte]struct{}
	ticks   uint64
	actLog  ActLogger
}

func NewService(m *Merchant, tickHz int, welcome protocol.WelcomeMsg, logger *log.Logger) *Service {
	if tickHz <= 0 {
		tickHz = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	welcome.PlayerID = m.PlayerID()
	return &Service{
		m:       m,
		logger:  logger,
		tickHz:  tickHz,
		welcome: welcome,
		inbox:   make(chan protocol.ActMsg, 256),
		attach:  make(chan AttachRequest, 8),
		detach:  make(chan chan []byte, 8),
		snaps:   make(chan chan snapshot.PlayerV1, 4),
		stop:    make(chan struct{}),
		clients: map[chan []byte]struct{}{},
	}
}

func (s *Service) SetActLogger(l ActLogger) { s.actLog = l }

func (s *Service) Inbox() chan<- protocol.ActMsg { return s.inbox }
func (s *Service) Attach() chan<- AttachRequest  { return s.attach }
func (s *Service) Detach() chan<- chan []byte    { return s.detach }
func (s *Service) Stop()                         { close(s.stop) }

// RequestSnapshot asks the loop for the player's state. It fails if the loop
// does not answer before ctx is done.
func (s *Service) RequestSnapshot(ctx context.Context) (snapshot.PlayerV1, error) {
	resp := make(chan snapshot.PlayerV1, 1)
	select {
	case s.snaps <- resp:
	case <-ctx.Done():
		return snapshot.PlayerV1{}, ctx.Err()
	}
	select {
	case p := <-resp:
		return p, nil
	case <-ctx.Done():
		return snapshot.PlayerV1{}, ctx.Err()
	}
}

func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.tickHz))
	defer ticker.Stop()

	var pending []protocol.ActMsg
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.attach:
			s.handleAttach(req)
		case out := <-s.detach:
			delete(s.clients, out)
		case act := <-s.inbox:
			pending = append(pending, act)
		case resp := <-s.snaps:
			select {
			case resp <- s.m.ExportSnapshot():
			default:
			}
		case <-ticker.C:
			s.step(pending)
			pending = pending[:0]
		}
	}
}

func (s *Service) handleAttach(req AttachRequest) {
	if req.Hello.WorldTime > 0 {
		s.m.SetTime(req.Hello.WorldTime)
		s.logAct(ActLogEntry{
			Act:    protocol.ActMsg{Type: protocol.TypeAct, Kind: protocol.ActTime, WorldTime: req.Hello.WorldTime},
			Result: string(result.OK),
			Attach: true,
		})
	}
	s.m.Tick()
	if req.Out != nil {
		s.clients[req.Out] = struct{}{}
	}
	if req.Resp != nil {
		select {
		case req.Resp <- s.welcome:
		default:
		}
	}
	if req.Out != nil {
		s.sendState(req.Out)
		// Spawns queued while nobody was attached.
		s.pushSpawns()
	}
}

func (s *Service) step(acts []protocol.ActMsg) {
	s.ticks++
	dirty := len(acts) > 0
	for _, a := range acts {
		res := s.m.Apply(a)
		s.broadcast(res, false)
		s.logAct(ActLogEntry{Act: a, Result: res.Result})
	}
	if s.m.Tick() {
		dirty = true
	}
	s.pushSpawns()
	// Countdowns move every second even when nothing else does.
	if dirty || s.ticks%uint64(s.tickHz) == 0 {
		s.broadcast(s.state(), true)
	}
}

// pushSpawns hands queued spawn requests to attached hosts. With no host
// attached they stay queued for the next one.
func (s *Service) pushSpawns() {
	if len(s.clients) == 0 {
		return
	}
	for _, sp := range s.m.DrainSpawns() {
		s.broadcast(protocol.SpawnMsg{
			Type:            protocol.TypeSpawn,
			ProtocolVersion: protocol.Version,
			Handle:          string(sp.Handle),
			Binding:         bindingView(sp.Binding),
			Biome:           sp.Biome,
		}, false)
	}
}

// state builds STATE and moves pending deliveries into it when a host is
// attached to receive them.
func (s *Service) state() protocol.StateMsg {
	st := s.m.State()
	if len(s.clients) == 0 {
		return st
	}
	for _, g := range s.m.DrainDeliveries() {
		st.Deliveries = append(st.Deliveries, GrantView(g))
	}
	return st
}

func (s *Service) logAct(e ActLogEntry) {
	if s.actLog == nil {
		return
	}
	e.Step = s.ticks
	e.WorldTime = s.m.WorldTime()
	e.PlayerID = s.m.PlayerID()
	if err := s.actLog.WriteAct(e); err != nil {
		s.logger.Printf("act log: %v", err)
	}
}

func (s *Service) sendState(out chan []byte) {
	b, err := json.Marshal(s.state())
	if err != nil {
		return
	}
	sendLatest(out, b)
}

func (s *Service) broadcast(v any, latest bool) {
	if len(s.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("marshal %T: %v", v, err)
		return
	}
	for out := range s.clients {
		if latest {
			sendLatest(out, b)
			continue
		}
		select {
		case out <- b:
		default:
			s.logger.Printf("player %s: client queue full, dropped %T", s.m.PlayerID(), v)
		}
	}
}

func bindingView(b bounty.Binding) protocol.Binding {
	return protocol.Binding{BountyID: b.BountyID, MonsterID: b.MonsterID, IsAdd: b.IsAdd, OriginalName: b.OriginalName}
}

func bindingFromView(b protocol.Binding) bounty.Binding {
	return bounty.Binding{BountyID: b.BountyID, MonsterID: b.MonsterID, IsAdd: b.IsAdd, OriginalName: b.OriginalName}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

package merchant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/tuning"
)

var ErrHubNotStarted = errors.New("merchant hub not started")

// StoreFactory opens the persistent store of one player.
type StoreFactory func(playerID string) (Store, error)

// Hub runs one Service per player, created on first contact.
type Hub struct {
	tuning tuning.Tuning
	cats   *catalogs.Catalogs
	stores StoreFactory
	logger *log.Logger

	audit  AuditLogger
	actLog ActLogger

	mu       sync.Mutex
	ctx      context.Context
	wg       sync.WaitGroup
	services map[string]*Service
	restore  map[string]snapshot.PlayerV1
}

func NewHub(t tuning.Tuning, cats *catalogs.Catalogs, stores StoreFactory, logger *log.Logger) *Hub {
	if stores == nil {
		stores = func(string) (Store, error) { return NewMemStore(), nil }
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		tuning:   t,
		cats:     cats,
		stores:   stores,
		logger:   logger,
		services: map[string]*Service{},
		restore:  map[string]snapshot.PlayerV1{},
	}
}

func (h *Hub) SetAuditLogger(l AuditLogger) { h.audit = l }
func (h *Hub) SetActLogger(l ActLogger)     { h.actLog = l }

// Start binds services to ctx. Services stop when ctx is cancelled; Wait
// blocks until they have.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctx = ctx
}

func (h *Hub) Wait() { h.wg.Wait() }

// Restore stages snapshot players. A staged player is imported when its
// service starts on an empty store.
func (h *Hub) Restore(snap snapshot.SnapshotV1) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range snap.Players {
		h.restore[p.PlayerID] = p
	}
	return len(snap.Players)
}

func (h *Hub) Welcome() protocol.WelcomeMsg {
	t := h.tuning
	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Params: protocol.MerchantParams{
			TickRateHz:             t.TickRateHz,
			Seed:                   t.Seed,
			SecretStashRefreshDays: t.Shops.SecretStashRefreshDays,
			TreasureMapRefreshDays: t.Shops.TreasureMapRefreshDays,
			BountiesRefreshDays:    t.Bounties.RefreshDays,
		},
	}
	if c := h.cats; c != nil {
		w.Catalogs = protocol.CatalogDigests{
			Digest:       c.Digest(),
			StashItems:   c.StashItems.Digest,
			TokenItems:   c.TokenItems.Digest,
			Gambles:      c.Gambles.Digest,
			TreasureMaps: c.TreasureMaps.Digest,
			Bounties:     c.Bounties.Digest,
		}
	}
	return w
}

// Get returns the player's service, starting it if needed.
func (h *Hub) Get(playerID string) (*Service, error) {
	if playerID == "" {
		return nil, fmt.Errorf("empty player id")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.services[playerID]; ok {
		return s, nil
	}
	if h.ctx == nil {
		return nil, ErrHubNotStarted
	}

	store, err := h.stores(playerID)
	if err != nil {
		return nil, fmt.Errorf("open store for %s: %w", playerID, err)
	}
	m := New(ConfigFrom(playerID, h.tuning), h.cats, store)
	m.SetLogger(h.logger)
	if h.audit != nil {
		m.SetAuditLogger(h.audit)
	}
	if p, ok := h.restore[playerID]; ok {
		if len(store.Bounties()) == 0 && len(store.Inventory()) == 0 {
			m.ImportSnapshot(p)
			h.logger.Printf("player %s: restored from snapshot", playerID)
		}
		delete(h.restore, playerID)
	}

	s := NewService(m, h.tuning.TickRateHz, h.Welcome(), h.logger)
	if h.actLog != nil {
		s.SetActLogger(h.actLog)
	}
	h.services[playerID] = s
	ctx := h.ctx
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Printf("player %s: service stopped: %v", playerID, err)
		}
	}()
	h.logger.Printf("player %s: service started", playerID)
	return s, nil
}

func (h *Hub) Players() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.services))
	for id := range h.services {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot collects every running player plus staged players that have not
// connected since the last restore.
func (h *Hub) Snapshot(ctx context.Context, serverID string) (snapshot.SnapshotV1, error) {
	h.mu.Lock()
	services := make(map[string]*Service, len(h.services))
	for id, s := range h.services {
		services[id] = s
	}
	var staged []snapshot.PlayerV1
	for _, p := range h.restore {
		staged = append(staged, p)
	}
	h.mu.Unlock()

	snap := snapshot.SnapshotV1{Header: snapshot.Header{
		ServerID:  serverID,
		Seed:      h.tuning.Seed,
		CreatedAt: time.Now().Unix(),
	}}
	if h.cats != nil {
		snap.Header.Digest = h.cats.Digest()
	}
	for id, s := range services {
		p, err := s.RequestSnapshot(ctx)
		if err != nil {
			return snap, fmt.Errorf("snapshot %s: %w", id, err)
		}
		snap.Players = append(snap.Players, p)
	}
	snap.Players = append(snap.Players, staged...)
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].PlayerID < snap.Players[j].PlayerID })
	snap.Header.Players = len(snap.Players)
	return snap, nil
}

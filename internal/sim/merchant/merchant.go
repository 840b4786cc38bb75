package merchant

import (
	"fmt"
	"log"

	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/bounty/board"
	"merchantboard.ai/internal/sim/bounty/scaling"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/clock"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/market/catalog"
	"merchantboard.ai/internal/sim/market/eligibility"
	"merchantboard.ai/internal/sim/market/inventory"
	"merchantboard.ai/internal/sim/market/txn"
	"merchantboard.ai/internal/sim/result"
	"merchantboard.ai/internal/sim/tuning"
)

type Config struct {
	PlayerID string
	Seed     int64
	Shops    tuning.Shops
	Bounties tuning.Bounties
}

func ConfigFrom(playerID string, t tuning.Tuning) Config {
	return Config{PlayerID: playerID, Seed: t.Seed, Shops: t.Shops, Bounties: t.Bounties}
}

// IntervalState is the last interval a shop kind was generated for.
type IntervalState struct {
	Interval int
	Entries  []market.ShopEntry
}

type SpawnRequest struct {
	Handle  bounty.EntityHandle
	Binding bounty.Binding
	Biome   string
}

type AuditEntry struct {
	WorldTime int64      `json:"world_time"`
	PlayerID  string     `json:"player_id"`
	Action    string     `json:"action"`
	Result    string     `json:"result"`
	Kind      string     `json:"kind,omitempty"`
	Interval  int        `json:"interval"`
	Index     int        `json:"index,omitempty"`
	ItemID    string     `json:"item_id,omitempty"`
	BountyID  string     `json:"bounty_id,omitempty"`
	Cost      txn.Cost   `json:"cost"`
	Grant     *txn.Grant `json:"grant,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Merchant is one player's view of the shops and the bounty board. It is not
// safe for concurrent use; Service owns it on a single goroutine.
type Merchant struct {
	cfg   Config
	time  *clock.HostTime
	clock clock.Calculator

	gen      catalog.Generator
	cats     *catalogs.Catalogs
	store    Store
	inv      *inventory.Inventory
	bounties *bounty.Manager
	scaling  scaling.Config

	boards         map[market.Kind]*IntervalState
	bountyInterval int
	spawnSeq       map[string]int
	spawns         []SpawnRequest

	audit  AuditLogger
	logger *log.Logger
}

func New(cfg Config, cats *catalogs.Catalogs, store Store) *Merchant {
	if store == nil {
		store = NewMemStore()
	}
	ht := &clock.HostTime{}
	m := &Merchant{
		cfg:            cfg,
		time:           ht,
		clock:          clock.New(ht),
		gen:            catalog.New(cfg.Seed, cfg.Shops, cats),
		cats:           cats,
		store:          store,
		inv:            inventory.New(store.Inventory()),
		scaling:        scaling.ConfigFrom(cfg.Bounties),
		boards:         map[market.Kind]*IntervalState{},
		bountyInterval: clock.Unavailable,
		spawnSeq:       map[string]int{},
		logger:         log.Default(),
	}
	for _, k := range market.Kinds {
		m.boards[k] = &IntervalState{Interval: clock.Unavailable}
	}
	m.bounties = bounty.NewManager(store, m)
	return m
}

func (m *Merchant) SetAuditLogger(l AuditLogger) { m.audit = l }

// SetLogger routes audit write failures. nil keeps the current logger.
func (m *Merchant) SetLogger(l *log.Logger) {
	if l != nil {
		m.logger = l
	}
}

func (m *Merchant) PlayerID() string { return m.cfg.PlayerID }

// SetTime records the host's in-game clock.
func (m *Merchant) SetTime(seconds int64) { m.time.Set(seconds) }

func (m *Merchant) WorldTime() int64 {
	now, _ := m.time.Now()
	return now
}

func (m *Merchant) refreshDays(k market.Kind) int {
	switch k {
	case market.KindSecretStash, market.KindGamble:
		return m.cfg.Shops.SecretStashRefreshDays
	default:
		return m.cfg.Shops.TreasureMapRefreshDays
	}
}

func (m *Merchant) offer(k market.Kind) tuning.Offer {
	switch k {
	case market.KindSecretStash:
		return m.cfg.Shops.SecretStash
	case market.KindGamble:
		return m.cfg.Shops.Gamble
	case market.KindTreasureMap:
		return m.cfg.Shops.TreasureMaps
	default:
		return m.cfg.Shops.ForestTokens
	}
}

// boardKinds maps a board name to the shop kinds it lists, in display order.
func boardKinds(name string) []market.Kind {
	switch name {
	case string(market.KindSecretStash):
		return []market.Kind{market.KindSecretStash, market.KindGamble}
	case string(market.KindTreasureMap):
		return []market.Kind{market.KindTreasureMap, market.KindForestToken}
	default:
		return nil
	}
}

// Tick regenerates whatever rolled over since the last call. It is cheap to
// call every simulation step: catalogs are only rebuilt on an interval change.
func (m *Merchant) Tick() bool {
	changed := false
	for _, k := range market.Kinds {
		st := m.boards[k]
		cur := m.clock.CurrentInterval(m.refreshDays(k))
		if cur == st.Interval {
			continue
		}
		st.Interval = cur
		st.Entries = m.gen.GenerateCatalog(cur, k)
		for _, i := range m.store.PurchasedIndices(k, cur) {
			if i >= 0 && i < len(st.Entries) {
				st.Entries[i].AlreadyPurchased = true
			}
		}
		changed = true
	}

	cur := m.clock.CurrentInterval(m.cfg.Bounties.RefreshDays)
	if cur != m.bountyInterval {
		m.bountyInterval = cur
		if cur >= 0 {
			m.rollBounties(cur)
		}
		changed = true
	}
	return changed
}

func (m *Merchant) rollBounties(interval int) {
	var defs []catalogs.BountyTargetDef
	if m.cats != nil {
		defs = m.cats.Bounties.Defs
	}
	bc := m.cfg.Bounties
	generated := board.Generate(m.cfg.Seed, interval, defs, bc.EntryCount, bc.GoldChancePermille)
	if n := m.bounties.Post(generated); n > 0 {
		m.writeAudit(AuditEntry{Action: "POST_BOUNTIES", Result: string(result.OK), Interval: interval, Index: n})
	}
	window := bounty.WindowIntervals(bc.OfferWindowDays, bc.RefreshDays)
	for _, id := range m.bounties.Expire(interval, window) {
		m.writeAudit(AuditEntry{Action: "EXPIRE_BOUNTY", Result: string(result.OK), Interval: interval, BountyID: id})
	}
}

// Entries returns the current offers of a board.
func (m *Merchant) Entries(boardName string) []market.ShopEntry {
	var out []market.ShopEntry
	for _, k := range boardKinds(boardName) {
		out = append(out, m.boards[k].Entries...)
	}
	return out
}

func (m *Merchant) Wallet() market.Wallet { return market.WalletOf(m.inv) }

// locate resolves a board position to the live entry it shows.
func (m *Merchant) locate(boardName string, index int) (*IntervalState, *market.ShopEntry) {
	if index < 0 {
		return nil, nil
	}
	for _, k := range boardKinds(boardName) {
		st := m.boards[k]
		if index < len(st.Entries) {
			return st, &st.Entries[index]
		}
		index -= len(st.Entries)
	}
	return nil, nil
}

func (m *Merchant) Buy(boardName string, index int) txn.Receipt {
	m.Tick()
	st, e := m.locate(boardName, index)
	if e == nil {
		return txn.Receipt{Code: result.NotFound}
	}
	if code := eligibility.Check(*e, m.Wallet(), pendingMaps{m.store}); code != result.OK {
		m.auditBuy(st, e, txn.Receipt{Code: code, Cost: txn.CostOf(*e)})
		return txn.Receipt{Code: code, Cost: txn.CostOf(*e)}
	}
	once := m.offer(e.Kind).OncePerInterval
	r := txn.Execute(m.inv, txn.Order{Cost: txn.CostOf(*e), Grant: txn.GrantFor(*e), Entry: e, OncePerInterval: once})
	if r.Code == result.OK {
		if once {
			m.store.MarkPurchased(e.Kind, st.Interval, e.Index)
		}
		if e.Kind == market.KindTreasureMap {
			m.store.SetMapPending(e.Biome, true)
		}
		m.store.SaveInventory(m.inv.Snapshot())
	}
	m.auditBuy(st, e, r)
	return r
}

func (m *Merchant) auditBuy(st *IntervalState, e *market.ShopEntry, r txn.Receipt) {
	a := AuditEntry{
		Action:   "BUY",
		Result:   string(r.Code),
		Kind:     string(e.Kind),
		Interval: st.Interval,
		Index:    e.Index,
		ItemID:   e.ItemID,
		Cost:     r.Cost,
	}
	if r.Code == result.OK {
		g := r.Grant
		a.Grant = &g
	}
	m.writeAudit(a)
}

// SpawnTarget implements bounty.Spawner by queueing a request for the host.
// Handles are unique per player: a bounty is accepted at most once.
func (m *Merchant) SpawnTarget(bountyID, monsterID string, isAdd bool) bounty.EntityHandle {
	m.spawnSeq[bountyID]++
	h := bounty.EntityHandle(fmt.Sprintf("%s/%d", bountyID, m.spawnSeq[bountyID]))
	var biome string
	if b, ok := m.store.GetBountyByID(bountyID); ok {
		biome = b.Biome
	}
	m.spawns = append(m.spawns, SpawnRequest{
		Handle:  h,
		Binding: bounty.Binding{BountyID: bountyID, MonsterID: monsterID, IsAdd: isAdd},
		Biome:   biome,
	})
	return h
}

// DrainSpawns returns spawn requests queued since the last call.
func (m *Merchant) DrainSpawns() []SpawnRequest {
	out := m.spawns
	m.spawns = nil
	return out
}

// DrainDeliveries returns grants the host still has to hand over.
func (m *Merchant) DrainDeliveries() []txn.Grant { return m.inv.Drain() }

func (m *Merchant) Accept(id string) result.Code {
	m.Tick()
	code := m.bounties.Accept(id)
	m.writeAudit(AuditEntry{Action: "ACCEPT_BOUNTY", Result: string(code), BountyID: id, Interval: m.bountyInterval})
	return code
}

func (m *Merchant) Slay(id, monsterID string, isAdd bool) result.Code {
	code := m.bounties.Slay(id, monsterID, isAdd)
	m.writeAudit(AuditEntry{Action: "SLAY", Result: string(code), BountyID: id, ItemID: monsterID, Interval: m.bountyInterval})
	return code
}

func (m *Merchant) Death(h bounty.EntityHandle) result.Code {
	bind, bound := m.bounties.Registry.Lookup(h)
	code := m.bounties.OnEntityDeath(h)
	if bound {
		m.writeAudit(AuditEntry{Action: "SLAY", Result: string(code), BountyID: bind.BountyID, ItemID: bind.MonsterID, Interval: m.bountyInterval})
	}
	return code
}

func (m *Merchant) Rebind(h bounty.EntityHandle, b bounty.Binding) result.Code {
	return m.bounties.Rebind(h, b)
}

// Setup applies bounty scaling to a host character bound to h.
func (m *Merchant) Setup(h bounty.EntityHandle, st scaling.Stats, initial bool) (scaling.Stats, bounty.Binding, result.Code) {
	bind, ok := m.bounties.Registry.Lookup(h)
	if !ok {
		return st, bounty.Binding{}, result.Ignored
	}
	b, found := m.store.GetBountyByID(bind.BountyID)
	if !found {
		return st, bind, result.NotFound
	}
	out := scaling.Setup(&bind, b, st, initial, m.scaling)
	m.bounties.Registry.SetOriginalName(h, bind.OriginalName)
	return out, bind, result.OK
}

func (m *Merchant) Claim(id string) txn.Receipt {
	r := m.bounties.Claim(m.inv, id)
	if r.Code == result.OK {
		m.store.SaveInventory(m.inv.Snapshot())
	}
	a := AuditEntry{Action: "CLAIM_BOUNTY", Result: string(r.Code), BountyID: id, Interval: m.bountyInterval}
	if r.Code == result.OK {
		g := r.Grant
		a.Grant = &g
	}
	m.writeAudit(a)
	return r
}

// ResolveMap clears a pending treasure map once its chest is looted.
func (m *Merchant) ResolveMap(biome string) result.Code {
	if !(pendingMaps{m.store}).HasPendingMap(biome) {
		return result.Ignored
	}
	m.store.SetMapPending(biome, false)
	return result.OK
}

// Deposit mirrors currency or items the player picked up or spent outside
// the merchant. Negative counts withdraw and never overdraw.
func (m *Merchant) Deposit(item string, count int) result.Code {
	if item == "" || count == 0 {
		return result.Ignored
	}
	if count > 0 {
		m.inv.Credit(market.Currency(item), count)
	} else if !m.inv.Debit(market.Currency(item), -count) {
		return result.InsufficientFunds
	}
	m.store.SaveInventory(m.inv.Snapshot())
	return result.OK
}

func (m *Merchant) Bounties() []bounty.Info { return m.bounties.List() }

func (m *Merchant) writeAudit(a AuditEntry) {
	if m.audit == nil {
		return
	}
	a.WorldTime = m.WorldTime()
	a.PlayerID = m.cfg.PlayerID
	if err := m.audit.WriteAudit(a); err != nil {
		m.logger.Printf("player %s: audit %s %s: %v", a.PlayerID, a.Action, a.BountyID, err)
	}
}

package bounty

import (
	"sort"

	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/market/txn"
	"merchantboard.ai/internal/sim/result"
)

// Manager drives the bounty state machine. It reads and writes records
// through the store on every call and keeps no copy of them.
type Manager struct {
	Store    SaveData
	Spawner  Spawner
	Registry *Registry
}

func NewManager(store SaveData, spawner Spawner) *Manager {
	return &Manager{Store: store, Spawner: spawner, Registry: NewRegistry()}
}

// Active returns the bounty holding the assignment slot, if any.
func (m *Manager) Active() (Info, bool) {
	for _, b := range m.Store.Bounties() {
		if b.State == StateInProgress {
			return b, true
		}
	}
	return Info{}, false
}

// List returns all stored bounties ordered by interval then id.
func (m *Manager) List() []Info {
	out := m.Store.Bounties()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interval != out[j].Interval {
			return out[i].Interval < out[j].Interval
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) Accept(id string) result.Code {
	b, found := m.Store.GetBountyByID(id)
	_, active := m.Active()
	if code := DecideAccept(b, found, active); code != result.OK {
		return code
	}
	b.State = StateInProgress
	b.TargetSlain = false
	b.AddsSlain = nil
	m.Store.UpsertBounty(b)

	if m.Spawner == nil {
		return result.OK
	}
	m.spawn(b.ID, b.Target.MonsterID, false)
	for _, a := range b.Adds {
		for i := 0; i < max(a.Count, 1); i++ {
			m.spawn(b.ID, a.MonsterID, true)
		}
	}
	return result.OK
}

func (m *Manager) spawn(bountyID, monsterID string, isAdd bool) {
	h := m.Spawner.SpawnTarget(bountyID, monsterID, isAdd)
	m.Registry.Bind(h, Binding{BountyID: bountyID, MonsterID: monsterID, IsAdd: isAdd})
}

func (m *Manager) Slay(id, monsterID string, isAdd bool) result.Code {
	b, found := m.Store.GetBountyByID(id)
	if !found {
		return result.NotFound
	}
	b = b.Clone()
	code := ApplySlay(&b, monsterID, isAdd)
	if code == result.OK {
		m.Store.UpsertBounty(b)
		if b.State == StateCompleted {
			m.release(id)
		}
	}
	return code
}

// release drops every binding still held by a finished bounty.
func (m *Manager) release(bountyID string) {
	for _, h := range m.Registry.ForBounty(bountyID) {
		m.Registry.Unbind(h)
	}
}

// OnEntityDeath turns a host death event into a kill. Unknown handles are
// ignored; the binding is torn down either way.
func (m *Manager) OnEntityDeath(h EntityHandle) result.Code {
	bind, ok := m.Registry.Lookup(h)
	if !ok {
		return result.Ignored
	}
	m.Registry.Unbind(h)
	code := m.Slay(bind.BountyID, bind.MonsterID, bind.IsAdd)
	if code == result.NotFound {
		return result.Ignored
	}
	return code
}

// Rebind restores a binding reported by a reloaded entity. Bindings whose
// bounty no longer runs are dropped.
func (m *Manager) Rebind(h EntityHandle, bind Binding) result.Code {
	if h == "" {
		return result.Ignored
	}
	b, found := m.Store.GetBountyByID(bind.BountyID)
	if !found {
		return result.NotFound
	}
	if b.State != StateInProgress {
		return result.Ignored
	}
	if bind.IsAdd && b.AddCount(bind.MonsterID) == 0 {
		return result.Ignored
	}
	if !bind.IsAdd && bind.MonsterID != b.Target.MonsterID {
		return result.Ignored
	}
	m.Registry.Bind(h, bind)
	return result.OK
}

// RewardGrant is what a completed bounty pays out.
func RewardGrant(b Info) txn.Grant {
	g := txn.Grant{Reason: "CLAIM_BOUNTY"}
	if b.RewardGold > 0 {
		g.Items = append(g.Items, txn.ItemStack{ItemID: market.ItemGoldBountyToken, Count: b.RewardGold})
	}
	if b.RewardIron > 0 {
		g.Items = append(g.Items, txn.ItemStack{ItemID: market.ItemIronBountyToken, Count: b.RewardIron})
	}
	if b.RewardCoins > 0 {
		g.Items = append(g.Items, txn.ItemStack{ItemID: string(market.Coins), Count: b.RewardCoins})
	}
	if b.RewardForestTokens > 0 {
		g.Items = append(g.Items, txn.ItemStack{ItemID: string(market.ForestTokens), Count: b.RewardForestTokens})
	}
	return g
}

// Claim pays out a completed bounty. A grant the inventory refuses leaves the
// bounty Completed so it can be claimed again later.
func (m *Manager) Claim(p txn.Provider, id string) txn.Receipt {
	b, found := m.Store.GetBountyByID(id)
	if code := DecideClaim(b, found); code != result.OK {
		return txn.Receipt{Code: code}
	}
	r := txn.Execute(p, txn.Order{Grant: RewardGrant(b)})
	if r.Code != result.OK {
		return r
	}
	b.State = StateClaimed
	m.Store.UpsertBounty(b)
	return r
}

// Expire retires Available bounties whose offer window has elapsed and
// returns their ids.
func (m *Manager) Expire(currentInterval, windowIntervals int) []string {
	var out []string
	for _, b := range m.List() {
		if !ShouldExpire(b, currentInterval, windowIntervals) {
			continue
		}
		b.State = StateExpired
		m.Store.UpsertBounty(b)
		out = append(out, b.ID)
	}
	return out
}

// Post offers freshly generated bounties. Records already in the store keep
// their state so a reposted board never resets progress.
func (m *Manager) Post(generated []Info) int {
	n := 0
	for _, b := range generated {
		if _, ok := m.Store.GetBountyByID(b.ID); ok {
			continue
		}
		b.State = StateAvailable
		m.Store.UpsertBounty(b)
		n++
	}
	return n
}

package merchant

import (
	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/clock"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/market/txn"
)

// ExportSnapshot captures the player's persistent state. Purchases are kept
// for the current interval of each kind only; older ones can never matter.
func (m *Merchant) ExportSnapshot() snapshot.PlayerV1 {
	p := snapshot.PlayerV1{
		PlayerID:    m.cfg.PlayerID,
		WorldTime:   m.WorldTime(),
		Inventory:   m.inv.Snapshot(),
		PendingMaps: m.store.PendingMaps(),
	}
	for _, k := range market.Kinds {
		st := m.boards[k]
		if st.Interval < 0 {
			continue
		}
		for _, i := range m.store.PurchasedIndices(k, st.Interval) {
			p.Purchases = append(p.Purchases, snapshot.PurchaseV1{Kind: string(k), Interval: st.Interval, Index: i})
		}
	}
	for _, b := range m.bounties.List() {
		p.Bounties = append(p.Bounties, bountyToV1(b))
	}
	for _, g := range m.inv.Pending() {
		p.Deliveries = append(p.Deliveries, grantToV1(g))
	}
	return p
}

// ImportSnapshot loads p into the store. It is meant for an empty store; the
// interval state is reset so the next Tick re-applies purchases.
func (m *Merchant) ImportSnapshot(p snapshot.PlayerV1) {
	if p.WorldTime > 0 {
		m.SetTime(p.WorldTime)
	}
	m.store.SaveInventory(p.Inventory)
	m.inv.Items = m.store.Inventory()
	for _, biome := range p.PendingMaps {
		m.store.SetMapPending(biome, true)
	}
	for _, pu := range p.Purchases {
		if k := market.NormalizeKind(pu.Kind); k != "" {
			m.store.MarkPurchased(k, pu.Interval, pu.Index)
		}
	}
	for _, b := range p.Bounties {
		m.store.UpsertBounty(bountyFromV1(b))
	}
	for _, g := range p.Deliveries {
		m.inv.Queue(grantFromV1(g))
	}
	for _, st := range m.boards {
		st.Interval = clock.Unavailable
	}
	m.bountyInterval = clock.Unavailable
}

func bountyToV1(b bounty.Info) snapshot.BountyV1 {
	out := snapshot.BountyV1{
		ID:                 b.ID,
		TargetName:         b.TargetName,
		Biome:              b.Biome,
		MonsterID:          b.Target.MonsterID,
		Level:              b.Target.Level,
		RewardIron:         b.RewardIron,
		RewardGold:         b.RewardGold,
		RewardCoins:        b.RewardCoins,
		RewardForestTokens: b.RewardForestTokens,
		State:              string(b.State),
		Interval:           b.Interval,
		TargetSlain:        b.TargetSlain,
		AddsSlain:          b.AddsSlain,
	}
	for _, a := range b.Adds {
		out.Adds = append(out.Adds, snapshot.AddV1{MonsterID: a.MonsterID, Level: a.Level, Count: a.Count})
	}
	return out
}

func bountyFromV1(b snapshot.BountyV1) bounty.Info {
	out := bounty.Info{
		ID:                 b.ID,
		TargetName:         b.TargetName,
		Biome:              b.Biome,
		Target:             bounty.Target{MonsterID: b.MonsterID, Level: b.Level},
		RewardIron:         b.RewardIron,
		RewardGold:         b.RewardGold,
		RewardCoins:        b.RewardCoins,
		RewardForestTokens: b.RewardForestTokens,
		State:              bounty.State(b.State),
		Interval:           b.Interval,
		TargetSlain:        b.TargetSlain,
		AddsSlain:          b.AddsSlain,
	}
	for _, a := range b.Adds {
		out.Adds = append(out.Adds, bounty.Add{MonsterID: a.MonsterID, Level: a.Level, Count: a.Count})
	}
	return out.Clone()
}

func grantToV1(g txn.Grant) snapshot.GrantV1 {
	out := snapshot.GrantV1{Reason: g.Reason, Rarity: g.Rarity, GambleType: g.GambleType, Biome: g.Biome}
	for _, it := range g.Items {
		out.Items = append(out.Items, snapshot.StackV1{ItemID: it.ItemID, Count: it.Count})
	}
	return out
}

func grantFromV1(g snapshot.GrantV1) txn.Grant {
	out := txn.Grant{Reason: g.Reason, Rarity: g.Rarity, GambleType: g.GambleType, Biome: g.Biome}
	for _, it := range g.Items {
		out.Items = append(out.Items, txn.ItemStack{ItemID: it.ItemID, Count: it.Count})
	}
	return out
}

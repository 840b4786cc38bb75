package merchant

import (
	"fmt"

	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/clock"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/market/eligibility"
	"merchantboard.ai/internal/sim/market/txn"
	"merchantboard.ai/internal/sim/result"
)

func (m *Merchant) refresh(periodDays int) protocol.Refresh {
	secs := m.clock.SecondsUntilNextInterval(periodDays)
	return protocol.Refresh{
		Interval:  m.clock.CurrentInterval(periodDays),
		SecondsIn: secs,
		Text:      clock.FormatRemaining(secs),
		Tooltip:   clock.RefreshTooltip(periodDays),
	}
}

// State renders the merchant for the host. Affordability is evaluated against
// the wallet as it is right now.
func (m *Merchant) State() protocol.StateMsg {
	w := m.Wallet()
	maps := pendingMaps{m.store}
	shops := m.cfg.Shops

	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		PlayerID:        m.cfg.PlayerID,
		WorldTime:       m.WorldTime(),
		Wallet:          protocol.WalletView{Coins: w.Coins, ForestTokens: w.ForestTokens},
		Tooltip: fmt.Sprintf("Secret Stash: %s\nTreasure Maps: %s\nBounties: %s",
			clock.RefreshTooltip(shops.SecretStashRefreshDays),
			clock.RefreshTooltip(shops.TreasureMapRefreshDays),
			clock.RefreshTooltip(m.cfg.Bounties.RefreshDays)),
		PendingMaps: m.store.PendingMaps(),
	}
	for _, b := range []struct {
		name string
		days int
	}{
		{protocol.BoardSecretStash, shops.SecretStashRefreshDays},
		{protocol.BoardTreasureMap, shops.TreasureMapRefreshDays},
	} {
		bv := protocol.BoardView{Board: b.name, Refresh: m.refresh(b.days)}
		for i, e := range m.Entries(b.name) {
			bv.Entries = append(bv.Entries, offerView(i, e, w, maps))
		}
		msg.Boards = append(msg.Boards, bv)
	}

	msg.Bounties.Refresh = m.refresh(m.cfg.Bounties.RefreshDays)
	for _, b := range m.bounties.List() {
		v := bountyView(b)
		switch b.State {
		case bounty.StateAvailable:
			msg.Bounties.Available = append(msg.Bounties.Available, v)
		case bounty.StateInProgress:
			msg.Bounties.Active = &v
		case bounty.StateCompleted:
			msg.Bounties.Claimable = append(msg.Bounties.Claimable, v)
		}
	}
	return msg
}

// offerView reports positions in board order, which is what BUY takes.
func offerView(pos int, e market.ShopEntry, w market.Wallet, maps eligibility.MapTracker) protocol.OfferView {
	return protocol.OfferView{
		Index:             pos,
		Kind:              string(e.Kind),
		ItemID:            e.ItemID,
		Stack:             e.Stack,
		CoinsPrice:        e.CoinsPrice,
		ForestTokensPrice: e.ForestTokensPrice,
		IsGamble:          e.IsGamble,
		Rarity:            e.Rarity,
		Biome:             e.Biome,
		AlreadyPurchased:  e.AlreadyPurchased,
		CanAfford:         eligibility.CanAfford(e, w),
		Purchasable:       eligibility.Check(e, w, maps) == result.OK,
	}
}

func bountyView(b bounty.Info) protocol.BountyView {
	v := protocol.BountyView{
		ID:                 b.ID,
		State:              string(b.State),
		TargetName:         b.TargetName,
		Biome:              b.Biome,
		MonsterID:          b.Target.MonsterID,
		Level:              b.Target.Level,
		RewardIron:         b.RewardIron,
		RewardGold:         b.RewardGold,
		RewardCoins:        b.RewardCoins,
		RewardForestTokens: b.RewardForestTokens,
		TargetSlain:        b.TargetSlain,
	}
	for _, a := range b.Adds {
		v.Adds = append(v.Adds, protocol.AddView{
			MonsterID: a.MonsterID,
			Level:     a.Level,
			Count:     max(a.Count, 1),
			Slain:     b.AddsSlain[a.MonsterID],
		})
	}
	return v
}

func GrantView(g txn.Grant) protocol.Grant {
	out := protocol.Grant{Reason: g.Reason, Rarity: g.Rarity, GambleType: g.GambleType, Biome: g.Biome}
	for _, s := range g.Items {
		out.Items = append(out.Items, protocol.ItemStack{Item: s.ItemID, Count: s.Count})
	}
	return out
}

// CodeFor maps a result onto the wire error code. OK and Ignored are not
// errors to the caller.
func CodeFor(c result.Code) string {
	switch c {
	case result.OK, result.Ignored:
		return ""
	case result.NotFound:
		return protocol.ErrNotFound
	case result.InvalidTransition:
		return protocol.ErrInvalidTransition
	case result.NotReady:
		return protocol.ErrNotReady
	case result.InsufficientFunds:
		return protocol.ErrNoResource
	case result.GrantRejected:
		return protocol.ErrInventoryFull
	case result.NotPurchasable:
		return protocol.ErrBlocked
	default:
		return protocol.ErrInternal
	}
}

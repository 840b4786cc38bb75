package txn

import (
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/result"
)

// Provider is the host inventory. Credit only ever returns currency that this
// package debited moments earlier in the same Execute call.
type Provider interface {
	market.BalanceSource
	Debit(c market.Currency, amount int) bool
	Credit(c market.Currency, amount int)
	Grant(g Grant) bool
}

type Cost struct {
	Coins        int `json:"coins,omitempty"`
	ForestTokens int `json:"forest_tokens,omitempty"`
}

func CostOf(e market.ShopEntry) Cost {
	return Cost{Coins: e.CoinsPrice, ForestTokens: e.ForestTokensPrice}
}

type ItemStack struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// Grant describes what the host must hand to the player. Gambles carry the
// rolled rarity and the host materializes the item; treasure maps carry the biome.
type Grant struct {
	Reason     string      `json:"reason"`
	Items      []ItemStack `json:"items,omitempty"`
	Rarity     string      `json:"rarity,omitempty"`
	GambleType string      `json:"gamble_type,omitempty"`
	Biome      string      `json:"biome,omitempty"`
}

func GrantFor(e market.ShopEntry) Grant {
	g := Grant{Reason: "BUY_" + string(e.Kind)}
	switch {
	case e.IsGamble:
		g.Rarity = e.Rarity
		g.GambleType = e.ItemID
	case e.Kind == market.KindTreasureMap:
		g.Biome = e.Biome
		g.Items = []ItemStack{{ItemID: e.ItemID, Count: 1}}
	default:
		n := e.Stack
		if n <= 0 {
			n = 1
		}
		g.Items = []ItemStack{{ItemID: e.ItemID, Count: n}}
	}
	return g
}

type Order struct {
	Cost  Cost
	Grant Grant

	// Entry, when set, is re-checked for AlreadyPurchased and, if
	// OncePerInterval, marked purchased on success.
	Entry           *market.ShopEntry
	OncePerInterval bool
}

type Receipt struct {
	Code  result.Code `json:"code"`
	Cost  Cost        `json:"cost"`
	Grant Grant       `json:"grant"`
}

// Execute re-validates balances at execution time, debits, then grants. Any
// failure after the first debit is rolled back so the provider ends up either
// fully charged with the grant delivered or untouched.
func Execute(p Provider, o Order) Receipt {
	r := Receipt{Cost: o.Cost}
	if p == nil {
		r.Code = result.GrantRejected
		return r
	}
	if o.Cost.Coins < 0 || o.Cost.ForestTokens < 0 {
		r.Code = result.InsufficientFunds
		return r
	}
	if o.Entry != nil && o.Entry.AlreadyPurchased {
		r.Code = result.NotPurchasable
		return r
	}
	w := market.WalletOf(p)
	if w.Coins < o.Cost.Coins || w.ForestTokens < o.Cost.ForestTokens {
		r.Code = result.InsufficientFunds
		return r
	}

	var debited []ItemStack
	rollback := func() {
		for i := len(debited) - 1; i >= 0; i-- {
			p.Credit(market.Currency(debited[i].ItemID), debited[i].Count)
		}
	}
	for _, d := range []struct {
		c market.Currency
		n int
	}{{market.Coins, o.Cost.Coins}, {market.ForestTokens, o.Cost.ForestTokens}} {
		if d.n == 0 {
			continue
		}
		if !p.Debit(d.c, d.n) {
			rollback()
			r.Code = result.InsufficientFunds
			return r
		}
		debited = append(debited, ItemStack{ItemID: string(d.c), Count: d.n})
	}

	if !p.Grant(o.Grant) {
		rollback()
		r.Code = result.GrantRejected
		return r
	}

	if o.Entry != nil && o.OncePerInterval {
		o.Entry.AlreadyPurchased = true
	}
	r.Code = result.OK
	r.Grant = o.Grant
	return r
}

package inventory

import (
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/market/txn"
)

// Inventory is an in-process stand-in for the host inventory: item counts
// (currencies included) plus an outbox of grants the host still has to
// materialize, such as gamble rolls and treasure map chests.
type Inventory struct {
	Items map[string]int

	// MaxItemKinds caps distinct item ids; 0 means unlimited. A grant that
	// would exceed it is refused the way a full host inventory refuses it.
	MaxItemKinds int

	outbox []txn.Grant
}

func New(items map[string]int) *Inventory {
	inv := &Inventory{Items: map[string]int{}}
	AddItems(inv.Items, items)
	return inv
}

func (inv *Inventory) GetBalance(c market.Currency) int {
	return inv.Items[string(c)]
}

func (inv *Inventory) Debit(c market.Currency, amount int) bool {
	if amount < 0 || inv.Items[string(c)] < amount {
		return false
	}
	DeductItems(inv.Items, map[string]int{string(c): amount})
	return true
}

func (inv *Inventory) Credit(c market.Currency, amount int) {
	AddItems(inv.Items, map[string]int{string(c): amount})
}

func (inv *Inventory) Grant(g txn.Grant) bool {
	add := map[string]int{}
	for _, s := range g.Items {
		if s.ItemID == "" || s.Count <= 0 {
			continue
		}
		add[s.ItemID] += s.Count
	}
	if inv.MaxItemKinds > 0 {
		kinds := len(inv.Items)
		for id := range add {
			if _, ok := inv.Items[id]; !ok {
				kinds++
			}
		}
		if g.Rarity != "" {
			kinds++
		}
		if kinds > inv.MaxItemKinds {
			return false
		}
	}
	AddItems(inv.Items, add)
	if g.Rarity != "" || g.Biome != "" {
		inv.outbox = append(inv.outbox, g)
	}
	return true
}

// Drain returns and clears grants awaiting host delivery.
func (inv *Inventory) Drain() []txn.Grant {
	out := inv.outbox
	inv.outbox = nil
	return out
}

// Pending returns a copy of the grants awaiting host delivery.
func (inv *Inventory) Pending() []txn.Grant {
	return append([]txn.Grant(nil), inv.outbox...)
}

// Queue puts grants back in the outbox without touching item counts.
func (inv *Inventory) Queue(gs ...txn.Grant) {
	inv.outbox = append(inv.outbox, gs...)
}

func (inv *Inventory) Snapshot() map[string]int {
	out := make(map[string]int, len(inv.Items))
	for k, v := range inv.Items {
		out[k] = v
	}
	return out
}

func DeductItems(inv map[string]int, cost map[string]int) {
	for item, c := range cost {
		if item == "" || c <= 0 {
			continue
		}
		inv[item] -= c
		if inv[item] <= 0 {
			delete(inv, item)
		}
	}
}

func AddItems(inv map[string]int, add map[string]int) {
	for item, n := range add {
		if item == "" || n <= 0 {
			continue
		}
		inv[item] += n
	}
}

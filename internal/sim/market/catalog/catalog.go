package catalog

import (
	"sort"

	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/logic/mathx"
	"merchantboard.ai/internal/sim/logic/weights"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/tuning"
)

// Generator derives the offers of an interval. It holds no mutable state:
// GenerateCatalog is a pure function of (interval, kind) for a given seed and
// set of tables, so every observer of an interval sees the same offers.
type Generator struct {
	Seed     int64
	Shops    tuning.Shops
	Catalogs *catalogs.Catalogs
}

func New(seed int64, shops tuning.Shops, cats *catalogs.Catalogs) Generator {
	return Generator{Seed: seed, Shops: shops, Catalogs: cats}
}

func (g Generator) stream(interval int, kind market.Kind) *mathx.Stream {
	return mathx.NewStream(mathx.Hash2(g.Seed, interval, mathx.HashString(string(kind))))
}

// GenerateCatalog returns the ordered offers of kind for interval. Unknown
// kinds, negative intervals and empty pools yield an empty sequence.
func (g Generator) GenerateCatalog(interval int, kind market.Kind) []market.ShopEntry {
	if interval < 0 || g.Catalogs == nil {
		return nil
	}
	s := g.stream(interval, kind)
	var out []market.ShopEntry
	switch kind {
	case market.KindSecretStash:
		out = pickItems(g.Catalogs.StashItems.Defs, g.Shops.SecretStash.EntryCount, s, kind)
	case market.KindForestToken:
		out = pickItems(g.Catalogs.TokenItems.Defs, g.Shops.ForestTokens.EntryCount, s, kind)
	case market.KindGamble:
		out = rollGambles(g.Catalogs.Gambles.Defs, g.Shops.Gamble.EntryCount, s)
	case market.KindTreasureMap:
		out = pickMaps(g.Catalogs.TreasureMaps.Defs, g.Shops.TreasureMaps.EntryCount, s)
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

// Unique picks keep catalog declaration order in the output.
func pickItems(defs []catalogs.ItemDef, n int, s *mathx.Stream, kind market.Kind) []market.ShopEntry {
	pool := make([]weights.Entry, len(defs))
	for i, d := range defs {
		pool[i] = weights.Entry{ID: d.ID, Weight: d.Weight}
	}
	picked := weights.PickN(pool, n, s.Next)
	sort.Ints(picked)

	out := make([]market.ShopEntry, 0, len(picked))
	for _, i := range picked {
		d := defs[i]
		stack := d.Stack
		if stack <= 0 {
			stack = 1
		}
		out = append(out, market.ShopEntry{
			Kind:              kind,
			ItemID:            d.ID,
			Stack:             stack,
			CoinsPrice:        d.CoinsPrice,
			ForestTokensPrice: d.ForestTokensPrice,
		})
	}
	return out
}

// Gambles are independent rolls; the same tier may appear more than once.
func rollGambles(defs []catalogs.GambleDef, n int, s *mathx.Stream) []market.ShopEntry {
	pool := make([]weights.Entry, len(defs))
	for i, d := range defs {
		pool[i] = weights.Entry{ID: d.Rarity + "/" + d.ItemType, Weight: d.Weight}
	}
	var out []market.ShopEntry
	for k := 0; k < n; k++ {
		i := weights.Pick(pool, s.Next())
		if i < 0 {
			break
		}
		d := defs[i]
		out = append(out, market.ShopEntry{
			Kind:              market.KindGamble,
			ItemID:            d.ItemType,
			Stack:             1,
			CoinsPrice:        d.CoinsPrice,
			ForestTokensPrice: d.ForestTokensPrice,
			IsGamble:          true,
			Rarity:            d.Rarity,
		})
	}
	return out
}

func pickMaps(defs []catalogs.TreasureMapDef, n int, s *mathx.Stream) []market.ShopEntry {
	pool := make([]weights.Entry, len(defs))
	for i, d := range defs {
		pool[i] = weights.Entry{ID: d.Biome, Weight: d.Weight}
	}
	picked := weights.PickN(pool, n, s.Next)
	sort.Ints(picked)

	out := make([]market.ShopEntry, 0, len(picked))
	for _, i := range picked {
		d := defs[i]
		out = append(out, market.ShopEntry{
			Kind:              market.KindTreasureMap,
			ItemID:            market.ItemTreasureMap,
			Stack:             1,
			CoinsPrice:        d.CoinsPrice,
			ForestTokensPrice: d.ForestTokensPrice,
			Biome:             d.Biome,
		})
	}
	return out
}

package catalog

import (
	"path/filepath"
	"reflect"
	"testing"

	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/tuning"
)

func testGenerator(t *testing.T) Generator {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return New(1337, tuning.Defaults().Shops, cats)
}

func TestGenerateCatalog_Deterministic(t *testing.T) {
	g := testGenerator(t)
	for _, kind := range market.Kinds {
		for interval := 0; interval < 20; interval++ {
			a := g.GenerateCatalog(interval, kind)
			b := g.GenerateCatalog(interval, kind)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("kind=%s interval=%d: catalogs differ\n%#v\n%#v", kind, interval, a, b)
			}
		}
	}
}

func TestGenerateCatalog_CountsAndUniqueness(t *testing.T) {
	g := testGenerator(t)
	stash := g.GenerateCatalog(3, market.KindSecretStash)
	if len(stash) != g.Shops.SecretStash.EntryCount {
		t.Fatalf("expected %d stash entries, got %d", g.Shops.SecretStash.EntryCount, len(stash))
	}
	seen := map[string]bool{}
	for i, e := range stash {
		if e.Index != i || e.Kind != market.KindSecretStash || e.IsGamble {
			t.Fatalf("unexpected entry %#v at %d", e, i)
		}
		if seen[e.ItemID] {
			t.Fatalf("duplicate stash item %s", e.ItemID)
		}
		seen[e.ItemID] = true
	}

	maps := g.GenerateCatalog(3, market.KindTreasureMap)
	biomes := map[string]bool{}
	for _, e := range maps {
		if e.Biome == "" || e.ItemID != market.ItemTreasureMap {
			t.Fatalf("bad treasure map entry %#v", e)
		}
		if biomes[e.Biome] {
			t.Fatalf("duplicate biome %s", e.Biome)
		}
		biomes[e.Biome] = true
	}

	gambles := g.GenerateCatalog(3, market.KindGamble)
	if len(gambles) != g.Shops.Gamble.EntryCount {
		t.Fatalf("expected %d gambles, got %d", g.Shops.Gamble.EntryCount, len(gambles))
	}
	for _, e := range gambles {
		if !e.IsGamble || e.Rarity == "" {
			t.Fatalf("bad gamble entry %#v", e)
		}
	}
}

func TestGenerateCatalog_RotatesAcrossIntervals(t *testing.T) {
	g := testGenerator(t)
	first := g.GenerateCatalog(0, market.KindSecretStash)
	for interval := 1; interval < 30; interval++ {
		if !reflect.DeepEqual(first, g.GenerateCatalog(interval, market.KindSecretStash)) {
			return
		}
	}
	t.Fatalf("expected at least one interval with a different stash")
}

func TestGenerateCatalog_EmptyPool(t *testing.T) {
	g := New(1, tuning.Defaults().Shops, &catalogs.Catalogs{})
	for _, kind := range market.Kinds {
		if got := g.GenerateCatalog(5, kind); len(got) != 0 {
			t.Fatalf("expected empty %s catalog, got %#v", kind, got)
		}
	}
	zero := New(1, tuning.Defaults().Shops, &catalogs.Catalogs{
		Gambles: catalogs.GambleCatalog{Defs: []catalogs.GambleDef{{Rarity: "MAGIC", ItemType: "Any", Weight: 0}}},
	})
	if got := zero.GenerateCatalog(5, market.KindGamble); len(got) != 0 {
		t.Fatalf("expected zero-weight pool to be empty, got %#v", got)
	}
	if got := testGenerator(t).GenerateCatalog(-1, market.KindSecretStash); got != nil {
		t.Fatalf("expected nil for unavailable interval")
	}
}

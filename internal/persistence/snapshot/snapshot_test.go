package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName(42))
	in := SnapshotV1{
		Header: Header{ServerID: "merchant_1", Seed: 1337, CreatedAt: 42},
		Players: []PlayerV1{{
			PlayerID:    "P1",
			WorldTime:   86400,
			Inventory:   map[string]int{"Coins": 120},
			PendingMaps: []string{"Swamp"},
			Purchases:   []PurchaseV1{{Kind: "TREASURE_MAP", Interval: 0, Index: 1}},
			Bounties: []BountyV1{{
				ID: "BNT000000-0", MonsterID: "Troll", Level: 2, State: "IN_PROGRESS",
				Adds:      []AddV1{{MonsterID: "Greydwarf", Level: 2, Count: 2}},
				AddsSlain: map[string]int{"Greydwarf": 1},
			}},
		}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Version != Version || h.Players != 1 || h.ServerID != "merchant_1" {
		t.Fatalf("unexpected header %#v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Players) != 1 || out.Players[0].Inventory["Coins"] != 120 {
		t.Fatalf("unexpected players %#v", out.Players)
	}
	if got := out.Players[0].Bounties[0].AddsSlain["Greydwarf"]; got != 1 {
		t.Fatalf("expected adds slain preserved, got %d", got)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if p, err := Latest(filepath.Join(dir, "missing")); err != nil || p != "" {
		t.Fatalf("expected empty result for missing dir, got %q %v", p, err)
	}
	for _, ts := range []int64{5, 100, 20} {
		if err := WriteSnapshot(filepath.Join(dir, FileName(ts)), SnapshotV1{Header: Header{CreatedAt: ts}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	p, err := Latest(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if filepath.Base(p) != FileName(100) {
		t.Fatalf("expected newest snapshot, got %s", p)
	}
}

package savedb

import (
	"bytes"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/market"
)

func openTest(t *testing.T, path string) *DB {
	t.Helper()
	d, err := Open(path, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.db")
	d := openTest(t, path)

	st, err := d.Player("P1")
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	b := bounty.Info{
		ID:         "BNT000003-0",
		Target:     bounty.Target{MonsterID: "Troll", Level: 3},
		Adds:       []bounty.Add{{MonsterID: "Greydwarf", Level: 1, Count: 2}},
		RewardIron: 2,
		State:      bounty.StateInProgress,
		Interval:   3,
		AddsSlain:  map[string]int{"Greydwarf": 1},
	}
	st.UpsertBounty(b)
	b.State = bounty.StateCompleted
	st.UpsertBounty(b)
	st.MarkPurchased(market.KindSecretStash, 4, 2)
	st.MarkPurchased(market.KindSecretStash, 4, 2)
	st.SetMapPending("Swamp", true)
	st.SetMapPending("Plains", true)
	st.SetMapPending("Plains", false)
	st.SaveInventory(map[string]int{"Coins": 10, "Ruby": 1})
	st.SaveInventory(map[string]int{"Coins": 7})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d = openTest(t, path)
	defer d.Close()
	if got := d.Players(); !reflect.DeepEqual(got, []string{"P1"}) {
		t.Fatalf("unexpected players %v", got)
	}
	st, _ = d.Player("P1")
	got, ok := st.GetBountyByID("BNT000003-0")
	if !ok || !reflect.DeepEqual(got, b) {
		t.Fatalf("bounty mismatch: ok=%v got=%#v want=%#v", ok, got, b)
	}
	if idx := st.PurchasedIndices(market.KindSecretStash, 4); !reflect.DeepEqual(idx, []int{2}) {
		t.Fatalf("unexpected purchases %v", idx)
	}
	if maps := st.PendingMaps(); !reflect.DeepEqual(maps, []string{"Swamp"}) {
		t.Fatalf("unexpected pending maps %v", maps)
	}
	if inv := st.Inventory(); !reflect.DeepEqual(inv, map[string]int{"Coins": 7}) {
		t.Fatalf("unexpected inventory %v", inv)
	}
	if list := d.Bounties("P1"); len(list) != 1 || list[0].State != bounty.StateCompleted {
		t.Fatalf("unexpected bounty list %#v", list)
	}
	if d.Bounties("nobody") != nil {
		t.Fatalf("expected nil for unknown player")
	}
}

func TestDB_PlayersAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.db")
	d := openTest(t, path)
	a, _ := d.Player("A")
	b, _ := d.Player("B")
	a.SaveInventory(map[string]int{"Coins": 5})
	b.SetMapPending("Mountain", true)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d = openTest(t, path)
	defer d.Close()
	a, _ = d.Player("A")
	b, _ = d.Player("B")
	if len(a.PendingMaps()) != 0 || len(b.Inventory()) != 0 {
		t.Fatalf("player rows leaked: a maps=%v b inv=%v", a.PendingMaps(), b.Inventory())
	}
	if _, err := d.Player(""); err == nil {
		t.Fatalf("expected error for empty player id")
	}
}

func TestDB_RecordSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.db")
	d := openTest(t, path)
	d.RecordSnapshot("/data/snapshots/00000000000000000042.snap.zst", snapshot.Header{ServerID: "S1", Digest: "abc", CreatedAt: 42, Players: 3})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after Close are dropped, not panics.
	d.RecordSnapshot("late", snapshot.Header{})

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var (
		server  string
		created int64
		players int
	)
	row := db.QueryRow(`SELECT server_id, created_at, players FROM snapshots WHERE path=?`, "/data/snapshots/00000000000000000042.snap.zst")
	if err := row.Scan(&server, &created, &players); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if server != "S1" || created != 42 || players != 3 {
		t.Fatalf("row mismatch: server=%s created=%d players=%d", server, created, players)
	}
}

func TestDB_FailedWriteKeepsRestOfBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.db")
	var logs bytes.Buffer
	d, err := Open(path, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Nothing queued yet, so the writer holds no transaction.
	if _, err := d.db.Exec(`DROP TABLE pending_maps`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	st, _ := d.Player("P1")
	b := bounty.Info{ID: "BNT000001-0", Target: bounty.Target{MonsterID: "Troll", Level: 1}, State: bounty.StateAvailable, Interval: 1}
	st.UpsertBounty(b)
	st.SetMapPending("Swamp", true)
	st.SaveInventory(map[string]int{"Coins": 3})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(logs.String(), "pending_map write for \"P1\" failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}

	d = openTest(t, path)
	defer d.Close()
	st, _ = d.Player("P1")
	if _, ok := st.GetBountyByID("BNT000001-0"); !ok {
		t.Fatalf("bounty written before the failure was lost")
	}
	if inv := st.Inventory(); !reflect.DeepEqual(inv, map[string]int{"Coins": 3}) {
		t.Fatalf("inventory written after the failure was lost: %v", inv)
	}
	if maps := st.PendingMaps(); len(maps) != 0 {
		t.Fatalf("unexpected pending maps %v", maps)
	}
}

package savedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/merchant"
)

// DB is the durable save-data store. Every player's rows are loaded into
// memory at Open; reads are served from memory and writes go through a
// single writer goroutine.
type DB struct {
	db     *sql.DB
	logger *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	mu      sync.Mutex
	players map[string]*PlayerStore
}

type reqKind int

const (
	reqBounty reqKind = iota + 1
	reqPurchase
	reqMap
	reqInventory
	reqSnapshot
)

func (k reqKind) String() string {
	switch k {
	case reqBounty:
		return "bounty"
	case reqPurchase:
		return "purchase"
	case reqMap:
		return "pending_map"
	case reqInventory:
		return "inventory"
	case reqSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("reqKind(%d)", int(k))
}

type req struct {
	kind   reqKind
	player string

	bounty   bounty.Info
	purchase purchaseRow
	biome    string
	pending  bool
	items    map[string]int
	snapshot snapshotRow
}

type purchaseRow struct {
	Kind     market.Kind
	Interval int
	Index    int
}

type snapshotRow struct {
	Path      string
	ServerID  string
	Digest    string
	CreatedAt int64
	Players   int
}

// Open loads path and starts the writer. Write failures are reported to
// logger (log.Default when nil).
func Open(path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DB{
		db:      db,
		logger:  logger,
		ch:      make(chan req, 4096),
		players: map[string]*PlayerStore{},
	}
	if err := d.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bounties (
			player_id TEXT NOT NULL,
			bounty_id TEXT NOT NULL,
			state TEXT NOT NULL,
			interval INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (player_id, bounty_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bounties_player_state ON bounties(player_id, state);`,
		`CREATE TABLE IF NOT EXISTS purchases (
			player_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			interval INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			PRIMARY KEY (player_id, kind, interval, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS pending_maps (
			player_id TEXT NOT NULL,
			biome TEXT NOT NULL,
			PRIMARY KEY (player_id, biome)
		);`,
		`CREATE TABLE IF NOT EXISTS inventory (
			player_id TEXT NOT NULL,
			item TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (player_id, item)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			server_id TEXT NOT NULL,
			digest TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			players INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// load fills the in-memory stores. It runs before the writer starts, so the
// base MemStore methods are used directly and nothing is queued.
func (d *DB) load() error {
	rows, err := d.db.Query(`SELECT player_id, raw_json FROM bounties`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var player, raw string
		if err := rows.Scan(&player, &raw); err != nil {
			rows.Close()
			return err
		}
		var b bounty.Info
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			rows.Close()
			return fmt.Errorf("bounty row for %s: %w", player, err)
		}
		d.playerLocked(player).MemStore.UpsertBounty(b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(`SELECT player_id, kind, interval, idx FROM purchases`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			player, kind    string
			interval, index int
		)
		if err := rows.Scan(&player, &kind, &interval, &index); err != nil {
			rows.Close()
			return err
		}
		if k := market.NormalizeKind(kind); k != "" {
			d.playerLocked(player).MemStore.MarkPurchased(k, interval, index)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(`SELECT player_id, biome FROM pending_maps`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var player, biome string
		if err := rows.Scan(&player, &biome); err != nil {
			rows.Close()
			return err
		}
		d.playerLocked(player).MemStore.SetMapPending(biome, true)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(`SELECT player_id, item, count FROM inventory`)
	if err != nil {
		return err
	}
	items := map[string]map[string]int{}
	for rows.Next() {
		var (
			player, item string
			count        int
		)
		if err := rows.Scan(&player, &item, &count); err != nil {
			rows.Close()
			return err
		}
		if items[player] == nil {
			items[player] = map[string]int{}
		}
		items[player][item] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for player, inv := range items {
		d.playerLocked(player).MemStore.SaveInventory(inv)
	}
	return nil
}

func (d *DB) playerLocked(id string) *PlayerStore {
	ps, ok := d.players[id]
	if !ok {
		ps = &PlayerStore{MemStore: merchant.NewMemStore(), db: d, player: id}
		d.players[id] = ps
	}
	return ps
}

// Player returns the store for id, creating an empty one on first use. Its
// signature matches merchant.StoreFactory.
func (d *DB) Player(id string) (merchant.Store, error) {
	if id == "" {
		return nil, fmt.Errorf("empty player id")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playerLocked(id), nil
}

// Players lists every player with saved data.
func (d *DB) Players() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.players))
	for id := range d.players {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Bounties lists a player's saved bounties by interval then id.
func (d *DB) Bounties(playerID string) []bounty.Info {
	d.mu.Lock()
	ps, ok := d.players[playerID]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	out := ps.Bounties()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interval != out[j].Interval {
			return out[i].Interval < out[j].Interval
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RecordSnapshot indexes a snapshot file written by the server.
func (d *DB) RecordSnapshot(path string, h snapshot.Header) {
	d.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		Path:      path,
		ServerID:  h.ServerID,
		Digest:    h.Digest,
		CreatedAt: h.CreatedAt,
		Players:   h.Players,
	}})
}

func (d *DB) Close() error {
	var err error
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
		err = d.db.Close()
	})
	return err
}

// enqueue blocks when the writer falls behind. Writes after Close are lost.
func (d *DB) enqueue(r req) {
	if d == nil || d.closed.Load() {
		return
	}
	d.ch <- r
}

func (d *DB) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 500
		commitMaxWait = 250 * time.Millisecond
	)
	begin := func() error {
		if tx != nil {
			return nil
		}
		txx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		tx = txx
		opCount = 0
		return nil
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			d.logger.Printf("savedb: commit of %d writes failed: %v", opCount, err)
		}
		tx = nil
		opCount = 0
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-d.ch:
			if !ok {
				commit()
				return
			}
			if err := begin(); err != nil {
				// One retry after a short pause.
				time.Sleep(50 * time.Millisecond)
				if err = begin(); err != nil {
					d.logger.Printf("savedb: dropped %s write for %q: begin: %v", r.kind, r.player, err)
					continue
				}
			}
			if err := applyIsolated(tx, r); err != nil {
				d.logger.Printf("savedb: %s write for %q failed: %v", r.kind, r.player, err)
				continue
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

// applyIsolated runs r inside a savepoint so a failing write is undone on its
// own and the rest of the batch still commits.
func applyIsolated(tx *sql.Tx, r req) error {
	if _, err := tx.Exec(`SAVEPOINT write_req`); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := apply(tx, r); err != nil {
		if _, rbErr := tx.Exec(`ROLLBACK TO SAVEPOINT write_req`); rbErr != nil {
			return fmt.Errorf("%v (rollback: %w)", err, rbErr)
		}
		_, _ = tx.Exec(`RELEASE SAVEPOINT write_req`)
		return err
	}
	if _, err := tx.Exec(`RELEASE SAVEPOINT write_req`); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

func apply(tx *sql.Tx, r req) error {
	switch r.kind {
	case reqBounty:
		raw, err := json.Marshal(r.bounty)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO bounties(player_id, bounty_id, state, interval, raw_json) VALUES(?,?,?,?,?)
			ON CONFLICT(player_id, bounty_id) DO UPDATE SET state=excluded.state, interval=excluded.interval, raw_json=excluded.raw_json`,
			r.player, r.bounty.ID, string(r.bounty.State), r.bounty.Interval, string(raw))
		return err

	case reqPurchase:
		_, err := tx.Exec(`INSERT OR IGNORE INTO purchases(player_id, kind, interval, idx) VALUES(?,?,?,?)`,
			r.player, string(r.purchase.Kind), r.purchase.Interval, r.purchase.Index)
		return err

	case reqMap:
		if r.pending {
			_, err := tx.Exec(`INSERT OR IGNORE INTO pending_maps(player_id, biome) VALUES(?,?)`, r.player, r.biome)
			return err
		}
		_, err := tx.Exec(`DELETE FROM pending_maps WHERE player_id=? AND biome=?`, r.player, r.biome)
		return err

	case reqInventory:
		if _, err := tx.Exec(`DELETE FROM inventory WHERE player_id=?`, r.player); err != nil {
			return err
		}
		items := make([]string, 0, len(r.items))
		for item := range r.items {
			items = append(items, item)
		}
		sort.Strings(items)
		for _, item := range items {
			if r.items[item] <= 0 {
				continue
			}
			if _, err := tx.Exec(`INSERT INTO inventory(player_id, item, count) VALUES(?,?,?)`, r.player, item, r.items[item]); err != nil {
				return err
			}
		}
		return nil

	case reqSnapshot:
		s := r.snapshot
		_, err := tx.Exec(`INSERT OR REPLACE INTO snapshots(path, server_id, digest, created_at, players) VALUES(?,?,?,?,?)`,
			s.Path, s.ServerID, s.Digest, s.CreatedAt, s.Players)
		return err
	}
	return nil
}

// PlayerStore is one player's view of the database. Reads come from the
// embedded MemStore; every mutation is mirrored to the writer.
type PlayerStore struct {
	*merchant.MemStore

	db     *DB
	player string
}

var _ merchant.Store = (*PlayerStore)(nil)

func (p *PlayerStore) UpsertBounty(b bounty.Info) {
	p.MemStore.UpsertBounty(b)
	p.db.enqueue(req{kind: reqBounty, player: p.player, bounty: b.Clone()})
}

func (p *PlayerStore) MarkPurchased(kind market.Kind, interval, index int) {
	p.MemStore.MarkPurchased(kind, interval, index)
	p.db.enqueue(req{kind: reqPurchase, player: p.player, purchase: purchaseRow{Kind: kind, Interval: interval, Index: index}})
}

func (p *PlayerStore) SetMapPending(biome string, pending bool) {
	p.MemStore.SetMapPending(biome, pending)
	p.db.enqueue(req{kind: reqMap, player: p.player, biome: biome, pending: pending})
}

func (p *PlayerStore) SaveInventory(items map[string]int) {
	p.MemStore.SaveInventory(items)
	p.db.enqueue(req{kind: reqInventory, player: p.player, items: p.MemStore.Inventory()})
}

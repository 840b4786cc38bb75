package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"merchantboard.ai/internal/sim/bounty"
)

type dbQuery struct {
	Player string
	State  string
	Limit  int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/save/merchant.sqlite)")
	player := fs.String("player", "", "player id filter")
	state := fs.String("state", "", "bounty state filter (bounties)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "save", "merchant.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	err = runDBQuery(db, q, dbQuery{Player: strings.TrimSpace(*player), State: strings.ToUpper(strings.TrimSpace(*state)), Limit: *limit}, os.Stdout)
	if err == errUnknownQuery {
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-player P] [-state S] snapshots|players|bounties|purchases|inventory|maps")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

var errUnknownQuery = fmt.Errorf("unknown query")

func runDBQuery(db *sql.DB, q string, opts dbQuery, w io.Writer) error {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT path,server_id,digest,created_at,players FROM snapshots ORDER BY created_at DESC LIMIT ?`, opts.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Path      string `json:"path"`
				ServerID  string `json:"server_id"`
				Digest    string `json:"catalogs_digest"`
				CreatedAt int64  `json:"created_at"`
				Players   int    `json:"players"`
			}
			if err := rows.Scan(&r.Path, &r.ServerID, &r.Digest, &r.CreatedAt, &r.Players); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "players":
		rows, err := db.Query(`SELECT player_id FROM bounties UNION SELECT player_id FROM inventory UNION SELECT player_id FROM purchases UNION SELECT player_id FROM pending_maps ORDER BY player_id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			fmt.Fprintln(w, id)
		}
		return rows.Err()

	case "bounties":
		if opts.Player == "" {
			return fmt.Errorf("missing -player")
		}
		query := `SELECT raw_json FROM bounties WHERE player_id=? ORDER BY interval, bounty_id`
		args := []any{opts.Player}
		if opts.State != "" {
			query = `SELECT raw_json FROM bounties WHERE player_id=? AND state=? ORDER BY interval, bounty_id`
			args = append(args, opts.State)
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			var b bounty.Info
			if err := json.Unmarshal([]byte(raw), &b); err != nil {
				return err
			}
			printJSON(w, b)
		}
		return rows.Err()

	case "purchases":
		if opts.Player == "" {
			return fmt.Errorf("missing -player")
		}
		rows, err := db.Query(`SELECT kind,interval,idx FROM purchases WHERE player_id=? ORDER BY interval DESC, kind, idx LIMIT ?`, opts.Player, opts.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Kind     string `json:"kind"`
				Interval int    `json:"interval"`
				Index    int    `json:"index"`
			}
			if err := rows.Scan(&r.Kind, &r.Interval, &r.Index); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "inventory":
		if opts.Player == "" {
			return fmt.Errorf("missing -player")
		}
		rows, err := db.Query(`SELECT item,count FROM inventory WHERE player_id=? ORDER BY item`, opts.Player)
		if err != nil {
			return err
		}
		defer rows.Close()
		items := map[string]int{}
		for rows.Next() {
			var (
				item  string
				count int
			)
			if err := rows.Scan(&item, &count); err != nil {
				return err
			}
			items[item] = count
		}
		if err := rows.Err(); err != nil {
			return err
		}
		printJSON(w, items)
		return nil

	case "maps":
		if opts.Player == "" {
			return fmt.Errorf("missing -player")
		}
		rows, err := db.Query(`SELECT biome FROM pending_maps WHERE player_id=? ORDER BY biome`, opts.Player)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var biome string
			if err := rows.Scan(&biome); err != nil {
				return err
			}
			fmt.Fprintln(w, biome)
		}
		return rows.Err()
	}
	return errUnknownQuery
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

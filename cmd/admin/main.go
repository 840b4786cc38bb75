package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	persistlog "merchantboard.ai/internal/persistence/log"
	"merchantboard.ai/internal/persistence/snapshot"
	"merchantboard.ai/internal/sim/merchant"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "bounties":
			dbCmd(append(os.Args[2:], "bounties"))
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	dbCmd(append(os.Args[1:], "players"))
}

type auditFilter struct {
	Player   string
	Action   string
	BountyID string
	From     int64
	To       int64
}

func (f auditFilter) match(e merchant.AuditEntry) bool {
	if f.Player != "" && e.PlayerID != f.Player {
		return false
	}
	if f.Action != "" && !strings.EqualFold(e.Action, f.Action) {
		return false
	}
	if f.BountyID != "" && e.BountyID != f.BountyID {
		return false
	}
	if f.From != 0 && e.WorldTime < f.From {
		return false
	}
	if f.To != 0 && e.WorldTime > f.To {
		return false
	}
	return true
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "single audit .jsonl.zst file (optional; default: every file under <data>/audit)")
	var f auditFilter
	fs.StringVar(&f.Player, "player", "", "player id filter")
	fs.StringVar(&f.Action, "action", "", "action filter (BUY_SECRET_STASH, ACCEPT_BOUNTY, ...)")
	fs.StringVar(&f.BountyID, "bounty", "", "bounty id filter")
	fs.Int64Var(&f.From, "from", 0, "world time lower bound in seconds (inclusive)")
	fs.Int64Var(&f.To, "to", 0, "world time upper bound in seconds (inclusive)")
	_ = fs.Parse(args)

	n, err := printAudit(os.Stdout, *dataDir, strings.TrimSpace(*file), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

func printAudit(w io.Writer, dataDir, file string, f auditFilter) (int, error) {
	n := 0
	emit := func(e merchant.AuditEntry) error {
		if f.match(e) {
			printJSON(w, e)
			n++
		}
		return nil
	}
	if file == "" {
		return n, persistlog.ScanAudit(dataDir, emit)
	}
	err := persistlog.ScanFile(file, func(line []byte) error {
		e, err := decodeAudit(line)
		if err != nil {
			return err
		}
		return emit(e)
	})
	return n, err
}

func decodeAudit(line []byte) (merchant.AuditEntry, error) {
	var e merchant.AuditEntry
	if err := json.Unmarshal(line, &e); err != nil {
		return e, fmt.Errorf("unmarshal: %w", err)
	}
	return e, nil
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	file := fs.String("file", "", "print the header of this snapshot instead of asking the server for a new one")
	_ = fs.Parse(args)

	if path := strings.TrimSpace(*file); path != "" {
		h, err := snapshot.ReadHeader(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		printJSON(os.Stdout, h)
		return
	}
	postAdmin(*baseURL, "/admin/v1/snapshot")
}

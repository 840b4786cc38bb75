package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	persistlog "merchantboard.ai/internal/persistence/log"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/merchant"
	"merchantboard.ai/internal/sim/tuning"
)

// replay rebuilds every player from an empty store by re-applying the act
// log and fails on the first result that differs from the recorded one.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory (reads <data>/acts)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		player     = flag.String("player", "", "replay only this player (optional)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = *configDir + "/tuning.yaml"
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	if err := run(os.Stdout, *dataDir, tune, cats, strings.TrimSpace(*player)); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, dataDir string, tune tuning.Tuning, cats *catalogs.Catalogs, only string) error {
	replayers := map[string]*merchant.Replayer{}
	merchants := map[string]*merchant.Merchant{}
	err := persistlog.ScanActs(dataDir, func(e merchant.ActLogEntry) error {
		if e.PlayerID == "" || (only != "" && e.PlayerID != only) {
			return nil
		}
		r, ok := replayers[e.PlayerID]
		if !ok {
			m := merchant.New(merchant.ConfigFrom(e.PlayerID, tune), cats, nil)
			merchants[e.PlayerID] = m
			r = merchant.NewReplayer(m)
			replayers[e.PlayerID] = r
		}
		return r.Apply(e)
	})
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(replayers))
	for id := range replayers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		replayers[id].Finish()
		m := merchants[id]
		wal := m.Wallet()
		fmt.Fprintf(w, "player=%s checked=%d world_time=%d coins=%d forest_tokens=%d bounties=%d\n",
			id, replayers[id].Checked, m.WorldTime(), wal.Coins, wal.ForestTokens, len(m.Bounties()))
	}
	fmt.Fprintf(w, "replay ok: players=%d\n", len(ids))
	return nil
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// serverConfig is read from MERCHANT_* variables first; flags override.
type serverConfig struct {
	Addr      string `env:"MERCHANT_ADDR" envDefault:":8080"`
	ServerID  string `env:"MERCHANT_SERVER_ID" envDefault:"merchant_1"`
	ConfigDir string `env:"MERCHANT_CONFIGS" envDefault:"./configs"`
	DataDir   string `env:"MERCHANT_DATA" envDefault:"./data"`
	Tuning    string `env:"MERCHANT_TUNING"`
	DisableDB bool   `env:"MERCHANT_DISABLE_DB"`

	Snapshot     string `env:"MERCHANT_SNAPSHOT"`
	LoadLatest   bool   `env:"MERCHANT_LOAD_LATEST_SNAPSHOT" envDefault:"true"`
	SnapshotCron string `env:"MERCHANT_SNAPSHOT_CRON" envDefault:"0 */10 * * * *"`

	EnableAdminHTTP bool `env:"MERCHANT_ENABLE_ADMIN_HTTP" envDefault:"true"`
	EnablePprofHTTP bool `env:"MERCHANT_ENABLE_PPROF_HTTP"`
	EnableActLog    bool `env:"MERCHANT_ENABLE_ACT_LOG" envDefault:"true"`
}

func loadConfig(args []string) (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if deployEnv := strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))); deployEnv == "staging" || deployEnv == "production" {
		if _, set := os.LookupEnv("MERCHANT_ENABLE_ADMIN_HTTP"); !set {
			cfg.EnableAdminHTTP = false
		}
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.ServerID, "server", cfg.ServerID, "server id recorded in snapshots")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.Tuning, "tuning", cfg.Tuning, "path to tuning.yaml (default: <configs>/tuning.yaml)")
	fs.BoolVar(&cfg.DisableDB, "disable_db", cfg.DisableDB, "keep save data in memory only")
	fs.StringVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "path to snapshot to restore (optional)")
	fs.BoolVar(&cfg.LoadLatest, "load_latest_snapshot", cfg.LoadLatest, "restore latest snapshot from data dir if present (when -snapshot is empty)")
	fs.StringVar(&cfg.SnapshotCron, "snapshot_cron", cfg.SnapshotCron, "snapshot schedule, cron with seconds (empty to disable)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Tuning = strings.TrimSpace(cfg.Tuning)
	if cfg.Tuning == "" {
		cfg.Tuning = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	if strings.TrimSpace(cfg.ServerID) == "" {
		return cfg, fmt.Errorf("empty server id")
	}
	return cfg, nil
}

func (c serverConfig) snapshotDir() string { return filepath.Join(c.DataDir, "snapshots") }
func (c serverConfig) dbPath() string      { return filepath.Join(c.DataDir, "save", "merchant.sqlite") }

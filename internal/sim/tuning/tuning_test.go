package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.Shops.TreasureMaps.EntryCount != 4 || !tune.Shops.TreasureMaps.OncePerInterval {
		t.Fatalf("unexpected treasure map offer: %#v", tune.Shops.TreasureMaps)
	}
	if tune.Bounties.GoldHealthMultiplier != 2.0 {
		t.Fatalf("unexpected gold multiplier %v", tune.Bounties.GoldHealthMultiplier)
	}
}

func TestLoad_PartialOverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("bounties:\n  entry_count: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.Bounties.EntryCount != 9 {
		t.Fatalf("expected override 9, got %d", tune.Bounties.EntryCount)
	}
	if tune.Bounties.IronHealthMultiplier != Defaults().Bounties.IronHealthMultiplier {
		t.Fatalf("expected default iron multiplier to survive")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("shops:\n  secret_stash_refresh_days: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

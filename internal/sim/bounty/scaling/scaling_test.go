package scaling

import (
	"testing"

	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/tuning"
)

var testCfg = Config{
	AddsHealthMultiplier: 0.5,
	GoldHealthMultiplier: 2.0,
	IronHealthMultiplier: 1.5,
	MinionNameTemplate:   "Minion of %s",
}

func TestModifiedMaxHealth(t *testing.T) {
	if got := ModifiedMaxHealth(100, bounty.Info{RewardGold: 10}, true, testCfg); got != 50 {
		t.Fatalf("expected adds multiplier 50, got %v", got)
	}
	if got := ModifiedMaxHealth(100, bounty.Info{RewardGold: 10}, false, testCfg); got != 200 {
		t.Fatalf("expected gold multiplier 200, got %v", got)
	}
	if got := ModifiedMaxHealth(100, bounty.Info{RewardGold: 0, RewardIron: 4}, false, testCfg); got != 150 {
		t.Fatalf("expected iron multiplier 150, got %v", got)
	}
}

func TestMonsterLevel(t *testing.T) {
	b := bounty.Info{
		Target: bounty.Target{MonsterID: "Troll", Level: 3},
		Adds:   []bounty.Add{{MonsterID: "Greydwarf", Level: 2, Count: 2}},
	}
	if got := MonsterLevel(b, "Troll", false); got != 3 {
		t.Fatalf("expected target level 3, got %d", got)
	}
	if got := MonsterLevel(b, "Greydwarf", true); got != 2 {
		t.Fatalf("expected add level 2, got %d", got)
	}
	if got := MonsterLevel(b, "Skeleton", true); got != 1 {
		t.Fatalf("expected default add level 1, got %d", got)
	}
}

func TestDisplayName(t *testing.T) {
	b := bounty.Info{TargetName: "Grimjaw", Target: bounty.Target{MonsterID: "Troll"}}
	if got := DisplayName(b, false, "Troll", testCfg); got != "Grimjaw" {
		t.Fatalf("expected target name, got %q", got)
	}
	if got := DisplayName(b, true, "Greydwarf", testCfg); got != "Minion of Greydwarf" {
		t.Fatalf("expected minion label, got %q", got)
	}
	b.TargetName = ""
	if got := DisplayName(b, false, "Troll", testCfg); got != "Troll" {
		t.Fatalf("expected original name fallback, got %q", got)
	}
}

func TestSetup_InitialThenReload(t *testing.T) {
	b := bounty.Info{
		TargetName: "Grimjaw",
		Target:     bounty.Target{MonsterID: "Troll", Level: 3},
		RewardGold: 5,
	}
	bind := bounty.Binding{BountyID: "B1", MonsterID: "Troll"}
	st := Setup(&bind, b, Stats{Name: "Troll", Level: 1, MaxHealth: 100, Health: 100}, true, testCfg)
	if st.Name != "Grimjaw" || st.Level != 3 || st.MaxHealth != 200 || st.Health != 200 || !st.Boss {
		t.Fatalf("unexpected initial stats %#v", st)
	}
	if bind.OriginalName != "Troll" {
		t.Fatalf("expected original name captured, got %q", bind.OriginalName)
	}

	// Reload: the character already carries the derived name and scaled health.
	st.Health = 120
	again := Setup(&bind, b, st, false, testCfg)
	if again.MaxHealth != 200 || again.Health != 120 || again.Level != 3 {
		t.Fatalf("expected frozen health/level on reload, got %#v", again)
	}
	if bind.OriginalName != "Troll" || again.Name != "Grimjaw" {
		t.Fatalf("expected name derived from captured original, got %q/%q", bind.OriginalName, again.Name)
	}
}

func TestSetup_AddNameDoesNotCascade(t *testing.T) {
	b := bounty.Info{Target: bounty.Target{MonsterID: "Troll", Level: 3}}
	bind := bounty.Binding{BountyID: "B1", MonsterID: "Greydwarf", IsAdd: true}
	st := Setup(&bind, b, Stats{Name: "Greydwarf", MaxHealth: 40}, true, testCfg)
	if st.Name != "Minion of Greydwarf" || st.Boss {
		t.Fatalf("unexpected add stats %#v", st)
	}
	again := Setup(&bind, b, st, false, testCfg)
	if again.Name != "Minion of Greydwarf" {
		t.Fatalf("expected stable add name, got %q", again.Name)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(tuning.Defaults().Bounties)
	if cfg.GoldHealthMultiplier != 2.0 || cfg.IronHealthMultiplier != 1.5 || cfg.AddsHealthMultiplier != 0.75 {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestSetup_ReloadWithoutOriginalName(t *testing.T) {
	b := bounty.Info{Target: bounty.Target{MonsterID: "Troll", Level: 3}}
	bind := bounty.Binding{BountyID: "B1", MonsterID: "Greydwarf", IsAdd: true}
	st := Setup(&bind, b, Stats{Name: "Greydwarf", MaxHealth: 40}, true, testCfg)

	// The host rebinds from the SPAWN binding, which never carried a name.
	reloaded := bounty.Binding{BountyID: "B1", MonsterID: "Greydwarf", IsAdd: true}
	again := Setup(&reloaded, b, st, false, testCfg)
	if again.Name != "Minion of unknown" {
		t.Fatalf("expected fallback name without cascading, got %q", again.Name)
	}
	if reloaded.OriginalName != "" {
		t.Fatalf("expected no capture on reload, got %q", reloaded.OriginalName)
	}

	target := bounty.Binding{BountyID: "B1", MonsterID: "Troll"}
	if got := Setup(&target, b, Stats{Name: "Troll"}, true, testCfg); target.OriginalName != "Troll" || got.Name != "Troll" {
		t.Fatalf("expected initial capture, got %q/%q", target.OriginalName, got.Name)
	}
}

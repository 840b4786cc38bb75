// Package scaling derives level, health and display name of bound monsters.
package scaling

import (
	"fmt"
	"strings"

	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/tuning"
)

type Config struct {
	AddsHealthMultiplier float64
	GoldHealthMultiplier float64
	IronHealthMultiplier float64
	MinionNameTemplate   string
}

func ConfigFrom(b tuning.Bounties) Config {
	return Config{
		AddsHealthMultiplier: b.AddsHealthMultiplier,
		GoldHealthMultiplier: b.GoldHealthMultiplier,
		IronHealthMultiplier: b.IronHealthMultiplier,
		MinionNameTemplate:   b.MinionNameTemplate,
	}
}

func MonsterLevel(b bounty.Info, monsterID string, isAdd bool) int {
	if !isAdd {
		return b.Target.Level
	}
	for _, a := range b.Adds {
		if a.MonsterID == monsterID {
			return a.Level
		}
	}
	return 1
}

// ModifiedMaxHealth checks adds first, then the gold reward, then falls
// through to iron.
func ModifiedMaxHealth(base float64, b bounty.Info, isAdd bool, cfg Config) float64 {
	if isAdd {
		return base * cfg.AddsHealthMultiplier
	}
	if b.RewardGold > 0 {
		return base * cfg.GoldHealthMultiplier
	}
	return base * cfg.IronHealthMultiplier
}

// DisplayName labels adds after their own original name and the target after
// the bounty's TargetName, falling back to the original name.
func DisplayName(b bounty.Info, isAdd bool, originalName string, cfg Config) string {
	if isAdd {
		tmpl := cfg.MinionNameTemplate
		if strings.Count(tmpl, "%s") != 1 {
			tmpl = "Minion of %s"
		}
		return fmt.Sprintf(tmpl, originalName)
	}
	if b.TargetName != "" {
		return b.TargetName
	}
	return originalName
}

const unknownName = "unknown"

// Stats is the subset of a host character that binding touches.
type Stats struct {
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	MaxHealth float64 `json:"max_health"`
	Health    float64 `json:"health"`
	Boss      bool    `json:"boss"`
}

// Setup applies a binding to a freshly set up character. The original name is
// captured into bind on the initial setup only: a reloaded character already
// carries the derived name. Level and health are rewritten on the initial
// setup only; a reloaded character keeps what it persisted. The display name
// is re-derived on every call from the captured original, or "unknown".
func Setup(bind *bounty.Binding, b bounty.Info, st Stats, initial bool, cfg Config) Stats {
	if initial && bind.OriginalName == "" {
		bind.OriginalName = st.Name
	}
	original := bind.OriginalName
	if original == "" {
		original = unknownName
	}
	st.Name = DisplayName(b, bind.IsAdd, original, cfg)
	st.Boss = !bind.IsAdd
	if initial {
		st.Level = MonsterLevel(b, bind.MonsterID, bind.IsAdd)
		st.MaxHealth = ModifiedMaxHealth(st.MaxHealth, b, bind.IsAdd, cfg)
		st.Health = st.MaxHealth
	}
	return st
}

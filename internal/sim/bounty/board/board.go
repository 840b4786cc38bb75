// Package board rolls the bounties offered in a bounty interval.
package board

import (
	"fmt"
	"sort"

	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/logic/mathx"
	"merchantboard.ai/internal/sim/logic/weights"
)

const salt = "BOUNTY"

// ID is stable for (interval, slot) so a board rolled twice yields the same ids.
func ID(interval, slot int) string {
	return fmt.Sprintf("BNT%06d-%d", interval, slot)
}

// Generate picks up to n distinct targets for interval. A target rolls a gold
// reward with probability goldChancePermille/1000 when it has one, otherwise
// it pays iron.
func Generate(seed int64, interval int, defs []catalogs.BountyTargetDef, n int, goldChancePermille int) []bounty.Info {
	if interval < 0 || n <= 0 || len(defs) == 0 {
		return nil
	}
	s := mathx.NewStream(mathx.Hash2(seed, interval, mathx.HashString(salt)))

	pool := make([]weights.Entry, len(defs))
	for i, d := range defs {
		pool[i] = weights.Entry{ID: d.MonsterID, Weight: d.Weight}
	}
	picked := weights.PickN(pool, n, s.Next)
	sort.Ints(picked)

	out := make([]bounty.Info, 0, len(picked))
	for slot, i := range picked {
		d := defs[i]
		b := bounty.Info{
			ID:                 ID(interval, slot),
			Biome:              d.Biome,
			Target:             bounty.Target{MonsterID: d.MonsterID, Level: s.Between(d.MinLevel, d.MaxLevel)},
			RewardCoins:        d.RewardCoins,
			RewardForestTokens: d.RewardForestTokens,
			State:              bounty.StateAvailable,
			Interval:           interval,
		}
		if len(d.Names) > 0 {
			b.TargetName = d.Names[s.Intn(len(d.Names))]
		}
		if d.RewardGold > 0 && s.Intn(1000) < goldChancePermille {
			b.RewardGold = d.RewardGold
		} else {
			b.RewardIron = max(d.RewardIron, 1)
		}
		for _, a := range d.Adds {
			lvl := a.Level
			if lvl <= 0 {
				lvl = 1
			}
			b.Adds = append(b.Adds, bounty.Add{MonsterID: a.MonsterID, Level: lvl, Count: max(a.Count, 1)})
		}
		out = append(out, b)
	}
	return out
}

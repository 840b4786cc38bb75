package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// Seed salts every catalog stream. Observers that share seed and tables see
	// the same offers for the same interval.
	Seed       int64 `yaml:"seed"`
	TickRateHz int   `yaml:"tick_rate_hz"`

	Shops    Shops    `yaml:"shops"`
	Bounties Bounties `yaml:"bounties"`
}

// Shops holds the two merchant boards. Gamble entries rotate with the secret
// stash and forest token items rotate with the treasure map board.
type Shops struct {
	SecretStashRefreshDays int `yaml:"secret_stash_refresh_days"`
	TreasureMapRefreshDays int `yaml:"treasure_map_refresh_days"`

	SecretStash  Offer `yaml:"secret_stash"`
	Gamble       Offer `yaml:"gamble"`
	TreasureMaps Offer `yaml:"treasure_maps"`
	ForestTokens Offer `yaml:"forest_tokens"`
}

type Offer struct {
	EntryCount      int  `yaml:"entry_count"`
	OncePerInterval bool `yaml:"once_per_interval"`
}

type Bounties struct {
	RefreshDays     int `yaml:"refresh_days"`
	EntryCount      int `yaml:"entry_count"`
	OfferWindowDays int `yaml:"offer_window_days"`

	AddsHealthMultiplier float64 `yaml:"adds_health_multiplier"`
	GoldHealthMultiplier float64 `yaml:"gold_health_multiplier"`
	IronHealthMultiplier float64 `yaml:"iron_health_multiplier"`

	// GoldChancePermille decides whether a generated bounty pays gold tokens
	// instead of iron tokens.
	GoldChancePermille int `yaml:"gold_chance_permille"`

	MinionNameTemplate string `yaml:"minion_name_template"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Seed:            1337,
		TickRateHz:      5,
		Shops: Shops{
			SecretStashRefreshDays: 1,
			TreasureMapRefreshDays: 1,
			SecretStash:            Offer{EntryCount: 5},
			Gamble:                 Offer{EntryCount: 3},
			TreasureMaps:           Offer{EntryCount: 4, OncePerInterval: true},
			ForestTokens:           Offer{EntryCount: 3},
		},
		Bounties: Bounties{
			RefreshDays:          1,
			EntryCount:           4,
			OfferWindowDays:      1,
			AddsHealthMultiplier: 0.75,
			GoldHealthMultiplier: 2.0,
			IronHealthMultiplier: 1.5,
			GoldChancePermille:   150,
			MinionNameTemplate:   "Minion of %s",
		},
	}
}

// Load reads path on top of Defaults so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Shops.SecretStashRefreshDays < 1 {
		return fmt.Errorf("shops.secret_stash_refresh_days must be >= 1")
	}
	if t.Shops.TreasureMapRefreshDays < 1 {
		return fmt.Errorf("shops.treasure_map_refresh_days must be >= 1")
	}
	offers := map[string]Offer{
		"secret_stash":  t.Shops.SecretStash,
		"gamble":        t.Shops.Gamble,
		"treasure_maps": t.Shops.TreasureMaps,
		"forest_tokens": t.Shops.ForestTokens,
	}
	for name, o := range offers {
		if o.EntryCount < 0 {
			return fmt.Errorf("shops.%s.entry_count must be >= 0", name)
		}
	}
	b := t.Bounties
	if b.RefreshDays < 1 {
		return fmt.Errorf("bounties.refresh_days must be >= 1")
	}
	if b.OfferWindowDays < 1 {
		return fmt.Errorf("bounties.offer_window_days must be >= 1")
	}
	if b.AddsHealthMultiplier <= 0 || b.GoldHealthMultiplier <= 0 || b.IronHealthMultiplier <= 0 {
		return fmt.Errorf("bounties health multipliers must be > 0")
	}
	if b.GoldChancePermille < 0 || b.GoldChancePermille > 1000 {
		return fmt.Errorf("bounties.gold_chance_permille must be in [0,1000]")
	}
	return nil
}

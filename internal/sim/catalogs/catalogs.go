package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

type Catalogs struct {
	StashItems   ItemCatalog
	TokenItems   ItemCatalog
	Gambles      GambleCatalog
	TreasureMaps TreasureMapCatalog
	Bounties     BountyTargetCatalog
}

type ItemCatalog struct {
	Defs   []ItemDef
	ByID   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID                string  `json:"id"`
	CoinsPrice        int     `json:"coins_price,omitempty"`
	ForestTokensPrice int     `json:"forest_tokens_price,omitempty"`
	Stack             int     `json:"stack,omitempty"`
	Weight            float64 `json:"weight"`
}

type GambleCatalog struct {
	Defs   []GambleDef
	Digest string
}

type GambleDef struct {
	Rarity            string  `json:"rarity"`
	ItemType          string  `json:"item_type"`
	CoinsPrice        int     `json:"coins_price,omitempty"`
	ForestTokensPrice int     `json:"forest_tokens_price,omitempty"`
	Weight            float64 `json:"weight"`
}

type TreasureMapCatalog struct {
	Defs   []TreasureMapDef
	Digest string
}

type TreasureMapDef struct {
	Biome             string  `json:"biome"`
	CoinsPrice        int     `json:"coins_price"`
	ForestTokensPrice int     `json:"forest_tokens_price,omitempty"`
	Weight            float64 `json:"weight"`
}

type BountyTargetCatalog struct {
	Defs   []BountyTargetDef
	Digest string
}

type BountyTargetDef struct {
	MonsterID          string      `json:"monster_id"`
	Biome              string      `json:"biome"`
	MinLevel           int         `json:"min_level"`
	MaxLevel           int         `json:"max_level"`
	Weight             float64     `json:"weight"`
	RewardIron         int         `json:"reward_iron,omitempty"`
	RewardGold         int         `json:"reward_gold,omitempty"`
	RewardCoins        int         `json:"reward_coins,omitempty"`
	RewardForestTokens int         `json:"reward_forest_tokens,omitempty"`
	Names              []string    `json:"names,omitempty"`
	Adds               []BountyAdd `json:"adds,omitempty"`
}

type BountyAdd struct {
	MonsterID string `json:"monster_id"`
	Count     int    `json:"count"`
	Level     int    `json:"level"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "stash_items.json"), &c.StashItems); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "forest_token_items.json"), &c.TokenItems); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "gambles.json"), "gambles.schema.json", &c.Gambles.Defs, &c.Gambles.Digest); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "treasure_maps.json"), "treasure_maps.schema.json", &c.TreasureMaps.Defs, &c.TreasureMaps.Digest); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "bounty_targets.json"), "bounty_targets.schema.json", &c.Bounties.Defs, &c.Bounties.Digest); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digest combines every catalog digest; hosts compare it to know whether they
// derive offers from the same tables.
func (c *Catalogs) Digest() string {
	var b bytes.Buffer
	for _, d := range []string{c.StashItems.Digest, c.TokenItems.Digest, c.Gambles.Digest, c.TreasureMaps.Digest, c.Bounties.Digest} {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return sha256Hex(b.Bytes())
}

func (c *Catalogs) check() error {
	seen := map[string]bool{}
	for _, m := range c.TreasureMaps.Defs {
		if seen[m.Biome] {
			return fmt.Errorf("treasure_maps.json: duplicate biome %s", m.Biome)
		}
		seen[m.Biome] = true
	}
	for _, b := range c.Bounties.Defs {
		if b.MaxLevel < b.MinLevel {
			return fmt.Errorf("bounty_targets.json: %s max_level < min_level", b.MonsterID)
		}
		for _, a := range b.Adds {
			if a.MonsterID == b.MonsterID {
				return fmt.Errorf("bounty_targets.json: %s lists itself as an add", b.MonsterID)
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	if err := loadJSON(path, "items.schema.json", &out.Defs, &out.Digest); err != nil {
		return err
	}
	out.ByID = make(map[string]ItemDef, len(out.Defs))
	for i, d := range out.Defs {
		if d.Stack <= 0 {
			out.Defs[i].Stack = 1
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("%s: duplicate id %s", filepath.Base(path), d.ID)
		}
		out.ByID[d.ID] = out.Defs[i]
	}
	return nil
}

// loadJSON validates raw against the embedded schema before decoding into out.
// File order is preserved: generators draw from catalogs in declaration order.
func loadJSON(path, schemaName string, out any, digest *string) error {
	name := filepath.Base(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	*digest = sha256Hex(raw)

	sch, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	url := "mem://catalogs/" + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return sch, nil
}

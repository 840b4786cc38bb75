package protocol

// HELLO (host -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
	WorldTime       int64  `json:"world_time"`
}

// WELCOME (server -> host)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	Params          MerchantParams `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type MerchantParams struct {
	TickRateHz             int   `json:"tick_rate_hz"`
	Seed                   int64 `json:"seed"`
	SecretStashRefreshDays int   `json:"secret_stash_refresh_days"`
	TreasureMapRefreshDays int   `json:"treasure_map_refresh_days"`
	BountiesRefreshDays    int   `json:"bounties_refresh_days"`
}

type CatalogDigests struct {
	Digest       string `json:"digest"`
	StashItems   string `json:"stash_items"`
	TokenItems   string `json:"forest_token_items"`
	Gambles      string `json:"gambles"`
	TreasureMaps string `json:"treasure_maps"`
	Bounties     string `json:"bounty_targets"`
}

// STATE (server -> host)
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	WorldTime       int64       `json:"world_time"`
	Wallet          WalletView  `json:"wallet"`
	Boards          []BoardView `json:"boards"`
	Bounties        BountyBoard `json:"bounties"`
	Tooltip         string      `json:"tooltip"`
	PendingMaps     []string    `json:"pending_maps,omitempty"`
	Deliveries      []Grant     `json:"deliveries,omitempty"`
}

type WalletView struct {
	Coins        int `json:"coins"`
	ForestTokens int `json:"forest_tokens"`
}

type Refresh struct {
	Interval  int    `json:"interval"`
	SecondsIn int    `json:"seconds_in"`
	Text      string `json:"text"`
	Tooltip   string `json:"tooltip"`
}

type BoardView struct {
	Board   string      `json:"board"`
	Refresh Refresh     `json:"refresh"`
	Entries []OfferView `json:"entries"`
}

type OfferView struct {
	Index             int    `json:"index"`
	Kind              string `json:"kind"`
	ItemID            string `json:"item_id"`
	Stack             int    `json:"stack"`
	CoinsPrice        int    `json:"coins_price"`
	ForestTokensPrice int    `json:"forest_tokens_price"`
	IsGamble          bool   `json:"is_gamble,omitempty"`
	Rarity            string `json:"rarity,omitempty"`
	Biome             string `json:"biome,omitempty"`
	AlreadyPurchased  bool   `json:"already_purchased,omitempty"`
	CanAfford         bool   `json:"can_afford"`
	Purchasable       bool   `json:"purchasable"`
}

type BountyBoard struct {
	Refresh   Refresh      `json:"refresh"`
	Available []BountyView `json:"available"`
	Active    *BountyView  `json:"active,omitempty"`
	Claimable []BountyView `json:"claimable"`
}

type BountyView struct {
	ID                 string    `json:"id"`
	State              string    `json:"state"`
	TargetName         string    `json:"target_name,omitempty"`
	Biome              string    `json:"biome,omitempty"`
	MonsterID          string    `json:"monster_id"`
	Level              int       `json:"level"`
	Adds               []AddView `json:"adds,omitempty"`
	RewardIron         int       `json:"reward_iron,omitempty"`
	RewardGold         int       `json:"reward_gold,omitempty"`
	RewardCoins        int       `json:"reward_coins,omitempty"`
	RewardForestTokens int       `json:"reward_forest_tokens,omitempty"`
	TargetSlain        bool      `json:"target_slain,omitempty"`
}

type AddView struct {
	MonsterID string `json:"monster_id"`
	Level     int    `json:"level"`
	Count     int    `json:"count"`
	Slain     int    `json:"slain"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Grant is an item delivery the host has to materialize.
type Grant struct {
	Reason     string      `json:"reason"`
	Items      []ItemStack `json:"items,omitempty"`
	Rarity     string      `json:"rarity,omitempty"`
	GambleType string      `json:"gamble_type,omitempty"`
	Biome      string      `json:"biome,omitempty"`
}

// SPAWN (server -> host)
type SpawnMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Handle          string  `json:"handle"`
	Binding         Binding `json:"binding"`
	Biome           string  `json:"biome,omitempty"`
}

type Binding struct {
	BountyID     string `json:"bounty_id"`
	MonsterID    string `json:"monster_id"`
	IsAdd        bool   `json:"is_add"`
	OriginalName string `json:"original_name,omitempty"`
}

type CharacterStats struct {
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	MaxHealth float64 `json:"max_health"`
	Health    float64 `json:"health"`
	Boss      bool    `json:"boss,omitempty"`
}

// ACT (host -> server)
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Kind            string `json:"kind"`

	WorldTime int64 `json:"world_time,omitempty"`

	// BUY
	Board string `json:"board,omitempty"`
	Index int    `json:"index"`

	// ACCEPT / SLAY / CLAIM
	BountyID  string `json:"bounty_id,omitempty"`
	MonsterID string `json:"monster_id,omitempty"`
	IsAdd     bool   `json:"is_add,omitempty"`

	// DEATH / REBIND / SETUP
	Handle  string          `json:"handle,omitempty"`
	Binding *Binding        `json:"binding,omitempty"`
	Stats   *CharacterStats `json:"stats,omitempty"`
	Initial bool            `json:"initial,omitempty"`

	// RESOLVE_MAP
	Biome string `json:"biome,omitempty"`

	// DEPOSIT
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`
}

// RESULT (server -> host)
type ResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ActID           string          `json:"act_id"`
	Kind            string          `json:"kind"`
	Result          string          `json:"result"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Grant           *Grant          `json:"grant,omitempty"`
	Stats           *CharacterStats `json:"stats,omitempty"`
	Binding         *Binding        `json:"binding,omitempty"`
}

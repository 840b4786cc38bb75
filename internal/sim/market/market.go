package market

import "fmt"

type Kind string

const (
	KindSecretStash Kind = "SECRET_STASH"
	KindGamble      Kind = "GAMBLE"
	KindTreasureMap Kind = "TREASURE_MAP"
	KindForestToken Kind = "FOREST_TOKEN"
)

// Kinds in board order: the secret stash board lists items then gambles, the
// treasure map board lists maps then forest token items.
var Kinds = []Kind{KindSecretStash, KindGamble, KindTreasureMap, KindForestToken}

func NormalizeKind(k string) Kind {
	switch Kind(k) {
	case KindSecretStash, KindGamble, KindTreasureMap, KindForestToken:
		return Kind(k)
	default:
		return ""
	}
}

// Currency names double as inventory item ids.
type Currency string

const (
	Coins        Currency = "Coins"
	ForestTokens Currency = "ForestToken"
)

const (
	ItemTreasureMap     = "TreasureMap"
	ItemGoldBountyToken = "GoldBountyToken"
	ItemIronBountyToken = "IronBountyToken"
)

type ShopEntry struct {
	Kind              Kind   `json:"kind"`
	Index             int    `json:"index"`
	ItemID            string `json:"item_id"`
	Stack             int    `json:"stack"`
	CoinsPrice        int    `json:"coins_price"`
	ForestTokensPrice int    `json:"forest_tokens_price"`
	IsGamble          bool   `json:"is_gamble,omitempty"`
	Rarity            string `json:"rarity,omitempty"`
	Biome             string `json:"biome,omitempty"`
	AlreadyPurchased  bool   `json:"already_purchased,omitempty"`
}

// Key identifies an entry within its interval. Entries are regenerated every
// interval so the key is only meaningful together with the interval index.
func (e ShopEntry) Key() string {
	return fmt.Sprintf("%s/%d/%s", e.Kind, e.Index, e.ItemID)
}

// Wallet is a snapshot of the two merchant currencies. It is never cached
// across interval boundaries.
type Wallet struct {
	Coins        int `json:"coins"`
	ForestTokens int `json:"forest_tokens"`
}

// BalanceSource is the read half of the inventory collaborator.
type BalanceSource interface {
	GetBalance(c Currency) int
}

func WalletOf(src BalanceSource) Wallet {
	if src == nil {
		return Wallet{}
	}
	w := Wallet{Coins: src.GetBalance(Coins), ForestTokens: src.GetBalance(ForestTokens)}
	if w.Coins < 0 {
		w.Coins = 0
	}
	if w.ForestTokens < 0 {
		w.ForestTokens = 0
	}
	return w
}

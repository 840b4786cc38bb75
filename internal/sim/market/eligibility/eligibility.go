package eligibility

import (
	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/result"
)

// MapTracker reports whether a treasure map of a biome was bought and its
// chest has not been looted yet.
type MapTracker interface {
	HasPendingMap(biome string) bool
}

func CanAfford(e market.ShopEntry, w market.Wallet) bool {
	return w.Coins >= e.CoinsPrice && w.ForestTokens >= e.ForestTokensPrice
}

func IsPurchasable(e market.ShopEntry, w market.Wallet) bool {
	return CanAfford(e, w) && !e.AlreadyPurchased
}

func CanBuyTreasureMap(e market.ShopEntry, w market.Wallet, pending bool) bool {
	return IsPurchasable(e, w) && !pending
}

// Check folds the gates into a result code. A nil tracker means no map is pending.
func Check(e market.ShopEntry, w market.Wallet, maps MapTracker) result.Code {
	if e.AlreadyPurchased {
		return result.NotPurchasable
	}
	if e.Kind == market.KindTreasureMap && maps != nil && maps.HasPendingMap(e.Biome) {
		return result.NotPurchasable
	}
	if !CanAfford(e, w) {
		return result.InsufficientFunds
	}
	return result.OK
}

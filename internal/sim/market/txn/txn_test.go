package txn

import (
	"testing"

	"merchantboard.ai/internal/sim/market"
	"merchantboard.ai/internal/sim/result"
)

type fakeProvider struct {
	bal       map[market.Currency]int
	failDebit market.Currency
	rejectAll bool
	granted   []Grant
}

func newFake(coins, tokens int) *fakeProvider {
	return &fakeProvider{bal: map[market.Currency]int{market.Coins: coins, market.ForestTokens: tokens}}
}

func (f *fakeProvider) GetBalance(c market.Currency) int { return f.bal[c] }

func (f *fakeProvider) Debit(c market.Currency, n int) bool {
	if c == f.failDebit || f.bal[c] < n {
		return false
	}
	f.bal[c] -= n
	return true
}

func (f *fakeProvider) Credit(c market.Currency, n int) { f.bal[c] += n }

func (f *fakeProvider) Grant(g Grant) bool {
	if f.rejectAll {
		return false
	}
	f.granted = append(f.granted, g)
	return true
}

func TestExecute_Success(t *testing.T) {
	p := newFake(100, 5)
	e := &market.ShopEntry{Kind: market.KindTreasureMap, ItemID: market.ItemTreasureMap, Biome: "Swamp", CoinsPrice: 60, ForestTokensPrice: 2}
	r := Execute(p, Order{Cost: CostOf(*e), Grant: GrantFor(*e), Entry: e, OncePerInterval: true})
	if r.Code != result.OK {
		t.Fatalf("expected OK, got %s", r.Code)
	}
	if p.bal[market.Coins] != 40 || p.bal[market.ForestTokens] != 3 {
		t.Fatalf("unexpected balances %#v", p.bal)
	}
	if !e.AlreadyPurchased {
		t.Fatalf("expected entry marked purchased")
	}
	if len(p.granted) != 1 || p.granted[0].Biome != "Swamp" {
		t.Fatalf("unexpected grants %#v", p.granted)
	}

	again := Execute(p, Order{Cost: CostOf(*e), Grant: GrantFor(*e), Entry: e, OncePerInterval: true})
	if again.Code != result.NotPurchasable || len(p.granted) != 1 {
		t.Fatalf("expected second purchase refused, got %s", again.Code)
	}
}

func TestExecute_RepeatableEntryStaysOpen(t *testing.T) {
	p := newFake(100, 0)
	e := &market.ShopEntry{Kind: market.KindSecretStash, ItemID: "Honey", Stack: 5, CoinsPrice: 10}
	if r := Execute(p, Order{Cost: CostOf(*e), Grant: GrantFor(*e), Entry: e}); r.Code != result.OK {
		t.Fatalf("expected OK, got %s", r.Code)
	}
	if e.AlreadyPurchased {
		t.Fatalf("expected repeatable entry left open")
	}
	if p.granted[0].Items[0].Count != 5 {
		t.Fatalf("expected stack of 5, got %#v", p.granted[0])
	}
}

func TestExecute_InsufficientFundsChangesNothing(t *testing.T) {
	p := newFake(100, 1)
	r := Execute(p, Order{Cost: Cost{Coins: 50, ForestTokens: 2}, Grant: Grant{Reason: "X"}})
	if r.Code != result.InsufficientFunds {
		t.Fatalf("expected InsufficientFunds, got %s", r.Code)
	}
	if p.bal[market.Coins] != 100 || p.bal[market.ForestTokens] != 1 || len(p.granted) != 0 {
		t.Fatalf("expected untouched provider, got %#v %#v", p.bal, p.granted)
	}
}

func TestExecute_RollsBackFailedSecondDebit(t *testing.T) {
	p := newFake(100, 10)
	p.failDebit = market.ForestTokens
	r := Execute(p, Order{Cost: Cost{Coins: 30, ForestTokens: 3}, Grant: Grant{Reason: "X"}})
	if r.Code != result.InsufficientFunds {
		t.Fatalf("expected InsufficientFunds, got %s", r.Code)
	}
	if p.bal[market.Coins] != 100 {
		t.Fatalf("expected coins restored, got %d", p.bal[market.Coins])
	}
}

func TestExecute_RollsBackRejectedGrant(t *testing.T) {
	p := newFake(100, 10)
	p.rejectAll = true
	e := &market.ShopEntry{Kind: market.KindTreasureMap, CoinsPrice: 30, ForestTokensPrice: 3}
	r := Execute(p, Order{Cost: CostOf(*e), Grant: GrantFor(*e), Entry: e, OncePerInterval: true})
	if r.Code != result.GrantRejected {
		t.Fatalf("expected GrantRejected, got %s", r.Code)
	}
	if p.bal[market.Coins] != 100 || p.bal[market.ForestTokens] != 10 {
		t.Fatalf("expected full rollback, got %#v", p.bal)
	}
	if e.AlreadyPurchased {
		t.Fatalf("expected entry left purchasable")
	}
}

func TestExecute_NilProviderAndNegativeCost(t *testing.T) {
	if r := Execute(nil, Order{}); r.Code != result.GrantRejected {
		t.Fatalf("expected GrantRejected for nil provider, got %s", r.Code)
	}
	if r := Execute(newFake(10, 10), Order{Cost: Cost{Coins: -1}}); r.Code != result.InsufficientFunds {
		t.Fatalf("expected InsufficientFunds for negative cost, got %s", r.Code)
	}
}

func TestGrantFor_Gamble(t *testing.T) {
	g := GrantFor(market.ShopEntry{Kind: market.KindGamble, IsGamble: true, ItemID: "Weapon", Rarity: "EPIC"})
	if g.Rarity != "EPIC" || g.GambleType != "Weapon" || len(g.Items) != 0 || g.Reason != "BUY_GAMBLE" {
		t.Fatalf("unexpected gamble grant %#v", g)
	}
}

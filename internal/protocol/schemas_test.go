package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"merchantboard.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip validates v as the JSON document the server would send.
func roundTrip(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	roundTrip(t, compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		WorldTime:       86400 * 3,
	})

	roundTrip(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		Params: protocol.MerchantParams{
			TickRateHz:             5,
			Seed:                   1337,
			SecretStashRefreshDays: 5,
			TreasureMapRefreshDays: 3,
			BountiesRefreshDays:    3,
		},
		Catalogs: protocol.CatalogDigests{Digest: "deadbeef"},
	})

	view := protocol.BountyView{ID: "BNT000001-0", State: "IN_PROGRESS", MonsterID: "Troll", Level: 2}
	roundTrip(t, compile(t, "state.schema.json"), protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		WorldTime:       100,
		Wallet:          protocol.WalletView{Coins: 10},
		Boards: []protocol.BoardView{{
			Board:   protocol.BoardSecretStash,
			Refresh: protocol.Refresh{Interval: 0, SecondsIn: 431900, Text: "4d 23h 58m 20s", Tooltip: "Every 5 in-game days"},
			Entries: []protocol.OfferView{{Index: 0, Kind: "SECRET_STASH", ItemID: "Honey", Stack: 5, CoinsPrice: 10, CanAfford: true, Purchasable: true}},
		}},
		Bounties: protocol.BountyBoard{Active: &view},
	})

	roundTrip(t, compile(t, "spawn.schema.json"), protocol.SpawnMsg{
		Type:            protocol.TypeSpawn,
		ProtocolVersion: protocol.Version,
		Handle:          "P1/BNT000001-0/1",
		Binding:         protocol.Binding{BountyID: "BNT000001-0", MonsterID: "Troll"},
	})

	act := compile(t, "act.schema.json")
	roundTrip(t, act, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "1", Kind: protocol.ActBuy, Board: protocol.BoardTreasureMap, Index: 0})
	roundTrip(t, act, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "2", Kind: protocol.ActSlay, BountyID: "B1", MonsterID: "Troll"})
	roundTrip(t, act, protocol.ActMsg{
		Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "3", Kind: protocol.ActSetup,
		Handle: "h1", Initial: true, Stats: &protocol.CharacterStats{Name: "Troll", MaxHealth: 600},
	})

	roundTrip(t, compile(t, "result.schema.json"), protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ActID: "1", Kind: protocol.ActBuy,
		Result: "INSUFFICIENT_FUNDS", Code: protocol.ErrNoResource,
	})
}

func TestSchemas_RejectBadAct(t *testing.T) {
	act := compile(t, "act.schema.json")
	var doc any
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","id":"1","kind":"SLAY","bounty_id":"B1"}`), &doc)
	if err := act.Validate(doc); err == nil {
		t.Fatalf("expected SLAY without monster_id to be rejected")
	}
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","id":"1","kind":"DANCE"}`), &doc)
	if err := act.Validate(doc); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

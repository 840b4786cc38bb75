package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeState   = "STATE"
	TypeSpawn   = "SPAWN"
	TypeAct     = "ACT"
	TypeResult  = "RESULT"
)

// Action kinds carried by ACT.
const (
	ActTime       = "TIME"
	ActBuy        = "BUY"
	ActAccept     = "ACCEPT"
	ActSlay       = "SLAY"
	ActDeath      = "DEATH"
	ActClaim      = "CLAIM"
	ActRebind     = "REBIND"
	ActSetup      = "SETUP"
	ActResolveMap = "RESOLVE_MAP"
	ActDeposit    = "DEPOSIT"
)

// Board names as they appear in STATE and BUY.
const (
	BoardSecretStash = "SECRET_STASH"
	BoardTreasureMap = "TREASURE_MAP"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

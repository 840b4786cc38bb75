package observerproto

import "merchantboard.ai/internal/protocol"

// Version is the observer protocol version (separate from the host WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection. Re-sending
// it switches the watched player.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string                  `json:"protocol_version"`
	ServerID        string                  `json:"server_id"`
	Params          protocol.MerchantParams `json:"params"`
	Catalogs        protocol.CatalogDigests `json:"catalogs"`
	Players         []string                `json:"players"`
}

// Server -> Client. Sent when a subscription switches to a player; the
// player's STATE, RESULT and SPAWN frames follow unchanged.
type WatchingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
}

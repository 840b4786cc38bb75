package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBusy            = "E_BUSY"

	// Merchant and bounty layer.
	ErrBadRequest        = "E_BAD_REQUEST"
	ErrNotFound          = "E_NOT_FOUND"
	ErrInvalidTransition = "E_INVALID_TRANSITION"
	ErrNotReady          = "E_NOT_READY"
	ErrNoResource        = "E_NO_RESOURCE"
	ErrInventoryFull     = "E_INVENTORY_FULL"
	ErrBlocked           = "E_BLOCKED"
	ErrInternal          = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBusy:              {},
	ErrBadRequest:        {},
	ErrNotFound:          {},
	ErrInvalidTransition: {},
	ErrNotReady:          {},
	ErrNoResource:        {},
	ErrInventoryFull:     {},
	ErrBlocked:           {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

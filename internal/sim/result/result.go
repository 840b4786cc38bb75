package result

// Code is the caller-visible outcome of a merchant or bounty operation.
// Nothing in the simulation core is fatal: stale or mismatched input degrades
// to one of these codes instead of an error.
type Code string

const (
	OK                Code = "OK"
	NotFound          Code = "NOT_FOUND"
	InvalidTransition Code = "INVALID_TRANSITION"
	Ignored           Code = "IGNORED"
	InsufficientFunds Code = "INSUFFICIENT_FUNDS"
	NotReady          Code = "NOT_READY"
	GrantRejected     Code = "GRANT_REJECTED"
	NotPurchasable    Code = "NOT_PURCHASABLE"
)

func (c Code) OK() bool { return c == OK }

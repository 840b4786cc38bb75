package result

import "testing"

func TestCodeOK(t *testing.T) {
	if !OK.OK() {
		t.Fatalf("expected OK to be ok")
	}
	for _, c := range []Code{NotFound, InvalidTransition, Ignored, InsufficientFunds, NotReady, GrantRejected, NotPurchasable} {
		if c.OK() {
			t.Fatalf("expected %s not ok", c)
		}
	}
}

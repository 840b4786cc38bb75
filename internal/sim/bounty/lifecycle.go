package bounty

import "merchantboard.ai/internal/sim/result"

// DecideAccept gates Available -> InProgress. active reports whether some
// other bounty already holds the single assignment slot.
func DecideAccept(b Info, found bool, active bool) result.Code {
	if !found || b.State == StateExpired {
		return result.NotFound
	}
	if active || b.State != StateAvailable {
		return result.InvalidTransition
	}
	return result.OK
}

// ApplySlay records a kill on b. Stale or mismatched kills leave b untouched
// and report Ignored.
func ApplySlay(b *Info, monsterID string, isAdd bool) result.Code {
	if b.State != StateInProgress || monsterID == "" {
		return result.Ignored
	}
	if isAdd {
		total := b.AddCount(monsterID)
		if total == 0 || b.AddsSlain[monsterID] >= total {
			return result.Ignored
		}
		if b.AddsSlain == nil {
			b.AddsSlain = map[string]int{}
		}
		b.AddsSlain[monsterID]++
	} else {
		if monsterID != b.Target.MonsterID || b.TargetSlain {
			return result.Ignored
		}
		b.TargetSlain = true
	}
	if b.Done() {
		b.State = StateCompleted
	}
	return result.OK
}

func DecideClaim(b Info, found bool) result.Code {
	if !found {
		return result.NotFound
	}
	switch b.State {
	case StateCompleted:
		return result.OK
	case StateAvailable, StateInProgress:
		return result.NotReady
	default:
		return result.InvalidTransition
	}
}

// ShouldExpire reports whether an unaccepted bounty has outlived its offer
// window of windowIntervals bounty intervals.
func ShouldExpire(b Info, currentInterval int, windowIntervals int) bool {
	if b.State != StateAvailable || currentInterval < 0 {
		return false
	}
	if windowIntervals < 1 {
		windowIntervals = 1
	}
	return currentInterval-b.Interval >= windowIntervals
}

// WindowIntervals converts an offer window in days into whole bounty intervals.
func WindowIntervals(offerWindowDays, refreshDays int) int {
	if refreshDays < 1 {
		refreshDays = 1
	}
	n := (offerWindowDays + refreshDays - 1) / refreshDays
	if n < 1 {
		n = 1
	}
	return n
}

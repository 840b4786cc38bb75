package merchant

import (
	"fmt"

	"merchantboard.ai/internal/protocol"
)

// Replayer re-applies logged actions to a merchant restored from a snapshot
// and checks each result against the one recorded live.
type Replayer struct {
	m       *Merchant
	step    uint64
	started bool

	Checked int
}

func NewReplayer(m *Merchant) *Replayer { return &Replayer{m: m} }

// Apply feeds one entry. Entries for other players are skipped.
func (r *Replayer) Apply(e ActLogEntry) error {
	if e.PlayerID != "" && e.PlayerID != r.m.PlayerID() {
		return nil
	}
	if r.started && (e.Step != r.step || e.Attach) {
		r.m.Tick()
	}
	r.started = true
	r.step = e.Step

	var got string
	if e.Attach && e.Act.Kind == protocol.ActTime {
		r.m.SetTime(e.Act.WorldTime)
		got = e.Result
	} else {
		got = r.m.Apply(e.Act).Result
	}
	if e.Attach {
		r.m.Tick()
	}
	r.Checked++
	if got != e.Result {
		return fmt.Errorf("step %d act %q (%s): got %s want %s", e.Step, e.Act.ID, e.Act.Kind, got, e.Result)
	}
	return nil
}

// Finish runs the Tick that closed the last replayed step.
func (r *Replayer) Finish() {
	if r.started {
		r.m.Tick()
	}
}

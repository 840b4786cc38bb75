package merchant

import (
	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/bounty/scaling"
	"merchantboard.ai/internal/sim/result"
)

// Apply runs one host action against the merchant and reports the outcome
// the way it goes out on the wire.
func (m *Merchant) Apply(a protocol.ActMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ActID:           a.ID,
		Kind:            a.Kind,
	}
	set := func(c result.Code) {
		res.Result = string(c)
		res.Code = CodeFor(c)
	}
	bad := func(msg string) protocol.ResultMsg {
		res.Result = "BAD_REQUEST"
		res.Code = protocol.ErrBadRequest
		res.Message = msg
		return res
	}

	switch a.Kind {
	case protocol.ActTime:
		if a.WorldTime < 0 {
			return bad("negative world_time")
		}
		m.SetTime(a.WorldTime)
		set(result.OK)
	case protocol.ActBuy:
		r := m.Buy(a.Board, a.Index)
		set(r.Code)
		if r.Code == result.OK {
			g := GrantView(r.Grant)
			res.Grant = &g
		}
	case protocol.ActAccept:
		set(m.Accept(a.BountyID))
	case protocol.ActSlay:
		set(m.Slay(a.BountyID, a.MonsterID, a.IsAdd))
	case protocol.ActDeath:
		set(m.Death(bounty.EntityHandle(a.Handle)))
	case protocol.ActClaim:
		r := m.Claim(a.BountyID)
		set(r.Code)
		if r.Code == result.OK {
			g := GrantView(r.Grant)
			res.Grant = &g
		}
	case protocol.ActRebind:
		if a.Binding == nil {
			return bad("missing binding")
		}
		set(m.Rebind(bounty.EntityHandle(a.Handle), bindingFromView(*a.Binding)))
	case protocol.ActSetup:
		if a.Stats == nil {
			return bad("missing stats")
		}
		in := scaling.Stats{Name: a.Stats.Name, Level: a.Stats.Level, MaxHealth: a.Stats.MaxHealth, Health: a.Stats.Health}
		out, bind, code := m.Setup(bounty.EntityHandle(a.Handle), in, a.Initial)
		set(code)
		if code == result.OK {
			res.Stats = &protocol.CharacterStats{Name: out.Name, Level: out.Level, MaxHealth: out.MaxHealth, Health: out.Health, Boss: out.Boss}
			b := bindingView(bind)
			res.Binding = &b
		}
	case protocol.ActResolveMap:
		set(m.ResolveMap(a.Biome))
	case protocol.ActDeposit:
		set(m.Deposit(a.Item, a.Count))
	default:
		return bad("unknown act kind")
	}
	return res
}

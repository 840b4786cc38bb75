package bounty

type State string

const (
	StateAvailable  State = "AVAILABLE"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateClaimed    State = "CLAIMED"
	StateExpired    State = "EXPIRED"
)

type Target struct {
	MonsterID string `json:"monster_id"`
	Level     int    `json:"level"`
}

// Add is an escort entry. Count instances of MonsterID spawn with the target.
type Add struct {
	MonsterID string `json:"monster_id"`
	Level     int    `json:"level"`
	Count     int    `json:"count"`
}

// Info is a bounty record as held by the save-data store.
type Info struct {
	ID                 string `json:"id"`
	TargetName         string `json:"target_name,omitempty"`
	Biome              string `json:"biome,omitempty"`
	Target             Target `json:"target"`
	Adds               []Add  `json:"adds,omitempty"`
	RewardIron         int    `json:"reward_iron,omitempty"`
	RewardGold         int    `json:"reward_gold,omitempty"`
	RewardCoins        int    `json:"reward_coins,omitempty"`
	RewardForestTokens int    `json:"reward_forest_tokens,omitempty"`
	State              State  `json:"state"`
	Interval           int    `json:"interval"`

	TargetSlain bool           `json:"target_slain,omitempty"`
	AddsSlain   map[string]int `json:"adds_slain,omitempty"`
}

func (b Info) Clone() Info {
	out := b
	if b.Adds != nil {
		out.Adds = append([]Add(nil), b.Adds...)
	}
	if b.AddsSlain != nil {
		out.AddsSlain = make(map[string]int, len(b.AddsSlain))
		for k, v := range b.AddsSlain {
			out.AddsSlain[k] = v
		}
	}
	return out
}

// AddCount sums the escort instances of monsterID; 0 means not part of the bounty.
func (b Info) AddCount(monsterID string) int {
	n := 0
	for _, a := range b.Adds {
		if a.MonsterID == monsterID {
			n += max(a.Count, 1)
		}
	}
	return n
}

// OutstandingAdds is the number of escorts still alive.
func (b Info) OutstandingAdds() int {
	n := 0
	seen := map[string]bool{}
	for _, a := range b.Adds {
		if seen[a.MonsterID] {
			continue
		}
		seen[a.MonsterID] = true
		if left := b.AddCount(a.MonsterID) - b.AddsSlain[a.MonsterID]; left > 0 {
			n += left
		}
	}
	return n
}

func (b Info) Done() bool {
	return b.TargetSlain && b.OutstandingAdds() == 0
}

// Binding ties a spawned entity to a bounty. It lives with the entity; the
// manager only ever looks it up by handle.
type Binding struct {
	BountyID     string `json:"bounty_id"`
	MonsterID    string `json:"monster_id"`
	IsAdd        bool   `json:"is_add"`
	OriginalName string `json:"original_name,omitempty"`
}

type EntityHandle string

// SaveData is the persistent owner of bounty records.
type SaveData interface {
	GetBountyByID(id string) (Info, bool)
	UpsertBounty(b Info)
	Bounties() []Info
}

// Spawner asks the host to create a bound monster. An empty handle means the
// host could not spawn it now.
type Spawner interface {
	SpawnTarget(bountyID, monsterID string, isAdd bool) EntityHandle
}

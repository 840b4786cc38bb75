package merchant

import (
	"sort"
	"sync"

	"merchantboard.ai/internal/sim/bounty"
	"merchantboard.ai/internal/sim/market"
)

// Store persists one player's merchant state. The merchant decides what
// changes; the store decides when it reaches disk.
type Store interface {
	bounty.SaveData

	PurchasedIndices(kind market.Kind, interval int) []int
	MarkPurchased(kind market.Kind, interval, index int)

	PendingMaps() []string
	SetMapPending(biome string, pending bool)

	Inventory() map[string]int
	SaveInventory(items map[string]int)
}

type purchaseKey struct {
	kind     market.Kind
	interval int
}

// MemStore keeps everything in memory. It backs tests and servers started
// without a database.
type MemStore struct {
	mu        sync.Mutex
	bounties  map[string]bounty.Info
	purchased map[purchaseKey]map[int]bool
	maps      map[string]bool
	items     map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		bounties:  map[string]bounty.Info{},
		purchased: map[purchaseKey]map[int]bool{},
		maps:      map[string]bool{},
		items:     map[string]int{},
	}
}

func (s *MemStore) GetBountyByID(id string) (bounty.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	return b.Clone(), ok
}

func (s *MemStore) UpsertBounty(b bounty.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounties[b.ID] = b.Clone()
}

func (s *MemStore) Bounties() []bounty.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bounty.Info, 0, len(s.bounties))
	for _, b := range s.bounties {
		out = append(out, b.Clone())
	}
	return out
}

func (s *MemStore) PurchasedIndices(kind market.Kind, interval int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i := range s.purchased[purchaseKey{kind, interval}] {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *MemStore) MarkPurchased(kind market.Kind, interval, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := purchaseKey{kind, interval}
	if s.purchased[k] == nil {
		s.purchased[k] = map[int]bool{}
	}
	s.purchased[k][index] = true
}

func (s *MemStore) PendingMaps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.maps))
	for b := range s.maps {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func (s *MemStore) SetMapPending(biome string, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending {
		s.maps[biome] = true
	} else {
		delete(s.maps, biome)
	}
}

func (s *MemStore) Inventory() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

func (s *MemStore) SaveInventory(items map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]int, len(items))
	for k, v := range items {
		s.items[k] = v
	}
}

// pendingMaps adapts a Store to eligibility.MapTracker.
type pendingMaps struct{ s Store }

func (p pendingMaps) HasPendingMap(biome string) bool {
	for _, b := range p.s.PendingMaps() {
		if b == biome {
			return true
		}
	}
	return false
}

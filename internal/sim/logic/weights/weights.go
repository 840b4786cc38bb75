package weights

// Entry is one candidate in a weighted pool.
type Entry struct {
	ID     string
	Weight float64
}

// Pick returns the index of the chosen entry in pool, preserving pool order,
// or -1 when nothing has positive weight.
func Pick(pool []Entry, roll uint64) int {
	var total float64
	for _, e := range pool {
		if e.Weight > 0 {
			total += e.Weight
		}
	}
	if total <= 0 {
		return -1
	}
	r := float64(roll%1_000_000_000) / 1_000_000_000.0
	target := r * total

	var acc float64
	last := -1
	for i, e := range pool {
		if e.Weight <= 0 {
			continue
		}
		acc += e.Weight
		last = i
		if target < acc {
			return i
		}
	}
	return last
}

// PickN draws up to n entries without replacement. next supplies one roll per draw.
func PickN(pool []Entry, n int, next func() uint64) []int {
	if n <= 0 || len(pool) == 0 || next == nil {
		return nil
	}
	remaining := make([]Entry, len(pool))
	copy(remaining, pool)
	index := make([]int, len(pool))
	for i := range index {
		index[i] = i
	}

	out := make([]int, 0, n)
	for len(out) < n {
		i := Pick(remaining, next())
		if i < 0 {
			break
		}
		out = append(out, index[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
		index = append(index[:i], index[i+1:]...)
	}
	return out
}

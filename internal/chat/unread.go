package chat

// UnreadCounts is the per-member unread badge counter. Absent keys read
// as zero and values never go negative.
type UnreadCounts map[string]int

func (u UnreadCounts) Get(userID string) int {
	if u == nil {
		return 0
	}
	n := u[userID]
	if n < 0 {
		return 0
	}
	return n
}

func (u UnreadCounts) Increment(userID string) {
	u[userID] = u.Get(userID) + 1
}

func (u UnreadCounts) Reset(userID string) {
	u[userID] = 0
}

// Total is the clamped sum over all members.
func (u UnreadCounts) Total() int {
	total := 0
	for id := range u {
		total += u.Get(id)
	}
	return total
}

// Normalize drops counters for users no longer in members and clamps
// negatives, restoring the keys-subset-of-members invariant at the
// storage boundary.
func (u UnreadCounts) Normalize(members []string) UnreadCounts {
	keep := make(map[string]struct{}, len(members))
	for _, m := range members {
		keep[m] = struct{}{}
	}
	out := make(UnreadCounts, len(u))
	for id, n := range u {
		if _, ok := keep[id]; !ok {
			continue
		}
		if n < 0 {
			n = 0
		}
		out[id] = n
	}
	return out
}

// ZeroCounts returns a counter map with an explicit zero per member,
// matching how conversations are created.
func ZeroCounts(members []string) UnreadCounts {
	out := make(UnreadCounts, len(members))
	for _, m := range members {
		out[m] = 0
	}
	return out
}

package chat

// Status is the delivery state of a message. Transitions only move
// forward; backward moves are no-ops everywhere in this package.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

func (s Status) rank() int {
	switch s {
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	default:
		return 0
	}
}

// Later returns whichever status is further along, which makes any
// merge of cached and derived status monotone.
func Later(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ReceiptPolicy decides when a message counts as seen. Direct
// conversations require every recipient to have read it; groups flip to
// first-read.
type ReceiptPolicy int

const (
	ReadByAll ReceiptPolicy = iota
	ReadByAny
)

func PolicyFor(isGroup bool) ReceiptPolicy {
	if isGroup {
		return ReadByAny
	}
	return ReadByAll
}

// Satisfied reports whether readBy fulfils the policy for the given
// recipient set. Readers outside the recipient set (the sender, stale
// members) are ignored.
func (p ReceiptPolicy) Satisfied(readBy, recipients []string) bool {
	if len(recipients) == 0 {
		return false
	}
	read := make(map[string]struct{}, len(readBy))
	for _, r := range readBy {
		read[r] = struct{}{}
	}

	matched := 0
	for _, recipient := range recipients {
		if _, ok := read[recipient]; ok {
			matched++
		}
	}
	if p == ReadByAny {
		return matched > 0
	}
	return matched == len(recipients)
}

// Project derives the status a message should carry given its read set.
// The stored status field is only a cache of this function's output,
// re-evaluated on every readBy mutation.
func Project(current Status, readBy, recipients []string, policy ReceiptPolicy) Status {
	if policy.Satisfied(readBy, recipients) {
		return Later(current, StatusSeen)
	}
	return current
}

package rpc

import "time"

// fleet tracks the workers currently believed live by the dispatcher: an
// insertion-ordered, duplicate-free sequence of identities, their last-seen
// instants, and a round-robin cursor. Not safe for concurrent use; the
// dispatcher loop is its sole owner.
type fleet struct {
	order    []string
	lastSeen map[string]time.Time
	cursor   uint64
}

func newFleet() *fleet {
	return &fleet{lastSeen: make(map[string]time.Time)}
}

// size returns the number of live workers.
func (f *fleet) size() int {
	return len(f.order)
}

// contains reports whether identity is currently in the fleet.
func (f *fleet) contains(identity string) bool {
	_, ok := f.lastSeen[identity]
	return ok
}

// admit registers identity if not already present and stamps its last-seen
// time. Idempotent on repeat HELLO (invariant F2: no duplicates).
func (f *fleet) admit(identity string, now time.Time) {
	if _, ok := f.lastSeen[identity]; !ok {
		f.order = append(f.order, identity)
	}
	f.lastSeen[identity] = now
}

// touch refreshes last-seen, admitting identity if it was never seen —
// the defensive path for a reply or PING arriving before HELLO was
// processed (e.g. a dropped registration message).
func (f *fleet) touch(identity string, now time.Time) {
	f.admit(identity, now)
}

// remove deletes identity, preserving the relative order of the rest.
// Removing an entry never leaves the cursor addressing a hole: pickNext
// always takes cursor modulo the *current* length.
func (f *fleet) remove(identity string) {
	if _, ok := f.lastSeen[identity]; !ok {
		return
	}
	delete(f.lastSeen, identity)
	for i, id := range f.order {
		if id == identity {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// pickNext returns the next worker in round-robin order and advances the
// cursor. Fails with ErrNoWorkers if the fleet is empty.
func (f *fleet) pickNext() (string, error) {
	n := len(f.order)
	if n == 0 {
		return "", ErrNoWorkers
	}
	identity := f.order[f.cursor%uint64(n)]
	f.cursor++
	return identity, nil
}

// sweep removes every identity whose last-seen instant is older than
// now-cutoff, returning the evicted identities for event reporting.
func (f *fleet) sweep(now time.Time, cutoff time.Duration) []string {
	var evicted []string
	threshold := now.Add(-cutoff)
	for _, id := range append([]string(nil), f.order...) {
		if f.lastSeen[id].Before(threshold) {
			f.remove(id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

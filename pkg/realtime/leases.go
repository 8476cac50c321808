package realtime

import (
	"sort"
	"time"
)

// DefaultLeaseTTL is how long an idle session keeps its slot.
const DefaultLeaseTTL = 30 * time.Minute

// Leases tracks expiry times for occupancy slots. It holds no room state; the
// room composes it and reacts to Expire(now) by dropping the returned holders.
// It is not safe for concurrent use.
type Leases struct {
	TTL     time.Duration
	expires map[string]time.Time
}

// NewLeases creates an empty lease table. A non-positive ttl uses DefaultLeaseTTL.
func NewLeases(ttl time.Duration) *Leases {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &Leases{TTL: ttl, expires: make(map[string]time.Time)}
}

// Grant starts or renews a lease at now.
func (l *Leases) Grant(id string, now time.Time) {
	l.expires[id] = now.Add(l.TTL)
}

// Touch renews an existing lease. It returns false if id holds none.
func (l *Leases) Touch(id string, now time.Time) bool {
	if _, ok := l.expires[id]; !ok {
		return false
	}
	l.expires[id] = now.Add(l.TTL)
	return true
}

// Release drops a lease. It returns false if id held none.
func (l *Leases) Release(id string) bool {
	if _, ok := l.expires[id]; !ok {
		return false
	}
	delete(l.expires, id)
	return true
}

// Held reports whether id holds a lease.
func (l *Leases) Held(id string) bool {
	_, ok := l.expires[id]
	return ok
}

// Len returns the number of leases held.
func (l *Leases) Len() int {
	return len(l.expires)
}

// NextWake returns the earliest expiry, and false when no lease is held.
func (l *Leases) NextWake() (time.Time, bool) {
	var next time.Time
	for _, at := range l.expires {
		if next.IsZero() || at.Before(next) {
			next = at
		}
	}
	return next, !next.IsZero()
}

// Expire drops every lease whose expiry is at or before now and returns the
// holders in a stable order.
func (l *Leases) Expire(now time.Time) []string {
	var expired []string
	for id, at := range l.expires {
		if !now.Before(at) {
			expired = append(expired, id)
			delete(l.expires, id)
		}
	}
	sort.Strings(expired)
	return expired
}

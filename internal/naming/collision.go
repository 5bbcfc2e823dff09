package naming

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const dupMarker = " - dup"

// CollisionResolver tracks names claimed by source files and resolves
// duplicates by appending " - dupN" suffixes. All methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // name → source that owns it
	counters map[string]int    // requested name → next dup counter
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the final name for source. If requested is unclaimed (or
// already owned by source) it is returned as-is; otherwise a
// "<requested> - dupN" variant is generated.
func (cr *CollisionResolver) Resolve(source, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	owner, exists := cr.owners[requested]
	if !exists || owner == source {
		cr.owners[requested] = source
		return requested
	}

	counter := cr.counters[requested]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := fmt.Sprintf("%s%s%d", requested, dupMarker, counter)
		cOwner, cExists := cr.owners[candidate]
		if !cExists || cOwner == source {
			cr.counters[requested] = counter + 1
			cr.owners[candidate] = source
			return candidate
		}
		counter++
	}
}

// BaseTitle strips a " - dupN" suffix added by Resolve.
func BaseTitle(name string) string {
	i := strings.LastIndex(name, dupMarker)
	if i < 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+len(dupMarker):]); err != nil {
		return name
	}
	return name[:i]
}

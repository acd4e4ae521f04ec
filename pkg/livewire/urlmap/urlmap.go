// Package urlmap is the routing table: a byte trie mapping URL prefixes to
// handler routes. Lookup returns the longest matching prefix. The map is
// built once at startup and immutable afterwards, so it is shared across
// connection goroutines without locking.
package urlmap

import (
	"github.com/yourusername/livewire/pkg/livewire/http11"
)

type node struct {
	children map[byte]*node
	route    *http11.Route
}

// Map is a prefix trie over path bytes.
type Map struct {
	root node
}

// New creates an empty map.
func New() *Map {
	return &Map{}
}

// Add registers a route under its prefix. A later Add with the same prefix
// replaces the earlier route.
func (m *Map) Add(route *http11.Route) {
	n := &m.root
	for i := 0; i < len(route.Prefix); i++ {
		c := route.Prefix[i]
		if n.children == nil {
			n.children = make(map[byte]*node)
		}
		child := n.children[c]
		if child == nil {
			child = &node{}
			n.children[c] = child
		}
		n = child
	}
	n.route = route
}

// LookupPrefix walks path through the trie and returns the deepest route
// passed on the way together with its prefix length. Returns (nil, 0) when
// no prefix matches.
//
// Allocation behavior: 0 allocs/op
func (m *Map) LookupPrefix(path []byte) (*http11.Route, int) {
	n := &m.root
	best := n.route
	bestLen := 0

	for i := 0; i < len(path); i++ {
		child := n.children[path[i]]
		if child == nil {
			break
		}
		n = child
		if n.route != nil {
			best = n.route
			bestLen = i + 1
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestLen
}

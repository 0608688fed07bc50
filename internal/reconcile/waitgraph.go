package reconcile

import "sync"

// waitGraph records which in-flight resolutions are waiting on which refs.
// Adding an edge that closes a loop would deadlock singleflight, so add
// refuses it.
type waitGraph struct {
	mu    sync.Mutex
	edges map[string]map[string]int
}

func newWaitGraph() *waitGraph {
	return &waitGraph{edges: make(map[string]map[string]int)}
}

// add records from -> to unless to already (transitively) waits on from.
// On refusal it returns the offending path, starting at to and ending at
// from.
func (g *waitGraph) add(from, to string) (ok bool, path []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if path := g.pathLocked(to, from, map[string]bool{}); path != nil {
		return false, path
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]int)
	}
	g.edges[from][to]++
	return true, nil
}

func (g *waitGraph) remove(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := g.edges[from]
	if out == nil {
		return
	}
	out[to]--
	if out[to] <= 0 {
		delete(out, to)
	}
	if len(out) == 0 {
		delete(g.edges, from)
	}
}

func (g *waitGraph) pathLocked(cur, target string, seen map[string]bool) []string {
	if cur == target {
		return []string{cur}
	}
	if seen[cur] {
		return nil
	}
	seen[cur] = true
	for next := range g.edges[cur] {
		if p := g.pathLocked(next, target, seen); p != nil {
			return append([]string{cur}, p...)
		}
	}
	return nil
}

package transform

import "github.com/rendis/bpmnflow/internal/flowgraph"

// TracePaths returns one path per outgoing flow of gateway, in flow order.
// A path lists the ids reachable from the flow's target in breadth-first
// order. Each traversal keeps its own visited set seeded with the gateway, so
// it terminates at dead ends and on revisits. The first revisited id is
// appended once more as the loop sentinel; reaching the gateway again takes
// precedence and closes the path with the gateway id.
//
// Paths are per-branch reachability, not an enumeration of every simple path,
// so an element reachable from every branch by some route counts as shared.
func TracePaths(g *flowgraph.Graph, gateway string) [][]string {
	return tracePaths(g, gateway, "")
}

// tracePaths is TracePaths with boundary recorded but never expanded.
func tracePaths(g *flowgraph.Graph, gateway, boundary string) [][]string {
	flows := g.Outgoing(gateway)
	paths := make([][]string, 0, len(flows))
	for _, f := range flows {
		paths = append(paths, traceFrom(g, gateway, f.Target, boundary))
	}
	return paths
}

func traceFrom(g *flowgraph.Graph, gateway, head, boundary string) []string {
	if head == gateway {
		return []string{gateway}
	}

	visited := map[string]bool{gateway: true, head: true}
	path := []string{head}
	sentinel := ""
	queue := []string{head}
	if head == boundary {
		queue = nil
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(current) {
			if visited[next] {
				if next == gateway || sentinel == "" {
					sentinel = next
				}
				continue
			}
			visited[next] = true
			path = append(path, next)
			if next != boundary {
				queue = append(queue, next)
			}
		}
	}
	if sentinel != "" {
		path = append(path, sentinel)
	}
	return path
}

// CommonEndpoint returns the first element of the first traced path that is
// also present in every other path of gateway. It reports false when the
// branches never reconverge or the gateway has no outgoing flows.
func CommonEndpoint(g *flowgraph.Graph, gateway string) (string, bool) {
	return commonEndpoint(tracePaths(g, gateway, ""))
}

func commonEndpoint(paths [][]string) (string, bool) {
	if len(paths) == 0 {
		return "", false
	}

	others := make([]map[string]bool, 0, len(paths)-1)
	for _, p := range paths[1:] {
		set := make(map[string]bool, len(p))
		for _, id := range p {
			set[id] = true
		}
		others = append(others, set)
	}

	for _, id := range paths[0] {
		shared := true
		for _, set := range others {
			if !set[id] {
				shared = false
				break
			}
		}
		if shared {
			return id, true
		}
	}
	return "", false
}

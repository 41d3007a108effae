package domain

// NextHop returns the first status on the shortest path from src to dst in g.
// Automation uses it when an inferred status is more than one edge away.
func NextHop(g StatusGraph, src, dst Status) (Status, bool) {
	if src == dst {
		return "", false
	}
	first := map[Status]Status{}
	seen := map[Status]bool{src: true}
	queue := []Status{src}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Targets(cur) {
			if seen[next] {
				continue
			}
			seen[next] = true
			if cur == src {
				first[next] = next
			} else {
				first[next] = first[cur]
			}
			if next == dst {
				return first[next], true
			}
			queue = append(queue, next)
		}
	}
	return "", false
}

package scheduling

// TopologicalSort orders nodes so that every node comes after all of its
// predecessors. Among the nodes that are ready, the earliest in nodes goes
// first. Nodes caught in a cycle are returned in the second result, also in
// the order of nodes.
func TopologicalSort[T comparable](
	nodes []T,
	successors func(T) []T,
) (sorted []T, cyclic []T) {
	inDegree := make(map[T]int, len(nodes))
	index := make(map[T]int, len(nodes))

	for i, n := range nodes {
		index[n] = i
	}

	for _, n := range nodes {
		for _, s := range successors(n) {
			if _, known := index[s]; known {
				inDegree[s]++
			}
		}
	}

	ready := make([]bool, len(nodes))
	for i, n := range nodes {
		ready[i] = inDegree[n] == 0
	}

	done := make([]bool, len(nodes))

	for {
		next := -1

		for i := range nodes {
			if ready[i] && !done[i] {
				next = i
				break
			}
		}

		if next < 0 {
			break
		}

		done[next] = true
		n := nodes[next]
		sorted = append(sorted, n)

		for _, s := range successors(n) {
			i, known := index[s]
			if !known {
				continue
			}

			inDegree[s]--
			if inDegree[s] == 0 {
				ready[i] = true
			}
		}
	}

	for i, n := range nodes {
		if !done[i] {
			cyclic = append(cyclic, n)
		}
	}

	return sorted, cyclic
}

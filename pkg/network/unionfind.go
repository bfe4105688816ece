package network

// unionFind is a disjoint-set forest over 0..n-1 with path compression and
// union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// groups returns the sets ordered by their smallest member, members
// ascending.
func (uf *unionFind) groups() [][]int {
	var out [][]int
	slot := make(map[int]int)
	for i := range uf.parent {
		r := uf.find(i)
		g, ok := slot[r]
		if !ok {
			g = len(out)
			slot[r] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}

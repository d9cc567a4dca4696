package core

// disjointSet is a union-find over comparable node keys with path
// compression and union by size.
type disjointSet[K comparable] struct {
	parent map[K]K
	size   map[K]int
	order  []K
}

func newDisjointSet[K comparable]() *disjointSet[K] {
	return &disjointSet[K]{
		parent: make(map[K]K),
		size:   make(map[K]int),
	}
}

func (d *disjointSet[K]) add(k K) {
	if _, ok := d.parent[k]; ok {
		return
	}
	d.parent[k] = k
	d.size[k] = 1
	d.order = append(d.order, k)
}

func (d *disjointSet[K]) find(k K) K {
	d.add(k)
	root := k
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for k != root {
		next := d.parent[k]
		d.parent[k] = root
		k = next
	}
	return root
}

func (d *disjointSet[K]) union(a, b K) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// keys returns every key in insertion order.
func (d *disjointSet[K]) keys() []K {
	return d.order
}

// Package taxonomy computes facet counts for the filter sidebar: given a set
// of category nodes and the books tagged with each, it reports how many
// distinct books match every node, folding children into their parents for
// two-level hierarchies.
package taxonomy

// Node is one category value. ParentSlug is nil for root nodes; flat
// taxonomies have no parents at all.
type Node struct {
	ID         int
	Name       string
	Slug       string
	ParentSlug *string
}

// RootCount is the aggregate for one root node: the root's own direct count
// plus the total across its children, with each child's direct count keyed
// by slug.
type RootCount struct {
	Count    int            `json:"count"`
	SubItems map[string]int `json:"sub_items"`
}

// Membership maps a node slug to the IDs of the books directly tagged with
// that node. Build it with one pass over the (book, node) relation; the fold
// into parents happens in memory here.
type Membership map[string][]int

func distinctCount(ids []int) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// FilterCounts aggregates a two-level hierarchy. For each root node the
// total is the root's direct distinct count plus the total across its
// children; a book tagged with both the root and a child contributes to both
// terms.
//
// multiValued signals that a book can carry several values of this taxonomy
// at once (e.g. genres). In that case summing per-child counts would
// double-count a book tagged with two sibling children, so the children's
// contribution is computed as a distinct union of book IDs instead. For
// single-valued taxonomies (e.g. type) plain summation is exact and cheaper.
func FilterCounts(nodes []Node, membership Membership, multiValued bool) map[string]RootCount {
	counts := map[string]RootCount{}

	for _, root := range nodes {
		if root.ParentSlug != nil {
			continue
		}

		subItems := map[string]int{}
		childrenTotal := 0
		union := map[int]struct{}{}

		for _, child := range nodes {
			if child.ParentSlug == nil || *child.ParentSlug != root.Slug {
				continue
			}
			subItems[child.Slug] = distinctCount(membership[child.Slug])
			if multiValued {
				for _, id := range membership[child.Slug] {
					union[id] = struct{}{}
				}
			} else {
				childrenTotal += subItems[child.Slug]
			}
		}
		if multiValued {
			childrenTotal = len(union)
		}
		total := distinctCount(membership[root.Slug]) + childrenTotal

		counts[root.Slug] = RootCount{
			Count:    total,
			SubItems: subItems,
		}
	}

	return counts
}

// FlatCounts aggregates a taxonomy with no hierarchy: every node maps to its
// own distinct book count.
func FlatCounts(nodes []Node, membership Membership) map[string]int {
	counts := map[string]int{}
	for _, node := range nodes {
		counts[node.Slug] = distinctCount(membership[node.Slug])
	}
	return counts
}

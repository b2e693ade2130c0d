package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string {
	return &s
}

func TestFilterCounts(t *testing.T) {
	t.Parallel()

	t.Run("distinct union across children for multi-valued taxonomies", func(t *testing.T) {
		// Book 1 has both mystery and scifi; summing per-child counts would
		// report 3 instead of 2.
		nodes := []Node{
			{ID: 1, Name: "Fiction", Slug: "fiction"},
			{ID: 2, Name: "Mystery", Slug: "mystery", ParentSlug: strptr("fiction")},
			{ID: 3, Name: "SciFi", Slug: "scifi", ParentSlug: strptr("fiction")},
		}
		membership := Membership{
			"mystery": {1, 2},
			"scifi":   {1},
		}

		counts := FilterCounts(nodes, membership, true)

		assert.Equal(t, 2, counts["fiction"].Count)
		assert.Equal(t, map[string]int{"mystery": 2, "scifi": 1}, counts["fiction"].SubItems)
	})

	t.Run("summation for single-valued taxonomies", func(t *testing.T) {
		nodes := []Node{
			{ID: 1, Name: "Non-fiction", Slug: "non-fiction"},
			{ID: 2, Name: "Memoir", Slug: "memoir", ParentSlug: strptr("non-fiction")},
			{ID: 3, Name: "History", Slug: "history", ParentSlug: strptr("non-fiction")},
		}
		membership := Membership{
			"non-fiction": {4},
			"memoir":      {1, 2},
			"history":     {3},
		}

		counts := FilterCounts(nodes, membership, false)

		assert.Equal(t, 4, counts["non-fiction"].Count)
		assert.Equal(t, map[string]int{"memoir": 2, "history": 1}, counts["non-fiction"].SubItems)
	})

	t.Run("root direct tags count toward the total", func(t *testing.T) {
		nodes := []Node{
			{ID: 1, Name: "Fiction", Slug: "fiction"},
			{ID: 2, Name: "Mystery", Slug: "mystery", ParentSlug: strptr("fiction")},
		}
		membership := Membership{
			"fiction": {5, 6},
			"mystery": {7},
		}

		counts := FilterCounts(nodes, membership, true)

		assert.Equal(t, 3, counts["fiction"].Count)
	})

	t.Run("root direct count adds on top of the child union", func(t *testing.T) {
		// Book 1 carries both the root and a child; it contributes to both
		// terms, so the total is direct 1 + union 2.
		nodes := []Node{
			{ID: 1, Name: "Fiction", Slug: "fiction"},
			{ID: 2, Name: "Mystery", Slug: "mystery", ParentSlug: strptr("fiction")},
		}
		membership := Membership{
			"fiction": {1},
			"mystery": {1, 2},
		}

		counts := FilterCounts(nodes, membership, true)

		assert.Equal(t, 3, counts["fiction"].Count)
	})

	t.Run("root with no children", func(t *testing.T) {
		nodes := []Node{{ID: 1, Name: "Poetry", Slug: "poetry"}}
		membership := Membership{"poetry": {1}}

		counts := FilterCounts(nodes, membership, true)

		assert.Equal(t, 1, counts["poetry"].Count)
		assert.Empty(t, counts["poetry"].SubItems)
	})

	t.Run("empty node set", func(t *testing.T) {
		counts := FilterCounts(nil, Membership{}, true)
		assert.Empty(t, counts)
	})

	t.Run("nodes with no matches report zero", func(t *testing.T) {
		nodes := []Node{
			{ID: 1, Name: "Fiction", Slug: "fiction"},
			{ID: 2, Name: "Mystery", Slug: "mystery", ParentSlug: strptr("fiction")},
		}

		counts := FilterCounts(nodes, Membership{}, true)

		assert.Equal(t, 0, counts["fiction"].Count)
		assert.Equal(t, map[string]int{"mystery": 0}, counts["fiction"].SubItems)
	})

	t.Run("duplicate membership rows count once", func(t *testing.T) {
		nodes := []Node{{ID: 1, Name: "Fiction", Slug: "fiction"}}
		membership := Membership{"fiction": {1, 1, 1}}

		counts := FilterCounts(nodes, membership, true)

		assert.Equal(t, 1, counts["fiction"].Count)
	})
}

func TestFlatCounts(t *testing.T) {
	t.Parallel()

	t.Run("direct counts per node", func(t *testing.T) {
		nodes := []Node{
			{ID: 1, Name: "Physical", Slug: "physical"},
			{ID: 2, Name: "Audio", Slug: "audio"},
		}
		membership := Membership{
			"physical": {1, 2, 3},
			"audio":    {2},
		}

		counts := FlatCounts(nodes, membership)

		assert.Equal(t, map[string]int{"physical": 3, "audio": 1}, counts)
	})

	t.Run("no matches yields zero for every node, never panics", func(t *testing.T) {
		nodes := []Node{
			{ID: 1, Name: "Physical", Slug: "physical"},
			{ID: 2, Name: "Audio", Slug: "audio"},
		}

		counts := FlatCounts(nodes, Membership{})

		assert.Equal(t, map[string]int{"physical": 0, "audio": 0}, counts)
	})

	t.Run("empty node set", func(t *testing.T) {
		assert.Empty(t, FlatCounts(nil, Membership{}))
	})
}

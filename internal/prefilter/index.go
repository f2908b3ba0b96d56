package prefilter

import "fuzzyjoin/internal/fuzz"

// Index groups right-side titles by distinct normalized value.
type Index struct {
	titles []fuzz.Tokens
	rows   [][]int
	size   int
}

// NewIndex builds an index over normalized right titles. Title ids follow
// first appearance, and each id's rows are in ascending order. Empty titles
// are kept out of the index since they cannot score above zero.
func NewIndex(titles []string) *Index {
	ix := &Index{size: len(titles)}
	ids := make(map[string]int, len(titles))
	for row, title := range titles {
		if title == "" {
			continue
		}
		id, ok := ids[title]
		if !ok {
			id = len(ix.titles)
			ids[title] = id
			ix.titles = append(ix.titles, fuzz.Prepare(title))
			ix.rows = append(ix.rows, nil)
		}
		ix.rows[id] = append(ix.rows[id], row)
	}
	return ix
}

// Distinct returns the number of distinct titles.
func (ix *Index) Distinct() int { return len(ix.titles) }

// Size returns the number of right rows the index was built from.
func (ix *Index) Size() int { return ix.size }

// Title returns the prepared tokens of a distinct title.
func (ix *Index) Title(id int) fuzz.Tokens { return ix.titles[id] }

// Rows returns the right-row indices sharing a distinct title.
func (ix *Index) Rows(id int) []int { return ix.rows[id] }

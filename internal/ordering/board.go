package ordering

import (
	"sort"

	"github.com/bwmarrin/snowflake"
)

// Location addresses a slot on the board by column and index.
type Location struct {
	Status string `json:"status"`
	Index  int    `json:"index"`
}

// Board is a local projection of one partition: issue ids per status
// column, in display order. It is discarded and reloaded whenever the
// authoritative reorder fails.
type Board struct {
	statuses []string
	columns  map[string][]snowflake.ID
}

// NewBoard builds the projection from ranks. Columns follow statuses;
// ranks carrying an unconfigured status get a trailing column so no issue
// disappears from the projection.
func NewBoard(statuses []string, ranks []Rank) *Board {
	b := &Board{
		statuses: append([]string(nil), statuses...),
		columns:  make(map[string][]snowflake.ID, len(statuses)),
	}
	for _, s := range statuses {
		b.columns[s] = nil
	}

	sorted := append([]Rank(nil), ranks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Status != sorted[j].Status {
			return sorted[i].Status < sorted[j].Status
		}
		return sorted[i].Order < sorted[j].Order
	})
	for _, r := range sorted {
		if _, ok := b.columns[r.Status]; !ok {
			b.statuses = append(b.statuses, r.Status)
		}
		b.columns[r.Status] = append(b.columns[r.Status], r.IssueID)
	}
	return b
}

func (b *Board) Statuses() []string {
	return append([]string(nil), b.statuses...)
}

func (b *Board) Column(status string) []snowflake.ID {
	return append([]snowflake.ID(nil), b.columns[status]...)
}

// Move applies a drag from source to destination to the projection and
// returns the placements of every column it touched, renumbered from 0.
// A drop onto the same slot returns no placements.
func (b *Board) Move(source, destination Location) ([]Placement, error) {
	src, ok := b.columns[source.Status]
	if !ok || source.Index < 0 || source.Index >= len(src) {
		return nil, ErrInvalidMove
	}
	dst, ok := b.columns[destination.Status]
	if !ok || destination.Index < 0 {
		return nil, ErrInvalidMove
	}

	if source.Status == destination.Status {
		if destination.Index >= len(src) {
			return nil, ErrInvalidMove
		}
		if source.Index == destination.Index {
			return nil, nil
		}
		column := append([]snowflake.ID(nil), src...)
		id := column[source.Index]
		column = removeAt(column, source.Index)
		column = insertAt(column, destination.Index, id)
		b.columns[source.Status] = column
		return placements(source.Status, column), nil
	}

	if destination.Index > len(dst) {
		return nil, ErrInvalidMove
	}
	id := src[source.Index]
	srcColumn := removeAt(append([]snowflake.ID(nil), src...), source.Index)
	dstColumn := insertAt(append([]snowflake.ID(nil), dst...), destination.Index, id)
	b.columns[source.Status] = srcColumn
	b.columns[destination.Status] = dstColumn

	out := placements(source.Status, srcColumn)
	return append(out, placements(destination.Status, dstColumn)...), nil
}

// Placements flattens the whole projection in column order.
func (b *Board) Placements() []Placement {
	var out []Placement
	for _, s := range b.statuses {
		out = append(out, placements(s, b.columns[s])...)
	}
	return out
}

func placements(status string, column []snowflake.ID) []Placement {
	out := make([]Placement, len(column))
	for i, id := range column {
		out[i] = Placement{IssueID: id, Status: status, Order: i}
	}
	return out
}

func removeAt(s []snowflake.ID, i int) []snowflake.ID {
	return append(s[:i], s[i+1:]...)
}

func insertAt(s []snowflake.ID, i int, id snowflake.ID) []snowflake.ID {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}

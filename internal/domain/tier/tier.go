// Package tier maps competitive ratings to membership tier labels.
//
// Resolution is a pure threshold scan so reconciliation and leaderboard
// computation stay reproducible and independently testable.
package tier

import (
	"fmt"
	"sort"
)

// Threshold is one row of the tier table: the label applies to every
// rating greater than or equal to MinRating, up to the next row.
type Threshold struct {
	Label     string
	MinRating int
}

// Table is an ordered set of thresholds, strictly decreasing by MinRating,
// plus a fallback label for ratings below the lowest threshold.
// Static and read-only after construction.
type Table struct {
	thresholds []Threshold
	fallback   string
}

// Default returns the production tier table.
func Default() *Table {
	t, err := New([]Threshold{
		{Label: "Nível 10", MinRating: 2001},
		{Label: "Nível 9", MinRating: 1751},
		{Label: "Nível 8", MinRating: 1531},
		{Label: "Nível 7", MinRating: 1351},
		{Label: "Nível 6", MinRating: 1201},
		{Label: "Nível 5", MinRating: 1051},
		{Label: "Nível 4", MinRating: 901},
		{Label: "Nível 3", MinRating: 751},
		{Label: "Nível 2", MinRating: 501},
		{Label: "Nível 1", MinRating: 100},
	}, "Membro")
	if err != nil {
		panic(err) // static table; unreachable unless the literal above is edited badly
	}
	return t
}

// New validates and builds a Table. Thresholds may be given in any order;
// they are sorted highest-first. Duplicate labels or duplicate thresholds
// make the table ambiguous and are rejected.
func New(thresholds []Threshold, fallback string) (*Table, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: empty threshold list", ErrInvalidTable)
	}
	if fallback == "" {
		return nil, fmt.Errorf("%w: empty fallback label", ErrInvalidTable)
	}

	rows := make([]Threshold, len(thresholds))
	copy(rows, thresholds)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MinRating > rows[j].MinRating })

	seen := make(map[string]struct{}, len(rows)+1)
	seen[fallback] = struct{}{}
	for i, row := range rows {
		if row.Label == "" {
			return nil, fmt.Errorf("%w: empty label at rating %d", ErrInvalidTable, row.MinRating)
		}
		if row.MinRating < 0 {
			return nil, fmt.Errorf("%w: negative threshold for %q", ErrInvalidTable, row.Label)
		}
		if _, dup := seen[row.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidTable, row.Label)
		}
		seen[row.Label] = struct{}{}
		if i > 0 && rows[i-1].MinRating == row.MinRating {
			return nil, fmt.Errorf("%w: duplicate threshold %d", ErrInvalidTable, row.MinRating)
		}
	}

	return &Table{thresholds: rows, fallback: fallback}, nil
}

// Resolve returns the label for a rating: the first (highest) threshold
// whose MinRating is less than or equal to the rating, inclusive on the
// boundary. Ratings below the lowest threshold get the fallback label.
func (t *Table) Resolve(rating int) string {
	for _, row := range t.thresholds {
		if rating >= row.MinRating {
			return row.Label
		}
	}
	return t.fallback
}

// Labels returns every tier label the table can assign, highest tier first,
// excluding the fallback. These are the labels reconciliation manages.
func (t *Table) Labels() []string {
	labels := make([]string, len(t.thresholds))
	for i, row := range t.thresholds {
		labels[i] = row.Label
	}
	return labels
}

// Fallback returns the label assigned below the lowest threshold.
func (t *Table) Fallback() string {
	return t.fallback
}

// Validate checks that every assignable label (fallback included) exists in
// the live group's configured label set. A missing label would make
// reconciliation silently skip assignments, so this fails fast at startup.
func (t *Table) Validate(configured []string) error {
	have := make(map[string]struct{}, len(configured))
	for _, label := range configured {
		have[label] = struct{}{}
	}
	for _, row := range t.thresholds {
		if _, ok := have[row.Label]; !ok {
			return fmt.Errorf("%w: %q", ErrLabelNotConfigured, row.Label)
		}
	}
	if _, ok := have[t.fallback]; !ok {
		return fmt.Errorf("%w: %q", ErrLabelNotConfigured, t.fallback)
	}
	return nil
}

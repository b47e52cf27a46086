package ranking

import (
	"cmp"
	"slices"

	"github.com/okian/divari/internal/domain/model"
)

// Organization points defaults.
const (
	DefaultLevel       = "SM"
	DefaultMaxPosition = 8
)

// OrganizationPoints is an organization's accumulated placement points.
type OrganizationPoints struct {
	Organization model.Organization
	Value        int
}

// TallyPoints awards maxPosition-position+1 points per placed result to its
// organization. Unassigned results and positions outside 1..maxPosition score
// nothing. Organizations are ordered by points, best first; ties keep the
// order in which organizations were first seen.
func TallyPoints(results []model.PlacedResult, maxPosition int) []OrganizationPoints {
	var out []OrganizationPoints
	index := make(map[int64]int)
	for _, r := range results {
		if r.Organization == nil || r.Position < 1 || r.Position > maxPosition {
			continue
		}
		points := maxPosition - r.Position + 1
		i, ok := index[r.Organization.ID]
		if !ok {
			i = len(out)
			index[r.Organization.ID] = i
			out = append(out, OrganizationPoints{Organization: *r.Organization})
		}
		out[i].Value += points
	}
	slices.SortStableFunc(out, func(a, b OrganizationPoints) int { return cmp.Compare(b.Value, a.Value) })
	return out
}

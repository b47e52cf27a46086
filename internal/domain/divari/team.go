package divari

import (
	"cmp"
	"slices"

	"github.com/okian/divari/internal/domain/model"
)

// TeamSize is the number of individual results that make up one team score.
const TeamSize = 3

// Group is one team's share of a competition: TeamSize consecutive results
// from the score-ordered list.
type Group struct {
	// Number is the 1-based team number; 1 holds the three best scores.
	Number  int
	Results []model.Result
	Score   int
}

// FormTeams partitions results into consecutive groups of TeamSize, best
// scores first. A trailing group smaller than TeamSize forms no team.
// Equal scores keep their input order.
func FormTeams(results []model.Result) []Group {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b model.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})

	groups := make([]Group, 0, len(sorted)/TeamSize)
	for i := 0; i+TeamSize <= len(sorted); i += TeamSize {
		members := sorted[i : i+TeamSize]
		score := 0
		for _, r := range members {
			score += r.Score
		}
		groups = append(groups, Group{
			Number:  len(groups) + 1,
			Results: members,
			Score:   score,
		})
	}
	return groups
}

package divari

import (
	"cmp"
	"slices"

	"github.com/okian/divari/internal/domain/model"
)

// CapScore sums the count highest scores. A non-positive count yields 0.
func CapScore(scores []int, count int) int {
	if count <= 0 || len(scores) == 0 {
		return 0
	}
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b int) int { return cmp.Compare(b, a) })

	total := 0
	for _, s := range sorted[:min(count, len(sorted))] {
		total += s
	}
	return total
}

// SeedTeams returns the teams a new season starts with: each team of the
// previous season that collected at least the previous season's result count
// of team results, carried over with its organization, bow type, number and
// division. resultCounts maps previous team ids to their team result count.
func SeedTeams(previous model.Season, teams []model.Team, resultCounts map[int64]int, next model.Season) []model.Team {
	seeded := make([]model.Team, 0, len(teams))
	seen := make(map[model.TeamKey]struct{}, len(teams))
	for _, t := range teams {
		if t.SeasonID != previous.ID || resultCounts[t.ID] < previous.ResultCount {
			continue
		}
		nt := model.Team{
			OrganizationID: t.OrganizationID,
			BowType:        t.BowType,
			Number:         t.Number,
			Division:       t.Division,
			SeasonID:       next.ID,
		}
		if _, dup := seen[nt.Key()]; dup {
			continue
		}
		seen[nt.Key()] = struct{}{}
		seeded = append(seeded, nt)
	}
	return seeded
}

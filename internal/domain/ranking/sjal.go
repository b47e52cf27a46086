package ranking

import (
	"cmp"
	"slices"

	"github.com/okian/divari/internal/domain/model"
)

// Per-athlete inclusion caps.
const (
	maxIndoor          = 3
	max70mCompound     = 3
	max70mRecurve      = 2
	max1440            = 1
	maxIncludedResults = 6
)

// Entry is one athlete's line in the SJAL ranking.
type Entry struct {
	Athlete model.Athlete
	// Result is the composite score.
	Result int
	// Competitions is the number of results included in Result.
	Competitions int
	Rank         int
}

// tally accumulates one athlete's included results.
type tally struct {
	athlete    model.Athlete
	n          int
	n18        int
	n70        int
	n1440      int
	total      int
	result1440 int
}

func (t *tally) add(d Division, r model.RankedResult) {
	switch {
	case isIndoor(r.CompetitionType) && t.n18 < maxIndoor:
		t.n18++
		t.n++
		t.total += r.Score
	case r.CompetitionType == Type1440 && t.n1440 < max1440:
		if d == DivisionCompound || (d == DivisionRecurve && slices.Contains(recurveOutdoor, r.Category)) {
			t.n1440++
			t.n++
			t.result1440 = r.Score / 2
		}
	case r.CompetitionType == Type70m:
		switch {
		case d.substitutes1440() && t.n70 < max70mCompound:
			t.n70++
			t.n++
			if t.n70 == max70mCompound {
				// the third 70m slot is taken by the 1440 half if it is higher
				t.total += max(t.result1440, r.Score)
			} else {
				t.total += r.Score
			}
		case d == DivisionRecurve && t.n70 < max70mRecurve && slices.Contains(recurveOutdoor, r.Category):
			t.n70++
			t.n++
			t.total += r.Score
		}
	}
	if d.substitutes1440() && t.n > maxIncludedResults {
		t.n = maxIncludedResults
	}
}

// score returns the composite. A compound athlete with three 70m results
// already had the 1440 half considered for the third slot, so it is not
// added again.
func (t *tally) score(d Division) int {
	if d == DivisionCompound && t.n70 > 2 {
		return t.total
	}
	return t.total + t.result1440
}

// Aggregate computes unranked SJAL entries for division d. Results of
// unknown competition types or of categories outside d are ignored. Entries
// come out in athlete id order; athletes scoring 0 are dropped.
func Aggregate(d Division, results []model.RankedResult) []Entry {
	if !d.Valid() {
		return nil
	}
	selected := make([]model.RankedResult, 0, len(results))
	for _, r := range results {
		if slices.Contains(CompetitionTypes, r.CompetitionType) && d.hasCategory(r.Category) {
			selected = append(selected, r)
		}
	}
	slices.SortStableFunc(selected, func(a, b model.RankedResult) int {
		if c := cmp.Compare(a.Athlete.ID, b.Athlete.ID); c != 0 {
			return c
		}
		return cmp.Compare(b.Score, a.Score)
	})

	var entries []Entry
	var cur *tally
	flush := func() {
		if cur == nil {
			return
		}
		if s := cur.score(d); s > 0 {
			entries = append(entries, Entry{Athlete: cur.athlete, Result: s, Competitions: cur.n})
		}
	}
	for _, r := range selected {
		if cur == nil || cur.athlete.ID != r.Athlete.ID {
			flush()
			cur = &tally{athlete: r.Athlete}
		}
		cur.add(d, r)
	}
	flush()
	return entries
}

// AssignRanks sorts entries by result, best first, and numbers them. Equal
// results share the rank of the first of them; the next distinct result
// takes its 1-based position. A positive limit truncates the output.
func AssignRanks(entries []Entry, limit int) []Entry {
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b Entry) int { return cmp.Compare(b.Result, a.Result) })
	for i := range ranked {
		if i > 0 && ranked[i].Result == ranked[i-1].Result {
			ranked[i].Rank = ranked[i-1].Rank
		} else {
			ranked[i].Rank = i + 1
		}
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

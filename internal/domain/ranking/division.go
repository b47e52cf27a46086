package ranking

import (
	"slices"
	"strings"
)

// Division is the equipment class a ranking is computed for.
type Division string

// Ranked divisions. Longbow has no ranking of its own; longbow categories
// count toward barebow.
const (
	DivisionRecurve  Division = "recurve"
	DivisionCompound Division = "compound"
	DivisionBarebow  Division = "barebow"
)

// ParseDivision maps s to a known division.
func ParseDivision(s string) (Division, bool) {
	d := Division(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Valid reports whether d is a ranked division.
func (d Division) Valid() bool {
	switch d {
	case DivisionRecurve, DivisionCompound, DivisionBarebow:
		return true
	}
	return false
}

// Competition type abbreviations counted by the ranking.
const (
	Type18m  = "18m"
	Type25m  = "25m"
	Type70m  = "70m"
	Type1440 = "1440"
)

// CompetitionTypes lists the competition types the ranking reads.
var CompetitionTypes = []string{Type18m, Type25m, Type70m, Type1440}

var categories = map[Division][]string{
	DivisionRecurve: {
		"Y", "N", "17", "T17", "20", "N20", "50", "N50", "60", "N60",
	},
	DivisionCompound: {
		"YT", "NT", "17T", "T17T", "20T", "N20T", "50T", "N50T", "60T", "N60T", "70T", "N70T",
	},
	DivisionBarebow: {
		"YV", "NV", "17V", "T17V", "20V", "N20V", "50V", "N50V", "60V", "N60V", "70V", "N70V",
		"YLB", "NLB", "20LB",
	},
}

// Recurve categories shooting the full outdoor distance; only these count
// recurve 70m and 1440 results.
var recurveOutdoor = []string{"Y", "N", "20", "N20"}

// Categories returns the category abbreviations counted for d.
func (d Division) Categories() []string {
	return slices.Clone(categories[d])
}

func (d Division) hasCategory(c string) bool {
	return slices.Contains(categories[d], c)
}

// substitutes1440 reports whether d may count a third 70m result in place of
// the 1440 round.
func (d Division) substitutes1440() bool {
	return d == DivisionCompound || d == DivisionBarebow
}

func isIndoor(t string) bool {
	return t == Type18m || t == Type25m
}

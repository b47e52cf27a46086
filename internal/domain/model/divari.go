// Package model contains domain models passed between layers.
package model

import (
	"time"
)

// Score bounds for a single divari result.
const (
	MinScore = 0
	MaxScore = 600
)

// BowType is the equipment class a result or team belongs to.
type BowType string

// Bow types.
const (
	BowRecurve  BowType = "recurve"
	BowCompound BowType = "compound"
	BowBarebow  BowType = "barebow"
	BowLongbow  BowType = "longbow"
)

// BowTypes lists every bow type in display order.
var BowTypes = []BowType{BowRecurve, BowCompound, BowBarebow, BowLongbow}

// Valid reports whether b is a known bow type.
func (b BowType) Valid() bool {
	switch b {
	case BowRecurve, BowCompound, BowBarebow, BowLongbow:
		return true
	}
	return false
}

// TargetType is the target face size.
type TargetType string

// Target faces.
const (
	Target40 TargetType = "40"
	Target60 TargetType = "60"
)

// Valid reports whether t is a known target face.
func (t TargetType) Valid() bool {
	return t == Target40 || t == Target60
}

// Competition is one scoring event held by an organization.
type Competition struct {
	ID             int64
	OrganizationID int64
	Date           time.Time
}

// Season is a divari season window and its configuration.
type Season struct {
	ID        int64
	Name      string
	DateStart time.Time
	DateEnd   time.Time
	// ResultCount is the number of best competitions counted toward a standing.
	ResultCount int
	// StartLevels holds the division a newly created team starts in, per bow type.
	StartLevels map[BowType]int
}

// Contains reports whether d falls inside the season window, both ends inclusive.
func (s Season) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(s.DateStart)) && !d.After(Day(s.DateEnd))
}

// StartLevel returns the starting division for bow type b.
func (s Season) StartLevel(b BowType) (int, bool) {
	lvl, ok := s.StartLevels[b]
	return lvl, ok
}

// Team is the Nth best group of three of an organization and bow type within a season.
type Team struct {
	ID             int64
	OrganizationID int64
	BowType        BowType
	Number         int
	Division       int
	SeasonID       int64
}

// Key returns the identity of t.
func (t Team) Key() TeamKey {
	return TeamKey{OrganizationID: t.OrganizationID, BowType: t.BowType, Number: t.Number, SeasonID: t.SeasonID}
}

// TeamKey identifies a team: (organization, bow type, number, season).
type TeamKey struct {
	OrganizationID int64
	BowType        BowType
	Number         int
	SeasonID       int64
}

// Result is one athlete's score at a divari competition. Athlete is free text.
type Result struct {
	ID            int64
	CompetitionID int64
	BowType       BowType
	TargetType    TargetType
	Athlete       string
	Score         int
}

// TeamResult is a team's summed score at one competition.
type TeamResult struct {
	ID            int64
	CompetitionID int64
	TeamID        int64
	Score         int
}

// SeasonResult is a team's capped season total.
type SeasonResult struct {
	ID     int64
	TeamID int64
	Score  int
}

// Standing joins a season result with its team for the season table.
type Standing struct {
	Team         Team
	Organization Organization
	Score        int
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

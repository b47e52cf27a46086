package model

import "time"

// Organization is a club athletes and teams represent.
type Organization struct {
	ID           int64
	Name         string
	Abbreviation string
	// External organizations are excluded from national rankings.
	External bool
}

// Athlete is a registered archer.
type Athlete struct {
	ID           int64
	FirstName    string
	LastName     string
	Organization Organization
}

// RankedCompetition is a competition of the national results register.
type RankedCompetition struct {
	ID        int64
	Name      string
	DateStart time.Time
	DateEnd   time.Time
	// Type is the competition type abbreviation, e.g. "18m", "70m", "1440".
	Type string
	// Level is the competition level abbreviation, e.g. "SM".
	Level string
}

// RankedResult is a result of the national register with its report-relevant context.
type RankedResult struct {
	ID              int64
	CompetitionID   int64
	Athlete         Athlete
	Category        string
	CompetitionType string
	Score           int
}

// PlacedResult is a finishing position credited to an organization.
type PlacedResult struct {
	ID            int64
	CompetitionID int64
	// Organization is nil for results not credited to any organization.
	Organization *Organization
	Position     int
}

// RegisterResult is a stored result of the national register as written by
// input collaborators. Zero OrganizationID or Position means unset.
type RegisterResult struct {
	ID             int64
	CompetitionID  int64
	AthleteID      int64
	OrganizationID int64
	Category       string
	Score          int
	Position       int
}

package divari

import "errors"

// Sentinel kinds for divari recalculation errors.
var (
	// ErrMissingStartLevel means a bow type present in results has no starting
	// division on the season. The season must be fixed before recalculating.
	ErrMissingStartLevel = errors.New("season has no start level for bow type")
	ErrInvalidSeason     = errors.New("invalid season")
)

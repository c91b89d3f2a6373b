package core

import "fmt"

// Direction selects which side of a run is the source of truth.
type Direction int

const (
	// Extract copies the binary project into the folder.
	Extract Direction = iota
	// Publish copies the folder into the binary project.
	Publish
)

// String returns the string representation of the Direction
func (d Direction) String() string {
	switch d {
	case Extract:
		return "extract"
	case Publish:
		return "publish"
	default:
		return "unknown"
	}
}

// ParseDirection parses "extract" or "publish".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "extract":
		return Extract, nil
	case "publish":
		return Publish, nil
	default:
		return 0, fmt.Errorf("unknown action %q (want extract or publish)", s)
	}
}

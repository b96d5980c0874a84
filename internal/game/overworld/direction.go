package overworld

import (
	"fmt"
	"strings"
)

// Direction is a map edge.
type Direction uint8

const (
	DirNone Direction = iota
	North
	South
	East
	West
)

var directionNames = [...]string{
	DirNone: "none",
	North:   "north",
	South:   "south",
	East:    "east",
	West:    "west",
}

func (d Direction) String() string {
	if int(d) >= len(directionNames) {
		return "none"
	}
	return directionNames[d]
}

// Opposite returns the facing edge; DirNone has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		return DirNone
	}
}

// ParseDirection accepts a direction name or its first letter.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DirNone, nil
	case "north", "n":
		return North, nil
	case "south", "s":
		return South, nil
	case "east", "e":
		return East, nil
	case "west", "w":
		return West, nil
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}

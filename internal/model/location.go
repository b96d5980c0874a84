package model

import "math"

// Position is a point in overworld pixels.
// Value type, passed by value.
type Position struct {
	X float64
	Y float64
}

// NewPosition создаёт Position с указанными координатами.
func NewPosition(x, y float64) Position {
	return Position{X: x, Y: y}
}

// DistanceSquared returns the squared distance to other (no sqrt).
func (p Position) DistanceSquared(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Distance returns the euclidean distance to other.
func (p Position) Distance(other Position) float64 {
	return math.Sqrt(p.DistanceSquared(other))
}

// Within reports whether other lies inside radius (inclusive).
func (p Position) Within(other Position, radius float64) bool {
	return p.DistanceSquared(other) <= radius*radius
}

// Positioned is anything with a world position.
type Positioned interface {
	Position() Position
}

// Healable is the part of an entity that run systems may heal.
type Healable interface {
	// Heal restores up to amount HP and returns the amount actually applied.
	Heal(amount int) int
	Health() int
	MaxHealth() int
}

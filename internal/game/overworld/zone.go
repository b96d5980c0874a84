package overworld

import "github.com/udisondev/highsociety/internal/model"

// Zone is an axis-aligned boundary strip. Crossing it leaves the map
// through Dir.
type Zone struct {
	Dir                    Direction
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether p lies inside the strip (edges inclusive).
func (z Zone) Contains(p model.Position) bool {
	return p.X >= z.MinX && p.X <= z.MaxX && p.Y >= z.MinY && p.Y <= z.MaxY
}

// BoundaryZones returns the four edge strips of a width x height map,
// each pad thick. The corners belong to no strip.
func BoundaryZones(width, height, pad float64) []Zone {
	return []Zone{
		{Dir: North, MinX: pad, MinY: 0, MaxX: width - pad, MaxY: pad},
		{Dir: South, MinX: pad, MinY: height - pad, MaxX: width - pad, MaxY: height},
		{Dir: West, MinX: 0, MinY: pad, MaxX: pad, MaxY: height - pad},
		{Dir: East, MinX: width - pad, MinY: pad, MaxX: width, MaxY: height - pad},
	}
}

// ArrivalPosition places a player travelling toward entry just inside
// the opposite edge. With no entry direction the player starts centred.
func ArrivalPosition(entry Direction, width, height, inset float64) model.Position {
	pos := model.NewPosition(width/2, height/2)
	switch entry {
	case North:
		pos.Y = height - inset
	case South:
		pos.Y = inset
	case West:
		pos.X = width - inset
	case East:
		pos.X = inset
	}
	return pos
}

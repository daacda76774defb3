package gamestate

import "github.com/turretline/algo/internal/model"

// Arena dimensions. The board is a diamond inscribed in a 28x28 square;
// rows below HalfArena belong to this agent.
const (
	ArenaSize = 28
	HalfArena = ArenaSize / 2
)

// Edge names one of the four diagonal borders of the diamond.
type Edge int

const (
	TopRight Edge = iota
	TopLeft
	BottomLeft
	BottomRight
)

// InArena reports whether c lies inside the playable diamond.
func InArena(c model.Coordinate) bool {
	if c.Y < 0 || c.Y >= ArenaSize {
		return false
	}
	var rowSize int
	if c.Y < HalfArena {
		rowSize = c.Y + 1
	} else {
		rowSize = ArenaSize - c.Y
	}
	startX := HalfArena - rowSize
	endX := startX + 2*rowSize - 1
	return c.X >= startX && c.X <= endX
}

// EdgeCells lists the cells along an edge, starting at the horizontal midline
// for the top edges and at the bottom tip for the bottom edges.
func EdgeCells(e Edge) []model.Coordinate {
	cells := make([]model.Coordinate, 0, HalfArena)
	for n := 0; n < HalfArena; n++ {
		switch e {
		case TopRight:
			cells = append(cells, model.C(HalfArena+n, ArenaSize-1-n))
		case TopLeft:
			cells = append(cells, model.C(HalfArena-1-n, ArenaSize-1-n))
		case BottomLeft:
			cells = append(cells, model.C(HalfArena-1-n, n))
		case BottomRight:
			cells = append(cells, model.C(HalfArena+n, n))
		}
	}
	return cells
}

// OnFriendlyEdge reports whether c is a legal mobile spawn cell for this agent.
func OnFriendlyEdge(c model.Coordinate) bool {
	if c.Y < 0 || c.Y >= HalfArena {
		return false
	}
	return c.X == HalfArena-1-c.Y || c.X == HalfArena+c.Y
}

var cells = buildCells()

func buildCells() []model.Coordinate {
	out := make([]model.Coordinate, 0, ArenaSize*ArenaSize/2+ArenaSize)
	for y := 0; y < ArenaSize; y++ {
		for x := 0; x < ArenaSize; x++ {
			if c := model.C(x, y); InArena(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Cells returns every playable cell in row-major order. The slice is shared;
// callers must not modify it.
func Cells() []model.Coordinate {
	return cells
}

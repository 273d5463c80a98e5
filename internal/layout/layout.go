// Package layout computes where the seats of a pond are drawn.  Seat
// numbers produced here are the same numbers customers pick when booking
// and operators read off a credential, so the output must be stable for a
// given pond configuration.
package layout

import (
	"math"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// Circle geometry in percentage coordinates.
const (
	circleCenter = 50.0
	circleRadius = 40.0
)

// Position is a single rendered seat.
type Position struct {
	Number int     `json:"number"`
	Edge   string  `json:"edge"`
	Col    int     `json:"col"`
	Row    int     `json:"row"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Angle  float64 `json:"angle"`
}

// Layout is a full rendering of a pond together with its grid size.
// Width and Height are zero for circular ponds.
type Layout struct {
	Shape     model.Shape `json:"shape"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Positions []Position  `json:"positions"`
}

// Generate returns seat positions for the given shape and distribution.
// Capacity is only consulted by circular ponds whose distribution is
// empty; the number of positions is otherwise determined by the
// distribution alone.
func Generate(shape model.Shape, distribution [4]int, capacity int) []Position {
	return Build(shape, distribution, capacity).Positions
}

// Build is Generate plus the grid dimensions.
func Build(shape model.Shape, distribution [4]int, capacity int) Layout {
	if shape == model.ShapeCircle {
		n := distribution[0]
		if n <= 0 {
			n = capacity
		}
		return Layout{Shape: shape, Positions: circle(n)}
	}
	return grid(shape, distribution)
}

// ForPond renders a pond.
func ForPond(p model.Pond) Layout {
	return Build(p.Shape, p.Distribution, p.Capacity)
}

// Numbers returns the set of seat numbers a pond renders.
func Numbers(p model.Pond) map[int]struct{} {
	l := ForPond(p)
	out := make(map[int]struct{}, len(l.Positions))
	for _, pos := range l.Positions {
		out[pos.Number] = struct{}{}
	}
	return out
}

func circle(n int) []Position {
	if n <= 0 {
		return []Position{}
	}
	out := make([]Position, 0, n)
	for i := 0; i < n; i++ {
		theta := float64(i)*2*math.Pi/float64(n) - math.Pi/2
		x := circleCenter + circleRadius*math.Cos(theta)
		y := circleCenter + circleRadius*math.Sin(theta)
		// seats face the centre of the pond
		facing := math.Mod(theta*180/math.Pi+180+360, 360)
		out = append(out, Position{
			Number: i + 1,
			Edge:   "circle",
			X:      round2(x),
			Y:      round2(y),
			Angle:  round2(facing),
		})
	}
	return out
}

func grid(shape model.Shape, d [4]int) Layout {
	top, right, bottom, left := clamp(d[model.EdgeTop]), clamp(d[model.EdgeRight]), clamp(d[model.EdgeBottom]), clamp(d[model.EdgeLeft])
	w := max(top, bottom) + 2
	h := max(left, right) + 2
	out := make([]Position, 0, top+right+bottom+left)
	num := 0
	place := func(edge string, col, row int, angle float64) {
		num++
		out = append(out, Position{
			Number: num,
			Edge:   edge,
			Col:    col,
			Row:    row,
			X:      round2((float64(col) + 0.5) * 100 / float64(w)),
			Y:      round2((float64(row) + 0.5) * 100 / float64(h)),
			Angle:  angle,
		})
	}

	// Seats are spread across the inner cells of each edge; the corner
	// cells are never used.
	for i := 0; i < top; i++ {
		place("top", 1+i*(w-2)/top, 0, 90)
	}
	for i := 0; i < right; i++ {
		place("right", w-1, 1+i*(h-2)/right, 180)
	}
	for i := 0; i < bottom; i++ {
		place("bottom", (w-2)-i*(w-2)/bottom, h-1, 270)
	}
	for i := 0; i < left; i++ {
		place("left", 0, (h-2)-i*(h-2)/left, 0)
	}
	return Layout{Shape: shape, Width: w, Height: h, Positions: out}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Package geocell maps coordinates onto fixed-precision geohash cells.
// Cells are the unit of real-time group membership: a client belongs to
// exactly one cell at a time, and events fan out to a cell and its
// immediate neighbors.
package geocell

import (
	"errors"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidCoordinate
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Codec derives cells at a fixed precision. Precision 6 yields cells of
// roughly 1.2 x 0.6 km; each extra character shrinks the cell.
type Codec struct {
	precision int
}

func NewCodec(precision int) *Codec {
	return &Codec{precision: precision}
}

func (c *Codec) Precision() int {
	return c.precision
}

// Encode returns the cell containing coord. Deterministic: coordinates
// inside the same grid cell always yield the same string.
func (c *Codec) Encode(coord Coordinate) (string, error) {
	if err := coord.Validate(); err != nil {
		return "", err
	}
	return geohash.EncodeWithPrecision(coord.Lat, coord.Lng, c.precision), nil
}

// Neighbors returns the up-to-8 cells adjacent to cell, excluding cell
// itself. Near the poles the grid has no row above or below, so fewer
// cells come back; duplicates from longitude wrap are removed.
func (c *Codec) Neighbors(cell string) []string {
	if cell == "" {
		return nil
	}

	top := geohash.CalculateAdjacent(cell, "top")
	bottom := geohash.CalculateAdjacent(cell, "bottom")
	left := geohash.CalculateAdjacent(cell, "left")
	right := geohash.CalculateAdjacent(cell, "right")

	candidates := []string{
		top,
		bottom,
		left,
		right,
		adjacentOf(top, "left"),
		adjacentOf(top, "right"),
		adjacentOf(bottom, "left"),
		adjacentOf(bottom, "right"),
	}

	seen := make(map[string]struct{}, len(candidates))
	neighbors := make([]string, 0, len(candidates))
	for _, n := range candidates {
		if n == "" || n == cell {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		neighbors = append(neighbors, n)
	}
	return neighbors
}

func adjacentOf(cell, dir string) string {
	if cell == "" {
		return ""
	}
	return geohash.CalculateAdjacent(cell, dir)
}

// Package geometry provides the planar geometry types and the narrow engine
// interface the contiguity pipeline depends on. The kernel math itself only
// ever sees integer label grids, so everything spatial funnels through here.
package geometry

import "math"

// Point is a location in the input coordinate system.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is an ordered list of vertices forming a closed loop. The closing
// vertex is implicit; callers must not repeat the first point at the end.
type Ring []Point

// Polygon is a single-part polygon: one outer shell and zero or more holes.
type Polygon struct {
	Shell Ring
	Holes []Ring
}

// Extent is an axis-aligned bounding rectangle.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// SignedArea returns the shoelace area of the ring. Positive for
// counterclockwise winding, negative for clockwise.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += r[i].X * r[j].Y
		area -= r[j].X * r[i].Y
	}
	return area / 2
}

// Area returns the unsigned area of the ring.
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// Contains reports whether p is inside the ring, using the crossing-number
// (even-odd) rule. Points exactly on an edge are not guaranteed either way.
func (r Ring) Contains(p Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Extent returns the bounding box of the ring.
func (r Ring) Extent() Extent {
	if len(r) == 0 {
		return Extent{}
	}
	e := Extent{r[0].X, r[0].Y, r[0].X, r[0].Y}
	for _, p := range r[1:] {
		if p.X < e.MinX {
			e.MinX = p.X
		}
		if p.X > e.MaxX {
			e.MaxX = p.X
		}
		if p.Y < e.MinY {
			e.MinY = p.Y
		}
		if p.Y > e.MaxY {
			e.MaxY = p.Y
		}
	}
	return e
}

// centroid returns the area centroid of the ring and its signed area.
func (r Ring) centroid() (Point, float64) {
	n := len(r)
	if n == 0 {
		return Point{}, 0
	}
	a := r.SignedArea()
	if n < 3 || math.Abs(a) < 1e-12 {
		// Degenerate: vertex average.
		var sum Point
		for _, p := range r {
			sum.X += p.X
			sum.Y += p.Y
		}
		return Point{sum.X / float64(n), sum.Y / float64(n)}, 0
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := r[i].X*r[j].Y - r[j].X*r[i].Y
		cx += (r[i].X + r[j].X) * cross
		cy += (r[i].Y + r[j].Y) * cross
	}
	f := 1.0 / (6.0 * a)
	return Point{cx * f, cy * f}, a
}

// IsEmpty reports whether the polygon has no usable shell.
func (p Polygon) IsEmpty() bool {
	return len(p.Shell) < 3
}

// Area returns the polygon area: shell area minus hole areas.
func (p Polygon) Area() float64 {
	a := p.Shell.Area()
	for _, h := range p.Holes {
		a -= h.Area()
	}
	if a < 0 {
		return 0
	}
	return a
}

// Centroid returns the area-weighted centroid, accounting for holes.
func (p Polygon) Centroid() Point {
	c, a := p.Shell.centroid()
	if a == 0 {
		return c
	}
	sa := math.Abs(a)
	wx, wy, wa := c.X*sa, c.Y*sa, sa
	for _, h := range p.Holes {
		hc, ha := h.centroid()
		if ha == 0 {
			continue
		}
		hs := math.Abs(ha)
		wx -= hc.X * hs
		wy -= hc.Y * hs
		wa -= hs
	}
	if wa <= 0 {
		return c
	}
	return Point{wx / wa, wy / wa}
}

// Contains reports whether pt is inside the polygon (inside the shell and
// outside every hole).
func (p Polygon) Contains(pt Point) bool {
	if !p.Shell.Contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}

// Extent returns the bounding box of the polygon shell.
func (p Polygon) Extent() Extent {
	return p.Shell.Extent()
}

// Width returns the horizontal span of the extent.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the vertical span of the extent.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Union returns the smallest extent covering both e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// Intersects reports whether two extents overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.MinX <= o.MaxX && o.MinX <= e.MaxX &&
		e.MinY <= o.MaxY && o.MinY <= e.MaxY
}

// Contains reports whether the point lies inside the extent. Membership is
// half-open on the max edges so adjacent extents tile without overlap.
func (e Extent) Contains(p Point) bool {
	return p.X >= e.MinX && p.X < e.MaxX && p.Y >= e.MinY && p.Y < e.MaxY
}

// Package distfield implements a voxelized 3D Euclidean distance
// transform (DT3D): a dense grid of chamfer-approximated distances to
// the nearest point of a seed cloud, giving O(1) approximate
// nearest-distance queries for arbitrary world-space points.
package distfield

import "math"

// Infty is the "unreachable" sentinel used for both the integer chamfer
// components and the floating distance before a cell has been reached
// by the propagation. Kept as the literal value used by the reference
// implementation so behavior matches for grids up to ~18000 voxels/axis.
const Infty = 32767

// DTCell is a single voxel of the distance grid. V, H and D are the
// axis-aligned chamfer offsets (in voxel units) to the nearest seed
// along each axis; Distance is their Euclidean magnitude and is the
// only field queried from outside this package.
type DTCell struct {
	V, H, D  int
	Distance float64
}

// Grid3D is a dense cubical array of SIZE voxels on a side, backed by a
// single flat slice with stride-based (z,y,x) indexing for cache
// locality, matching the layout convention used throughout this module.
type Grid3D struct {
	size int
	data []DTCell
}

// NewGrid3D allocates a size x size x size grid.
func NewGrid3D(size int) *Grid3D {
	return &Grid3D{size: size, data: make([]DTCell, size*size*size)}
}

// Size returns the grid's side length.
func (g *Grid3D) Size() int { return g.size }

func (g *Grid3D) index(z, y, x int) int {
	return (z*g.size+y)*g.size + x
}

// At returns the cell at (z,y,x). Behavior is undefined if the
// coordinates are out of [0,size).
func (g *Grid3D) At(z, y, x int) DTCell {
	return g.data[g.index(z, y, x)]
}

// Set writes the cell at (z,y,x).
func (g *Grid3D) Set(z, y, x int, c DTCell) {
	g.data[g.index(z, y, x)] = c
}

// DistanceTransform3D holds the voxel grid and the world<->voxel mapping
// computed for the seed cloud it was last built from.
type DistanceTransform3D struct {
	Grid                               *Grid3D
	XMin, XMax, YMin, YMax, ZMin, ZMax float64
	Scale                              float64 // voxels per world unit
	ExpandFactor                       float64
	Size                               int
}

// New creates a DistanceTransform3D with the given grid side and bbox
// padding factor. Call Build to populate it.
func New(size int, expandFactor float64) *DistanceTransform3D {
	return &DistanceTransform3D{Size: size, ExpandFactor: expandFactor}
}

// Build voxelizes the model cloud (xs,ys,zs, n points) and computes the
// chamfer-approximated Euclidean distance transform. With n==0 every
// cell remains at Infty: every in-bounds Distance query returns
// Infty/scale and out-of-bounds queries return more.
func (dt *DistanceTransform3D) Build(xs, ys, zs []float64, n int) {
	dt.computeBounds(xs, ys, zs, n)
	dt.Scale = float64(dt.Size) / (dt.XMax - dt.XMin)

	dt.Grid = NewGrid3D(dt.Size)
	for i := range dt.Grid.data {
		dt.Grid.data[i] = DTCell{V: Infty, H: Infty, D: Infty, Distance: Infty}
	}

	for i := 0; i < n; i++ {
		x := round((xs[i] - dt.XMin) * dt.Scale)
		y := round((ys[i] - dt.YMin) * dt.Scale)
		z := round((zs[i] - dt.ZMin) * dt.Scale)
		if x < 0 || x >= dt.Size || y < 0 || y >= dt.Size || z < 0 || z >= dt.Size {
			continue
		}
		dt.Grid.Set(z, y, x, DTCell{V: 0, H: 0, D: 0, Distance: 0})
	}

	propagate(dt.Grid)

	for i := range dt.Grid.data {
		d := dt.Grid.data[i].Distance / dt.Scale
		if d < 0 {
			d = 0
		}
		dt.Grid.data[i].Distance = d
	}
}

func (dt *DistanceTransform3D) computeBounds(xs, ys, zs []float64, n int) {
	if n == 0 {
		// No seeds to bound; fall back to a fixed unit cube so Scale stays
		// finite and every cell rescales to Infty/scale, per this package's
		// documented n==0 behavior.
		dt.XMin, dt.XMax = -0.5, 0.5
		dt.YMin, dt.YMax = -0.5, 0.5
		dt.ZMin, dt.ZMax = -0.5, 0.5
		return
	}

	xMin, xMax := xs[0], xs[0]
	yMin, yMax := ys[0], ys[0]
	zMin, zMax := zs[0], zs[0]
	for i := 1; i < n; i++ {
		xMin, xMax = minf(xMin, xs[i]), maxf(xMax, xs[i])
		yMin, yMax = minf(yMin, ys[i]), maxf(yMax, ys[i])
		zMin, zMax = minf(zMin, zs[i]), maxf(zMax, zs[i])
	}

	xc, yc, zc := (xMin+xMax)/2, (yMin+yMax)/2, (zMin+zMax)/2
	xMin, xMax = xc-dt.ExpandFactor*(xMax-xc), xc+dt.ExpandFactor*(xMax-xc)
	yMin, yMax = yc-dt.ExpandFactor*(yMax-yc), yc+dt.ExpandFactor*(yMax-yc)
	zMin, zMax = zc-dt.ExpandFactor*(zMax-zc), zc+dt.ExpandFactor*(zMax-zc)

	side := maxf(maxf(xMax-xMin, yMax-yMin), zMax-zMin)
	if side == 0 {
		// Every seed coincides; use a unit side so Scale stays finite.
		side = 1
	}

	dt.XMin, dt.XMax = xc-side/2, xc+side/2
	dt.YMin, dt.YMax = yc-side/2, yc+side/2
	dt.ZMin, dt.ZMax = zc-side/2, zc+side/2
}

// Distance returns the approximate nearest-seed distance at (x,y,z). For
// in-bounds voxels this is the stored chamfer distance directly; for
// out-of-bounds queries it clamps to the nearest face/edge/corner voxel
// and adds the world-scale straight-line distance to that voxel's
// center, yielding a conservative (over-estimating) bound.
func (dt *DistanceTransform3D) Distance(x, y, z float64) float64 {
	xi := round((x - dt.XMin) * dt.Scale)
	yi := round((y - dt.YMin) * dt.Scale)
	zi := round((z - dt.ZMin) * dt.Scale)

	size := dt.Size
	if xi > -1 && xi < size && yi > -1 && yi < size && zi > -1 && zi < size {
		return dt.Grid.At(zi, yi, xi).Distance
	}

	var a, b, c float64
	a, xi = clampAxis(xi, size)
	b, yi = clampAxis(yi, size)
	c, zi = clampAxis(zi, size)

	return math.Sqrt(a*a+b*b+c*c)/dt.Scale + dt.Grid.At(zi, yi, xi).Distance
}

func clampAxis(i, size int) (offset float64, clamped int) {
	if i < 0 {
		return float64(i), 0
	}
	if i >= size {
		return float64(i - size + 1), size - 1
	}
	return 0, i
}

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

package distfield

import "math"

// forwardMask and backwardMask are the 13+13 neighbor offsets of full
// 26-connectivity, split by raster order: forwardMask holds every
// neighbor that precedes the current voxel when scanning z,y,x in
// ascending order, backwardMask its point-symmetric complement. Two
// raster sweeps using these masks propagate the seeded zero-distance
// voxels outward, approximating the true Euclidean distance transform
// with integer per-axis chamfer offsets.
var forwardMask = [13][3]int{
	{0, 0, -1},
	{0, -1, -1}, {0, -1, 0}, {0, -1, 1},
	{-1, -1, -1}, {-1, -1, 0}, {-1, -1, 1},
	{-1, 0, -1}, {-1, 0, 0}, {-1, 0, 1},
	{-1, 1, -1}, {-1, 1, 0}, {-1, 1, 1},
}

var backwardMask = [13][3]int{
	{0, 0, 1},
	{0, 1, 1}, {0, 1, 0}, {0, 1, -1},
	{1, 1, 1}, {1, 1, 0}, {1, 1, -1},
	{1, 0, 1}, {1, 0, 0}, {1, 0, -1},
	{1, -1, 1}, {1, -1, 0}, {1, -1, -1},
}

// propagate runs the two-sweep chamfer propagation over g in place.
func propagate(g *Grid3D) {
	size := g.size

	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				relax(g, z, y, x, forwardMask[:])
			}
		}
	}

	for z := size - 1; z >= 0; z-- {
		for y := size - 1; y >= 0; y-- {
			for x := size - 1; x >= 0; x-- {
				relax(g, z, y, x, backwardMask[:])
			}
		}
	}
}

// relax updates the cell at (z,y,x) against each of its neighbors named
// by mask, keeping whichever candidate (current or neighbor-derived)
// has the smallest Euclidean magnitude.
func relax(g *Grid3D, z, y, x int, mask [][3]int) {
	size := g.size
	best := g.At(z, y, x)

	for _, off := range mask {
		nz, ny, nx := z+off[0], y+off[1], x+off[2]
		if nz < 0 || nz >= size || ny < 0 || ny >= size || nx < 0 || nx >= size {
			continue
		}
		n := g.At(nz, ny, nx)
		if n.Distance >= Infty {
			continue
		}

		dv, dh, dd := n.V, n.H, n.D
		if off[1] != 0 {
			dv++
		}
		if off[2] != 0 {
			dh++
		}
		if off[0] != 0 {
			dd++
		}

		dist := sqrtInt(dv, dh, dd)
		if dist < best.Distance {
			best = DTCell{V: dv, H: dh, D: dd, Distance: dist}
		}
	}

	g.Set(z, y, x, best)
}

func sqrtInt(v, h, d int) float64 {
	return math.Sqrt(float64(v*v + h*h + d*d))
}

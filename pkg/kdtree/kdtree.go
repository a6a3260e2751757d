// Package kdtree provides exact nearest-neighbor queries over the model
// cloud, used by the local ICP refinement step at promising
// branch-and-bound nodes.
package kdtree

import gokd "gonum.org/v1/gonum/spatial/kdtree"

// Tree is a static k-d tree over a fixed set of 3D points, queried by
// squared Euclidean distance.
type Tree struct {
	tree *gokd.Tree
	n    int
}

// Build constructs a k-d tree over pts. Each node of gonum's tree holds
// a single point; the true argument makes it record a bounding box for
// every node.
func Build(pts [][3]float64) *Tree {
	gp := make(gokd.Points, len(pts))
	for i, p := range pts {
		gp[i] = gokd.Point{p[0], p[1], p[2]}
	}
	return &Tree{tree: gokd.New(gp, true), n: len(pts)}
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return t.n }

// Nearest returns the closest point to q and the squared Euclidean
// distance to it. Behavior is undefined if the tree is empty.
func (t *Tree) Nearest(q [3]float64) (point [3]float64, sqDist float64) {
	c, d := t.tree.Nearest(gokd.Point{q[0], q[1], q[2]})
	p := c.(gokd.Point)
	return [3]float64{p[0], p[1], p[2]}, d
}

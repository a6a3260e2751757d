// Package icp implements local iterative closest point refinement used
// by the branch-and-bound search to tighten its incumbent upper bound
// at promising rotation/translation nodes.
package icp

import (
	"sort"

	"github.com/anirudhpillai/goicp/pkg/kdtree"
	"github.com/anirudhpillai/goicp/pkg/matrixkernel"
)

// ICP3D holds the model k-d tree that data points are registered
// against. Build once per model cloud, then call Run repeatedly for
// different starting (R,t).
type ICP3D struct {
	tree *kdtree.Tree
	n    int
}

// Build constructs the k-d tree over the model point cloud.
func Build(model [][3]float64) *ICP3D {
	return &ICP3D{tree: kdtree.Build(model), n: len(model)}
}

// correspondence is one data-to-model match from a single iteration.
type correspondence struct {
	data   [3]float64
	model  [3]float64
	sqDist float64
}

// Options configures a Run call. TrimFraction of 0 disables trimming
// (all n correspondences are kept).
type Options struct {
	MaxIter      int
	ErrDiff      float64
	TrimFraction float64
}

// DefaultOptions mirrors the reference implementation's defaults.
func DefaultOptions() Options {
	return Options{MaxIter: 10, ErrDiff: 0.001, TrimFraction: 0}
}

// Run refines (R,t) in place to reduce the sum of squared residuals
// between the transformed data cloud and its nearest-neighbor
// correspondences in the model. Each iteration transforms the data,
// finds nearest model points, optionally keeps only the closest
// correspondences, and applies the SVD-based rigid alignment of the kept
// pairs; it stops when the error drops by less than ErrDiff per kept
// point or after MaxIter iterations. The centroids are divided by the
// total cloud size n, not by the kept count, even when trimming.
// Returns the final (possibly trimmed) squared error.
func (icp *ICP3D) Run(data [][3]float64, R *[3][3]float64, t *[3]float64, opt Options) float64 {
	n := len(data)
	num := n
	if opt.TrimFraction > 0 {
		num = int(round(float64(n) * (1 - opt.TrimFraction)))
		if num < 1 {
			num = 1
		}
		if num > n {
			num = n
		}
	}

	hasPrevErr := false
	var prevErr float64

	corrs := make([]correspondence, n)

	for iter := 0; iter < opt.MaxIter; iter++ {
		for i, d := range data {
			tx := applyRigid(*R, *t, d)
			mp, sq := icp.tree.Nearest(tx)
			corrs[i] = correspondence{data: d, model: mp, sqDist: sq}
		}

		if opt.TrimFraction > 0 {
			sort.Slice(corrs, func(i, j int) bool { return corrs[i].sqDist < corrs[j].sqDist })
		}

		var errNew float64
		for i := 0; i < num; i++ {
			errNew += corrs[i].sqDist
		}

		if hasPrevErr && prevErr-errNew < opt.ErrDiff*float64(num) {
			return errNew
		}
		hasPrevErr = true
		prevErr = errNew

		var muD, muM [3]float64
		for i := 0; i < num; i++ {
			muD[0] += corrs[i].data[0]
			muD[1] += corrs[i].data[1]
			muD[2] += corrs[i].data[2]
			muM[0] += corrs[i].model[0]
			muM[1] += corrs[i].model[1]
			muM[2] += corrs[i].model[2]
		}
		// Normalized by the total cloud size n, matching the reference
		// implementation, not by the kept count num.
		for k := 0; k < 3; k++ {
			muD[k] /= float64(n)
			muM[k] /= float64(n)
		}

		qd := matrixkernel.New(num, 3, nil)
		qm := matrixkernel.New(num, 3, nil)
		for i := 0; i < num; i++ {
			qd.Set(i, 0, corrs[i].data[0]-muD[0])
			qd.Set(i, 1, corrs[i].data[1]-muD[1])
			qd.Set(i, 2, corrs[i].data[2]-muD[2])
			qm.Set(i, 0, corrs[i].model[0]-muM[0])
			qm.Set(i, 1, corrs[i].model[1]-muM[1])
			qm.Set(i, 2, corrs[i].model[2]-muM[2])
		}

		h := matrixkernel.Mul(matrixkernel.Transpose(qd), qm)
		rHat, ok := matrixkernel.AlignRigid(h)
		if !ok {
			return errNew
		}

		var rHatArr [3][3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rHatArr[i][j] = rHat.At(i, j)
			}
		}

		var tHat [3]float64
		rHatMuD := mulMatVec(rHatArr, muD)
		for k := 0; k < 3; k++ {
			tHat[k] = muM[k] - rHatMuD[k]
		}

		newR := mulMat(rHatArr, *R)
		newT := addVec(mulMatVec(rHatArr, *t), tHat)
		*R = newR
		*t = newT

		if iter == opt.MaxIter-1 {
			return errNew
		}
	}
	return prevErr
}

func round(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return -float64(int(-v + 0.5))
}

func applyRigid(R [3][3]float64, t [3]float64, p [3]float64) [3]float64 {
	v := mulMatVec(R, p)
	return [3]float64{v[0] + t[0], v[1] + t[1], v[2] + t[2]}
}

func mulMatVec(R [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		R[0][0]*v[0] + R[0][1]*v[1] + R[0][2]*v[2],
		R[1][0]*v[0] + R[1][1]*v[1] + R[1][2]*v[2],
		R[2][0]*v[0] + R[2][1]*v[1] + R[2][2]*v[2],
	}
}

func addVec(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func mulMat(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

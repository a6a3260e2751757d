// Package matrixkernel provides the small set of dense-matrix
// operations the registration pipeline needs: construction, the usual
// arithmetic, transposition, and SVD-based rigid alignment with
// handedness correction. It is a thin, registration-flavored shell over
// gonum's linear algebra rather than a hand-rolled numerical kernel.
package matrixkernel

import "gonum.org/v1/gonum/mat"

// Matrix is the dense matrix type used throughout the pipeline. It is
// an alias for gonum's dense matrix so callers can reach the rest of
// the gonum/mat API (e.g. row/col views) without a wrapper layer.
type Matrix = mat.Dense

// New builds an r x c matrix from row-major data. A nil data allocates
// a zeroed matrix.
func New(r, c int, data []float64) *Matrix {
	return mat.NewDense(r, c, data)
}

// Eye returns the n x n identity matrix.
func Eye(n int) *Matrix {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Ones returns an r x c matrix of all ones.
func Ones(r, c int) *Matrix {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, 1)
		}
	}
	return m
}

// Add returns a + b.
func Add(a, b *Matrix) *Matrix {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

// Sub returns a - b.
func Sub(a, b *Matrix) *Matrix {
	var out mat.Dense
	out.Sub(a, b)
	return &out
}

// Mul returns a * b.
func Mul(a, b *Matrix) *Matrix {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// Scale returns s * a.
func Scale(s float64, a *Matrix) *Matrix {
	var out mat.Dense
	out.Scale(s, a)
	return &out
}

// Transpose returns aᵀ as a new matrix (not a view).
func Transpose(a *Matrix) *Matrix {
	r, c := a.Dims()
	out := mat.NewDense(c, r, nil)
	out.Copy(a.T())
	return out
}

// SVD factors a as U * diag(w) * Vᵀ using full factors. ok is
// false if the decomposition failed to converge.
func SVD(a *Matrix) (u, v *Matrix, w []float64, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, nil, nil, false
	}

	var uu, vv mat.Dense
	svd.UTo(&uu)
	svd.VTo(&vv)
	return &uu, &vv, svd.Values(nil), true
}

// AlignRigid computes the rotation that best aligns two centered point
// sets given their cross-covariance H = q_dᵀ·q_m (q_d, q_m both n x 3,
// centered about their respective centroids). It follows the
// SVD(H)=U·W·Vᵀ, R̂ = V·Uᵀ sequence, correcting handedness by rebuilding
// R̂ from V·diag(1,1,det(V·Uᵀ))·Uᵀ so the result is always a proper
// rotation even when H is singular or reflective.
func AlignRigid(h *Matrix) (r *Matrix, ok bool) {
	u, v, _, ok := SVD(h)
	if !ok {
		return nil, false
	}

	uT := Transpose(u)
	vuT := Mul(v, uT)
	d := Det3(vuT)

	corr := Eye(3)
	corr.Set(2, 2, d)

	r = Mul(Mul(v, corr), uT)
	return r, true
}

// Det3 returns the determinant of a 3x3 matrix.
func Det3(m *Matrix) float64 {
	a, b, c := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	d, e, f := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	g, h, i := m.At(2, 0), m.At(2, 1), m.At(2, 2)
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

package icp

import (
	"math"
	"math/rand"
	"testing"
)

func identity() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func rotZ(theta float64) [3][3]float64 {
	c, s := math.Cos(theta), math.Sin(theta)
	return [3][3]float64{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

func TestRunConvergesOnIdentity(t *testing.T) {
	model := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	data := append([][3]float64(nil), model...)

	icp := Build(model)
	R := identity()
	tr := [3]float64{0, 0, 0}

	err := icp.Run(data, &R, &tr, DefaultOptions())
	if err > 1e-9 {
		t.Errorf("expected near-zero error on exact match, got %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !almostEqual(R[i][j], want, 1e-6) {
				t.Errorf("R[%d][%d] = %v, want %v", i, j, R[i][j], want)
			}
		}
	}
}

func TestRunRecoversTranslation(t *testing.T) {
	model := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {2, 1, 0}, {1, 2, 3}}
	shift := [3]float64{0.5, -0.3, 0.2}
	data := make([][3]float64, len(model))
	for i, p := range model {
		data[i] = [3]float64{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]}
	}

	icp := Build(model)
	R := identity()
	tr := [3]float64{0, 0, 0}

	opt := DefaultOptions()
	opt.MaxIter = 20
	icp.Run(data, &R, &tr, opt)

	for k := 0; k < 3; k++ {
		if !almostEqual(tr[k], -shift[k], 1e-3) {
			t.Errorf("t[%d] = %v, want %v", k, tr[k], -shift[k])
		}
	}
}

func TestRunRecoversRotation(t *testing.T) {
	model := [][3]float64{
		{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0},
		{1, 1, 0}, {-1, -1, 0}, {0, 0, 1},
	}
	rz := rotZ(math.Pi / 8)
	data := make([][3]float64, len(model))
	for i, p := range model {
		data[i] = mulMatVec(rz, p)
	}

	icp := Build(model)
	R := identity()
	tr := [3]float64{0, 0, 0}

	opt := DefaultOptions()
	opt.MaxIter = 30
	err := icp.Run(data, &R, &tr, opt)

	if err > 1e-4 {
		t.Errorf("expected small residual error after convergence, got %v", err)
	}
}

func TestRunWithTrimmingIgnoresOutliers(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	model := make([][3]float64, 40)
	for i := range model {
		model[i] = [3]float64{float64(i), math.Sin(float64(i)), math.Cos(float64(i))}
	}
	data := append([][3]float64(nil), model...)
	// Replace a few points with far outliers.
	for _, idx := range []int{3, 10, 25} {
		data[idx] = [3]float64{r.Float64()*100 + 500, r.Float64() * 100, r.Float64() * 100}
	}

	icp := Build(model)
	R := identity()
	tr := [3]float64{0, 0, 0}

	opt := DefaultOptions()
	opt.MaxIter = 15
	opt.TrimFraction = 0.2
	err := icp.Run(data, &R, &tr, opt)

	if err > 1.0 {
		t.Errorf("expected trimmed error to stay small despite outliers, got %v", err)
	}
}

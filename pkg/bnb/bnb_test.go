package bnb

import (
	"math"
	"testing"
)

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

func apply(R [3][3]float64, t [3]float64, p [3]float64) [3]float64 {
	return [3]float64{
		R[0][0]*p[0] + R[0][1]*p[1] + R[0][2]*p[2] + t[0],
		R[1][0]*p[0] + R[1][1]*p[1] + R[1][2]*p[2] + t[1],
		R[2][0]*p[0] + R[2][1]*p[1] + R[2][2]*p[2] + t[2],
	}
}

func baseParams() Params {
	return Params{
		MSEThresh:  1e-5,
		RotMin:     [3]float64{-math.Pi, -math.Pi, -math.Pi},
		RotWidth:   2 * math.Pi,
		TransMin:   [3]float64{-0.5, -0.5, -0.5},
		TransWidth: 1.0,
	}
}

func TestRegisterIdentity(t *testing.T) {
	model := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	data := append([][3]float64(nil), model...)

	g := New(model, data, baseParams(), 50, 2.0)
	res := g.Register()

	if res.Error > 4*baseParams().MSEThresh {
		t.Errorf("optError too large: %v", res.Error)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !almostEqual(res.R[i][j], want, 1e-2) {
				t.Errorf("R[%d][%d] = %v, want ~%v", i, j, res.R[i][j], want)
			}
		}
	}
	for k := 0; k < 3; k++ {
		if !almostEqual(res.T[k], 0, 1e-2) {
			t.Errorf("T[%d] = %v, want ~0", k, res.T[k])
		}
	}
}

func TestRegisterPureTranslation(t *testing.T) {
	model := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	shift := [3]float64{0.2, -0.1, 0.05}
	data := make([][3]float64, len(model))
	for i, p := range model {
		data[i] = [3]float64{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]}
	}

	g := New(model, data, baseParams(), 50, 2.0)
	res := g.Register()

	for k := 0; k < 3; k++ {
		if !almostEqual(res.T[k], shift[k], 5e-2) {
			t.Errorf("T[%d] = %v, want ~%v", k, res.T[k], shift[k])
		}
	}
}

func TestRegisterPureRotation(t *testing.T) {
	model := [][3]float64{
		{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0}, {0, 0, 1},
	}
	rz := rotZ(math.Pi / 2)
	data := make([][3]float64, len(model))
	for i, p := range model {
		data[i] = apply(rz, [3]float64{0, 0, 0}, p)
	}

	g := New(model, data, baseParams(), 50, 2.0)
	res := g.Register()

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEqual(res.R[i][j], rz[i][j], 5e-2) {
				t.Errorf("R[%d][%d] = %v, want %v", i, j, res.R[i][j], rz[i][j])
			}
		}
	}
}

func TestRegisterWithTrimmingIgnoresOutliers(t *testing.T) {
	model := [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	}
	shift := [3]float64{0.1, 0.1, 0.1}
	data := make([][3]float64, len(model))
	for i, p := range model {
		data[i] = [3]float64{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]}
	}
	// Corrupt one point with a far outlier.
	data[0] = [3]float64{50, 50, 50}

	params := baseParams()
	params.TrimFraction = 0.2

	g := New(model, data, params, 50, 2.0)
	res := g.Register()

	if res.Error > params.MSEThresh*float64(g.inlierNum)+1e-2 {
		t.Errorf("trimmed error too large: %v (inlierNum=%d)", res.Error, g.inlierNum)
	}
}

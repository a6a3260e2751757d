package distfield

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

func TestBuildSeedsAreZero(t *testing.T) {
	xs := []float64{0, 1, -1}
	ys := []float64{0, 1, -1}
	zs := []float64{0, 1, -1}

	dt := New(50, 2.0)
	dt.Build(xs, ys, zs, len(xs))

	for i := range xs {
		d := dt.Distance(xs[i], ys[i], zs[i])
		if d > 1.0/dt.Scale*2 {
			t.Errorf("seed %d: expected near-zero distance, got %v (scale=%v)", i, d, dt.Scale)
		}
	}
}

func TestDistanceMonotonicFromSeed(t *testing.T) {
	xs := []float64{0}
	ys := []float64{0}
	zs := []float64{0}

	dt := New(64, 2.0)
	dt.Build(xs, ys, zs, 1)

	near := dt.Distance(0.1, 0, 0)
	far := dt.Distance(2.0, 0, 0)
	if !(near < far) {
		t.Errorf("expected distance to grow with true distance from seed: near=%v far=%v", near, far)
	}
}

func TestDistanceApproximatesEuclidean(t *testing.T) {
	xs := []float64{0}
	ys := []float64{0}
	zs := []float64{0}

	dt := New(128, 3.0)
	dt.Build(xs, ys, zs, 1)

	qx, qy, qz := 1.0, 1.0, 0.0
	want := math.Sqrt(qx*qx + qy*qy + qz*qz)
	got := dt.Distance(qx, qy, qz)

	voxel := 1.0 / dt.Scale
	if !almostEqual(got, want, voxel*4) {
		t.Errorf("Distance(%v,%v,%v) = %v, want ~%v (voxel=%v)", qx, qy, qz, got, want, voxel)
	}
}

func TestDistanceOutOfBoundsIsConservative(t *testing.T) {
	xs := []float64{0}
	ys := []float64{0}
	zs := []float64{0}

	dt := New(16, 1.2)
	dt.Build(xs, ys, zs, 1)

	far := dt.Distance(1000, 1000, 1000)
	inBoundsFar := dt.Distance(dt.XMax-0.01, dt.YMax-0.01, dt.ZMax-0.01)
	if !(far >= inBoundsFar) {
		t.Errorf("expected far out-of-bounds query to return distance >= in-bounds extreme, got far=%v inBounds=%v", far, inBoundsFar)
	}
}

func TestBuildEmptyCloudStaysInfinite(t *testing.T) {
	dt := New(8, 2.0)
	dt.Build(nil, nil, nil, 0)
	if dt.Grid == nil {
		t.Fatal("expected grid to be allocated")
	}

	want := Infty / dt.Scale
	if got := dt.Distance(0, 0, 0); !almostEqual(got, want, 1e-9) {
		t.Errorf("Distance on empty build = %v, want Infty/scale = %v", got, want)
	}
	if got := dt.Distance(1000, 1000, 1000); got < want {
		t.Errorf("out-of-bounds Distance on empty build = %v, want >= Infty/scale = %v", got, want)
	}
}

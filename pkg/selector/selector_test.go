package selector

import (
	"math/rand"
	"sort"
	"testing"
)

func checkPartition(t *testing.T, a []float64, lo, hi, k int) {
	t.Helper()
	for i := lo; i < k; i++ {
		if a[i] > a[k] {
			t.Fatalf("a[%d]=%v > a[k]=%v (k=%d)", i, a[i], a[k], k)
		}
	}
	for i := k + 1; i <= hi; i++ {
		if a[i] < a[k] {
			t.Fatalf("a[%d]=%v < a[k]=%v (k=%d)", i, a[i], a[k], k)
		}
	}
}

func multisetEqual(t *testing.T, got, want []float64) {
	t.Helper()
	g := append([]float64(nil), got...)
	w := append([]float64(nil), want...)
	sort.Float64s(g)
	sort.Float64s(w)
	if len(g) != len(w) {
		t.Fatalf("length mismatch: %d vs %d", len(g), len(w))
	}
	for i := range g {
		if g[i] != w[i] {
			t.Fatalf("multiset mismatch at %d: %v vs %v", i, g[i], w[i])
		}
	}
}

func TestSelectSmall(t *testing.T) {
	a := []float64{5, 3, 1, 4, 2}
	orig := append([]float64(nil), a...)
	Select(a, 0, len(a)-1, 2)
	checkPartition(t, a, 0, len(a)-1, 2)
	multisetEqual(t, a, orig)
	if a[2] != 3 {
		t.Errorf("expected median 3 at k=2, got %v", a[2])
	}
}

func TestSelectAllEqual(t *testing.T) {
	a := make([]float64, 50)
	for i := range a {
		a[i] = 7
	}
	Select(a, 0, len(a)-1, 20)
	checkPartition(t, a, 0, len(a)-1, 20)
}

func TestSelectSortedAndReverse(t *testing.T) {
	n := 500
	sorted := make([]float64, n)
	for i := range sorted {
		sorted[i] = float64(i)
	}
	rev := make([]float64, n)
	for i := range rev {
		rev[i] = float64(n - i)
	}

	for _, base := range [][]float64{sorted, rev} {
		for _, k := range []int{0, 1, n / 2, n - 2, n - 1} {
			a := append([]float64(nil), base...)
			Select(a, 0, n-1, k)
			checkPartition(t, a, 0, n-1, k)
			multisetEqual(t, a, base)
		}
	}
}

func TestSelectStressRandomK(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := 1 + r.Intn(300)
		a := make([]float64, n)
		for i := range a {
			a[i] = r.Float64() * 1000
		}
		orig := append([]float64(nil), a...)
		k := r.Intn(n)
		Select(a, 0, n-1, k)
		checkPartition(t, a, 0, n-1, k)
		multisetEqual(t, a, orig)
	}
}

func TestSelectStressLarge(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	n := 10000
	a := make([]float64, n)
	for i := range a {
		a[i] = r.Float64()
	}
	orig := append([]float64(nil), a...)
	for _, k := range []int{0, 1, n / 4, n / 2, n - 1} {
		b := append([]float64(nil), a...)
		Select(b, 0, n-1, k)
		checkPartition(t, b, 0, n-1, k)
		multisetEqual(t, b, orig)
	}
}

func TestSelectSingleElementRange(t *testing.T) {
	a := []float64{42}
	Select(a, 0, 0, 0)
	if a[0] != 42 {
		t.Errorf("expected 42, got %v", a[0])
	}
}

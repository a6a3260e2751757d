package registration

import (
	"testing"

	"github.com/anirudhpillai/goicp/internal/goicpconfig"
	"github.com/anirudhpillai/goicp/pkg/pointcloud"
)

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestRegisterIdentity(t *testing.T) {
	model := []pointcloud.Point3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	data := append([]pointcloud.Point3(nil), model...)

	cfg := goicpconfig.Default()
	cfg.BnB.MSEThresh = 1e-5

	res := Register(model, data, cfg, Options{})

	if res.Error > 4*cfg.BnB.MSEThresh {
		t.Errorf("Error = %v, too large for identity case", res.Error)
	}
	for k := 0; k < 3; k++ {
		if !almostEqual(res.T[k], 0, 1e-2) {
			t.Errorf("T[%d] = %v, want ~0", k, res.T[k])
		}
	}
}

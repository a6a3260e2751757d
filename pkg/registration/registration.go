// Package registration is the top-level entry point for a single
// model/data registration run: it owns translating the point clouds and
// typed configuration into a bnb.GoICP search and back into a result.
package registration

import (
	"github.com/anirudhpillai/goicp/internal/goicpconfig"
	"github.com/anirudhpillai/goicp/internal/obs"
	"github.com/anirudhpillai/goicp/pkg/bnb"
	"github.com/anirudhpillai/goicp/pkg/pointcloud"
)

// Result is the outcome of a registration run, ready to be written out
// via pointcloud.WriteResult once an elapsed time is attached.
type Result struct {
	R     [3][3]float64
	T     [3]float64
	Error float64
}

// Options carries the optional observability hooks for a run. Both
// fields may be left nil.
type Options struct {
	Log     *obs.Logger
	Metrics *obs.Metrics
}

// Register builds the model distance transform and k-d tree and runs
// the nested branch-and-bound search to completion, mirroring the
// reference BuildDT + Initialize + OuterBnB call sequence.
func Register(model, data []pointcloud.Point3, cfg *goicpconfig.Config, opt Options) Result {
	modelPts := toPoints(model)
	dataPts := toPoints(data)

	params := bnb.Params{
		MSEThresh:    cfg.BnB.MSEThresh,
		RotMin:       [3]float64{cfg.BnB.RotMinX, cfg.BnB.RotMinY, cfg.BnB.RotMinZ},
		RotWidth:     cfg.BnB.RotWidth,
		TransMin:     [3]float64{cfg.BnB.TransMinX, cfg.BnB.TransMinY, cfg.BnB.TransMinZ},
		TransWidth:   cfg.BnB.TransWidth,
		TrimFraction: cfg.BnB.TrimFraction,
	}

	search := bnb.New(modelPts, dataPts, params, cfg.DistTrans.Size, cfg.DistTrans.ExpandFactor)
	search.SetObservability(opt.Log, opt.Metrics)

	res := search.Register()
	return Result{R: res.R, T: res.T, Error: res.Error}
}

func toPoints(pts []pointcloud.Point3) [][3]float64 {
	out := make([][3]float64, len(pts))
	for i, p := range pts {
		out[i] = [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}
	}
	return out
}

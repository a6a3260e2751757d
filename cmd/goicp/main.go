// Command goicp registers a data point cloud against a model point
// cloud and writes the recovered rigid transform to an output file.
//
// Usage:
//
//	goicp [model-file] [data-file] [Nd-downsampled] [config-file] [output-file]
//
// Every positional argument is optional; missing ones fall back to
// model.txt, data.txt, 0, config.txt, output.txt respectively.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/anirudhpillai/goicp/internal/goicpconfig"
	"github.com/anirudhpillai/goicp/internal/obs"
	"github.com/anirudhpillai/goicp/pkg/pointcloud"
	"github.com/anirudhpillai/goicp/pkg/registration"
)

const (
	defaultModelFile  = "model.txt"
	defaultDataFile   = "data.txt"
	defaultConfigFile = "config.txt"
	defaultOutputFile = "output.txt"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "goicp:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	modelFile := arg(args, 0, defaultModelFile)
	dataFile := arg(args, 1, defaultDataFile)
	ndDownsampled := atoiOr(arg(args, 2, "0"), 0)
	configFile := arg(args, 3, defaultConfigFile)
	outputFile := arg(args, 4, defaultOutputFile)

	log := obs.NewDefaultLogger()
	metrics := obs.NewMetrics()

	cfg, err := goicpconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", configFile, err)
	}

	model, err := pointcloud.Load(modelFile)
	if err != nil {
		return fmt.Errorf("loading model %s: %w", modelFile, err)
	}

	data, err := pointcloud.Load(dataFile)
	if err != nil {
		return fmt.Errorf("loading data %s: %w", dataFile, err)
	}
	if ndDownsampled > 0 {
		data = pointcloud.Truncate(data, ndDownsampled)
	}

	log.Info("registration starting", map[string]interface{}{
		"model_points": len(model),
		"data_points":  len(data),
	})

	start := time.Now()
	result := registration.Register(model, data, cfg, registration.Options{Log: log, Metrics: metrics})
	elapsed := time.Since(start).Seconds()

	log.Info("registration finished", map[string]interface{}{
		"elapsed_seconds": elapsed,
		"error":           result.Error,
	})

	return pointcloud.WriteResult(outputFile, pointcloud.Result{
		ElapsedSeconds: elapsed,
		Rotation:       result.R,
		Translation:    result.T,
	})
}

// arg returns args[i] if present and non-empty, else fallback.
func arg(args []string, i int, fallback string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return fallback
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

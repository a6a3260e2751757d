// Package pointcloud reads and writes the ASCII point-cloud and result
// file formats consumed/produced by the registration CLI.
package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Point3 is an immutable single-precision 3D point.
type Point3 struct {
	X, Y, Z float32
}

// Load reads the point-cloud file format from path: a leading integer N,
// followed by N whitespace-delimited x y z float triples.
func Load(path string) ([]Point3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses the point-cloud format from an arbitrary reader.
func Read(r io.Reader) ([]Point3, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	n, err := nextInt(sc)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: reading point count: %w", err)
	}

	pts := make([]Point3, 0, n)
	for i := 0; i < n; i++ {
		x, err := nextFloat(sc)
		if err != nil {
			return nil, fmt.Errorf("pointcloud: point %d.x: %w", i, err)
		}
		y, err := nextFloat(sc)
		if err != nil {
			return nil, fmt.Errorf("pointcloud: point %d.y: %w", i, err)
		}
		z, err := nextFloat(sc)
		if err != nil {
			return nil, fmt.Errorf("pointcloud: point %d.z: %w", i, err)
		}
		pts = append(pts, Point3{X: x, Y: y, Z: z})
	}
	return pts, nil
}

func nextInt(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(sc.Text())
}

func nextFloat(sc *bufio.Scanner) (float32, error) {
	if !sc.Scan() {
		return 0, io.ErrUnexpectedEOF
	}
	v, err := strconv.ParseFloat(sc.Text(), 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// Truncate returns the first n points of pts (or all of pts if n <= 0 or
// n >= len(pts)), matching the CLI's "Nd-downsampled" contract: the input
// is assumed pre-shuffled, so no reshuffling is performed here.
func Truncate(pts []Point3, n int) []Point3 {
	if n <= 0 || n >= len(pts) {
		return pts
	}
	return pts[:n]
}

// Result is the outcome of a registration run, in the shape the output
// file format (spec §6) expects: elapsed seconds, a 3x3 rotation, a 3x1
// translation.
type Result struct {
	ElapsedSeconds float64
	Rotation       [3][3]float64
	Translation    [3]float64
}

// WriteResult serializes a Result in the 7-line output file format:
// line 1 elapsed seconds, lines 2-4 the rotation matrix rows, lines 5-7
// the translation components.
func WriteResult(path string, res Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pointcloud: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(bw, "%g\n", res.ElapsedSeconds); err != nil {
		return err
	}
	for _, row := range res.Rotation {
		if _, err := fmt.Fprintf(bw, "%g %g %g\n", row[0], row[1], row[2]); err != nil {
			return err
		}
	}
	for _, t := range res.Translation {
		if _, err := fmt.Fprintf(bw, "%g\n", t); err != nil {
			return err
		}
	}
	return bw.Flush()
}

package goicpconfig

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// rawMap is a parsed configuration file: key -> raw value token, exactly
// as found in the file (not yet typed).
type rawMap map[string]string

// Load reads a configuration file in the line-oriented format: lines
// starting with '#' are comments, every other line must tokenize to
// exactly two fields (key, value) when split on any run of space, '=',
// or ';'; lines that don't are silently skipped. Missing keys resolve
// to 0 when looked up, so an incomplete file degrades to a
// zero-width, zero-threshold configuration rather than failing.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw := parseLines(f)
	cfg := &Config{
		BnB: BnBConfig{
			MSEThresh:    raw.float("MSEThresh"),
			RotMinX:      raw.float("rotMinX"),
			RotMinY:      raw.float("rotMinY"),
			RotMinZ:      raw.float("rotMinZ"),
			RotWidth:     raw.float("rotWidth"),
			TransMinX:    raw.float("transMinX"),
			TransMinY:    raw.float("transMinY"),
			TransMinZ:    raw.float("transMinZ"),
			TransWidth:   raw.float("transWidth"),
			TrimFraction: raw.float("trimFraction"),
		},
		DistTrans: DistTransConfig{
			Size:         raw.int("distTransSize"),
			ExpandFactor: raw.float("distTransExpandFactor"),
		},
	}
	return cfg, nil
}

func parseLines(f *os.File) rawMap {
	raw := rawMap{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '=' || r == ';'
		})
		if len(tokens) != 2 {
			continue
		}
		raw[tokens[0]] = tokens[1]
	}
	return raw
}

// float looks up key and parses it as a float64, returning 0 if the key
// is absent or unparsable.
func (r rawMap) float(key string) float64 {
	v, ok := r[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// int looks up key and parses it as an int, returning 0 if the key is
// absent or unparsable.
func (r rawMap) int(key string) int {
	v, ok := r[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Package contiguity implements the contiguity index engine: it scores how
// spatially unified a parcel's undeveloped land is by rasterizing developable
// area, evaluating per-cell neighbor cohesion with a weighted 3x3 kernel, and
// aggregating cell to polygon to parcel.
package contiguity

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks configuration errors. They are raised before any chunk
// processing begins.
var ErrConfig = eris.New("contiguity: invalid configuration")

// kernelKeys are the nine relative cell positions, row-major from the
// top-left neighbor to the bottom-right.
var kernelKeys = []string{
	"top_left", "top_center", "top_right",
	"middle_left", "self", "middle_right",
	"bottom_left", "bottom_center", "bottom_right",
}

// Kernel is a resolved 3x3 neighbor weighting scheme. It is immutable once
// built.
type Kernel struct {
	name    string
	weights [3][3]float64
	max     float64
}

// ResolveKernel returns the kernel for a named preset:
//
//   - "nn": all nine positions weigh 1
//   - "rook": orthogonal neighbors weigh 1, diagonals 0, self 1
//   - "queen": orthogonal neighbors weigh 2, diagonals 1, self 1
func ResolveKernel(preset string) (Kernel, error) {
	switch strings.ToLower(preset) {
	case "rook":
		return newKernel("rook", map[string]float64{
			"top_left": 0, "top_center": 1, "top_right": 0,
			"middle_left": 1, "self": 1, "middle_right": 1,
			"bottom_left": 0, "bottom_center": 1, "bottom_right": 0,
		})
	case "queen":
		return newKernel("queen", map[string]float64{
			"top_left": 1, "top_center": 2, "top_right": 1,
			"middle_left": 2, "self": 1, "middle_right": 2,
			"bottom_left": 1, "bottom_center": 2, "bottom_right": 1,
		})
	case "nn":
		return newKernel("nn", map[string]float64{
			"top_left": 1, "top_center": 1, "top_right": 1,
			"middle_left": 1, "self": 1, "middle_right": 1,
			"bottom_left": 1, "bottom_center": 1, "bottom_right": 1,
		})
	default:
		return Kernel{}, eris.Wrapf(ErrConfig, "unknown weight preset %q (want rook, queen, or nn)", preset)
	}
}

// KernelFromMap builds a kernel from an explicit nine-key weight map using
// the keys top_left, top_center, top_right, middle_left, self, middle_right,
// bottom_left, bottom_center, bottom_right.
func KernelFromMap(m map[string]float64) (Kernel, error) {
	return newKernel("custom", m)
}

// LoadKernelFile reads a custom kernel from a YAML file mapping the nine
// position keys to weights.
func LoadKernelFile(path string) (Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Kernel{}, eris.Wrapf(err, "contiguity: read kernel file %s", path)
	}
	var m map[string]float64
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Kernel{}, eris.Wrapf(err, "contiguity: parse kernel file %s", path)
	}
	k, err := newKernel("custom", m)
	if err != nil {
		return Kernel{}, eris.Wrapf(err, "contiguity: kernel file %s", path)
	}
	return k, nil
}

func newKernel(name string, m map[string]float64) (Kernel, error) {
	var missing []string
	for _, key := range kernelKeys {
		if _, ok := m[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Kernel{}, eris.Wrapf(ErrConfig, "weight map missing keys: %s", strings.Join(missing, ", "))
	}
	// The normalization (mean-1)/(max-1) is only bounded in [0,1] when the
	// self weight is exactly 1.
	if m["self"] != 1 {
		return Kernel{}, eris.Wrapf(ErrConfig, "self weight must be 1, got %v", m["self"])
	}

	k := Kernel{name: name}
	i := 0
	for dr := 0; dr < 3; dr++ {
		for dc := 0; dc < 3; dc++ {
			w := m[kernelKeys[i]]
			if w < 0 {
				return Kernel{}, eris.Wrapf(ErrConfig, "weight %q must be non-negative, got %v", kernelKeys[i], w)
			}
			k.weights[dr][dc] = w
			k.max += w
			i++
		}
	}
	if k.max <= 1 {
		return Kernel{}, eris.Wrap(ErrConfig, "at least one neighbor weight must be positive")
	}
	return k, nil
}

// Name returns the preset name, or "custom" for explicit maps.
func (k Kernel) Name() string { return k.name }

// Weight returns the weight for a neighbor at row offset dr and column
// offset dc, each in {-1, 0, 1}. Weight(0, 0) is the self weight.
func (k Kernel) Weight(dr, dc int) float64 {
	return k.weights[dr+1][dc+1]
}

// Max returns weight_max: the literal sum of the nine assigned weights.
func (k Kernel) Max() float64 { return k.max }

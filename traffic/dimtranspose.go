package traffic

import "fmt"

func init() {
	Register("dim_transpose", newDimTransposeFromContext)
}

// dimTranspose sends every message to the terminal whose enabled dimension
// coordinates are swapped pairwise: the first enabled dimension with the
// second, the third with the fourth, and so on. An odd leftover dimension
// and all disabled dimensions keep their coordinate. The destination is
// fixed per source.
type dimTranspose struct {
	dest int
}

func newDimTransposeFromContext(ctx Context) (Continuous, error) {
	if ctx.Torus == nil {
		return nil, fmt.Errorf(
			"dim_transpose requires a dimensioned (torus) geometry")
	}
	return NewDimTranspose(
		ctx.Torus.Dimensions,
		ctx.Torus.Concentration,
		ctx.Settings.EnabledDimensions,
		ctx.Self,
	)
}

// NewDimTranspose creates a dim-transpose pattern directly from a geometry.
// A nil enabled slice enables every dimension.
func NewDimTranspose(
	dims []int,
	concentration int,
	enabled []bool,
	self int,
) (Continuous, error) {
	if enabled == nil {
		enabled = make([]bool, len(dims))
		for i := range enabled {
			enabled[i] = true
		}
	}
	if len(enabled) != len(dims) {
		return nil, fmt.Errorf(
			"dim_transpose: %d enabled flags for %d dimensions",
			len(enabled), len(dims))
	}

	var enabledDims []int
	for d, on := range enabled {
		if on {
			enabledDims = append(enabledDims, d)
		}
	}
	for i := 0; i+1 < len(enabledDims); i += 2 {
		a, b := enabledDims[i], enabledDims[i+1]
		if dims[a] != dims[b] {
			return nil, fmt.Errorf(
				"dim_transpose: swapped dimensions %d and %d have "+
					"unequal widths %d and %d", a, b, dims[a], dims[b])
		}
	}

	iface := self % concentration
	flat := self / concentration
	coords := make([]int, len(dims))
	for d, w := range dims {
		coords[d] = flat % w
		flat /= w
	}

	for i := 0; i+1 < len(enabledDims); i += 2 {
		a, b := enabledDims[i], enabledDims[i+1]
		coords[a], coords[b] = coords[b], coords[a]
	}

	dest := 0
	for d := len(dims) - 1; d >= 0; d-- {
		dest = dest*dims[d] + coords[d]
	}
	dest = dest*concentration + iface

	return &dimTranspose{dest: dest}, nil
}

// NextDestination implements Continuous.
func (p *dimTranspose) NextDestination() int {
	return p.dest
}

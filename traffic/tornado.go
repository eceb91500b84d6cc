package traffic

import "fmt"

func init() {
	Register("tornado", newTornado)
}

// tornado offsets every dimension coordinate by just under half the ring,
// the worst case for minimal routing on a torus. The destination is fixed
// per source.
type tornado struct {
	dest int
}

func newTornado(ctx Context) (Continuous, error) {
	if ctx.Torus == nil {
		return nil, fmt.Errorf("tornado requires a dimensioned (torus) geometry")
	}
	dims := ctx.Torus.Dimensions
	concentration := ctx.Torus.Concentration

	iface := ctx.Self % concentration
	flat := ctx.Self / concentration
	coords := make([]int, len(dims))
	for d, w := range dims {
		coords[d] = flat % w
		flat /= w
	}

	for d, w := range dims {
		coords[d] = (coords[d] + (w-1)/2) % w
	}

	dest := 0
	for d := len(dims) - 1; d >= 0; d-- {
		dest = dest*dims[d] + coords[d]
	}
	dest = dest*concentration + iface

	return &tornado{dest: dest}, nil
}

// NextDestination implements Continuous.
func (p *tornado) NextDestination() int {
	return p.dest
}

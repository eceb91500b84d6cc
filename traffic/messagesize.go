package traffic

import (
	"fmt"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/sim"
)

// A SizeDistribution produces message sizes in flits.
type SizeDistribution interface {
	NextMessageSize() int

	// MaxMessageSize bounds the sizes the distribution can produce. Used
	// for start-time spreading.
	MaxMessageSize() int
}

// NewSizeDistribution creates the distribution named in the settings.
func NewSizeDistribution(
	rand *sim.Random,
	settings config.MessageSize,
) (SizeDistribution, error) {
	switch settings.Distribution {
	case "single":
		return &singleSize{size: settings.Size}, nil
	case "uniform":
		return &uniformSize{
			rand: rand,
			min:  settings.MinSize,
			max:  settings.MaxSize,
		}, nil
	default:
		return nil, fmt.Errorf("unknown message size distribution %q",
			settings.Distribution)
	}
}

// singleSize always produces the same size.
type singleSize struct {
	size int
}

func (d *singleSize) NextMessageSize() int {
	return d.size
}

func (d *singleSize) MaxMessageSize() int {
	return d.size
}

// uniformSize draws sizes uniformly from [min, max].
type uniformSize struct {
	rand *sim.Random
	min  int
	max  int
}

func (d *uniformSize) NextMessageSize() int {
	return int(d.rand.U64(uint64(d.min), uint64(d.max)))
}

func (d *uniformSize) MaxMessageSize() int {
	return d.max
}

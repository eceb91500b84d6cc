// Package traffic provides continuous traffic patterns and message-size
// distributions, both behind name-keyed factories.
package traffic

import (
	"fmt"
	"sort"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/sim"
)

// A Continuous pattern produces destination terminals, one per message. It
// is an infinite sequence: NextDestination never fails. It must be
// deterministic given the random stream and its own state.
type Continuous interface {
	NextDestination() int
}

// Context carries everything a pattern constructor may need.
type Context struct {
	Rand         *sim.Random
	NumTerminals int
	Self         int
	Settings     config.Traffic

	// Torus geometry, for patterns defined in terms of dimensions.
	Torus *config.Torus
}

// A Factory creates a pattern from a context.
type Factory func(ctx Context) (Continuous, error)

var factories = map[string]Factory{}

// Register registers a pattern constructor under a name. Called from
// package init functions at process start.
func Register(name string, f Factory) {
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("traffic pattern %q registered twice", name))
	}
	factories[name] = f
}

// New creates the pattern named in the context settings.
func New(ctx Context) (Continuous, error) {
	f, ok := factories[ctx.Settings.Pattern]
	if !ok {
		return nil, fmt.Errorf("unknown traffic pattern %q (known: %v)",
			ctx.Settings.Pattern, knownPatterns())
	}
	return f(ctx)
}

func knownPatterns() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package network

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sarchlab/fabsim/sim"
)

func TestPcVcMapIsTotalAndDisjoint(t *testing.T) {
	n := New("Network", nil, nil, []int{2, 3, 1}, nil)

	assert.Equal(t, 3, n.NumPcs())
	assert.Equal(t, 6, n.NumVcs())

	base, num := n.PcVcs(0)
	assert.Equal(t, 0, base)
	assert.Equal(t, 2, num)
	base, num = n.PcVcs(1)
	assert.Equal(t, 2, base)
	assert.Equal(t, 3, num)
	base, num = n.PcVcs(2)
	assert.Equal(t, 5, base)
	assert.Equal(t, 1, num)

	// The reverse map is total and consistent with the ranges.
	for vc := 0; vc < n.NumVcs(); vc++ {
		pc := n.VcToPc(vc)
		base, num := n.PcVcs(pc)
		assert.GreaterOrEqual(t, vc, base)
		assert.Less(t, vc, base+num)
	}
}

func TestPcVcMapRejectsEmptyClasses(t *testing.T) {
	assert.Panics(t, func() { New("Network", nil, nil, nil, nil) })
	assert.Panics(t, func() { New("Network", nil, nil, []int{2, 0}, nil) })
}

func TestMonitoringWindow(t *testing.T) {
	s := sim.NewSimulation(
		sim.NewSerialEngine(), sim.MakeDefaultClocks(1000), 0)
	n := New("Network", s, nil, []int{1}, nil)

	assert.False(t, n.Monitoring())
	n.StartMonitoring()
	assert.True(t, n.Monitoring())
	n.EndMonitoring()
	assert.False(t, n.Monitoring())
}

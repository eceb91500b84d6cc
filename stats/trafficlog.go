package stats

import (
	"fmt"
	"os"
	"sort"
)

// trafficKey identifies one (device, input port, input VC, output port,
// output VC) flow.
type trafficKey struct {
	device  string
	inPort  int
	inVc    int
	outPort int
	outVc   int
}

// TrafficLog accumulates per-hop flit counts during the monitoring window.
type TrafficLog struct {
	counts map[trafficKey]uint64
}

// NewTrafficLog creates an empty traffic log.
func NewTrafficLog() *TrafficLog {
	return &TrafficLog{counts: map[trafficKey]uint64{}}
}

// Add records flits moving through a device. Implements the network's
// traffic sink.
func (l *TrafficLog) Add(
	device string,
	inputPort, inputVc, outputPort, outputVc, flits int,
) {
	key := trafficKey{device, inputPort, inputVc, outputPort, outputVc}
	l.counts[key] += uint64(flits)
}

// WriteCSV writes the accumulated counts, sorted so that two identical runs
// produce byte-identical files.
func (l *TrafficLog) WriteCSV(path string) error {
	keys := make([]trafficKey, 0, len(l.counts))
	for k := range l.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.device != b.device {
			return a.device < b.device
		}
		if a.inPort != b.inPort {
			return a.inPort < b.inPort
		}
		if a.inVc != b.inVc {
			return a.inVc < b.inVc
		}
		if a.outPort != b.outPort {
			return a.outPort < b.outPort
		}
		return a.outVc < b.outVc
	})

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "device,input_port,input_vc,output_port,output_vc,flits\n")
	for _, k := range keys {
		fmt.Fprintf(file, "%s,%d,%d,%d,%d,%d\n",
			k.device, k.inPort, k.inVc, k.outPort, k.outVc, l.counts[k])
	}
	return nil
}

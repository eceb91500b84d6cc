package stats

import (
	"fmt"
	"os"
)

// A ChannelSample is the monitored activity of one channel.
type ChannelSample struct {
	Name            string
	Flits           uint64
	MonitoredCycles uint64
}

// Utilization returns the fraction of monitored cycles the channel carried
// a flit.
func (s ChannelSample) Utilization() float64 {
	if s.MonitoredCycles == 0 {
		return 0
	}
	return float64(s.Flits) / float64(s.MonitoredCycles)
}

// WriteChannelLog writes one CSV line per channel.
func WriteChannelLog(path string, samples []ChannelSample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "channel,flits,cycles,utilization\n")
	for _, s := range samples {
		fmt.Fprintf(file, "%s,%d,%d,%.6f\n",
			s.Name, s.Flits, s.MonitoredCycles, s.Utilization())
	}
	return nil
}

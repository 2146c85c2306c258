package main

import (
	"fmt"
	"io"
	"os"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

// memorySampler reads the resident set size of this process.
type memorySampler struct {
	proc *process.Process
}

func newMemorySampler() (*memorySampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "inspect own process")
	}
	return &memorySampler{proc: proc}, nil
}

// sample returns the current RSS in bytes. A nil sampler never samples.
func (m *memorySampler) sample() (uint64, bool) {
	if m == nil {
		return 0, false
	}
	info, err := m.proc.MemoryInfo()
	if err != nil {
		log.Warnf("Unable to sample process memory: %v", err)
		return 0, false
	}
	return info.RSS, true
}

func formatMemoryDelta(start, end uint64) string {
	delta := float64(end) - float64(start)
	sign := ""
	if delta < 0 {
		sign = "-"
	}
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("Memory usage: %.2f MB (%s%s)", delta/1024/1024, sign, units.BytesSize(abs))
}

func printMemoryDelta(out io.Writer, start, end uint64) {
	fmt.Fprintln(out, formatMemoryDelta(start, end))
}

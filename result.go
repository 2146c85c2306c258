package main

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

type category string

const (
	categoryWrite    category = "write"
	categoryRead     category = "read"
	categoryKeyValue category = "key_value"
)

// categories in run and report order
var categories = []category{categoryWrite, categoryRead, categoryKeyValue}

// measurement is the outcome of one timed batch on one service.
// For reads Elapsed is the per-iteration average.
type measurement struct {
	Elapsed   time.Duration
	Ops       uint64
	Latencies *hdrhistogram.Histogram
}

// categoryResult holds one cell per service. A nil cell means the service was
// unavailable or the run failed.
type categoryResult struct {
	Category  category
	Reference *measurement
	Subject   *measurement
}

type sizeResult struct {
	Size       int
	Categories []categoryResult
}

func (r sizeResult) category(c category) (categoryResult, bool) {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr, true
		}
	}
	return categoryResult{}, false
}

func opsPerSec(ops int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(ops) / elapsed.Seconds()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

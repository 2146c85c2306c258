package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const resultFormatVersion = "0.1.0"

type ServiceInfo struct {
	ServiceConfig
	Available bool `json:"Available"`
}

// CellResult is one (data size, category, service) slot. Absent cells carry
// Available=false and no numbers.
type CellResult struct {
	DataSize  int                `json:"DataSize"`
	Category  string             `json:"Category"`
	Service   string             `json:"Service"`
	Available bool               `json:"Available"`
	ElapsedMs float64            `json:"ElapsedMs,omitempty"`
	Ops       uint64             `json:"Ops,omitempty"`
	OpsPerSec float64            `json:"OpsPerSec,omitempty"`
	Latencies map[string]float64 `json:"Latencies,omitempty"`
}

type TestResult struct {

	// Test Configs
	ResultFormatVersion string `json:"ResultFormatVersion"`
	Tool                string `json:"Tool"`
	RandomSeed          int64  `json:"RandomSeed"`
	ReadMode            string `json:"ReadMode"`
	MaxRps              int64  `json:"MaxRps"`

	StartTime      int64 `json:"StartTime"`
	EndTime        int64 `json:"EndTime"`
	DurationMillis int64 `json:"DurationMillis"`

	Reference ServiceInfo `json:"Reference"`
	Subject   ServiceInfo `json:"Subject"`

	// Populated after benchmark
	Cells []CellResult `json:"Cells"`
}

func NewTestResult(s *suite, results []sizeResult) *TestResult {
	r := &TestResult{
		ResultFormatVersion: resultFormatVersion,
		Tool:                toolVersion(),
		RandomSeed:          s.seed,
		ReadMode:            s.cfg.ReadMode,
		MaxRps:              s.cfg.RPS,
		Reference:           ServiceInfo{ServiceConfig: s.reference.cfg, Available: s.reference.available},
		Subject:             ServiceInfo{ServiceConfig: s.subject.cfg, Available: s.subject.available},
	}
	for _, sr := range results {
		for _, cr := range sr.Categories {
			r.Cells = append(r.Cells,
				newCellResult(sr.Size, cr.Category, s.reference.cfg.Name, cr.Reference),
				newCellResult(sr.Size, cr.Category, s.subject.cfg.Name, cr.Subject))
		}
	}
	return r
}

func newCellResult(size int, c category, service string, m *measurement) CellResult {
	cell := CellResult{DataSize: size, Category: string(c), Service: service}
	if m == nil {
		return cell
	}
	cell.Available = true
	cell.ElapsedMs = millis(m.Elapsed)
	cell.Ops = m.Ops
	if m.Latencies != nil && m.Latencies.TotalCount() > 0 {
		cell.Latencies = generateLatenciesMap(m.Latencies)
		// round trips are sequential, so the rate follows from the mean latency
		cell.OpsPerSec = 1e6 / m.Latencies.Mean()
	}
	return cell
}

func (r *TestResult) FillDurationInfo(startTime time.Time, endTime time.Time, duration time.Duration) {
	r.StartTime = startTime.UTC().UnixNano() / 1000000
	r.EndTime = endTime.UTC().UnixNano() / 1000000
	r.DurationMillis = duration.Milliseconds()
}

func saveJsonResult(testResult *TestResult, jsonOutputFile string) error {
	if jsonOutputFile == "" {
		return nil
	}
	file, err := json.MarshalIndent(testResult, "", " ")
	if err != nil {
		return errors.WithStack(err)
	}
	log.Infof("Saving JSON results file to %s", jsonOutputFile)
	return errors.Wrapf(os.WriteFile(jsonOutputFile, file, 0644), "write %s", jsonOutputFile)
}

// generateLatenciesMap reports round trip quantiles in milliseconds.
func generateLatenciesMap(hist *hdrhistogram.Histogram) map[string]float64 {
	percentilesTrack := []float64{50.0, 95.0, 99.0, 99.9, 100.0}
	percentilesMap := hist.ValueAtPercentiles(percentilesTrack)
	return map[string]float64{
		"q0":   float64(hist.Min()) / 10e2,
		"q50":  float64(percentilesMap[50.0]) / 10e2,
		"q95":  float64(percentilesMap[95.0]) / 10e2,
		"q99":  float64(percentilesMap[99.0]) / 10e2,
		"q999": float64(percentilesMap[99.9]) / 10e2,
		"q100": float64(percentilesMap[100.0]) / 10e2,
		"avg":  hist.Mean() / 10e2,
	}
}

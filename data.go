package main

import (
	"math/rand"
	"strconv"
	"time"
)

// testRecord is one synthetic time series point.
type testRecord struct {
	Timestamp int64
	Value     float64
}

// generateTestData returns n points with consecutive second timestamps ending
// just before now and values uniform in [0, 100).
func generateTestData(n int, now time.Time, rng *rand.Rand) []testRecord {
	data := make([]testRecord, n)
	base := now.Unix() - int64(n)
	for i := range data {
		data[i] = testRecord{Timestamp: base + int64(i), Value: rng.Float64() * 100}
	}
	return data
}

func (r testRecord) placeholders(series string) placeholders {
	return placeholders{
		series: series,
		ts:     strconv.FormatInt(r.Timestamp, 10),
		value:  strconv.FormatFloat(r.Value, 'f', -1, 64),
	}
}

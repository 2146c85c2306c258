package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig points both services at the given ports on loopback.
func testConfig(refPort, subPort int) Config {
	cfg := DefaultConfig()
	cfg.Reference.Port = refPort
	cfg.Subject.Port = subPort
	cfg.RandomSeed = 12345
	cfg.ProbeTimeout = time.Second
	return cfg
}

func newTestSuite(t *testing.T, cfg Config) (*suite, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := newSuite(cfg, &out)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	s.probeAll()
	return s, &out
}

func TestWriteIssuesOneRoundTripPerRecord(t *testing.T) {
	for _, readMode := range []string{readModeSingle, readModeFramed} {
		t.Run(readMode, func(t *testing.T) {
			ref := startFakeServer(t, protocolRESP)
			sub := startFakeServer(t, protocolLine)
			cfg := testConfig(ref.port(), sub.port())
			cfg.ReadMode = readMode
			s, out := newTestSuite(t, cfg)

			m := s.guard(s.reference, categoryWrite, func(tg *target) (*measurement, error) { return s.write(tg, 100) })
			require.NotNil(t, m)
			assert.EqualValues(t, 100, m.Ops)
			assert.GreaterOrEqual(t, m.Elapsed, time.Duration(0))
			assert.Equal(t, 100, ref.count("ZADD"))

			m = s.guard(s.subject, categoryWrite, func(tg *target) (*measurement, error) { return s.write(tg, 100) })
			require.NotNil(t, m)
			assert.EqualValues(t, 100, m.Ops)
			assert.Equal(t, 100, sub.count("ADD"))

			assert.Contains(t, out.String(), "Redis write 100 records:")
			assert.Contains(t, out.String(), "Zentropy write 100 records:")
		})
	}
}

func TestReadRepopulatesThenTimesIterations(t *testing.T) {
	ref := startFakeServer(t, protocolRESP)
	cfg := testConfig(ref.port(), closedPort(t))
	s, out := newTestSuite(t, cfg)

	m, err := s.read(s.reference, 50)
	require.NoError(t, err)
	assert.EqualValues(t, cfg.ReadIterations, m.Ops)
	assert.EqualValues(t, cfg.ReadIterations, m.Latencies.TotalCount())
	assert.Equal(t, 50, ref.count("ZADD"))
	assert.Equal(t, cfg.ReadIterations, ref.count("ZRANGE"))
	assert.Contains(t, out.String(), "Redis read 50 records:")
}

func TestKeyValueIssuesSetThenGet(t *testing.T) {
	sub := startFakeServer(t, protocolLine)
	s, out := newTestSuite(t, testConfig(closedPort(t), sub.port()))

	m, err := s.keyValue(s.subject, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 60, m.Ops)
	assert.Equal(t, 30, sub.count("SET"))
	assert.Equal(t, 30, sub.count("GET"))
	assert.Contains(t, out.String(), "Zentropy SET/GET 30 pairs:")
}

func TestGuardSkipsUnavailableService(t *testing.T) {
	s, _ := newTestSuite(t, testConfig(closedPort(t), closedPort(t)))
	called := false
	m := s.guard(s.subject, categoryWrite, func(*target) (*measurement, error) {
		called = true
		return &measurement{}, nil
	})
	assert.Nil(t, m)
	assert.False(t, called)
}

func TestFailingCategoryDoesNotAbortRun(t *testing.T) {
	ref := startFakeServer(t, protocolRESP)
	cfg := testConfig(ref.port(), startHangupServer(t))
	cfg.DataSizes = []int{10, 20}
	s, _ := newTestSuite(t, cfg)
	require.True(t, s.subject.available)

	results := s.run()
	require.Len(t, results, 2)
	for _, sr := range results {
		require.Len(t, sr.Categories, len(categories))
		for _, cr := range sr.Categories {
			assert.NotNil(t, cr.Reference, "size %d %s", sr.Size, cr.Category)
			assert.Nil(t, cr.Subject, "size %d %s", sr.Size, cr.Category)
		}
	}
	kv, ok := results[0].category(categoryKeyValue)
	require.True(t, ok)
	assert.EqualValues(t, 20, kv.Reference.Ops)
}

func TestKeyValuePairsCapped(t *testing.T) {
	ref := startFakeServer(t, protocolRESP)
	cfg := testConfig(ref.port(), closedPort(t))
	cfg.DataSizes = []int{150}
	cfg.KVMaxPairs = 100
	s, _ := newTestSuite(t, cfg)

	results := s.run()
	kv, ok := results[0].category(categoryKeyValue)
	require.True(t, ok)
	require.NotNil(t, kv.Reference)
	assert.EqualValues(t, 200, kv.Reference.Ops)
}

func TestSubjectUnavailableReportsNA(t *testing.T) {
	ref := startFakeServer(t, protocolRESP)
	cfg := testConfig(ref.port(), closedPort(t))
	cfg.DataSizes = []int{100}
	s, out := newTestSuite(t, cfg)
	assert.True(t, s.reference.available)
	assert.False(t, s.subject.available)

	results := s.run()
	printSummary(out, cfg, results)

	report := out.String()
	assert.Contains(t, report, "WRITE        -> Redis: ")
	assert.Contains(t, report, "READ         -> Redis: ")
	assert.Contains(t, report, "KEY_VALUE    -> Redis: ")
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("| Zentropy: N/A")))
}

func TestNewSuiteRejectsBadTemplates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subject.Commands.Write = `ADD "__series__`
	_, err := newSuite(cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "Zentropy commands")
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, newRateLimiter(0, 10))
	l := newRateLimiter(100, 0)
	require.NotNil(t, l)
	assert.Equal(t, 100, l.Burst())
	assert.Equal(t, 5, newRateLimiter(100, 5).Burst())
}

package main

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// target is one service of the comparison.
type target struct {
	cfg       ServiceConfig
	templates commandTemplates
	available bool
}

// suite runs every category for every data size against both services,
// strictly one round trip at a time.
type suite struct {
	cfg       Config
	out       io.Writer
	seed      int64
	rng       *rand.Rand
	now       func() time.Time
	opts      connOptions
	reference *target
	subject   *target
}

func newTarget(svc ServiceConfig) (*target, error) {
	templates, err := parseCommandSet(svc.Commands)
	if err != nil {
		return nil, errors.Wrapf(err, "%s commands", svc.Name)
	}
	if _, err := encoderFor(svc.Protocol); err != nil {
		return nil, errors.Wrapf(err, "%s", svc.Name)
	}
	return &target{cfg: svc, templates: templates}, nil
}

func newRateLimiter(rps, burst int64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return rate.NewLimiter(rate.Limit(rps), int(burst))
}

func newSuite(cfg Config, out io.Writer) (*suite, error) {
	reference, err := newTarget(cfg.Reference)
	if err != nil {
		return nil, err
	}
	subject, err := newTarget(cfg.Subject)
	if err != nil {
		return nil, err
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &suite{
		cfg:  cfg,
		out:  out,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
		now:  time.Now,
		opts: connOptions{
			readMode:  cfg.ReadMode,
			ioTimeout: cfg.IOTimeout,
			limiter:   newRateLimiter(cfg.RPS, cfg.RPSBurst),
		},
		reference: reference,
		subject:   subject,
	}, nil
}

// probeAll checks both services once; unavailable ones are skipped for the
// whole run.
func (s *suite) probeAll() {
	for _, t := range []*target{s.reference, s.subject} {
		t.available = probe(s.out, t.cfg.Host, t.cfg.Port, t.cfg.Name, s.cfg.ProbeTimeout)
	}
}

func (s *suite) run() []sizeResult {
	fmt.Fprintf(s.out, "Starting socket-based performance comparison...\n")
	fmt.Fprintf(s.out, "Using random seed: %d\n", s.seed)
	fmt.Fprintf(s.out, "%s\n", separator("=", 60))

	results := make([]sizeResult, 0, len(s.cfg.DataSizes))
	for _, size := range s.cfg.DataSizes {
		fmt.Fprintf(s.out, "\nTesting with %d records:\n", size)
		fmt.Fprintf(s.out, "%s\n", separator("-", 40))

		write := categoryResult{Category: categoryWrite}
		write.Reference = s.guard(s.reference, categoryWrite, func(t *target) (*measurement, error) { return s.write(t, size) })
		write.Subject = s.guard(s.subject, categoryWrite, func(t *target) (*measurement, error) { return s.write(t, size) })

		read := categoryResult{Category: categoryRead}
		read.Reference = s.guard(s.reference, categoryRead, func(t *target) (*measurement, error) { return s.read(t, size) })
		read.Subject = s.guard(s.subject, categoryRead, func(t *target) (*measurement, error) { return s.read(t, size) })

		pairs := min(s.cfg.KVMaxPairs, size)
		kv := categoryResult{Category: categoryKeyValue}
		kv.Reference = s.guard(s.reference, categoryKeyValue, func(t *target) (*measurement, error) { return s.keyValue(t, pairs) })
		kv.Subject = s.guard(s.subject, categoryKeyValue, func(t *target) (*measurement, error) { return s.keyValue(t, pairs) })

		results = append(results, sizeResult{Size: size, Categories: []categoryResult{write, read, kv}})
	}
	return results
}

// guard isolates one cell: failures are logged and recorded as absent.
func (s *suite) guard(t *target, c category, fn func(*target) (*measurement, error)) *measurement {
	if !t.available {
		return nil
	}
	m, err := fn(t)
	if err != nil {
		log.Errorf("%s %s failed: %v", t.cfg.Name, c, err)
		return nil
	}
	return m
}

func (s *suite) dial(t *target) (*roundTripper, error) {
	return dialService(t.cfg, s.opts)
}

// write times one write command per generated record over a fresh connection.
func (s *suite) write(t *target, size int) (*measurement, error) {
	records := generateTestData(size, s.now(), s.rng)
	series := fmt.Sprintf("%s_%d_%d", t.cfg.SeriesPrefix, size, s.now().Unix())

	rt, err := s.dial(t)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	startT := time.Now()
	for _, rec := range records {
		if _, err := rt.Do(t.templates.write.expand(rec.placeholders(series))); err != nil {
			return nil, err
		}
	}
	elapsed := time.Since(startT)
	fmt.Fprintf(s.out, "%s write %d records: %.2f ms (%.1f ops/sec)\n", t.cfg.Name, size, millis(elapsed), opsPerSec(size, elapsed))
	return rt.measurement(elapsed), nil
}

// read populates the series untimed, then reports the average of the timed
// read iterations.
func (s *suite) read(t *target, size int) (*measurement, error) {
	series := fmt.Sprintf("%s_%d", t.cfg.SeriesPrefix, size)
	records := generateTestData(size, s.now(), s.rng)

	rt, err := s.dial(t)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	for _, rec := range records {
		if _, err := rt.Do(t.templates.write.expand(rec.placeholders(series))); err != nil {
			return nil, errors.Wrap(err, "populate")
		}
	}
	rt.resetStats()

	iterations := s.cfg.ReadIterations
	readCmd := t.templates.read.expand(placeholders{series: series})
	startT := time.Now()
	for i := 0; i < iterations; i++ {
		if _, err := rt.Do(readCmd); err != nil {
			return nil, err
		}
	}
	avg := time.Since(startT) / time.Duration(iterations)
	fmt.Fprintf(s.out, "%s read %d records: %.2f ms avg\n", t.cfg.Name, size, millis(avg))
	return rt.measurement(avg), nil
}

// keyValue times pairs SET+GET round trips over one connection.
func (s *suite) keyValue(t *target, pairs int) (*measurement, error) {
	rt, err := s.dial(t)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	startT := time.Now()
	for i := 0; i < pairs; i++ {
		p := placeholders{
			key:  "key_" + strconv.Itoa(i),
			data: "value_" + strconv.Itoa(i) + "_" + strconv.FormatFloat(s.rng.Float64(), 'f', -1, 64),
		}
		if _, err := rt.Do(t.templates.set.expand(p)); err != nil {
			return nil, err
		}
		if _, err := rt.Do(t.templates.get.expand(p)); err != nil {
			return nil, err
		}
	}
	elapsed := time.Since(startT)
	fmt.Fprintf(s.out, "%s SET/GET %d pairs: %.2f ms\n", t.cfg.Name, pairs, millis(elapsed))
	return rt.measurement(elapsed), nil
}

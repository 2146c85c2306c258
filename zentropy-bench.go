package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

func setupLogging(debugLevel int) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if debugLevel > 0 {
		log.SetLevel(log.DebugLevel)
	}
}

func runCompare(cfg Config, out io.Writer) error {
	s, err := newSuite(cfg, out)
	if err != nil {
		return err
	}
	s.probeAll()
	startT := time.Now()
	results := s.run()
	endT := time.Now()
	printSummary(out, cfg, results)

	if cfg.JSONOutFile != "" {
		testResult := NewTestResult(s, results)
		testResult.FillDurationInfo(startT, endT, endT.Sub(startT))
		if err := saveJsonResult(testResult, cfg.JSONOutFile); err != nil {
			log.Errorf("Unable to save results: %v", err)
		}
	}
	return nil
}

func main() {
	cfg, err := parseConfig(os.Args[0], os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Fprintf(os.Stdout, "%s\n", toolVersion())
		os.Exit(0)
	}
	setupLogging(cfg.Debug)

	mem, err := newMemorySampler()
	if err != nil {
		log.Warnf("Memory usage will not be reported: %v", err)
	}
	startRSS, sampled := mem.sample()

	switch cfg.Mode {
	case modeSingle:
		if err := runSingle(cfg, os.Stdout); err != nil {
			log.Fatalf("Error while running single benchmark: %v", err)
		}
	default:
		if err := runCompare(cfg, os.Stdout); err != nil {
			log.Fatalf("Error preparing for benchmark: %v", err)
		}
	}

	if endRSS, ok := mem.sample(); ok && sampled {
		printMemoryDelta(os.Stdout, startRSS, endRSS)
	}
	os.Exit(0)
}

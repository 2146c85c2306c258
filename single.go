package main

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// singleCommand builds the i-th command of a phase.
type singleCommand func(i int) string

func setCommand(i int) string {
	n := strconv.Itoa(i)
	return "SET key" + n + " value" + n
}

func getCommand(i int) string {
	return "GET key" + strconv.Itoa(i)
}

// runSingle issues Requests SET round trips then Requests GET round trips on one
// connection. A failed connect is returned to the caller, which treats it as fatal.
func runSingle(cfg Config, out io.Writer) error {
	sc := cfg.Single
	fmt.Fprintf(out, "port : %d\n", sc.Port)
	encoder, err := encoderFor(sc.Protocol)
	if err != nil {
		return err
	}
	conn, err := net.Dial("tcp", sc.Addr())
	if err != nil {
		return errors.Wrapf(err, "connect to %s", sc.Addr())
	}
	rt, err := newRoundTripper(conn, sc.Addr(), encoder, sc.Protocol, connOptions{
		readMode:  cfg.ReadMode,
		ioTimeout: cfg.IOTimeout,
		limiter:   newRateLimiter(cfg.RPS, cfg.RPSBurst),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, phase := range []struct {
		label string
		cmd   singleCommand
	}{
		{"SET", setCommand},
		{"GET", getCommand},
	} {
		fmt.Fprintf(out, "Running %s benchmark...\n", phase.label)
		if err := singlePhase(out, rt, phase.label, sc.Requests, phase.cmd); err != nil {
			return err
		}
	}
	return nil
}

func singlePhase(out io.Writer, rt *roundTripper, label string, requests int, cmd singleCommand) error {
	startT := time.Now()
	for i := 0; i < requests; i++ {
		if _, err := rt.Do(cmd(i)); err != nil {
			return errors.Wrapf(err, "%s benchmark", label)
		}
	}
	duration := time.Since(startT)
	fmt.Fprintf(out, "%s -> %d ops in %.4f sec (%.2f ops/sec)\n", label, requests, duration.Seconds(), opsPerSec(requests, duration))
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/mediocregopher/radix/v4/resp"
	"github.com/mediocregopher/radix/v4/resp/resp3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	readModeSingle = "single"
	readModeFramed = "framed"

	// replyBufferSize bounds the single read issued per round trip in single mode.
	replyBufferSize = 4096
)

// probe reports whether something accepts TCP connections on host:port.
// It never fails: every dial error maps to false.
func probe(out io.Writer, host string, port int, name string, timeout time.Duration) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if !errors.Is(err, syscall.ECONNREFUSED) {
			log.Warnf("Error checking %s on port %d: %v", name, port, err)
		}
		fmt.Fprintf(out, "✗ %s is NOT running on port %d\n", name, port)
		return false
	}
	conn.Close()
	fmt.Fprintf(out, "✓ %s is running on port %d\n", name, port)
	return true
}

// singleReadReply issues exactly one Read per reply. Replies larger than the
// buffer, or delivered in several segments, are truncated and the leftover
// bytes are picked up by the next round trip.
type singleReadReply struct {
	r   io.Reader
	buf []byte
}

func newSingleReadReply(r io.Reader) *singleReadReply {
	return &singleReadReply{r: r, buf: make([]byte, replyBufferSize)}
}

func (s *singleReadReply) ReadReply() (string, error) {
	n, err := s.r.Read(s.buf)
	if n > 0 {
		return string(s.buf[:n]), nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return "", err
}

// framedRESPReply reads one complete RESP message.
type framedRESPReply struct {
	br   *bufio.Reader
	opts *resp.Opts
}

func (f *framedRESPReply) ReadReply() (string, error) {
	var rcv interface{}
	err := resp3.Unmarshal(f.br, &rcv, f.opts)
	if err != nil {
		// server side errors are replies like any other
		var se resp3.SimpleError
		if errors.As(err, &se) {
			return "-" + se.S, nil
		}
		var be resp3.BlobError
		if errors.As(err, &be) {
			return "!" + string(be.B), nil
		}
		return "", err
	}
	return fmt.Sprint(rcv), nil
}

// framedLineReply reads up to and including the next newline.
type framedLineReply struct {
	br *bufio.Reader
}

func (f *framedLineReply) ReadReply() (string, error) {
	return f.br.ReadString('\n')
}

func newReplyReader(r io.Reader, protocol, readMode string) (replyReader, error) {
	switch readMode {
	case readModeSingle:
		return newSingleReadReply(r), nil
	case readModeFramed:
		br := bufio.NewReaderSize(r, replyBufferSize)
		if protocol == protocolRESP {
			return &framedRESPReply{br: br, opts: resp.NewOpts()}, nil
		}
		return &framedLineReply{br: br}, nil
	}
	return nil, errors.Errorf("unknown read mode %q (want %q or %q)", readMode, readModeSingle, readModeFramed)
}

// connOptions are the knobs shared by every connection of a run.
type connOptions struct {
	readMode  string
	ioTimeout time.Duration
	limiter   *rate.Limiter
}

// roundTripper owns one connection and times write-then-read cycles on it.
type roundTripper struct {
	conn      net.Conn
	addr      string
	name      string
	encoder   Encoder
	reader    replyReader
	limiter   *rate.Limiter
	ioTimeout time.Duration
	latencies *hdrhistogram.Histogram
	trips     uint64
}

// dialService opens a plain blocking TCP connection, without a dial timeout.
func dialService(svc ServiceConfig, opts connOptions) (*roundTripper, error) {
	encoder, err := encoderFor(svc.Protocol)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", svc.Addr())
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", svc.Addr())
	}
	return newRoundTripper(conn, svc.Name, encoder, svc.Protocol, opts)
}

func newRoundTripper(conn net.Conn, name string, encoder Encoder, protocol string, opts connOptions) (*roundTripper, error) {
	reader, err := newReplyReader(conn, protocol, opts.readMode)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &roundTripper{
		conn:      conn,
		addr:      conn.RemoteAddr().String(),
		name:      name,
		encoder:   encoder,
		reader:    reader,
		limiter:   opts.limiter,
		ioTimeout: opts.ioTimeout,
		latencies: newLatencyHistogram(),
	}, nil
}

// Do sends one command and blocks until its reply has been read.
func (rt *roundTripper) Do(command string) (string, error) {
	if rt.limiter != nil {
		r := rt.limiter.ReserveN(time.Now(), 1)
		time.Sleep(r.Delay())
	}
	payload := rt.encoder.Encode(command)
	startT := time.Now()
	if rt.ioTimeout > 0 {
		if err := rt.conn.SetDeadline(startT.Add(rt.ioTimeout)); err != nil {
			return "", errors.Wrapf(err, "set deadline on %s", rt.addr)
		}
	}
	if _, err := rt.conn.Write(payload); err != nil {
		return "", errors.Wrapf(err, "write to %s", rt.addr)
	}
	reply, err := rt.reader.ReadReply()
	if err != nil {
		return "", errors.Wrapf(err, "read reply from %s", rt.addr)
	}
	duration := time.Since(startT)
	recordLatency(rt.latencies, duration)
	rt.trips++
	log.Debugf("%s %q -> %q (%v)", rt.name, command, reply, duration)
	return reply, nil
}

// resetStats forgets the round trips issued so far, e.g. after an untimed
// populate phase.
func (rt *roundTripper) resetStats() {
	rt.latencies.Reset()
	rt.trips = 0
}

func (rt *roundTripper) measurement(elapsed time.Duration) *measurement {
	return &measurement{Elapsed: elapsed, Ops: rt.trips, Latencies: rt.latencies}
}

func (rt *roundTripper) Close() error {
	return rt.conn.Close()
}

func newLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 90000000, 3)
}

func recordLatency(hist *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	// values past the highest trackable value are dropped
	_ = hist.RecordValue(us)
}

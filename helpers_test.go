package main

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/mediocregopher/radix/v4/resp"
	"github.com/mediocregopher/radix/v4/resp/resp3"
	"github.com/stretchr/testify/require"
)

// fakeServer answers every command with OK and counts commands by name.
type fakeServer struct {
	ln       net.Listener
	protocol string

	mu       sync.Mutex
	commands map[string]int
	total    int
}

func startFakeServer(t *testing.T, protocol string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{ln: ln, protocol: protocol, commands: map[string]int{}}
	go fs.serve()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (f *fakeServer) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeServer) serve() {
	for {
		c, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(c)
	}
}

func (f *fakeServer) handle(c net.Conn) {
	defer c.Close()
	br := bufio.NewReader(c)
	opts := resp.NewOpts()
	for {
		var args []string
		if f.protocol == protocolRESP {
			if err := resp3.Unmarshal(br, &args, opts); err != nil {
				return
			}
		} else {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			args = strings.Fields(line)
		}
		f.record(args)
		reply := "OK\n"
		if f.protocol == protocolRESP {
			reply = "+OK\r\n"
		}
		if _, err := c.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (f *fakeServer) record(args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total++
	if len(args) > 0 {
		f.commands[strings.ToUpper(args[0])]++
	}
}

func (f *fakeServer) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[name]
}

func (f *fakeServer) totalCommands() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// startHangupServer accepts connections and closes them straight away.
func startHangupServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a loopback port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

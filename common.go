package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	protocolRESP = "resp"
	protocolLine = "line"
)

// Encoder frames a logical command into the bytes one service expects on the wire.
type Encoder interface {
	Encode(command string) []byte
}

// replyReader consumes one reply from a connection and returns it as text.
type replyReader interface {
	ReadReply() (string, error)
}

// respEncoder emits a RESP array of bulk strings, one per whitespace-separated
// token. Lengths are byte counts; tokens are never escaped.
type respEncoder struct{}

func (respEncoder) Encode(command string) []byte {
	parts := strings.Fields(command)
	buf := make([]byte, 0, len(command)+8*len(parts)+8)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(parts)), 10)
	buf = append(buf, '\r', '\n')
	for _, part := range parts {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(part)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, part...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}

// lineEncoder appends a single newline to the raw command.
type lineEncoder struct{}

func (lineEncoder) Encode(command string) []byte {
	buf := make([]byte, 0, len(command)+1)
	buf = append(buf, command...)
	return append(buf, '\n')
}

func encoderFor(protocol string) (Encoder, error) {
	switch protocol {
	case protocolRESP:
		return respEncoder{}, nil
	case protocolLine:
		return lineEncoder{}, nil
	}
	return nil, errors.Errorf("unknown protocol %q (want %q or %q)", protocol, protocolRESP, protocolLine)
}

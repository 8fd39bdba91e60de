// Package handoff implements the binary wire format used to pass a launch
// request from a short-lived process to the owning instance. The payload is
// an opaque byte buffer: a fixed magic constant, three length-prefixed
// UTF-16LE strings (raw command line, environment block, working directory),
// and a fixed-width show-command integer.
//
// Every length prefix is validated against the remaining buffer before any
// read. A prefix the buffer cannot satisfy fails closed with
// ErrMalformedPayload; decoding never truncates silently.
package handoff

import (
	"encoding/binary"
	"os"
	"unicode/utf16"

	"github.com/perch-term/perch/internal/errors"
)

// Magic tags every handoff payload. Spells "PERCHOFF" in ASCII.
const Magic uint64 = 0x50455243484F4646

// MaxPayloadSize bounds the accepted payload. Command lines and environment
// blocks are small; anything larger is hostile or corrupt.
const MaxPayloadSize = 1 << 20

// headerSize is the magic constant plus the first length prefix.
const headerSize = 8 + 4

// ShowCommand values mirror the OS window-activation hints carried through
// the handoff. The owner applies them when creating the requested window.
const (
	ShowNormal    uint32 = 1
	ShowMinimized uint32 = 2
	ShowMaximized uint32 = 3
)

// LaunchRequest describes one window-creation request. It is immutable once
// constructed: produced from the OS command line and environment at process
// start, or reconstructed by Decode from a received payload.
type LaunchRequest struct {
	// Args is the tokenized command line, program name first.
	Args []string
	// Env holds "NAME=value" entries in their original order.
	Env []string
	// Dir is the working directory the request was issued from.
	Dir string
	// Show is the OS show-command hint for the first window.
	Show uint32
}

// CurrentLaunchRequest captures this process's command line, environment,
// and working directory as a LaunchRequest.
func CurrentLaunchRequest(show uint32) (*LaunchRequest, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "resolve working directory")
	}
	return &LaunchRequest{
		Args: os.Args,
		Env:  os.Environ(),
		Dir:  dir,
		Show: show,
	}, nil
}

// Encode serializes the request into the handoff wire format.
func Encode(req *LaunchRequest) []byte {
	cmdline := QuoteCommandLine(req.Args)
	envBlock := EncodeEnvBlock(req.Env)

	buf := make([]byte, 0, 64+2*(len(cmdline)+len(envBlock)+len(req.Dir)))
	buf = binary.LittleEndian.AppendUint64(buf, Magic)
	buf = appendString(buf, cmdline)
	buf = appendString(buf, envBlock)
	buf = appendString(buf, req.Dir)
	buf = binary.LittleEndian.AppendUint32(buf, req.Show)
	return buf
}

// appendString appends a u32 code-unit count followed by UTF-16LE bytes.
func appendString(buf []byte, s string) []byte {
	units := utf16.Encode([]rune(s))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(units)))
	for _, u := range units {
		buf = binary.LittleEndian.AppendUint16(buf, u)
	}
	return buf
}

// Decode reconstructs a LaunchRequest from a received payload.
// It returns ErrMalformedPayload (wrapped with context) for any buffer whose
// magic, length prefixes, or trailing show command do not line up exactly.
func Decode(data []byte) (*LaunchRequest, error) {
	if len(data) > MaxPayloadSize {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "payload exceeds size limit")
	}
	if len(data) < headerSize {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "payload shorter than header")
	}
	if binary.LittleEndian.Uint64(data) != Magic {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "bad magic")
	}
	rest := data[8:]

	cmdline, rest, err := readString(rest)
	if err != nil {
		return nil, errors.Wrap(err, "decode command line")
	}
	envBlock, rest, err := readString(rest)
	if err != nil {
		return nil, errors.Wrap(err, "decode environment block")
	}
	dir, rest, err := readString(rest)
	if err != nil {
		return nil, errors.Wrap(err, "decode working directory")
	}

	if len(rest) != 4 {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "trailing bytes after show command")
	}
	show := binary.LittleEndian.Uint32(rest)

	return &LaunchRequest{
		Args: TokenizeCommandLine(cmdline),
		Env:  ParseEnvBlock(envBlock),
		Dir:  dir,
		Show: show,
	}, nil
}

// readString consumes one length-prefixed UTF-16LE string, returning the
// decoded string and the unread remainder.
func readString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, errors.Wrap(errors.ErrMalformedPayload, "missing length prefix")
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]

	byteLen := int(count) * 2
	if count > MaxPayloadSize/2 || byteLen > len(data) {
		return "", nil, errors.Wrap(errors.ErrMalformedPayload, "length prefix exceeds buffer")
	}

	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return string(utf16.Decode(units)), data[byteLen:], nil
}

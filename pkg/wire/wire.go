// Package wire implements the trivia protocol frame codec: a fixed-layout
// header (16-byte space-padded command, '|', 4-digit zero-padded payload
// length, '|') followed by exactly that many payload bytes.
package wire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/quizwire/trivia-server/pkg/errors"
)

const (
	CommandFieldLength = 16
	LengthFieldLength  = 4
	MaxPayloadLength   = 9999

	// HeaderLength covers both fixed fields and both delimiters.
	HeaderLength = CommandFieldLength + 1 + LengthFieldLength + 1

	FrameDelimiter = byte('|')
	FieldDelimiter = "#"
)

// Message is one decoded protocol message. Command is always a member of the
// protocol vocabulary; Payload holds at most MaxPayloadLength bytes.
type Message struct {
	Command string
	Payload []byte
}

// Encode produces the wire frame for the given command and payload. It fails
// if the command does not fit the fixed command field or the payload exceeds
// the four-digit length field.
func Encode(command string, payload []byte) ([]byte, error) {
	if len(command) > CommandFieldLength {
		return nil, &errors.FieldTooLong{Field: "command", Length: len(command), Max: CommandFieldLength}
	}
	if len(payload) > MaxPayloadLength {
		return nil, &errors.FieldTooLong{Field: "payload", Length: len(payload), Max: MaxPayloadLength}
	}

	frame := make([]byte, 0, HeaderLength+len(payload))
	frame = append(frame, fmt.Sprintf("%-*s", CommandFieldLength, command)...)
	frame = append(frame, FrameDelimiter)
	frame = append(frame, fmt.Sprintf("%0*d", LengthFieldLength, len(payload))...)
	frame = append(frame, FrameDelimiter)
	frame = append(frame, payload...)
	return frame, nil
}

// Decode parses a complete wire frame. It is total: any structural deviation
// yields a *errors.MalformedFrame, never a partial result.
func Decode(raw []byte) (Message, error) {
	parts := bytes.Split(raw, []byte{FrameDelimiter})
	if len(parts) != 3 {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("expected 3 fields, got %d", len(parts))}
	}

	rawCmd, rawLen, payload := parts[0], parts[1], parts[2]
	if len(rawCmd) != CommandFieldLength {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("command field is %d bytes, want %d", len(rawCmd), CommandFieldLength)}
	}
	if len(rawLen) != LengthFieldLength {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("length field is %d bytes, want %d", len(rawLen), LengthFieldLength)}
	}

	declared, ok := parseLengthField(rawLen)
	if !ok {
		return Message{}, &errors.MalformedFrame{Detail: "length field is not all digits"}
	}
	if declared != len(payload) {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("declared length %d, actual payload %d", declared, len(payload))}
	}

	command := strings.TrimRight(string(rawCmd), " ")
	if !IsKnownCommand(command) {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("command '%s' is not in the vocabulary", command)}
	}

	return Message{Command: command, Payload: payload}, nil
}

// ReadFrame reads exactly one frame from a byte stream: the fixed-size header
// first, then the number of payload bytes the header declares. Validation is
// shared with Decode. An io error while reading the header is returned as-is
// so callers can tell a clean EOF from a torn frame.
func ReadFrame(r io.Reader) (Message, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return Message{}, err
	}

	if header[CommandFieldLength] != FrameDelimiter || header[HeaderLength-1] != FrameDelimiter {
		return Message{}, &errors.MalformedFrame{Detail: "header delimiters out of place"}
	}
	declared, ok := parseLengthField(header[CommandFieldLength+1 : HeaderLength-1])
	if !ok {
		return Message{}, &errors.MalformedFrame{Detail: "length field is not all digits"}
	}

	payload := make([]byte, declared)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, &errors.MalformedFrame{Detail: fmt.Sprintf("short payload read: %v", err)}
	}

	return Decode(append(header, payload...))
}

func parseLengthField(field []byte) (int, bool) {
	n := 0
	for _, b := range field {
		if b < '0' || b > '9' {
			return 0, false
		}
		n = n*10 + int(b-'0')
	}
	return n, true
}

// SplitFields splits a compound payload on the sub-field delimiter. The count
// must match exactly: expected is the number of FIELDS, not separators.
func SplitFields(payload string, expected int) ([]string, error) {
	fields := strings.Split(payload, FieldDelimiter)
	if len(fields) != expected {
		return nil, &errors.FieldCountMismatch{Expected: expected, Actual: len(fields)}
	}
	return fields, nil
}

// JoinFields is the inverse of SplitFields. It never fails; callers are
// responsible for rejecting parts that contain a delimiter (ContainsDelimiter).
func JoinFields(parts ...string) string {
	return strings.Join(parts, FieldDelimiter)
}

// ContainsDelimiter reports whether s holds either the sub-field delimiter or
// the frame delimiter and is therefore unsafe to place inside a payload field.
func ContainsDelimiter(s string) bool {
	return strings.ContainsAny(s, FieldDelimiter+string(FrameDelimiter))
}

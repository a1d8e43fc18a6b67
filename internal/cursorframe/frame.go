// Package cursorframe implements the length-prefixed envelope that carries
// cursorwire-encoded messages over the HTTP streaming transport (spec
// §3/§4.1): a 5-byte header followed by that many payload bytes, with the
// high flag bit marking a trailer carrying gRPC-style status headers.
package cursorframe

import (
	"encoding/binary"
	"net/url"
	"strconv"
	"strings"
)

const headerLen = 5

// trailerFlag marks a frame whose payload is ASCII status headers rather
// than a cursorwire message (spec §4.1).
const trailerFlag = 0x80

// EncodeFrame wraps payload in the `[flags:u8, length:u32 BE]` envelope.
// Production callers always pass flags=0; the trailer-flag path exists only
// so tests can synthesize server trailer frames.
func EncodeFrame(payload []byte) []byte {
	return encodeFrame(0, payload)
}

func encodeFrame(flags byte, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = flags
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// Frame is one decoded envelope.
type Frame struct {
	Trailer bool
	Payload []byte
}

// ProtocolError reports a fatal wire-framing violation (spec §7
// ProtocolFraming): a malformed header, or a trailer frame whose
// grpc-status was non-zero.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return "cursorframe: " + e.Message }

// Reader incrementally decodes frames from a byte stream that may arrive in
// arbitrarily small or large chunks. Feed bytes with Write, then drain
// completed frames with Next until it reports no more are buffered.
type Reader struct {
	buf []byte
}

// Write appends newly-read bytes to the reader's internal buffer.
func (r *Reader) Write(b []byte) {
	r.buf = append(r.buf, b...)
}

// Next returns the next fully-buffered frame, if one is available. ok is
// false (with a nil error) when more bytes are needed; err is non-nil only
// for a malformed header that can never be completed by more data.
func (r *Reader) Next() (frame Frame, ok bool, err error) {
	if len(r.buf) < headerLen {
		return Frame{}, false, nil
	}
	flags := r.buf[0]
	length := binary.BigEndian.Uint32(r.buf[1:5])
	total := headerLen + int(length)
	if len(r.buf) < total {
		return Frame{}, false, nil
	}
	payload := make([]byte, length)
	copy(payload, r.buf[headerLen:total])
	r.buf = r.buf[total:]
	return Frame{Trailer: flags&trailerFlag != 0, Payload: payload}, true, nil
}

// ParseTrailer decodes a trailer frame's `\r\n`-separated ASCII headers and
// returns a *ProtocolError if grpc-status is present and non-zero, with its
// message taken from the URL-decoded grpc-message header (spec §4.1, S6).
func ParseTrailer(payload []byte) error {
	headers := map[string]string{}
	for _, line := range strings.Split(string(payload), "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	status, present := headers["grpc-status"]
	if !present {
		return nil
	}
	code, convErr := strconv.Atoi(status)
	if convErr != nil || code == 0 {
		return nil
	}
	msg := headers["grpc-message"]
	decoded, decErr := url.QueryUnescape(msg)
	if decErr != nil {
		decoded = msg
	}
	return &ProtocolError{Message: decoded}
}

package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MaxLineSize bounds a response line. Valid lines are a status word and a
// few short fields; a peer sending more without LF is not a beanstalkd.
const MaxLineSize = 64 << 10

// ReadLine reads one response line from r and returns it without its
// terminator. Lines end with LF; a CR before it is removed as well.
//
// The returned slice may point into r's buffer and is only valid until the
// next read.
//
// Any failure, including EOF before the terminator, is a ConnectionError
// holding the bytes read so far.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Line exceeds buffer, accumulate (allocates)
		full := append([]byte(nil), line...)
		for err == bufio.ErrBufferFull {
			if len(full) > MaxLineSize {
				return nil, &ConnectionError{Op: "read", Err: ErrLineTooLong, Partial: full[:64]}
			}
			line, err = r.ReadSlice('\n')
			full = append(full, line...)
		}
		line = full
	}
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ConnectionError{Op: "read", Err: err, Partial: bytes.Clone(line)}
	}

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// ReadChunk reads a data chunk of n bytes plus its two terminator bytes and
// returns the first n bytes. The terminator is discarded without checking
// that it is CRLF.
func ReadChunk(r *bufio.Reader, n int) ([]byte, error) {
	data := make([]byte, n+len(CRLF))
	read, err := io.ReadFull(r, data)
	if err != nil {
		return nil, &ConnectionError{Op: "read", Err: err, Partial: data[:read]}
	}
	return data[:n], nil
}

// ReadResponse reads the reply to cmd: one line, matched against the
// command's grammar, then the data chunk when the reply declares one.
//
// Returns:
//   - ConnectionError: I/O failure, or a malformed line announcing a data
//     chunk (ErrMalformedReply); connection must be closed
//   - MismatchError: the line is not a success reply for cmd
func ReadResponse(r *bufio.Reader, cmd Command) (*Response, error) {
	line, err := ReadLine(r)
	if err != nil {
		return nil, err
	}

	resp, err := Match(cmd, line)
	if err != nil {
		if announcesChunk(cmd, line) {
			return nil, &ConnectionError{
				Op:      "read",
				Err:     fmt.Errorf("%w: %s", ErrMalformedReply, cmd),
				Partial: bytes.Clone(line),
			}
		}
		return nil, err
	}

	if resp.ExpectsData() {
		resp.Data, err = ReadChunk(r, resp.Size)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// announcesChunk reports whether line starts with the status of a reply of
// cmd that carries a data chunk.
func announcesChunk(cmd Command, line []byte) bool {
	tokens := bytes.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	for _, reply := range replies[cmd] {
		if reply.HasChunk() && string(tokens[0]) == string(reply.Status) {
			return true
		}
	}
	return false
}

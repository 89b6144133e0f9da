package wire

import (
	"bufio"
	"io"
	"strconv"
	"sync"
)

// lines holds scratch slices for command lines and small put chunks.
var lines = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

const maxPooledLine = 4096

// AppendCommandLine appends the command line of req to dst:
//
//	<command> <args>*\r\n
//	put <pri> <delay> <ttr> <bytes>\r\n
//
// The byte count of put is always len(req.Body).
func AppendCommandLine(dst []byte, req *Request) []byte {
	dst = append(dst, string(req.Command)...)
	dst = append(dst, req.Args...)
	if req.HasBody() {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(len(req.Body)), 10)
	}
	return append(dst, CRLF...)
}

// WriteRequest writes req to w: the command line, then for put the data
// chunk followed by CRLF.
//
// A *bufio.Writer receives the whole request and is flushed once. Other
// writers get the command line and the data chunk as two writes.
func WriteRequest(w io.Writer, req *Request) error {
	if bw, ok := w.(*bufio.Writer); ok {
		bw.Write(AppendCommandLine(bw.AvailableBuffer(), req))
		if req.HasBody() {
			bw.Write(req.Body)
			bw.WriteString(CRLF)
		}
		return bw.Flush()
	}

	scratch := lines.Get().(*[]byte)
	defer func() {
		if cap(*scratch) <= maxPooledLine {
			lines.Put(scratch)
		}
	}()

	line := AppendCommandLine((*scratch)[:0], req)
	*scratch = line
	if _, err := w.Write(line); err != nil {
		return err
	}
	if !req.HasBody() {
		return nil
	}

	chunk := append(append((*scratch)[:0], req.Body...), CRLF...)
	*scratch = chunk
	_, err := w.Write(chunk)
	return err
}

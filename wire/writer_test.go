package wire

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

func TestWriteRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "put",
			req:      NewPutRequest([]byte("hello"), 10, 0, 60*time.Second),
			expected: "put 10 0 60 5\r\nhello\r\n",
		},
		{
			name:     "put with empty body",
			req:      NewPutRequest(nil, 0, 0, time.Second),
			expected: "put 0 0 1 0\r\n\r\n",
		},
		{
			name:     "put with body containing CRLF",
			req:      NewPutRequest([]byte("a\r\nb"), 1, 2*time.Second, 3*time.Second),
			expected: "put 1 2 3 4\r\na\r\nb\r\n",
		},
		{
			name:     "put truncates sub-second durations",
			req:      NewPutRequest([]byte("x"), 0, 1500*time.Millisecond, 90*time.Second),
			expected: "put 0 1 90 1\r\nx\r\n",
		},
		{
			name:     "put with max priority",
			req:      NewPutRequest([]byte("x"), 4294967295, 0, 0),
			expected: "put 4294967295 0 0 1\r\nx\r\n",
		},
		{
			name:     "use",
			req:      NewTubeRequest(CmdUse, "emails"),
			expected: "use emails\r\n",
		},
		{
			name:     "reserve",
			req:      NewRequest(CmdReserve),
			expected: "reserve\r\n",
		},
		{
			name:     "reserve with timeout",
			req:      NewReserveWithTimeoutRequest(5 * time.Second),
			expected: "reserve-with-timeout 5\r\n",
		},
		{
			name:     "reserve with negative timeout",
			req:      NewReserveWithTimeoutRequest(-time.Second),
			expected: "reserve-with-timeout 0\r\n",
		},
		{
			name:     "delete",
			req:      NewJobRequest(CmdDelete, 18446744073709551615),
			expected: "delete 18446744073709551615\r\n",
		},
		{
			name:     "release",
			req:      NewReleaseRequest(7, 100, 30*time.Second),
			expected: "release 7 100 30\r\n",
		},
		{
			name:     "bury",
			req:      NewBuryRequest(7, 5),
			expected: "bury 7 5\r\n",
		},
		{
			name:     "kick",
			req:      NewKickRequest(5),
			expected: "kick 5\r\n",
		},
		{
			name:     "pause-tube",
			req:      NewPauseTubeRequest("default", time.Minute),
			expected: "pause-tube default 60\r\n",
		},
		{
			name:     "peek-ready",
			req:      NewRequest(CmdPeekReady),
			expected: "peek-ready\r\n",
		},
		{
			name:     "quit",
			req:      NewRequest(CmdQuit),
			expected: "quit\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteRequest(&buf, tt.req); err != nil {
				t.Fatalf("WriteRequest failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() = %q, want %q", got, tt.expected)
			}

			// Buffered path must produce identical bytes
			buf.Reset()
			bw := bufio.NewWriter(&buf)
			if err := WriteRequest(bw, tt.req); err != nil {
				t.Fatalf("WriteRequest (buffered) failed: %v", err)
			}
			if got := buf.String(); got != tt.expected {
				t.Errorf("WriteRequest() buffered = %q, want %q", got, tt.expected)
			}
		})
	}
}

type countingWriter struct {
	writes [][]byte
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, bytes.Clone(p))
	return len(p), nil
}

func TestWriteRequestUnbufferedSendsBodySeparately(t *testing.T) {
	w := &countingWriter{}
	if err := WriteRequest(w, NewPutRequest([]byte("job"), 1, 0, time.Second)); err != nil {
		t.Fatalf("WriteRequest failed: %v", err)
	}

	if len(w.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(w.writes))
	}
	if string(w.writes[0]) != "put 1 0 1 3\r\n" {
		t.Errorf("command line = %q", w.writes[0])
	}
	if string(w.writes[1]) != "job\r\n" {
		t.Errorf("body = %q", w.writes[1])
	}
}

func TestArgs(t *testing.T) {
	var args Args
	if !args.IsEmpty() {
		t.Fatal("zero Args should be empty")
	}

	args.AddString("tube")
	args.AddInt(-1)
	args.AddUint32(2)
	args.AddUint64(3)
	args.AddSeconds(4 * time.Second)

	if got := string(args); got != " tube -1 2 3 4" {
		t.Errorf("Args = %q", got)
	}

	args.Reset()
	if !args.IsEmpty() {
		t.Error("Args should be empty after Reset")
	}
}

func TestAppendCommandLineReusesDst(t *testing.T) {
	dst := make([]byte, 0, 64)
	dst = append(dst, "prefix|"...)

	got := AppendCommandLine(dst, NewJobRequest(CmdDelete, 42))
	if string(got) != "prefix|delete 42\r\n" {
		t.Errorf("AppendCommandLine() = %q", got)
	}

	got = AppendCommandLine(nil, NewPutRequest(nil, 0, 0, time.Second))
	if string(got) != "put 0 0 1 0\r\n" {
		t.Errorf("AppendCommandLine() empty body = %q", got)
	}
}

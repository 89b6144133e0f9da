package wire

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func FuzzMatch(f *testing.F) {
	seeds := []string{
		"INSERTED 1",
		"BURIED 18446744073709551615",
		"RESERVED 7 5",
		"RESERVED 7 -1",
		"USING default",
		"WATCHING 2",
		"KICKED",
		"OK 1073741825",
		"NOT_FOUND",
		"",
		"   ",
		"FOUND 1 2 3",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, line string) {
		for cmd := range replies {
			resp, err := Match(cmd, []byte(line))
			if err != nil {
				if resp != nil {
					t.Fatalf("%s: response returned with error %v", cmd, err)
				}
				if ShouldCloseConnection(err) {
					t.Fatalf("%s: a mismatch must not close the connection", cmd)
				}
				continue
			}
			if resp.Line != line {
				t.Fatalf("%s: line %q, want %q", cmd, resp.Line, line)
			}
			if resp.Size < 0 || resp.Size > MaxChunkSize {
				t.Fatalf("%s: chunk size %d out of range", cmd, resp.Size)
			}
		}
	})
}

func FuzzReadResponse(f *testing.F) {
	f.Add("RESERVED 1 5\r\nhello\r\n")
	f.Add("OK 3\r\n---\r\n")
	f.Add("FOUND 1 10\r\nshort")
	f.Add("INSERTED 12\r\n")
	f.Add("\r\n")

	f.Fuzz(func(t *testing.T, input string) {
		// Keep chunk allocations small.
		if line, _, ok := strings.Cut(input, "\n"); ok {
			for _, tok := range strings.Fields(line) {
				if n, err := strconv.ParseUint(tok, 10, 64); err == nil && n > 1<<16 {
					t.Skip()
				}
			}
		}

		for _, cmd := range []Command{CmdReserve, CmdPeek, CmdStats, CmdPut, CmdUse} {
			r := bufio.NewReader(bytes.NewReader([]byte(input)))
			resp, err := ReadResponse(r, cmd)
			if err != nil {
				continue
			}
			if resp.ExpectsData() && len(resp.Data) != resp.Size {
				t.Fatalf("%s: data length %d, declared %d", cmd, len(resp.Data), resp.Size)
			}
		}
	})
}

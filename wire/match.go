package wire

import (
	"bytes"
	"strconv"
)

// MaxChunkSize is the largest data chunk the client accepts (beanstalkd's
// upper bound for max-job-size). Larger declared sizes are a mismatch.
const MaxChunkSize = 1 << 30

// Field is the type of a response argument.
type Field uint8

const (
	// FieldID is a job id (uint64)
	FieldID Field = iota + 1

	// FieldCount is a tube or job count (uint64)
	FieldCount

	// FieldTube is a tube name
	FieldTube

	// FieldSize is the byte length of the data chunk that follows the line
	FieldSize
)

// Reply is one accepted response shape of a command.
type Reply struct {
	Status Status
	Fields []Field
}

// HasChunk reports whether the reply is followed by a data chunk.
func (r Reply) HasChunk() bool {
	for _, f := range r.Fields {
		if f == FieldSize {
			return true
		}
	}
	return false
}

var (
	replyWithChunk = []Field{FieldID, FieldSize}
	replyData      = []Reply{{Status: StatusOK, Fields: []Field{FieldSize}}}
	replyFound     = []Reply{{Status: StatusFound, Fields: replyWithChunk}}
	replyReserved  = []Reply{{Status: StatusReserved, Fields: replyWithChunk}}
	replyWatching  = []Reply{{Status: StatusWatching, Fields: []Field{FieldCount}}}
	replyUsing     = []Reply{{Status: StatusUsing, Fields: []Field{FieldTube}}}
)

// replies lists, per command, the responses treated as success.
// Everything else a server may send is reported as a MismatchError.
var replies = map[Command][]Reply{
	CmdPut: {
		{Status: StatusInserted, Fields: []Field{FieldID}},
		{Status: StatusBuried, Fields: []Field{FieldID}},
	},
	CmdUse:                replyUsing,
	CmdReserve:            replyReserved,
	CmdReserveWithTimeout: replyReserved,
	CmdDelete:             {{Status: StatusDeleted}},
	CmdRelease:            {{Status: StatusReleased}},
	CmdBury:               {{Status: StatusBuried}},
	CmdTouch:              {{Status: StatusTouched}},
	CmdWatch:              replyWatching,
	CmdIgnore:             replyWatching,
	CmdPeek:               replyFound,
	CmdPeekReady:          replyFound,
	CmdPeekDelayed:        replyFound,
	CmdPeekBuried:         replyFound,
	CmdKick:               {{Status: StatusKicked, Fields: []Field{FieldCount}}},
	CmdKickJob:            {{Status: StatusKicked}},
	CmdStats:              replyData,
	CmdStatsJob:           replyData,
	CmdStatsTube:          replyData,
	CmdListTubes:          replyData,
	CmdListTubesWatched:   replyData,
	CmdListTubeUsed:       replyUsing,
	CmdPauseTube:          {{Status: StatusPaused}},
}

// Replies returns the responses accepted as success for cmd.
func Replies(cmd Command) []Reply {
	return replies[cmd]
}

// Match checks a response line (without terminator) against the replies cmd
// accepts. It returns the parsed fields, or a MismatchError carrying the line.
//
// Match does not read the data chunk; see ReadResponse.
func Match(cmd Command, line []byte) (*Response, error) {
	tokens := bytes.Fields(line)

	candidates := replies[cmd]
	if len(tokens) > 0 {
		for _, reply := range candidates {
			if string(tokens[0]) != string(reply.Status) || len(tokens)-1 != len(reply.Fields) {
				continue
			}
			if resp, ok := parseFields(reply, tokens[1:]); ok {
				resp.Line = string(line)
				return resp, nil
			}
		}
	}

	return nil, newMismatchError(cmd, line)
}

func parseFields(reply Reply, tokens [][]byte) (*Response, bool) {
	resp := &Response{Status: reply.Status}

	for i, field := range reply.Fields {
		tok := tokens[i]

		switch field {
		case FieldID, FieldCount:
			v, ok := parseUint(tok)
			if !ok {
				return nil, false
			}
			if field == FieldID {
				resp.ID = v
			} else {
				resp.Count = v
			}

		case FieldTube:
			resp.Tube = string(tok)

		case FieldSize:
			v, ok := parseUint(tok)
			if !ok || v > MaxChunkSize {
				return nil, false
			}
			resp.Size = int(v)
			resp.hasChunk = true
		}
	}

	return resp, true
}

// parseUint accepts plain decimal digits only (no sign).
func parseUint(tok []byte) (uint64, bool) {
	if len(tok) == 0 || tok[0] < '0' || tok[0] > '9' {
		return 0, false
	}
	v, err := strconv.ParseUint(string(tok), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func newMismatchError(cmd Command, line []byte) *MismatchError {
	candidates := replies[cmd]
	expected := make([]Status, len(candidates))
	for i, reply := range candidates {
		expected[i] = reply.Status
	}
	return &MismatchError{
		Command:  cmd,
		Expected: expected,
		Line:     string(line),
	}
}

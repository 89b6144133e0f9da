package wire

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchMismatch(t *testing.T) {
	tests := []struct {
		cmd    Command
		line   string
		status Status
	}{
		{CmdPut, "JOB_TOO_BIG", StatusJobTooBig},
		{CmdPut, "EXPECTED_CRLF", StatusExpectedCRLF},
		{CmdPut, "DRAINING", StatusDraining},
		{CmdPut, "INSERTED", StatusInserted},
		{CmdPut, "INSERTED abc", StatusInserted},
		{CmdPut, "INSERTED -1", StatusInserted},
		{CmdPut, "INSERTED 1 2", StatusInserted},
		{CmdReserve, "DEADLINE_SOON", StatusDeadlineSoon},
		{CmdReserveWithTimeout, "TIMED_OUT", StatusTimedOut},
		{CmdReserve, "RESERVED 1", StatusReserved},
		{CmdReserve, "RESERVED 1 +5", StatusReserved},
		{CmdReserve, fmt.Sprintf("RESERVED 1 %d", MaxChunkSize+1), StatusReserved},
		{CmdDelete, "NOT_FOUND", StatusNotFound},
		{CmdRelease, "BURIED", StatusBuried},
		{CmdBury, "NOT_FOUND", StatusNotFound},
		{CmdTouch, "NOT_FOUND", StatusNotFound},
		{CmdIgnore, "NOT_IGNORED", StatusNotIgnored},
		{CmdKickJob, "KICKED 1", StatusKicked},
		{CmdKick, "KICKED", StatusKicked},
		{CmdStats, "OUT_OF_MEMORY", StatusOutOfMemory},
		{CmdStatsJob, "INTERNAL_ERROR", StatusInternalError},
		{CmdUse, "BAD_FORMAT", StatusBadFormat},
		{CmdListTubes, "UNKNOWN_COMMAND", StatusUnknownCommand},
		{CmdPauseTube, "NOT_FOUND", StatusNotFound},
		{CmdDelete, "", ""},
		{CmdQuit, "OK", StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd)+"/"+tt.line, func(t *testing.T) {
			resp, err := Match(tt.cmd, []byte(tt.line))
			require.Nil(t, resp)

			var mismatch *MismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.cmd, mismatch.Command)
			assert.Equal(t, tt.line, mismatch.Line)
			assert.Equal(t, tt.status, mismatch.Status())
			assert.False(t, mismatch.ShouldCloseConnection())
		})
	}
}

func TestMatchAcceptedReplies(t *testing.T) {
	resp, err := Match(CmdPut, []byte("INSERTED 18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), resp.ID)
	assert.False(t, resp.ExpectsData())

	resp, err = Match(CmdBury, []byte("BURIED"))
	require.NoError(t, err)
	assert.Equal(t, StatusBuried, resp.Status)

	resp, err = Match(CmdListTubeUsed, []byte("USING default"))
	require.NoError(t, err)
	assert.Equal(t, "default", resp.Tube)
	assert.Equal(t, "USING default", resp.Line)

	resp, err = Match(CmdListTubesWatched, []byte("OK 20"))
	require.NoError(t, err)
	assert.True(t, resp.ExpectsData())
	assert.Equal(t, 20, resp.Size)
}

func TestMismatchErrorMessage(t *testing.T) {
	_, err := Match(CmdPut, []byte("JOB_TOO_BIG"))
	assert.EqualError(t, err, `beanstalk: put: expected INSERTED or BURIED, got "JOB_TOO_BIG"`)
}

func TestRepliesCoverEveryCommand(t *testing.T) {
	commands := []Command{
		CmdPut, CmdUse, CmdReserve, CmdReserveWithTimeout, CmdDelete, CmdRelease,
		CmdBury, CmdTouch, CmdWatch, CmdIgnore, CmdPeek, CmdPeekReady, CmdPeekDelayed,
		CmdPeekBuried, CmdKick, CmdKickJob, CmdStats, CmdStatsJob, CmdStatsTube,
		CmdListTubes, CmdListTubeUsed, CmdListTubesWatched, CmdPauseTube,
	}
	for _, cmd := range commands {
		assert.NotEmpty(t, Replies(cmd), "command %s", cmd)
	}
	assert.Empty(t, Replies(CmdQuit))
}

func TestReplyHasChunk(t *testing.T) {
	assert.True(t, Replies(CmdReserve)[0].HasChunk())
	assert.True(t, Replies(CmdStats)[0].HasChunk())
	assert.False(t, Replies(CmdPut)[0].HasChunk())
	assert.False(t, Replies(CmdListTubeUsed)[0].HasChunk())
}

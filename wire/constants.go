package wire

// Command is a beanstalk command name as it appears on the wire.
type Command string

// Status is the first token of a response line.
type Status string

// Protocol delimiters
const (
	// CRLF terminates every command line, response line and data chunk
	CRLF = "\r\n"

	// Space separates command tokens
	Space = " "
)

// Producer commands
const (
	// CmdPut inserts a job into the currently used tube.
	//
	// Wire format: put <pri> <delay> <ttr> <bytes>\r\n<data>\r\n
	//
	// Response statuses:
	//   - INSERTED <id>: job stored
	//   - BURIED <id>: server ran out of memory growing the priority queue, job buried
	//   - EXPECTED_CRLF: body not followed by CRLF
	//   - JOB_TOO_BIG: body larger than max-job-size
	//   - DRAINING: server is in drain mode
	CmdPut Command = "put"

	// CmdUse selects the tube subsequent put commands go to.
	//
	// Wire format: use <tube>\r\n
	//
	// Response statuses:
	//   - USING <tube>
	CmdUse Command = "use"
)

// Worker commands
const (
	// CmdReserve blocks until a job is ready in one of the watched tubes.
	//
	// Wire format: reserve\r\n
	//
	// Response statuses:
	//   - RESERVED <id> <bytes>\r\n<data>\r\n
	//   - DEADLINE_SOON: a reserved job's TTR is about to expire
	CmdReserve Command = "reserve"

	// CmdReserveWithTimeout is CmdReserve bounded by a timeout in seconds.
	//
	// Wire format: reserve-with-timeout <seconds>\r\n
	//
	// Response statuses:
	//   - RESERVED <id> <bytes>\r\n<data>\r\n
	//   - DEADLINE_SOON
	//   - TIMED_OUT: no job became ready within the timeout
	CmdReserveWithTimeout Command = "reserve-with-timeout"

	// CmdDelete removes a job. Response: DELETED | NOT_FOUND
	CmdDelete Command = "delete"

	// CmdRelease puts a reserved job back into the ready (or delayed) queue.
	//
	// Wire format: release <id> <pri> <delay>\r\n
	//
	// Response statuses: RELEASED | BURIED | NOT_FOUND
	CmdRelease Command = "release"

	// CmdBury moves a reserved job to the buried list.
	//
	// Wire format: bury <id> <pri>\r\n
	//
	// Response statuses: BURIED | NOT_FOUND
	CmdBury Command = "bury"

	// CmdTouch extends the TTR of a reserved job. Response: TOUCHED | NOT_FOUND
	CmdTouch Command = "touch"

	// CmdWatch adds a tube to the watch list. Response: WATCHING <count>
	CmdWatch Command = "watch"

	// CmdIgnore removes a tube from the watch list.
	// Response: WATCHING <count> | NOT_IGNORED (last watched tube)
	CmdIgnore Command = "ignore"
)

// Other commands
const (
	CmdPeek        Command = "peek"
	CmdPeekReady   Command = "peek-ready"
	CmdPeekDelayed Command = "peek-delayed"
	CmdPeekBuried  Command = "peek-buried"

	// CmdKick moves up to <bound> jobs of the used tube to the ready queue,
	// buried jobs first, delayed jobs only when none are buried.
	// Response: KICKED <count>
	CmdKick Command = "kick"

	// CmdKickJob kicks a single buried or delayed job. Response: KICKED | NOT_FOUND
	CmdKickJob Command = "kick-job"

	CmdStatsJob  Command = "stats-job"
	CmdStatsTube Command = "stats-tube"
	CmdStats     Command = "stats"

	CmdListTubes        Command = "list-tubes"
	CmdListTubeUsed     Command = "list-tube-used"
	CmdListTubesWatched Command = "list-tubes-watched"

	// CmdPauseTube delays new reservations in a tube. Response: PAUSED | NOT_FOUND
	CmdPauseTube Command = "pause-tube"

	// CmdQuit closes the connection. The server sends no response.
	CmdQuit Command = "quit"
)

// Success statuses
const (
	StatusInserted Status = "INSERTED"
	StatusBuried   Status = "BURIED"
	StatusUsing    Status = "USING"
	StatusReserved Status = "RESERVED"
	StatusDeleted  Status = "DELETED"
	StatusReleased Status = "RELEASED"
	StatusTouched  Status = "TOUCHED"
	StatusWatching Status = "WATCHING"
	StatusFound    Status = "FOUND"
	StatusKicked   Status = "KICKED"
	StatusOK       Status = "OK"
	StatusPaused   Status = "PAUSED"
)

// Negative statuses, specific to some commands
const (
	StatusNotFound     Status = "NOT_FOUND"
	StatusNotIgnored   Status = "NOT_IGNORED"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusDeadlineSoon Status = "DEADLINE_SOON"
	StatusDraining     Status = "DRAINING"
	StatusExpectedCRLF Status = "EXPECTED_CRLF"
	StatusJobTooBig    Status = "JOB_TOO_BIG"
)

// Errors any command may receive
const (
	StatusOutOfMemory    Status = "OUT_OF_MEMORY"
	StatusInternalError  Status = "INTERNAL_ERROR"
	StatusBadFormat      Status = "BAD_FORMAT"
	StatusUnknownCommand Status = "UNKNOWN_COMMAND"
)

// Protocol limits
const (
	// MaxNameLength is the maximum tube name length in bytes
	MaxNameLength = 200

	// MinNameLength is the minimum tube name length in bytes
	MinNameLength = 1

	// MaxLineLength bounds a command line as accepted by beanstalkd (name plus overhead)
	MaxLineLength = 224

	// DefaultTube is the tube every connection uses and watches initially
	DefaultTube = "default"
)

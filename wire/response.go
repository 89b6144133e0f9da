package wire

// Response represents a reply that matched the grammar of its command.
// Only the fields named by the matching Reply are set.
type Response struct {
	// Status is the status word: INSERTED, RESERVED, OK, ...
	Status Status

	// Line is the verbatim response line without its terminator
	Line string

	// ID is the job id of INSERTED, BURIED (put), RESERVED and FOUND
	ID uint64

	// Count is the number of WATCHING tubes or KICKED jobs
	Count uint64

	// Tube is the tube name of USING
	Tube string

	// Size is the declared data chunk length of RESERVED, FOUND and OK
	Size int

	// Data is the data chunk, without its trailing two bytes
	Data []byte

	hasChunk bool
}

// ExpectsData reports whether a data chunk follows the response line.
func (r *Response) ExpectsData() bool {
	return r.hasChunk
}

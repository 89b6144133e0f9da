// Package wire provides a low-level implementation of the beanstalk
// work-queue protocol.
//
// It covers serialization of commands, reading of response lines and data
// chunks, and matching each reply against the grammar of the command that
// produced it. Connection management is left to the caller.
//
// # Core Types
//
//   - Request: a command name, its serialized arguments and an optional job body
//   - Response: the fields of a reply that matched its command's grammar
//   - Reply: one accepted reply shape (status word + typed fields)
//
// # Serialization and Parsing
//
// WriteRequest serializes requests to wire format:
//
//	req := wire.NewPutRequest([]byte("hello"), 1024, 0, time.Minute)
//	err := wire.WriteRequest(conn, req) // "put 1024 0 60 5\r\nhello\r\n"
//
// ReadResponse reads one reply, including its data chunk:
//
//	resp, err := wire.ReadResponse(bufio.NewReader(conn), req.Command)
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	id := resp.ID
//
// # Error Handling
//
//   - ConnectionError: I/O failure or truncated reply, CLOSE the connection
//   - MismatchError: reply is not a success for the command (NOT_FOUND,
//     TIMED_OUT, BAD_FORMAT, ...), connection can be REUSED
//   - InvalidNameError: tube name rejected before sending, connection can be REUSED
//
// The server's negative replies are deliberately not mapped to distinct
// error types. Use IsStatus or MismatchError.Status to inspect them:
//
//	if wire.IsStatus(err, wire.StatusNotFound) {
//	    // job is gone
//	}
//
// # Data Chunks
//
// Job bodies and stats payloads are sent as "<bytes>" on the reply line
// followed by exactly bytes+2 bytes. ReadChunk consumes all of them and drops
// the last two without checking their content, so bodies may contain CRLF.
//
// # Thread Safety
//
// Request and Response are not safe for concurrent use. WriteRequest and
// ReadResponse are safe as long as each goroutine uses its own reader and
// writer. The protocol allows a single request in flight per connection.
package wire

// Package beanstalk is a client for the beanstalk work queue protocol.
//
// A Client owns a single connection and issues one command at a time:
//
//	client, err := beanstalk.Dial(ctx, beanstalk.Config{Host: "localhost"})
//	if err != nil {
//		return err
//	}
//	defer client.Quit()
//
//	id, _, err := client.Put(ctx, []byte("hello"), 1024, 0, time.Minute)
//	job, err := client.Reserve(ctx)
//	err = client.Delete(ctx, job.ID)
//
// Replies other than the success reply of a command are returned as
// *wire.MismatchError, which carries the verbatim line (NOT_FOUND, TIMED_OUT,
// NOT_IGNORED, ...). The connection stays usable after a mismatch.
//
// Transport failures (I/O error, timeout, truncated reply, cancelled context)
// are returned as *wire.ConnectionError and close the connection. The client
// never reconnects or retries.
//
// ConnectionPool keeps connections for reuse: clients obtained with Get go
// back to it with Client.KeepAlive.
package beanstalk

package testutils

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a net.Conn that replays scripted server replies and
// records what the client wrote. Reads past the script return io.EOF.
type ConnectionMock struct {
	mu        sync.Mutex
	readBuf   *bytes.Buffer
	writeBuf  *bytes.Buffer
	writes    int
	deadlines []time.Time
	closed    bool
}

// NewConnectionMock creates a mock connection with pre-configured response data
func NewConnectionMock(responseData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(strings.Join(responseData, "")),
		writeBuf: &bytes.Buffer{},
	}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	m.writes++
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11300}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines = append(m.deadlines, t)
	return nil
}

func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return m.SetDeadline(t) }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return m.SetDeadline(t) }

// GetWrittenRequest returns the raw request bytes written to the mock connection
func (m *ConnectionMock) GetWrittenRequest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// Writes returns the number of Write calls.
func (m *ConnectionMock) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// LastDeadline returns the last deadline set, zero if none.
func (m *ConnectionMock) LastDeadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.deadlines) == 0 {
		return time.Time{}
	}
	return m.deadlines[len(m.deadlines)-1]
}

// Unread returns the scripted bytes not consumed by the client.
func (m *ConnectionMock) Unread() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuf.String()
}

func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

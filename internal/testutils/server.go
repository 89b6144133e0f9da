package testutils

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type jobState int

const (
	stateReady jobState = iota
	stateDelayed
	stateReserved
	stateBuried
)

func (s jobState) String() string {
	return [...]string{"ready", "delayed", "reserved", "buried"}[s]
}

type fakeJob struct {
	id       uint64
	tube     string
	pri      uint32
	ttr      int
	body     []byte
	state    jobState
	readyAt  time.Time
	reserver *session
}

type session struct {
	used    string
	watched []string
}

// Server is an in-process beanstalkd speaking enough of the protocol to run
// client scenarios: tubes, ready/delayed/reserved/buried jobs, peek, kick,
// stats and pause. TTR expiry and job priorities beyond ordering are not modeled.
type Server struct {
	ln net.Listener

	mu       sync.Mutex
	jobs     map[uint64]*fakeJob
	nextID   uint64
	tubes    map[string]time.Time // tube -> paused until
	conns    map[net.Conn]struct{}
	commands map[string]int
	accepted int
	closed   bool

	wg sync.WaitGroup
}

// NewServer starts a fake server on 127.0.0.1:0. It is closed with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &Server{
		ln:       ln,
		jobs:     map[uint64]*fakeJob{},
		tubes:    map[string]time.Time{"default": {}},
		conns:    map[net.Conn]struct{}{},
		commands: map[string]int{},
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// CommandCount returns how many times the named command was received.
func (s *Server) CommandCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[name]
}

// DropConnections closes every open connection, as a server restart would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	sess := &session{used: "default", watched: []string{"default"}}
	defer s.releaseAll(sess)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimRight(line, "\r\n"))
		if len(fields) == 0 {
			fmt.Fprint(w, "BAD_FORMAT\r\n")
			w.Flush()
			continue
		}

		if fields[0] == "quit" {
			return
		}

		var body []byte
		if fields[0] == "put" && len(fields) == 5 {
			n, err := strconv.Atoi(fields[4])
			if err != nil || n < 0 {
				fmt.Fprint(w, "BAD_FORMAT\r\n")
				w.Flush()
				continue
			}
			body = make([]byte, n+2)
			if _, err := io.ReadFull(r, body); err != nil {
				return
			}
			if string(body[n:]) != "\r\n" {
				fmt.Fprint(w, "EXPECTED_CRLF\r\n")
				w.Flush()
				continue
			}
			body = body[:n]
		}

		reply, ok := s.handle(sess, fields, body)
		if !ok {
			return
		}
		w.WriteString(reply)
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// releaseAll puts back the jobs reserved by a closed session.
func (s *Server) releaseAll(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.reserver == sess {
			j.state = stateReady
			j.reserver = nil
		}
	}
}

func (s *Server) handle(sess *session, fields []string, body []byte) (string, bool) {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "reserve":
		if len(args) != 0 {
			return "BAD_FORMAT\r\n", true
		}
		return s.reserve(sess, -1)
	case "reserve-with-timeout":
		secs, ok := intArgs(args, 1)
		if !ok {
			return "BAD_FORMAT\r\n", true
		}
		return s.reserve(sess, time.Duration(secs[0])*time.Second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands[cmd]++
	s.promote()

	switch cmd {
	case "put":
		n, ok := intArgs(args, 4)
		if !ok {
			return "BAD_FORMAT\r\n", true
		}
		s.nextID++
		j := &fakeJob{id: s.nextID, tube: sess.used, pri: uint32(n[0]), ttr: int(n[2]), body: body}
		if n[1] > 0 {
			j.state = stateDelayed
			j.readyAt = time.Now().Add(time.Duration(n[1]) * time.Second)
		}
		s.jobs[j.id] = j
		return fmt.Sprintf("INSERTED %d\r\n", j.id), true

	case "use":
		if len(args) != 1 {
			return "BAD_FORMAT\r\n", true
		}
		sess.used = args[0]
		s.touchTube(args[0])
		return fmt.Sprintf("USING %s\r\n", args[0]), true

	case "watch":
		if len(args) != 1 {
			return "BAD_FORMAT\r\n", true
		}
		if !slices.Contains(sess.watched, args[0]) {
			sess.watched = append(sess.watched, args[0])
		}
		s.touchTube(args[0])
		return fmt.Sprintf("WATCHING %d\r\n", len(sess.watched)), true

	case "ignore":
		if len(args) != 1 {
			return "BAD_FORMAT\r\n", true
		}
		i := slices.Index(sess.watched, args[0])
		if i >= 0 {
			if len(sess.watched) == 1 {
				return "NOT_IGNORED\r\n", true
			}
			sess.watched = slices.Delete(sess.watched, i, i+1)
		}
		return fmt.Sprintf("WATCHING %d\r\n", len(sess.watched)), true

	case "delete":
		j, ok := s.jobArg(args)
		if !ok || (j.state == stateReserved && j.reserver != sess) {
			return "NOT_FOUND\r\n", true
		}
		delete(s.jobs, j.id)
		return "DELETED\r\n", true

	case "release":
		n, ok := intArgs(args, 3)
		if !ok {
			return "BAD_FORMAT\r\n", true
		}
		j := s.jobs[n[0]]
		if j == nil || j.state != stateReserved || j.reserver != sess {
			return "NOT_FOUND\r\n", true
		}
		j.pri, j.reserver = uint32(n[1]), nil
		j.state = stateReady
		if n[2] > 0 {
			j.state = stateDelayed
			j.readyAt = time.Now().Add(time.Duration(n[2]) * time.Second)
		}
		return "RELEASED\r\n", true

	case "bury":
		n, ok := intArgs(args, 2)
		if !ok {
			return "BAD_FORMAT\r\n", true
		}
		j := s.jobs[n[0]]
		if j == nil || j.state != stateReserved || j.reserver != sess {
			return "NOT_FOUND\r\n", true
		}
		j.pri, j.reserver, j.state = uint32(n[1]), nil, stateBuried
		return "BURIED\r\n", true

	case "touch":
		j, ok := s.jobArg(args)
		if !ok || j.state != stateReserved || j.reserver != sess {
			return "NOT_FOUND\r\n", true
		}
		return "TOUCHED\r\n", true

	case "peek":
		j, ok := s.jobArg(args)
		if !ok {
			return "NOT_FOUND\r\n", true
		}
		return found(j), true

	case "peek-ready", "peek-delayed", "peek-buried":
		state := map[string]jobState{"peek-ready": stateReady, "peek-delayed": stateDelayed, "peek-buried": stateBuried}[cmd]
		jobs := s.jobsIn(sess.used, state)
		if len(jobs) == 0 {
			return "NOT_FOUND\r\n", true
		}
		return found(jobs[0]), true

	case "kick":
		n, ok := intArgs(args, 1)
		if !ok {
			return "BAD_FORMAT\r\n", true
		}
		jobs := s.jobsIn(sess.used, stateBuried)
		if len(jobs) == 0 {
			jobs = s.jobsIn(sess.used, stateDelayed)
		}
		kicked := 0
		for _, j := range jobs {
			if uint64(kicked) >= n[0] {
				break
			}
			j.state = stateReady
			kicked++
		}
		return fmt.Sprintf("KICKED %d\r\n", kicked), true

	case "kick-job":
		j, ok := s.jobArg(args)
		if !ok || (j.state != stateBuried && j.state != stateDelayed) {
			return "NOT_FOUND\r\n", true
		}
		j.state = stateReady
		return "KICKED\r\n", true

	case "stats":
		counts := map[jobState]int{}
		for _, j := range s.jobs {
			counts[j.state]++
		}
		return okYAML(fmt.Sprintf("---\ncurrent-jobs-ready: %d\ncurrent-jobs-delayed: %d\ncurrent-jobs-reserved: %d\ncurrent-jobs-buried: %d\ncurrent-tubes: %d\ncurrent-connections: %d\n",
			counts[stateReady], counts[stateDelayed], counts[stateReserved], counts[stateBuried], len(s.tubes), len(s.conns))), true

	case "stats-job":
		j, ok := s.jobArg(args)
		if !ok {
			return "NOT_FOUND\r\n", true
		}
		return okYAML(fmt.Sprintf("---\nid: %d\ntube: %q\nstate: %s\npri: %d\nttr: %d\n", j.id, j.tube, j.state, j.pri, j.ttr)), true

	case "stats-tube":
		if len(args) != 1 {
			return "BAD_FORMAT\r\n", true
		}
		if _, ok := s.tubes[args[0]]; !ok {
			return "NOT_FOUND\r\n", true
		}
		return okYAML(fmt.Sprintf("---\nname: %q\ncurrent-jobs-ready: %d\ncurrent-jobs-buried: %d\n",
			args[0], len(s.jobsIn(args[0], stateReady)), len(s.jobsIn(args[0], stateBuried)))), true

	case "list-tubes":
		names := make([]string, 0, len(s.tubes))
		for name := range s.tubes {
			names = append(names, name)
		}
		sort.Strings(names)
		return okYAML(yamlList(names)), true

	case "list-tubes-watched":
		return okYAML(yamlList(sess.watched)), true

	case "list-tube-used":
		return fmt.Sprintf("USING %s\r\n", sess.used), true

	case "pause-tube":
		if len(args) != 2 {
			return "BAD_FORMAT\r\n", true
		}
		delay, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return "BAD_FORMAT\r\n", true
		}
		if _, ok := s.tubes[args[0]]; !ok {
			return "NOT_FOUND\r\n", true
		}
		s.tubes[args[0]] = time.Now().Add(time.Duration(delay) * time.Second)
		return "PAUSED\r\n", true
	}

	return "UNKNOWN_COMMAND\r\n", true
}

// reserve polls for a ready job in the watched tubes. A negative timeout
// waits until the server is closed.
func (s *Server) reserve(sess *session, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return "", false
		}
		s.promote()

		var best *fakeJob
		now := time.Now()
		for _, tube := range sess.watched {
			if s.tubes[tube].After(now) {
				continue
			}
			for _, j := range s.jobsIn(tube, stateReady) {
				if best == nil || j.pri < best.pri || (j.pri == best.pri && j.id < best.id) {
					best = j
				}
			}
		}
		if best != nil {
			best.state = stateReserved
			best.reserver = sess
			s.commands["reserve"]++
			s.mu.Unlock()
			return fmt.Sprintf("RESERVED %d %d\r\n%s\r\n", best.id, len(best.body), best.body), true
		}
		s.mu.Unlock()

		if timeout >= 0 && !time.Now().Before(deadline) {
			s.mu.Lock()
			s.commands["reserve"]++
			s.mu.Unlock()
			return "TIMED_OUT\r\n", true
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// promote moves delayed jobs whose delay elapsed to the ready queue.
func (s *Server) promote() {
	now := time.Now()
	for _, j := range s.jobs {
		if j.state == stateDelayed && !now.Before(j.readyAt) {
			j.state = stateReady
		}
	}
}

func (s *Server) touchTube(name string) {
	if _, ok := s.tubes[name]; !ok {
		s.tubes[name] = time.Time{}
	}
}

// jobsIn returns the jobs of a tube in a state, ordered by id.
func (s *Server) jobsIn(tube string, state jobState) []*fakeJob {
	var jobs []*fakeJob
	for _, j := range s.jobs {
		if j.tube == tube && j.state == state {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].id < jobs[b].id })
	return jobs
}

func (s *Server) jobArg(args []string) (*fakeJob, bool) {
	n, ok := intArgs(args, 1)
	if !ok {
		return nil, false
	}
	j, ok := s.jobs[n[0]]
	return j, ok
}

func intArgs(args []string, n int) ([]uint64, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]uint64, n)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func found(j *fakeJob) string {
	return fmt.Sprintf("FOUND %d %d\r\n%s\r\n", j.id, len(j.body), j.body)
}

func okYAML(doc string) string {
	return fmt.Sprintf("OK %d\r\n%s\r\n", len(doc), doc)
}

func yamlList(items []string) string {
	var b strings.Builder
	b.WriteString("---\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

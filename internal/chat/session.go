package chat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the server side state of one connected participant. It is
// owned by the handler that created it; the Registry only references it.
type Session struct {
	ID   string
	Name string

	conn      net.Conn
	reader    *bufio.Reader
	out       *lineWriter
	status    atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

func NewSession(conn net.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		ID:     uuid.NewString(),
		conn:   conn,
		reader: bufio.NewReader(conn),
		out:    newLineWriter(conn, writeTimeout),
	}
}

func (s *Session) Status() Status {
	return Status(s.status.Load())
}

func (s *Session) setStatus(st Status) {
	s.status.Store(int32(st))
}

// RemoteAddr returns the peer address, or "" when unknown.
func (s *Session) RemoteAddr() string {
	if s.conn == nil || s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Send writes one already rendered line.
func (s *Session) Send(line string) error {
	return s.out.WriteLine(line)
}

func (s *Session) sendf(format string, args ...any) error {
	return s.Send(fmt.Sprintf(format, args...) + "\n")
}

// ReadLine blocks for the next input line, without its terminator.
func (s *Session) ReadLine() (string, error) {
	return readLine(s.reader)
}

// Close releases the connection. A pending ReadLine fails afterwards,
// which is how the owning handler learns about a failed delivery.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}

package chat

import (
	"bufio"
	"net"
	"sync"
	"time"
)

// lineWriter serializes whole lines onto one connection. Concurrent
// broadcasts may target the same session, so every line is written and
// flushed under the lock.
type lineWriter struct {
	mu      sync.Mutex
	conn    net.Conn
	w       *bufio.Writer
	timeout time.Duration
}

func newLineWriter(conn net.Conn, timeout time.Duration) *lineWriter {
	return &lineWriter{conn: conn, w: bufio.NewWriter(conn), timeout: timeout}
}

func (lw *lineWriter) WriteLine(line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.timeout > 0 {
		if err := lw.conn.SetWriteDeadline(time.Now().Add(lw.timeout)); err != nil {
			return err
		}
	}
	if _, err := lw.w.WriteString(line); err != nil {
		return err
	}
	return lw.w.Flush()
}

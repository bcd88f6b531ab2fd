// Package client runs the interactive side of the chat: one duty prints
// what the server sends, the other forwards local input, and both stop on
// a shared shutdown signal.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andy6609/broadcast-chat/internal/chat"
	"github.com/gookit/color"
	"golang.org/x/sync/errgroup"
)

type Option func(c *Client)

// WithColours highlights notices and sender names in the output.
func WithColours(on bool) Option {
	return func(c *Client) {
		c.colours = on
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

type Client struct {
	conn    net.Conn
	in      io.Reader
	out     io.Writer
	log     *slog.Logger
	colours bool

	quitting atomic.Bool
	mu       sync.Mutex // guards out
}

// Dial opens the TCP connection to the chat server.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

func New(conn net.Conn, in io.Reader, out io.Writer, opts ...Option) *Client {
	c := &Client{
		conn: conn,
		in:   in,
		out:  out,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until the user quits, local input ends, the server closes
// the connection or ctx is cancelled. Those are all normal endings and
// return nil. The connection is closed when Run returns.
//
// The goroutine reading local input cannot be interrupted while blocked
// in Read; it stays parked until in yields or the process exits.
func (c *Client) Run(ctx context.Context) error {
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	g, ctx := errgroup.WithContext(ctx)
	input := c.readInput(ctx)

	g.Go(func() error {
		defer shutdown()
		return c.receive(ctx)
	})
	g.Go(func() error {
		defer shutdown()
		return c.transmit(ctx, input)
	})
	g.Go(func() error {
		<-ctx.Done()
		c.println("Disconnecting from the server...")
		c.closeConn()
		return nil
	})

	err := g.Wait()
	c.println("Done.")
	return err
}

// receive is the output duty.
func (c *Client) receive(ctx context.Context) error {
	r := bufio.NewReader(c.conn)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			c.println(c.format(line))
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil || c.quitting.Load() {
			return nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			c.println("Server closed the connection.")
			return nil
		}
		return fmt.Errorf("receive: %w", err)
	}
}

// transmit is the input duty. End of local input counts as QUIT.
func (c *Client) transmit(ctx context.Context, input <-chan string) error {
	w := bufio.NewWriter(c.conn)
	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-input:
		}
		if !ok {
			c.log.Debug("local input closed")
			line = chat.QuitSentinel
		}
		quit := strings.TrimSpace(line) == chat.QuitSentinel
		if quit {
			c.quitting.Store(true)
		}

		if _, err := w.WriteString(line + "\n"); err != nil {
			return c.sendFailed(ctx, err)
		}
		if err := w.Flush(); err != nil {
			return c.sendFailed(ctx, err)
		}
		if quit {
			c.println("Quitting...")
			return nil
		}
	}
}

func (c *Client) sendFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		c.log.Debug("send aborted", "error", err)
		return nil
	}
	return fmt.Errorf("send: %w", err)
}

func (c *Client) readInput(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			c.log.Debug("local input failed", "error", err)
		}
	}()
	return lines
}

// closeConn half-closes first when the transport allows it so queued
// writes reach the server before the full close.
func (c *Client) closeConn() {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug("close failed", "error", err)
	}
}

// format strips the terminator and colours protocol lines.
func (c *Client) format(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if !c.colours {
		return line
	}
	if strings.HasPrefix(line, "ERR ") {
		return color.New(color.FgRed).Render(line)
	}
	msg, ok := chat.ParseLine(line)
	if !ok {
		return line
	}
	switch msg.Kind {
	case chat.KindJoin:
		return color.New(color.FgGreen).Render(line)
	case chat.KindLeave:
		return color.New(color.FgYellow).Render(line)
	default:
		return color.New(color.FgCyan, color.OpBold).Render(msg.Sender) + ": " + msg.Text
	}
}

func (c *Client) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}

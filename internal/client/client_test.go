package client

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	server *bufio.Reader
	conn   net.Conn
	input  *io.PipeWriter
	out    *syncBuffer
	done   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, in io.Reader) *harness {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		server: bufio.NewReader(serverConn),
		conn:   serverConn,
		out:    &syncBuffer{},
		done:   make(chan error, 1),
		cancel: cancel,
	}
	if in == nil {
		r, w := io.Pipe()
		h.input = w
		in = r
	}
	t.Cleanup(func() {
		cancel()
		_ = serverConn.Close()
		if h.input != nil {
			_ = h.input.Close()
		}
	})

	c := New(clientConn, in, h.out, WithColours(false))
	go func() { h.done <- c.Run(ctx) }()
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func (h *harness) serverReads(t *testing.T, want string) {
	t.Helper()
	_ = h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := h.server.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func (h *harness) printed(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(h.out.String(), want)
	}, 2*time.Second, 10*time.Millisecond, "output so far: %q", h.out.String())
}

func TestClient_ForwardsInputAndStopsOnQuit(t *testing.T) {
	req := require.New(t)
	h := start(t, nil)

	// Given a line from the server is printed
	_, err := io.WriteString(h.conn, "bob: hi\n")
	req.NoError(err)
	h.printed(t, "bob: hi\n")

	// When the user types a message and then QUIT
	_, err = io.WriteString(h.input, "hello\n")
	req.NoError(err)
	h.serverReads(t, "hello\n")
	_, err = io.WriteString(h.input, " QUIT \n")
	req.NoError(err)
	h.serverReads(t, " QUIT \n")

	// Then the client shuts down cleanly and reports each step
	req.NoError(h.wait(t))
	out := h.out.String()
	quitting := strings.Index(out, "Quitting...\n")
	disconnecting := strings.Index(out, "Disconnecting from the server...\n")
	done := strings.Index(out, "Done.\n")
	req.True(quitting >= 0 && quitting < disconnecting && disconnecting < done, "output: %q", out)
	req.NotContains(out, "Server closed the connection.")
}

func TestClient_StopsWhenServerCloses(t *testing.T) {
	req := require.New(t)
	h := start(t, nil)

	_, err := io.WriteString(h.conn, "Welcome alice. Send QUIT to disconnect.\n")
	req.NoError(err)
	req.NoError(h.conn.Close())

	req.NoError(h.wait(t))
	out := h.out.String()
	req.Contains(out, "Welcome alice. Send QUIT to disconnect.\n")
	req.Contains(out, "Server closed the connection.\n")
	req.True(strings.HasSuffix(out, "Done.\n"), "output: %q", out)
	req.NotContains(out, "Quitting...")
}

func TestClient_EndOfInputSendsQuit(t *testing.T) {
	req := require.New(t)
	h := start(t, strings.NewReader("last words\n"))

	h.serverReads(t, "last words\n")
	h.serverReads(t, "QUIT\n")

	req.NoError(h.wait(t))
	req.Contains(h.out.String(), "Quitting...\n")
}

func TestClient_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	h := start(t, nil)

	h.cancel()

	req.NoError(h.wait(t))
	req.Contains(h.out.String(), "Disconnecting from the server...\n")
}

func TestClient_FormatColoursKeepText(t *testing.T) {
	c := New(nil, nil, io.Discard, WithColours(true))
	lines := []string{
		"alice has connected!\n",
		"alice has left the room\n",
		"alice: hello\n",
		"ERR name_taken\n",
		"Enter your name:\n",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			require.Equal(t, strings.TrimRight(line, "\n"), color.ClearCode(c.format(line)))
		})
	}
}

func TestDial(t *testing.T) {
	req := require.New(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	addr := ln.Addr().String()

	conn, err := Dial(context.Background(), addr)
	req.NoError(err)
	req.NoError(conn.Close())
	req.NoError(ln.Close())

	_, err = Dial(context.Background(), addr)
	req.Error(err)
}

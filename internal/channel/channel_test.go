package channel

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriaW/minipar/internal/errors"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.DialInterval = 10 * time.Millisecond
	return opts
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestServerAndClientExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, err := Listen(ctx, "chan1", "127.0.0.1", 0, testOptions())
	require.NoError(t, err)
	defer srv.Close()
	assert.Equal(t, "awaiting_peer", srv.State())

	host, port := splitAddr(t, srv.Addr)
	cli, err := Dial(ctx, "chan1", host, port, testOptions())
	require.NoError(t, err)
	defer cli.Close()
	assert.Equal(t, "connected", cli.State())

	require.NoError(t, cli.Send(ctx, "hello"))
	got, err := srv.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "serving", srv.State())

	require.NoError(t, srv.Send(ctx, "world"))
	got, err = cli.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "world", got)
}

func TestServerSendWaitsForPeer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, err := Listen(ctx, "c", "127.0.0.1", 0, testOptions())
	require.NoError(t, err)
	defer srv.Close()

	sent := make(chan error, 1)
	go func() { sent <- srv.Send(ctx, "early") }()

	host, port := splitAddr(t, srv.Addr)
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, <-sent)

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "early", string(buf[:n]))
}

func TestReceiveTruncatesToReadBuffer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := testOptions()
	opts.ReadBuffer = 4

	srv, err := Listen(ctx, "c", "127.0.0.1", 0, opts)
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	got, err := srv.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
}

func TestReceiveAfterPeerClosed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, err := Listen(ctx, "c", "127.0.0.1", 0, testOptions())
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = srv.Receive(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeChannel))
	assert.Contains(t, err.Error(), "peer closed the connection")
}

func TestDialGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := splitAddr(t, ln.Addr().String())
	require.NoError(t, ln.Close())

	opts := testOptions()
	opts.DialAttempts = 3

	_, err = Dial(context.Background(), "c", host, port, opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeChannel))
	assert.Contains(t, err.Error(), "connect failed after 3 attempt(s)")
	assert.Contains(t, err.Error(), "channel=c")
}

func TestDialRetriesUntilServerIsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, port := splitAddr(t, addr)
	srvCh := make(chan *Channel, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		srv, err := Listen(ctx, "c", host, port, testOptions())
		if err != nil {
			srvCh <- nil
			return
		}
		srvCh <- srv
	}()

	cli, err := Dial(ctx, "c", host, port, testOptions())
	require.NoError(t, err)
	defer cli.Close()

	srv := <-srvCh
	require.NotNil(t, srv)
	defer srv.Close()
}

func TestLocalQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewLocal("calc", testOptions())
	assert.Equal(t, "local", c.State())

	require.NoError(t, c.Send(ctx, "1 2"))
	require.NoError(t, c.Send(ctx, "3"))

	got, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 2", got)
	got, err = c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestLocalReceiveBlocksUntilSend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewLocal("calc", testOptions())
	got := make(chan string, 1)
	go func() {
		msg, err := c.Receive(ctx)
		if err == nil {
			got <- msg
		}
	}()

	require.NoError(t, c.Send(ctx, "ping"))
	select {
	case msg := <-got:
		assert.Equal(t, "ping", msg)
	case <-ctx.Done():
		t.Fatal("receive did not complete")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()

	c := NewLocal("c", testOptions())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, "closed", c.State())

	err := c.Send(ctx, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)

	srv, err := Listen(ctx, "s", "127.0.0.1", 0, testOptions())
	require.NoError(t, err)
	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())

	_, err = srv.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReceiveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewLocal("c", testOptions())
	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewLocal("a", testOptions())
	b := NewLocal("b", testOptions())

	require.NoError(t, r.Put(a))
	require.NoError(t, r.Put(b))

	dup := NewLocal("a", testOptions())
	defer dup.Close()
	err := r.Put(dup)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeChannel))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Get("missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "channel 'missing' is not open"))

	assert.Equal(t, []string{"a", "b"}, r.Names())

	require.NoError(t, r.CloseAll())
	assert.Equal(t, "closed", a.State())
	assert.Equal(t, "closed", b.State())
	assert.Empty(t, r.Names())
}

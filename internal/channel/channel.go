// Package channel implements the endpoints behind MiniPar channel
// declarations: TCP server and client roles for process-to-process traffic,
// and an in-process queue for descriptive channels.
//
// Messages are raw text payloads with no framing. A receive returns whatever
// a single read yields, up to Options.ReadBuffer bytes; longer payloads are
// truncated.
package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AnriaW/minipar/internal/errors"
	"github.com/AnriaW/minipar/internal/observability"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = stderrors.New("channel closed")

// Options tunes channel behaviour.
type Options struct {
	ReadBuffer    int
	DialAttempts  int
	DialInterval  time.Duration
	LocalCapacity int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ReadBuffer:    1024,
		DialAttempts:  20,
		DialInterval:  250 * time.Millisecond,
		LocalCapacity: 64,
	}
}

// state is the connection state of a Channel. Each variant holds exactly the
// handles valid in that state.
type state interface {
	name() string
}

// awaitingPeer: a server bound to its address, no counterpart accepted yet.
type awaitingPeer struct {
	ln       net.Listener
	accepted chan struct{}
}

// serving: a server with its single accepted counterpart.
type serving struct {
	ln   net.Listener
	conn net.Conn
}

// connected: a client connected to its server.
type connected struct {
	conn net.Conn
}

// local: an in-process queue.
type local struct {
	queue chan string
	done  chan struct{}
}

type closed struct {
	err error
}

func (*awaitingPeer) name() string { return "awaiting_peer" }
func (*serving) name() string      { return "serving" }
func (*connected) name() string    { return "connected" }
func (*local) name() string        { return "local" }
func (*closed) name() string       { return "closed" }

// Channel is one declared channel. It is safe for concurrent use; sends and
// receives from different goroutines do not block each other.
type Channel struct {
	Name string
	ID   string
	Addr string

	opts Options
	log  *slog.Logger

	mu sync.Mutex
	st state
}

func newChannel(name, addr string, opts Options) *Channel {
	id := uuid.NewString()
	return &Channel{
		Name: name,
		ID:   id,
		Addr: addr,
		opts: opts,
		log:  slog.Default().With("channel", name, "channel_id", id),
	}
}

// Listen binds a server-role channel and starts waiting for its single
// counterpart in the background. Operations block until the peer arrives.
func Listen(ctx context.Context, name, host string, port int, opts Options) (*Channel, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c := newChannel(name, addr, opts)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, channelError(err, name, addr, "listen failed")
	}
	c.Addr = ln.Addr().String()

	s := &awaitingPeer{ln: ln, accepted: make(chan struct{})}
	c.st = s
	c.log.Info("channel listening", "addr", c.Addr)

	go c.accept(s)

	return c, nil
}

func (c *Channel) accept(s *awaitingPeer) {
	conn, err := s.ln.Accept()

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(s.accepted)

	if c.st != state(s) {
		// Closed while waiting.
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		_ = s.ln.Close()
		c.st = &closed{err: channelError(err, c.Name, c.Addr, "accept failed")}
		c.log.Error("channel accept failed", "error", err)
		return
	}

	c.st = &serving{ln: s.ln, conn: conn}
	c.log.Info("channel accepted peer", "peer", conn.RemoteAddr().String())
}

// Dial connects a client-role channel, retrying while the server is not up
// yet. Attempts are paced by a rate limiter at one per DialInterval.
func Dial(ctx context.Context, name, host string, port int, opts Options) (*Channel, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c := newChannel(name, addr, opts)

	attempts := opts.DialAttempts
	if attempts < 1 {
		attempts = 1
	}
	limiter := rate.NewLimiter(rate.Every(opts.DialInterval), 1)
	dialer := &net.Dialer{}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, channelError(err, name, addr, "connect cancelled")
		}

		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.st = &connected{conn: conn}
			c.log.Info("channel connected", "addr", addr, "attempt", attempt)
			return c, nil
		}

		lastErr = err
		c.log.Debug("channel connect attempt failed", "addr", addr, "attempt", attempt, "error", err)
	}

	return nil, channelError(lastErr, name, addr, fmt.Sprintf("connect failed after %d attempt(s)", attempts))
}

// NewLocal returns an in-process channel backed by a buffered queue.
func NewLocal(name string, opts Options) *Channel {
	capacity := opts.LocalCapacity
	if capacity < 0 {
		capacity = 0
	}

	c := newChannel(name, "local", opts)
	c.st = &local{queue: make(chan string, capacity), done: make(chan struct{})}
	c.log.Info("channel created", "kind", "local", "capacity", capacity)
	return c
}

// State returns the name of the current state, for logs and tests.
func (c *Channel) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.name()
}

// conn returns the network connection, waiting for a server's peer if
// needed. Local channels return their queue instead.
func (c *Channel) conn(ctx context.Context) (net.Conn, *local, error) {
	for {
		c.mu.Lock()
		st := c.st
		c.mu.Unlock()

		switch s := st.(type) {
		case *serving:
			return s.conn, nil, nil
		case *connected:
			return s.conn, nil, nil
		case *local:
			return nil, s, nil
		case *closed:
			if s.err != nil {
				return nil, nil, s.err
			}
			return nil, nil, channelError(ErrClosed, c.Name, c.Addr, "channel is closed")
		case *awaitingPeer:
			c.log.Debug("channel waiting for peer")
			select {
			case <-s.accepted:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}
}

// Send transmits payload as one message.
func (c *Channel) Send(ctx context.Context, payload string) error {
	conn, q, err := c.conn(ctx)
	if err != nil {
		return err
	}

	if q != nil {
		select {
		case q.queue <- payload:
		case <-q.done:
			return channelError(ErrClosed, c.Name, c.Addr, "send failed")
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if _, err := io.WriteString(conn, payload); err != nil {
		return channelError(err, c.Name, c.Addr, "send failed")
	}

	observability.ChannelMessages.WithLabelValues(observability.DirectionSend).Inc()
	observability.ChannelBytes.WithLabelValues(observability.DirectionSend).Add(float64(len(payload)))
	c.log.Debug("channel sent", "bytes", len(payload))
	return nil
}

// Receive returns the next message. Over TCP that is the result of a single
// read of at most ReadBuffer bytes.
func (c *Channel) Receive(ctx context.Context) (string, error) {
	conn, q, err := c.conn(ctx)
	if err != nil {
		return "", err
	}

	var payload string
	if q != nil {
		select {
		case payload = <-q.queue:
		case <-q.done:
			return "", channelError(ErrClosed, c.Name, c.Addr, "receive failed")
		case <-ctx.Done():
			return "", ctx.Err()
		}
	} else {
		size := c.opts.ReadBuffer
		if size <= 0 {
			size = DefaultOptions().ReadBuffer
		}
		buf := make([]byte, size)

		n, err := conn.Read(buf)
		if n == 0 && err != nil {
			if stderrors.Is(err, io.EOF) {
				return "", channelError(err, c.Name, c.Addr, "peer closed the connection")
			}
			return "", channelError(err, c.Name, c.Addr, "receive failed")
		}
		payload = string(buf[:n])
	}

	observability.ChannelMessages.WithLabelValues(observability.DirectionReceive).Inc()
	observability.ChannelBytes.WithLabelValues(observability.DirectionReceive).Add(float64(len(payload)))
	c.log.Debug("channel received", "bytes", len(payload))
	return payload, nil
}

// Close releases every handle the channel owns. It is idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	switch s := c.st.(type) {
	case *closed:
		return nil
	case *awaitingPeer:
		errs = append(errs, s.ln.Close())
	case *serving:
		errs = append(errs, s.conn.Close(), s.ln.Close())
	case *connected:
		errs = append(errs, s.conn.Close())
	case *local:
		close(s.done)
	}

	c.st = &closed{}
	c.log.Info("channel closed")

	if err := stderrors.Join(errs...); err != nil {
		return channelError(err, c.Name, c.Addr, "close failed")
	}
	return nil
}

func channelError(err error, name, addr, msg string) error {
	de := &errors.DomainError{Code: errors.CodeChannel, Message: msg, Err: err}
	return de.WithContext(errors.CtxChannel, name).
		WithContext(errors.CtxAddress, addr)
}

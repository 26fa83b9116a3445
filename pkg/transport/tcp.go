package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"rovlink/pkg/protocol"
)

// Listener dials a TCP link endpoint and forwards every delimited link
// frame (still COBS encoded, delimiter stripped) to out. It redials with
// a linear backoff until ctx is done.
type Listener struct {
	addr         string
	out          chan<- []byte
	reconnect    time.Duration
	reconnectMax time.Duration
	bufSize      int
	dialTimeout  time.Duration
	readTimeout  time.Duration
	errorHandler func(error)
}

type Option func(*Listener)

func WithReconnectInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.reconnect = d
		}
	}
}

func WithReconnectMax(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.reconnectMax = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.bufSize = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.dialTimeout = d
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.readTimeout = d
		}
	}
}

func WithErrorHandler(fn func(error)) Option {
	return func(l *Listener) {
		if fn != nil {
			l.errorHandler = fn
		}
	}
}

func newListener(addr string, out chan<- []byte, opts []Option) *Listener {
	l := &Listener{
		addr:         addr,
		out:          out,
		reconnect:    1 * time.Second,
		reconnectMax: 30 * time.Second,
		bufSize:      4 * 1024,
		dialTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func StartListener(ctx context.Context, addr string, out chan<- []byte, opts ...Option) *Listener {
	l := newListener(addr, out, opts)
	go l.run(ctx, l.dialTCP)
	return l
}

func (l *Listener) dialTCP(ctx context.Context) (io.ReadCloser, func() error, error) {
	dialer := net.Dialer{Timeout: l.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		return nil, nil, err
	}
	arm := func() error {
		if l.readTimeout > 0 {
			return conn.SetReadDeadline(time.Now().Add(l.readTimeout))
		}
		return nil
	}
	return conn, arm, nil
}

type openFunc func(ctx context.Context) (rc io.ReadCloser, armDeadline func() error, err error)

func (l *Listener) run(ctx context.Context, open openFunc) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		rc, arm, err := open(ctx)
		if err != nil {
			l.handleError(err)
			attempt++
			l.sleepBackoff(ctx, attempt)
			continue
		}

		attempt = 0
		stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
		err = l.readFrames(ctx, rc, arm)
		stop()
		_ = rc.Close()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.handleError(err)
		}
		l.sleepBackoff(ctx, 1)
	}
}

func (l *Listener) readFrames(ctx context.Context, r io.Reader, armDeadline func() error) error {
	reader := bufio.NewReaderSize(r, l.bufSize)
	var pending []byte
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if armDeadline != nil {
			_ = armDeadline()
		}
		frame, err := reader.ReadBytes(protocol.LinkDelimiter)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				// keep the partial frame for the next read
				pending = append(pending, frame...)
				continue
			}
			return err
		}
		if len(pending) > 0 {
			frame = append(pending, frame...)
			pending = nil
		}

		if len(frame) == 0 {
			continue
		}
		if frame[len(frame)-1] == protocol.LinkDelimiter {
			frame = frame[:len(frame)-1]
		}
		if len(frame) == 0 {
			continue
		}
		payload := append([]byte(nil), frame...)
		select {
		case l.out <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) sleepBackoff(ctx context.Context, attempt int) {
	wait := min(l.reconnect*time.Duration(attempt), l.reconnectMax)
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()
}

func (l *Listener) handleError(err error) {
	if l.errorHandler != nil {
		l.errorHandler(err)
	}
}

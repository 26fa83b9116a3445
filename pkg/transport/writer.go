package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"rovlink/pkg/protocol"
)

// FrameWriter writes command frames as link frames. It is safe for
// concurrent use; each frame goes out in a single Write.
type FrameWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (fw *FrameWriter) WriteFrame(f protocol.Frame) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.buf = protocol.AppendLinkFrame(fw.buf[:0], f)
	if _, err := fw.w.Write(fw.buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Send encodes cmd and writes it. Commands the receiver would reject are
// refused without writing.
func (fw *FrameWriter) Send(cmd protocol.Command) error {
	if err := protocol.CheckCommand(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return fw.WriteFrame(cmd.Encode())
}

// DialTCP connects to a link endpoint for sending.
func DialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// OpenLink opens the sending side of a link: the serial port when one is
// configured, TCP otherwise.
func OpenLink(ctx context.Context, addr string, serialCfg SerialConfig) (io.ReadWriteCloser, error) {
	if serialCfg.Port != "" {
		return OpenSerialPort(serialCfg)
	}
	return DialTCP(ctx, addr)
}

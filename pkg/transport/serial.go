package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/tarm/serial"
)

type SerialConfig struct {
	Port string
	Baud int
}

// OpenSerialPort opens the port 8N1 with blocking reads.
func OpenSerialPort(cfg SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port name is empty")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", cfg.Baud)
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}

// StartSerial reads link frames from a serial port into out, reopening the
// port with the same backoff as StartListener when it fails.
func StartSerial(ctx context.Context, cfg SerialConfig, out chan<- []byte, opts ...Option) *Listener {
	l := newListener(cfg.Port, out, opts)
	open := func(context.Context) (io.ReadCloser, func() error, error) {
		port, err := OpenSerialPort(cfg)
		if err != nil {
			return nil, nil, err
		}
		return port, nil, nil
	}
	go l.run(ctx, open)
	return l
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"rovlink/pkg/bridge/foxglove"
	"rovlink/pkg/config"
	"rovlink/pkg/engine"
	"rovlink/pkg/logger"
	"rovlink/pkg/transport"
)

func runServe(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var lf linkFlags
	lf.register(fs)
	jsonlPath := fs.String("jsonl", "", "JSONL output path (default from config, else stdout)")
	withFoxglove := fs.Bool("foxglove", false, "start the Foxglove bridge")
	wsAddr := fs.String("ws-addr", "", "Foxglove websocket address (default from config)")
	dropRejected := fs.Bool("drop-rejected", false, "do not publish rejected frames")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "serve takes no arguments")
		return 2
	}

	cfg, err := lf.load(fs)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "jsonl":
			cfg.Log.JSONL = *jsonlPath
		case "foxglove":
			cfg.Foxglove.Enabled = *withFoxglove
		case "ws-addr":
			cfg.Foxglove.WSAddr = *wsAddr
		case "drop-rejected":
			cfg.Link.DropRejected = *dropRejected
		}
	})
	lg := initLogger(cfg, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, cfg, stdout); err != nil {
		lg.Error().Err(err).Msg("serve failed")
		return 1
	}
	return 0
}

// serve runs the receive pipeline until ctx is done.
func serve(ctx context.Context, cfg config.RovlinkConfig, stdout io.Writer) error {
	reconnect, err := cfg.Link.ReconnectInterval()
	if err != nil {
		return err
	}
	reconnectMax, err := cfg.Link.ReconnectMaxInterval()
	if err != nil {
		return err
	}

	var out io.Writer = stdout
	if cfg.Log.JSONL != "" {
		file, err := os.Create(cfg.Log.JSONL)
		if err != nil {
			return fmt.Errorf("open jsonl log: %w", err)
		}
		defer file.Close()
		out = file
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := engine.NewHub()
	go hub.Run(ctx)

	jsonl := logger.NewJSONLWriter(out)
	go jsonl.Consume(ctx, hub.Subscribe())

	bridgeErr := make(chan error, 1)
	if cfg.Foxglove.Enabled {
		srv := foxglove.NewServer(foxgloveConfig(cfg.Foxglove), hub)
		go func() {
			bridgeErr <- srv.Run(ctx)
		}()
	}

	frames := make(chan []byte, cfg.Link.Buf)
	opts := []transport.Option{
		transport.WithReconnectInterval(reconnect),
		transport.WithReconnectMax(reconnectMax),
		transport.WithBufferSize(cfg.Link.ReaderBuf),
	}
	if cfg.Link.SerialPort != "" {
		transport.StartSerial(ctx, serialConfig(cfg), frames, opts...)
	} else {
		transport.StartListener(ctx, cfg.Link.Addr, frames, opts...)
	}

	go engine.Ingest(ctx, frames, hub, engine.WithDropRejected(cfg.Link.DropRejected))

	select {
	case <-ctx.Done():
		return nil
	case err := <-bridgeErr:
		if err != nil {
			return fmt.Errorf("foxglove bridge: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

func foxgloveConfig(fc config.FoxgloveConfig) foxglove.Config {
	cfg := foxglove.DefaultConfig()
	cfg.WSAddr = fc.WSAddr
	cfg.Topic = fc.Topic
	cfg.ThrustTopic = fc.ThrustTopic
	cfg.LogTopic = fc.LogTopic
	cfg.FrameID = fc.FrameID
	return cfg
}

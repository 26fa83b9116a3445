package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"rovlink/pkg/config"
	"rovlink/pkg/console"
	"rovlink/pkg/logger"
	"rovlink/pkg/protocol"
	"rovlink/pkg/transport"
)

const linkOpenTimeout = 5 * time.Second

func runSend(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var lf linkFlags
	lf.register(fs)
	hexOnly := fs.Bool("hex", false, "print the frame instead of sending it")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	cmd, err := protocol.ParseCommand(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, "invalid command:", err)
		return 2
	}
	if *hexOnly {
		fmt.Fprintln(stdout, cmd.Encode())
		return 0
	}

	cfg, err := lf.load(fs)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	lg := initLogger(cfg, stderr)

	ctx, cancel := context.WithTimeout(context.Background(), linkOpenTimeout)
	defer cancel()
	link, err := transport.OpenLink(ctx, cfg.Link.Addr, serialConfig(cfg))
	if err != nil {
		lg.Error().Err(err).Msg("open link failed")
		return 1
	}
	defer link.Close()

	frame := cmd.Encode()
	if err := transport.NewFrameWriter(link).WriteFrame(frame); err != nil {
		lg.Error().Err(err).Msg("send failed")
		return 1
	}
	lg.Info().Str("command", cmd.String()).Str("frame", frame.String()).Msg("sent")
	return 0
}

func runEncode(args []string, stdout io.Writer, stderr io.Writer) int {
	cmd, err := protocol.ParseCommand(args)
	if err != nil {
		fmt.Fprintln(stderr, "invalid command:", err)
		return 2
	}
	fmt.Fprintln(stdout, cmd.Encode())
	return 0
}

func runDecode(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the JSONL record")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	raw, err := parseFrameHex(strings.Join(fs.Args(), " "))
	if err != nil {
		fmt.Fprintln(stderr, "invalid frame:", err)
		return 2
	}
	f, err := protocol.ParseFrame(raw)
	if err != nil {
		fmt.Fprintln(stderr, "invalid frame:", err)
		return 2
	}

	initLogger(config.Default(), stderr)
	pkt := protocol.Packet{Timestamp: time.Now(), Frame: f}
	if protocol.Validate(f) {
		pkt.Command, pkt.Err = protocol.Decode(f)
	} else {
		pkt.Err = protocol.CheckFrame(f)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(logger.NewRecord(pkt))
	} else if pkt.Err == nil {
		fmt.Fprintln(stdout, pkt.Command)
	}
	if pkt.Err != nil {
		fmt.Fprintln(stderr, "rejected:", pkt.Err)
		return 1
	}
	return 0
}

// parseFrameHex accepts plain hex or bytes split by spaces, colons or
// dashes. Each token may carry its own 0x prefix.
func parseFrameHex(s string) ([]byte, error) {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '\t' || r == ':' || r == '-'
	})
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(strings.TrimPrefix(tok, "0x"))
	}
	return hex.DecodeString(b.String())
}

func runConsole(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var lf linkFlags
	lf.register(fs)
	step := fs.Float64("step", float64(console.DefaultThrustStep), "thrust change per arrow key")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := lf.load(fs)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	lg := initLogger(cfg, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, linkOpenTimeout)
	link, err := transport.OpenLink(openCtx, cfg.Link.Addr, serialConfig(cfg))
	cancel()
	if err != nil {
		lg.Error().Err(err).Msg("open link failed")
		return 1
	}
	defer link.Close()

	if err := console.Run(ctx, transport.NewFrameWriter(link), float32(*step), nil, stdout); err != nil {
		lg.Error().Err(err).Msg("console failed")
		return 1
	}
	return 0
}

func runInit(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", config.DefaultConfigPath, "config file to write (.toml, .yaml)")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Fprintln(stderr, "config exists:", *path)
		return 1
	}
	cfg := config.Default()
	if err := cfg.Save(*path); err != nil {
		fmt.Fprintln(stderr, "write config:", err)
		return 1
	}
	fmt.Fprintln(stdout, "wrote", *path)
	return 0
}

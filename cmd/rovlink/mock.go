package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rovlink/pkg/config"
	"rovlink/pkg/console"
	"rovlink/pkg/protocol"
	"rovlink/pkg/transport"
)

const (
	mockThrustXAmplitude = 1.0
	mockThrustYAmplitude = 0.6

	mockThrustXFreqHz = 0.23
	mockThrustYFreqHz = 0.31

	mockThrustXPhaseRad = 0.0
	mockThrustYPhaseRad = math.Pi / 3.0

	// Ballast and light change every this many seconds of mock time.
	mockBallastPeriodSec = 4
	mockLightPeriodSec   = 3
)

var (
	mockBallastCycle = []protocol.BallastCommand{protocol.BallastIdle, protocol.BallastIntake, protocol.BallastIdle, protocol.BallastDischarge}
	mockLightCycle   = []protocol.LightCommand{protocol.LightOff, protocol.LightOn, protocol.LightBlink}
)

func runMock(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("mock", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", config.DefaultConfigPath, "config file (.toml, .yaml)")
	addr := fs.String("addr", "", "listen address (default from config)")
	hz := fs.Int("hz", 0, "thrust updates per second (default from config)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if *addr != "" {
		cfg.Mock.Addr = *addr
	}
	if *hz > 0 {
		cfg.Mock.Hz = *hz
	}
	lg := initLogger(cfg, stderr)

	ln, err := net.Listen("tcp", cfg.Mock.Addr)
	if err != nil {
		lg.Error().Err(err).Msg("mock listen failed")
		return 1
	}
	fmt.Fprintln(stdout, "mock link listening on", ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serveMock(ctx, ln, cfg.Mock.Hz); err != nil {
		lg.Error().Err(err).Msg("mock failed")
		return 1
	}
	return 0
}

// serveMock streams synthetic commands to every connection accepted on ln
// until ctx is done. It closes ln.
func serveMock(ctx context.Context, ln net.Listener, hz int) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("mock receiver connected")

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			closeConn := context.AfterFunc(ctx, func() {
				_ = conn.Close()
			})
			defer closeConn()
			if err := runMockPublisher(ctx, transport.NewFrameWriter(conn), hz); err != nil {
				log.Info().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("mock receiver gone")
			}
		}()
	}
}

func runMockPublisher(ctx context.Context, sender console.Sender, hz int) error {
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var seq int64
	for {
		for _, cmd := range mockCommands(seq, hz) {
			if err := sender.Send(cmd); err != nil {
				return err
			}
		}
		seq++

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// mockCommands returns the commands for tick seq: a thrust update on every
// tick, plus ballast and light changes on their periods.
func mockCommands(seq int64, hz int) []protocol.Command {
	t := float64(seq) / float64(hz)
	cmds := []protocol.Command{mockThrust(t)}

	if seq%int64(mockBallastPeriodSec*hz) == 0 {
		n := seq / int64(mockBallastPeriodSec*hz)
		cmds = append(cmds, mockBallastCycle[n%int64(len(mockBallastCycle))])
	}
	if seq%int64(mockLightPeriodSec*hz) == 0 {
		n := seq / int64(mockLightPeriodSec*hz)
		cmds = append(cmds, mockLightCycle[n%int64(len(mockLightCycle))])
	}
	return cmds
}

func mockThrust(t float64) protocol.PropulsionCommand {
	x := mockThrustXAmplitude * math.Sin(2.0*math.Pi*mockThrustXFreqHz*t+mockThrustXPhaseRad)
	y := mockThrustYAmplitude * math.Sin(2.0*math.Pi*mockThrustYFreqHz*t+mockThrustYPhaseRad)
	return protocol.SetThrust(float32(x), float32(y))
}

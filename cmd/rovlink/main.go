package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"rovlink/pkg/config"
	"rovlink/pkg/logging"
	"rovlink/pkg/transport"
)

const appName = "rovlink"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		return runServe([]string{}, stdout, stderr)
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:], stdout, stderr)
	case "send":
		return runSend(args[1:], stdout, stderr)
	case "encode":
		return runEncode(args[1:], stdout, stderr)
	case "decode":
		return runDecode(args[1:], stdout, stderr)
	case "mock":
		return runMock(args[1:], stdout, stderr)
	case "console":
		return runConsole(args[1:], stdout, stderr)
	case "init":
		return runInit(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

// linkFlags are the link and config flags shared by the subcommands that
// touch a link. Flags the user sets override the config file.
type linkFlags struct {
	configPath string
	addr       string
	serialPort string
	baud       int
	logLevel   string
}

func (lf *linkFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&lf.configPath, "config", config.DefaultConfigPath, "config file (.toml, .yaml)")
	fs.StringVar(&lf.addr, "addr", "", "TCP link address (default from config)")
	fs.StringVar(&lf.serialPort, "serial", "", "serial port, takes precedence over --addr")
	fs.IntVar(&lf.baud, "baud", 0, "serial baud rate (default from config)")
	fs.StringVar(&lf.logLevel, "log-level", "", "log level (default from config)")
}

// load reads the config file and applies the flags the user set.
func (lf *linkFlags) load(fs *flag.FlagSet) (config.RovlinkConfig, error) {
	cfg, _, err := config.LoadOrDefault(lf.configPath)
	if err != nil {
		return config.RovlinkConfig{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Link.Addr = lf.addr
		case "serial":
			cfg.Link.SerialPort = lf.serialPort
		case "baud":
			cfg.Link.Baud = lf.baud
		case "log-level":
			cfg.Log.Level = lf.logLevel
		}
	})
	return cfg, nil
}

func initLogger(cfg config.RovlinkConfig, stderr io.Writer) zerolog.Logger {
	return logging.Init(appName, logging.Config{
		Level:   cfg.Log.Level,
		NoColor: cfg.Log.NoColor,
		Out:     stderr,
	})
}

func serialConfig(cfg config.RovlinkConfig) transport.SerialConfig {
	return transport.SerialConfig{Port: cfg.Link.SerialPort, Baud: cfg.Link.Baud}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rovlink serve   [--config rovlink.toml] [--addr host:port | --serial port --baud n] [--jsonl file] [--foxglove] [--ws-addr host:port]")
	fmt.Fprintln(w, "  rovlink send    [--addr host:port | --serial port] [--hex] <command>")
	fmt.Fprintln(w, "  rovlink encode  <command>")
	fmt.Fprintln(w, "  rovlink decode  [--json] <frame hex>")
	fmt.Fprintln(w, "  rovlink mock    [--addr host:port] [--hz 20]")
	fmt.Fprintln(w, "  rovlink console [--addr host:port | --serial port] [--step 0.1]")
	fmt.Fprintln(w, "  rovlink init    [--config rovlink.toml] [--force]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  ballast idle|intake|discharge")
	fmt.Fprintln(w, "  light off|on|blink")
	fmt.Fprintln(w, "  thrust <x> <y>")
}

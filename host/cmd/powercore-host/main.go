package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"powercore/core"
	"powercore/host/config"
	"powercore/host/logging"
	"powercore/host/serial"
	"powercore/host/sim"
)

var (
	configPath = flag.String("config", "powercore.yaml", "Config file path")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	simulate   = flag.Bool("sim", false, "Talk to a simulated board instead of a serial port")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Usage = printHelp
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Port = *device
	}
	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	log, err := logging.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "ports":
		err = runPorts()
	case "monitor":
		err = runMonitor(ctx, cfg, log)
	case "set":
		err = runSet(ctx, cfg, log, args[1:])
	case "timing":
		err = runTiming(cfg, args[1:])
	case "bridge":
		err = runBridge(ctx, cfg, log)
	case "help", "?":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printHelp()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Usage: powercore-host [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ports                      - List serial ports")
	fmt.Println("  monitor                    - Print status lines and alerts")
	fmt.Println("  set frequency=N ceiling=N  - Change target frequency (Hz) and/or charge ceiling (uC)")
	fmt.Println("  timing [Hz...]             - Show PWM divider, wrap and level for frequencies")
	fmt.Println("  bridge                     - Republish telemetry to MQTT and drive feed hold")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// openPort connects to the board, or starts a simulated one.
func openPort(ctx context.Context, cfg *config.Config, log *zap.Logger) (io.ReadWriteCloser, error) {
	if *simulate {
		core.SetDebugWriter(logging.FirmwareDebug(log))
		core.SetDebugEnabled(*verbose)

		s, err := sim.New(cfg.Board, cfg.Sim)
		if err != nil {
			return nil, fmt.Errorf("start simulator: %w", err)
		}
		go s.Run(ctx, 10*time.Millisecond)
		log.Info("running against simulated board")
		return s, nil
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	// drop anything queued before we attached
	if err := port.Flush(); err != nil {
		log.Warn("flush serial port", zap.Error(err))
	}
	log.Info("connected", zap.String("device", cfg.Serial.Port))
	return port, nil
}

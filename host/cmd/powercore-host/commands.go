package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"powercore/core"
	"powercore/host/bridge"
	"powercore/host/config"
	"powercore/host/link"
	"powercore/host/serial"
	"powercore/protocol"
)

// confirmWait bounds how long set waits for the firmware's echo.
const confirmWait = 2 * time.Second

func runPorts() error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func runMonitor(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	port, err := openPort(ctx, cfg, log)
	if err != nil {
		return err
	}
	l := link.New(port, log)
	defer l.Close()

	fmt.Println(statusHeader())
	return l.Run(ctx, func(line link.Line) {
		switch line.Kind {
		case link.KindStatus:
			fmt.Println(formatStatus(line.Status))
		case link.KindMessage:
			fmt.Printf(">> %s\n", line.Message)
		default:
			log.Debug("unrecognized line", zap.String("line", line.Raw))
		}
	})
}

func statusHeader() string {
	return fmt.Sprintf("%-20s %6s %6s %9s %9s %6s %6s %8s %8s",
		"time", "spark%", "short%", "power", "charge", "freq", "ceil", "resistor", "mosfet")
}

func formatStatus(st link.Status) string {
	return fmt.Sprintf("%-20s %6d %6d %9.2f %9.2f %6d %6d %8s %8s",
		time.Now().Format("2006-01-02 15:04:05"),
		st.SparkPercent, st.ShortPercent, st.AvgPower, st.AvgCharge,
		st.PulseFreq, st.MaxCoulomb,
		formatTemp(st.ResistorTemp), formatTemp(st.MosfetTemp))
}

func formatTemp(c float64) string {
	if math.IsNaN(c) {
		return "FAULT"
	}
	return strconv.FormatFloat(c, 'f', 0, 64) + "C"
}

// parseSetArgs turns frequency=N and ceiling=N arguments into command
// pairs, checked against the board limits before anything is sent.
func parseSetArgs(board *core.Config, args []string) ([]protocol.Pair, error) {
	var pairs []protocol.Pair
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "frequency", protocol.CmdFrequency:
			if uint32(n) < board.MinFrequency || uint32(n) > board.MaxFrequency {
				return nil, fmt.Errorf("frequency %d outside %d-%d Hz", n, board.MinFrequency, board.MaxFrequency)
			}
			pairs = append(pairs, protocol.Pair{Key: protocol.CmdFrequency, Value: value})
		case "ceiling", protocol.CmdChargeCeiling:
			if n == 0 {
				return nil, fmt.Errorf("ceiling must be positive")
			}
			pairs = append(pairs, protocol.Pair{Key: protocol.CmdChargeCeiling, Value: value})
		default:
			return nil, fmt.Errorf("unknown setting %q", key)
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("nothing to set")
	}
	return pairs, nil
}

func runSet(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	pairs, err := parseSetArgs(&cfg.Board, args)
	if err != nil {
		return err
	}

	port, err := openPort(ctx, cfg, log)
	if err != nil {
		return err
	}
	l := link.New(port, log)
	defer l.Close()

	if err := l.Send(pairs...); err != nil {
		return err
	}

	// The firmware echoes one message per applied command and stays
	// silent on rejected values.
	wait, cancel := context.WithTimeout(ctx, confirmWait)
	defer cancel()
	confirm := newConfirmCounter(len(pairs))
	err = l.Run(wait, func(line link.Line) {
		if line.Kind == link.KindMessage {
			fmt.Println(line.Message)
		}
		if confirm.observe(line) {
			cancel()
		}
	})
	if confirm.shutdown {
		return errSupplyShutdown
	}
	if confirm.count < len(pairs) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%d of %d settings confirmed: %w", confirm.count, len(pairs), err)
	}
	return nil
}

var errSupplyShutdown = errors.New("supply is in safety shutdown")

// confirmCounter tracks command echoes. Other messages, including the
// shutdown alert, are not confirmations.
type confirmCounter struct {
	want     int
	count    int
	shutdown bool
}

func newConfirmCounter(want int) *confirmCounter {
	return &confirmCounter{want: want}
}

// observe records line and reports whether waiting can stop.
func (c *confirmCounter) observe(line link.Line) bool {
	switch {
	case line.IsShutdown():
		c.shutdown = true
		return true
	case line.IsEcho():
		c.count++
	}
	return c.count >= c.want
}

func runTiming(cfg *config.Config, args []string) error {
	board := &cfg.Board
	freqs := []uint32{board.TargetFrequency, board.LowPowerFrequency}
	if len(args) > 0 {
		freqs = freqs[:0]
		for _, a := range args {
			n, err := strconv.ParseUint(a, 10, 32)
			if err != nil {
				return fmt.Errorf("frequency %q: %w", a, err)
			}
			freqs = append(freqs, uint32(n))
		}
	}

	fmt.Printf("%8s %8s %8s %8s %10s %8s\n", "Hz", "div", "wrap", "level", "achieved", "on(us)")
	for _, f := range freqs {
		if f < board.MinFrequency || f > board.MaxFrequency {
			fmt.Printf("%8d  outside %d-%d Hz\n", f, board.MinFrequency, board.MaxFrequency)
			continue
		}
		t := core.ComputeTiming(board.ClockHz, f, board.OnTimeMicros)
		div := float64(t.DivInt) + float64(t.DivFrac)/16
		onTime := float64(t.Level) * div / float64(board.ClockHz) * 1e6
		fmt.Printf("%8d %8.4g %8d %8d %10.2f %8.2f\n", f, div, t.Wrap, t.Level, t.Achieved, onTime)
	}
	return nil
}

func runBridge(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var pub bridge.Publisher
	if cfg.MQTT.Enabled {
		p, err := bridge.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		if err != nil {
			return err
		}
		pub = p
		log.Info("mqtt connected", zap.String("broker", cfg.MQTT.Broker))
	}

	var hold bridge.FeedHold
	if cfg.FeedHold.Enabled {
		h, err := bridge.NewLineFeedHold(cfg.FeedHold.Chip, cfg.FeedHold.Line, cfg.FeedHold.ActiveLow)
		if err != nil {
			if pub != nil {
				pub.Close()
			}
			return err
		}
		hold = h
	}

	b := bridge.New(pub, hold, cfg.FeedHold.ShortAlertPercent, log)
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("close bridge", zap.Error(err))
		}
	}()

	port, err := openPort(ctx, cfg, log)
	if err != nil {
		return err
	}
	l := link.New(port, log)
	defer l.Close()

	return l.Run(ctx, b.Handle)
}

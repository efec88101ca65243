// Package bridge republishes firmware telemetry to MQTT and drives a
// feed-hold line while the supply is shut down or shorting.
package bridge

import (
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"

	"powercore/host/link"
)

// Topic suffixes under the configured prefix.
const (
	TopicStatus  = "status"
	TopicMessage = "message"
)

// Publisher publishes telemetry to a broker.
type Publisher interface {
	// PublishStatus sends one status payload.
	PublishStatus(payload []byte) error

	// PublishMessage sends one alert payload.
	PublishMessage(payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// FeedHold drives the machine's feed-hold input.
type FeedHold interface {
	// Set asserts (true) or releases (false) the hold.
	Set(hold bool) error

	// Close releases the line.
	Close() error
}

// StatusPayload is the JSON published for each status line. Temperatures
// are null while their sensor is faulted.
type StatusPayload struct {
	Timestamp    string   `json:"timestamp"`
	SparkPercent uint32   `json:"spark_percent"`
	ShortPercent uint32   `json:"short_percent"`
	AvgPower     float64  `json:"avg_power"`
	AvgCharge    float64  `json:"avg_charge"`
	PulseFreq    uint32   `json:"pulse_freq"`
	MaxCoulomb   uint32   `json:"max_coulomb"`
	ResistorTemp *float64 `json:"resistor_temp"`
	MosfetTemp   *float64 `json:"mosfet_temp"`
}

// MessagePayload is the JSON published for each alert line.
type MessagePayload struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Shutdown  bool   `json:"shutdown"`
}

// FormatStatus creates the JSON payload for a status line.
func FormatStatus(st link.Status, at time.Time) ([]byte, error) {
	return json.Marshal(StatusPayload{
		Timestamp:    at.UTC().Format(time.RFC3339),
		SparkPercent: st.SparkPercent,
		ShortPercent: st.ShortPercent,
		AvgPower:     st.AvgPower,
		AvgCharge:    st.AvgCharge,
		PulseFreq:    st.PulseFreq,
		MaxCoulomb:   st.MaxCoulomb,
		ResistorTemp: finite(st.ResistorTemp),
		MosfetTemp:   finite(st.MosfetTemp),
	})
}

// FormatMessage creates the JSON payload for an alert line.
func FormatMessage(l link.Line, at time.Time) ([]byte, error) {
	return json.Marshal(MessagePayload{
		Timestamp: at.UTC().Format(time.RFC3339),
		Message:   l.Message,
		Shutdown:  l.IsShutdown(),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Bridge turns decoded lines into broker traffic and feed-hold changes.
// Either side may be nil. Handle is called from a single goroutine.
type Bridge struct {
	pub        Publisher
	hold       FeedHold
	shortAlert uint32
	log        *zap.Logger
	now        func() time.Time

	holding  bool
	shutdown bool
}

// New creates a bridge. The hold is asserted while short% exceeds
// shortAlert, and permanently once the firmware reports a shutdown.
func New(pub Publisher, hold FeedHold, shortAlert uint32, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		pub:        pub,
		hold:       hold,
		shortAlert: shortAlert,
		log:        log,
		now:        time.Now,
	}
}

// Handle processes one line. Publish and GPIO failures are logged, never
// returned: a broker outage must not stop the monitor.
func (b *Bridge) Handle(l link.Line) {
	switch l.Kind {
	case link.KindStatus:
		b.publishStatus(l.Status)
		b.setHold(b.shutdown || l.Status.ShortPercent > b.shortAlert)
	case link.KindMessage:
		b.publishMessage(l)
		if l.IsShutdown() {
			b.log.Error("supply shut down", zap.String("message", l.Message))
			b.shutdown = true
			b.setHold(true)
		}
	}
}

// Holding reports whether the feed hold is asserted.
func (b *Bridge) Holding() bool {
	return b.holding
}

// Shutdown reports whether a shutdown alert has been seen.
func (b *Bridge) Shutdown() bool {
	return b.shutdown
}

// Close releases the hold line and disconnects from the broker.
func (b *Bridge) Close() error {
	var first error
	if b.hold != nil {
		if err := b.hold.Close(); err != nil {
			first = err
		}
	}
	if b.pub != nil {
		if err := b.pub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *Bridge) publishStatus(st link.Status) {
	if b.pub == nil {
		return
	}
	payload, err := FormatStatus(st, b.now())
	if err != nil {
		b.log.Warn("format status", zap.Error(err))
		return
	}
	if err := b.pub.PublishStatus(payload); err != nil {
		b.log.Warn("publish status", zap.Error(err))
	}
}

func (b *Bridge) publishMessage(l link.Line) {
	if b.pub == nil {
		return
	}
	payload, err := FormatMessage(l, b.now())
	if err != nil {
		b.log.Warn("format message", zap.Error(err))
		return
	}
	if err := b.pub.PublishMessage(payload); err != nil {
		b.log.Warn("publish message", zap.Error(err))
	}
}

func (b *Bridge) setHold(hold bool) {
	if hold == b.holding {
		return
	}
	if b.hold != nil {
		if err := b.hold.Set(hold); err != nil {
			b.log.Warn("feed hold", zap.Bool("hold", hold), zap.Error(err))
			return
		}
	}
	b.holding = hold
	b.log.Info("feed hold changed", zap.Bool("hold", hold))
}

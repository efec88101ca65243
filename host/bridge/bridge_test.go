package bridge

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powercore/host/link"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBridge(pub Publisher, hold FeedHold) *Bridge {
	b := New(pub, hold, 25, nil)
	b.now = func() time.Time { return fixedTime }
	return b
}

func statusLine(short uint32) link.Line {
	return link.Line{
		Kind: link.KindStatus,
		Status: link.Status{
			SparkPercent: 5,
			ShortPercent: short,
			PulseFreq:    2000,
			MaxCoulomb:   2500,
			ResistorTemp: 40,
			MosfetTemp:   math.NaN(),
		},
	}
}

func TestFormatStatusNullsFaultedSensor(t *testing.T) {
	payload, err := FormatStatus(statusLine(15).Status, fixedTime)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "2026-03-01T12:00:00Z", got["timestamp"])
	assert.Equal(t, 15.0, got["short_percent"])
	assert.Equal(t, 40.0, got["resistor_temp"])
	assert.Nil(t, got["mosfet_temp"])
}

func TestBridgePublishes(t *testing.T) {
	pub := NewFakePublisher()
	b := newTestBridge(pub, nil)

	b.Handle(statusLine(10))
	b.Handle(link.Line{Kind: link.KindMessage, Message: "PWM frequency set to: 1500"})
	b.Handle(link.Line{Kind: link.KindUnknown, Raw: "noise"})

	assert.Len(t, pub.Statuses, 1)
	require.Len(t, pub.Messages, 1)

	var msg MessagePayload
	require.NoError(t, json.Unmarshal(pub.Messages[0], &msg))
	assert.Equal(t, "PWM frequency set to: 1500", msg.Message)
	assert.False(t, msg.Shutdown)
}

func TestBridgeShortAlertHold(t *testing.T) {
	hold := &FakeFeedHold{}
	b := newTestBridge(nil, hold)

	b.Handle(statusLine(10))
	assert.False(t, b.Holding())

	b.Handle(statusLine(26))
	assert.True(t, b.Holding())

	// at the alert level is not above it
	b.Handle(statusLine(25))
	assert.False(t, b.Holding())

	assert.Equal(t, []bool{true, false}, hold.Changes)
}

func TestBridgeShutdownLatchesHold(t *testing.T) {
	pub := NewFakePublisher()
	hold := &FakeFeedHold{}
	b := newTestBridge(pub, hold)

	b.Handle(link.Line{Kind: link.KindMessage, Message: link.ShutdownText + " (resistor over temperature)"})
	assert.True(t, b.Shutdown())
	assert.True(t, b.Holding())

	// a quiet status line must not release a shut-down supply
	b.Handle(statusLine(0))
	assert.True(t, b.Holding())
	assert.Equal(t, []bool{true}, hold.Changes)

	var msg MessagePayload
	require.Len(t, pub.Messages, 1)
	require.NoError(t, json.Unmarshal(pub.Messages[0], &msg))
	assert.True(t, msg.Shutdown)
}

func TestBridgeSurvivesFailures(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	hold := &FakeFeedHold{SetError: errors.New("line busy")}
	b := newTestBridge(pub, hold)

	b.Handle(statusLine(50))
	assert.False(t, b.Holding(), "hold state follows the line, not the request")

	hold.SetError = nil
	b.Handle(statusLine(50))
	assert.True(t, b.Holding())
}

func TestBridgeClose(t *testing.T) {
	pub := NewFakePublisher()
	hold := &FakeFeedHold{}
	b := newTestBridge(pub, hold)

	require.NoError(t, b.Close())
	assert.True(t, pub.Closed)
	assert.True(t, hold.Closed)
}

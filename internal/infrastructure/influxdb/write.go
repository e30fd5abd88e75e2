package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementPlayback is the measurement holding one point per sequence change.
const MeasurementPlayback = "sequence_playback"

// Playback describes a sequence change to record.
type Playback struct {
	SequenceID int
	Sequence   string
	SpeedMS    int

	// Source is what caused the change: "startup", "http" or "mqtt".
	Source string
}

// PlaybackPoint builds the point recorded for a sequence change.
//
// Tags: device, sequence, source. Fields: sequence_id, speed_ms.
func PlaybackPoint(device string, p Playback, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPlayback,
		map[string]string{
			"device":   device,
			"sequence": p.Sequence,
			"source":   p.Source,
		},
		map[string]interface{}{
			"sequence_id": p.SequenceID,
			"speed_ms":    p.SpeedMS,
		},
		ts,
	)
}

// WritePlayback records a sequence change. Non-blocking; dropped when the
// client is closed.
func (c *Client) WritePlayback(device string, p Playback) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(PlaybackPoint(device, p, time.Now()))
}

// WritePoint writes a custom point stamped with the current time.
//
// Example:
//
//	client.WritePoint("relay_faults",
//	    map[string]string{"device": "porch"},
//	    map[string]interface{}{"channel": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

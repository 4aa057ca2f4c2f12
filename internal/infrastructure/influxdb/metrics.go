package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementRelaySend is the measurement written for every dispatched
// relay command.
const MeasurementRelaySend = "relay_send"

// WriteRelaySend records the outcome of one relay command.
//
// Tags: relay, action, source, success. Fields: success, attempts,
// duration_ms. The write is batched and returns immediately.
//
// Example:
//
//	client.WriteRelaySend("2.4", "Off", "schedule", true, 1, 42*time.Millisecond)
func (c *Client) WriteRelaySend(relay, action, source string, success bool, attempts int, duration time.Duration) {
	c.WritePoint(MeasurementRelaySend,
		map[string]string{
			"relay":   relay,
			"action":  action,
			"source":  source,
			"success": strconv.FormatBool(success),
		},
		map[string]any{
			"success":     success,
			"attempts":    int64(attempts),
			"duration_ms": duration.Milliseconds(),
		},
	)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

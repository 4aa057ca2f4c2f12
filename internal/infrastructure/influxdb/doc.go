// Package influxdb records relay command outcomes in InfluxDB v2.
//
// It wraps influxdb-client-go with connection checks, batched non-blocking
// writes and an error callback. Each dispatched command becomes one point
// in the relay_send measurement, tagged by relay, action, source and
// success, which makes failure rates per relay easy to chart.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Warn("metric write failed", "error", err)
//	})
//	client.WriteRelaySend("3.4", "On", "api", true, 1, 37*time.Millisecond)
package influxdb

// Package influxdb exports climate telemetry to InfluxDB.
//
// Each state change becomes a climate_state point (tags: device, operation
// and fan mode; fields: power, away, target and ambient temperature, feature
// mask) and each IR transmission becomes an ir_transmission point. Writes
// are batched and non-blocking; asynchronous failures reach the SetOnError
// callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
package influxdb

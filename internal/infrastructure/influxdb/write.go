package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementClimate      = "climate_state"
	MeasurementTransmission = "ir_transmission"
)

// ClimateSample is one observation of a climate device.
type ClimateSample struct {
	DeviceID           string
	OperationMode      string
	FanMode            string
	On                 bool
	Away               bool
	TargetTemperature  float64
	CurrentTemperature *float64
	SupportedFeatures  uint32
	Reason             string
}

// WriteClimateState queues a climate_state point.
func (c *Client) WriteClimateState(s ClimateSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(climatePoint(s, time.Now()))
}

// WriteTransmission queues an ir_transmission point. result is "ok" or
// "error".
func (c *Client) WriteTransmission(deviceID, remote, result string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(transmissionPoint(deviceID, remote, result, time.Now()))
}

func climatePoint(s ClimateSample, ts time.Time) *write.Point {
	tags := map[string]string{
		"device_id":      s.DeviceID,
		"operation_mode": s.OperationMode,
		"fan_mode":       s.FanMode,
	}
	if s.Reason != "" {
		tags["reason"] = s.Reason
	}

	fields := map[string]any{
		"on":                 s.On,
		"away":               s.Away,
		"target_temperature": s.TargetTemperature,
		"supported_features": int64(s.SupportedFeatures),
	}
	if s.CurrentTemperature != nil {
		fields["current_temperature"] = *s.CurrentTemperature
	}

	return write.NewPoint(MeasurementClimate, tags, fields, ts)
}

func transmissionPoint(deviceID, remote, result string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTransmission,
		map[string]string{
			"device_id": deviceID,
			"remote":    remote,
			"result":    result,
		},
		map[string]any{"count": int64(1)},
		ts,
	)
}

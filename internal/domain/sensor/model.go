package sensor

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDeviceID is recorded when the device does not identify itself.
const DefaultDeviceID = "ESP32_Sensor_01"

// Accepted measurement ranges. The sensor_readings table enforces the same
// bounds.
const (
	MinTemperature = -50.0
	MaxTemperature = 100.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// Reading is one temperature/humidity sample reported by a foot sensor.
type Reading struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"userId"`
	DeviceID    string    `json:"deviceId"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stats aggregates the readings of one account over a time window. All
// fields are zero when the window holds no readings.
type Stats struct {
	AvgTemperature float64 `json:"avgTemperature"`
	AvgHumidity    float64 `json:"avgHumidity"`
	MaxTemperature float64 `json:"maxTemperature"`
	MinTemperature float64 `json:"minTemperature"`
	MaxHumidity    float64 `json:"maxHumidity"`
	MinHumidity    float64 `json:"minHumidity"`
	TotalReadings  int     `json:"totalReadings"`
}

// IngestInput is the payload posted by a device. Measurements are pointers
// so that a reported zero is distinguishable from a missing field.
type IngestInput struct {
	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	DeviceID    string     `json:"deviceId"`
	UserID      string     `json:"userId"`
	Timestamp   *time.Time `json:"timestamp"`
}

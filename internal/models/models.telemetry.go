// FilePath: internal/models/models.telemetry.go
package models

import (
	"fmt"
	"time"
)

// Sensor channel bounds. Check-ins outside these ranges are rejected.
const (
	TempMin    = -10.0
	TempMax    = 100.0
	SoilHumMin = 0.0
	SoilHumMax = 66000.0
	AirHumMin  = 0.0
	AirHumMax  = 100.0
	LightMin   = 0.0
	LightMax   = 51000.0
)

// Reading is one snapshot of the four sensor channels.
type Reading struct {
	Temp    float64 `json:"temp" db:"temp"`
	SoilHum float64 `json:"soil_hum" db:"soil_hum"`
	AirHum  float64 `json:"air_hum" db:"air_hum"`
	Light   float64 `json:"light" db:"light"`
}

// Validate checks all four channels against their bounds.
func (r Reading) Validate() error {
	if r.Temp < TempMin || r.Temp > TempMax {
		return fmt.Errorf("invalid temperature value %.2f, allowed range: %.1f to %.1f", r.Temp, TempMin, TempMax)
	}
	if r.SoilHum < SoilHumMin || r.SoilHum > SoilHumMax {
		return fmt.Errorf("invalid soil humidity value %.2f, allowed range: %.1f to %.1f", r.SoilHum, SoilHumMin, SoilHumMax)
	}
	if r.AirHum < AirHumMin || r.AirHum > AirHumMax {
		return fmt.Errorf("invalid air humidity value %.2f, allowed range: %.1f to %.1f", r.AirHum, AirHumMin, AirHumMax)
	}
	if r.Light < LightMin || r.Light > LightMax {
		return fmt.Errorf("invalid light value %.2f, allowed range: %.1f to %.1f", r.Light, LightMin, LightMax)
	}
	return nil
}

// LiveReading is the single current snapshot per device, overwritten on
// every check-in.
type LiveReading struct {
	DeviceID string `json:"device_id" db:"device_id"`
	Reading
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HistoryEntry is an append-only snapshot retained as rollup input. At
// most one entry per device per minimum interval.
type HistoryEntry struct {
	ID       int64  `json:"id" db:"id"`
	DeviceID string `json:"device_id" db:"device_id"`
	Reading
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DailyAggregate holds the per-channel means of one rollup cycle's
// look-back window, assigned to the cycle's calendar date.
type DailyAggregate struct {
	ID         int64     `json:"id" db:"id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	AvgTemp    float64   `json:"avg_temp" db:"avg_temp"`
	AvgSoilHum float64   `json:"avg_soil_hum" db:"avg_soil_hum"`
	AvgAirHum  float64   `json:"avg_air_hum" db:"avg_air_hum"`
	AvgLight   float64   `json:"avg_light" db:"avg_light"`
	Date       time.Time `json:"date" db:"date"`
}

package models

import (
	"time"
)

// EngineType represents the engine of a fleet car.
type EngineType string

const (
	EnginePetrol   EngineType = "PETROL"
	EngineDiesel   EngineType = "DIESEL"
	EngineElectric EngineType = "ELECTRIC"
	EngineHybrid   EngineType = "HYBRID"
)

// IsValidEngineType checks if an engine type is valid
func IsValidEngineType(engineType EngineType) bool {
	switch engineType {
	case EnginePetrol, EngineDiesel, EngineElectric, EngineHybrid:
		return true
	default:
		return false
	}
}

// Car represents a fleet car. The assignment link to a driver lives on the
// driver document; a car's current driver is resolved by reverse lookup.
type Car struct {
	ID           int64      `bson:"_id,omitempty" json:"id"`
	LicensePlate string     `bson:"license_plate" json:"license_plate"`
	SeatCount    int        `bson:"seat_count" json:"seat_count"`
	Convertible  bool       `bson:"convertible" json:"convertible"`
	Rating       int        `bson:"rating" json:"rating"`
	EngineType   EngineType `bson:"engine_type" json:"engine_type"`
	Manufacturer string     `bson:"manufacturer" json:"manufacturer"`
	Model        string     `bson:"model" json:"model"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
}

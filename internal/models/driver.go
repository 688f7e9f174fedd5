package models

import (
	"time"
)

// OnlineStatus represents a driver's availability.
type OnlineStatus string

const (
	StatusOnline  OnlineStatus = "ONLINE"
	StatusOffline OnlineStatus = "OFFLINE"
)

// IsValidOnlineStatus checks if an online status is valid
func IsValidOnlineStatus(status OnlineStatus) bool {
	switch status {
	case StatusOnline, StatusOffline:
		return true
	default:
		return false
	}
}

// Driver represents a driver in the fleet. CarID is the owning side of the
// driver-car assignment: nil means the driver holds no car.
type Driver struct {
	ID                  int64        `bson:"_id,omitempty" json:"id"`
	Username            string       `bson:"username" json:"username"`
	Password            string       `bson:"password" json:"-"`
	OnlineStatus        OnlineStatus `bson:"online_status" json:"online_status"`
	Coordinate          *Location    `bson:"coordinate,omitempty" json:"coordinate,omitempty"`
	CoordinateUpdatedAt *time.Time   `bson:"coordinate_updated_at,omitempty" json:"coordinate_updated_at,omitempty"`
	CarID               *int64       `bson:"car_id,omitempty" json:"car_id,omitempty"`
	Deleted             bool         `bson:"deleted" json:"-"`
	CreatedAt           time.Time    `bson:"created_at" json:"created_at"`
}

// DriverPatch carries a partial driver update. Nil fields are left untouched.
type DriverPatch struct {
	Username     *string       `json:"username,omitempty"`
	Password     *string       `json:"password,omitempty"`
	OnlineStatus *OnlineStatus `json:"online_status,omitempty"`
	Coordinate   *Location     `json:"coordinate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p DriverPatch) IsEmpty() bool {
	return p.Username == nil && p.Password == nil && p.OnlineStatus == nil && p.Coordinate == nil
}

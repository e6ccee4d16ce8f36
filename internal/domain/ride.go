package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Rider is a lightweight participant reference embedded in a Ride.
// It is a value, not an independently stored entity.
type Rider struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ProfilePicURL *string `json:"profile_pic_url,omitempty"`
}

// Ride is one driver's offer of seats, nested under a Group.
//
// Invariants: the driver never appears in Riders, and each rider id appears at
// most once. len(Riders) <= MaxRiders is expected but only enforced by callers
// that check HasCapacity before joining.
type Ride struct {
	ID            uuid.UUID
	GroupID       string
	Driver        Rider
	CarID         string
	MaxRiders     int
	Riders        []Rider
	Vibe          string
	StartDateTime string // ISO-8601 as supplied; may be empty or unparsable
	Version       int64
	CreatedAt     time.Time
}

// RideDetails holds the fields a driver may change after creating a ride.
type RideDetails struct {
	CarID         string
	MaxRiders     int
	Vibe          string
	StartDateTime string
}

// HasCapacity reports whether another rider fits on the roster.
func (r Ride) HasCapacity() bool {
	return len(r.Riders) < r.MaxRiders
}

// IsFull reports whether the roster has reached MaxRiders.
func (r Ride) IsFull() bool {
	return !r.HasCapacity()
}

// SeatsLeft returns the number of open seats, never negative.
func (r Ride) SeatsLeft() int {
	return max(r.MaxRiders-len(r.Riders), 0)
}

// HasRider reports whether userID is on the rider roster. The driver is not.
func (r Ride) HasRider(userID string) bool {
	return slices.ContainsFunc(r.Riders, func(x Rider) bool { return x.ID == userID })
}

// IsParticipant reports whether userID is the driver or a rider.
func (r Ride) IsParticipant(userID string) bool {
	return r.Driver.ID == userID || r.HasRider(userID)
}

// StartTime parses StartDateTime. ok is false when the value is empty or not
// a valid RFC 3339 timestamp; display code should fall back to the raw string.
func (r Ride) StartTime() (t time.Time, ok bool) {
	if r.StartDateTime == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if parsed, err := time.Parse(layout, r.StartDateTime); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

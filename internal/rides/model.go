package rides

import (
	"slices"
	"time"
)

// Ride statuses.
const (
	StatusActive = "active"
	StatusFull   = "full"
)

// Creator leave policies.
const (
	LeaveDisallow = "disallow"
	LeaveDelete   = "delete"
	LeaveTransfer = "transfer"
)

// Place is a free-text location with optional coordinates.
type Place struct {
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// Ride is a posted shared trip. UserIDs holds member emails in join order,
// creator first.
type Ride struct {
	ID              string    `json:"id"`
	Origin          Place     `json:"origin"`
	Destination     Place     `json:"destination"`
	DepartureDate   string    `json:"departure_date"`
	EarliestTime    int       `json:"earliest_time"`
	LatestTime      int       `json:"latest_time"`
	Communities     []string  `json:"communities"`
	CreatorEmail    string    `json:"creator_email"`
	MaxParticipants int       `json:"max_participants"`
	UserIDs         []string  `json:"user_ids"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsMember reports whether email is on the roster or created the ride.
func (r *Ride) IsMember(email string) bool {
	return r.CreatorEmail == email || slices.Contains(r.UserIDs, email)
}

// IsFull reports whether the roster has reached capacity.
func (r *Ride) IsFull() bool { return len(r.UserIDs) >= r.MaxParticipants }

// SpotsLeft is the remaining capacity.
func (r *Ride) SpotsLeft() int {
	if n := r.MaxParticipants - len(r.UserIDs); n > 0 {
		return n
	}
	return 0
}

// CreateRequest is the body for POST /ride-request.
type CreateRequest struct {
	Origin          Place    `json:"origin"`
	Destination     Place    `json:"destination"`
	DepartureDate   string   `json:"departure_date" validate:"required,isodate"`
	EarliestTime    *int     `json:"earliest_time" validate:"required"`
	LatestTime      *int     `json:"latest_time" validate:"required"`
	Communities     []string `json:"communities"`
	MaxParticipants *int     `json:"max_participants"`
}

// LeaveResult tells the caller what leaving did to the ride.
type LeaveResult struct {
	Message string `json:"message"`
	Deleted bool   `json:"ride_deleted"`
	Ride    *Ride  `json:"ride,omitempty"`
}

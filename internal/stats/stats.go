// Package stats derives profile statistics from a user's ride history. Nothing
// is persisted; every request recomputes from the rides.
package stats

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"campus-mobility/internal/rides"
)

const (
	// DefaultWindowDays is the trailing window used when none is requested.
	DefaultWindowDays = 30
	// MaxWindowDays bounds ?days=.
	MaxWindowDays = 365

	topN = 5
)

// CoRider is someone the user shared rides with.
type CoRider struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// Destination is a frequently visited place.
type Destination struct {
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// Stats is the response of GET /profile/stats.
type Stats struct {
	WindowDays      int           `json:"window_days"`
	TotalRides      int           `json:"total_rides"`
	RidesInWindow   int           `json:"rides_in_window"`
	RidesCreated    int           `json:"rides_created"`
	UpcomingRides   int           `json:"upcoming_rides"`
	TopCoRiders     []CoRider     `json:"top_co_riders"`
	TopDestinations []Destination `json:"top_destinations"`
}

// rideDay is the calendar day a ride departs, falling back to its creation day.
func rideDay(r *rides.Ride) time.Time {
	if d, err := time.Parse(time.DateOnly, r.DepartureDate); err == nil {
		return d
	}
	y, m, d := r.CreatedAt.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Compute aggregates the rides user belongs to. A ride counts towards the
// window when it departs on one of the windowDays calendar days ending today.
// Co-riders and destinations are ranked by count, then name.
func Compute(list []*rides.Ride, user string, now time.Time, windowDays int) *Stats {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, 1-windowDays)

	st := &Stats{WindowDays: windowDays}
	riders := map[string]int{}
	places := map[string]int{}
	for _, r := range list {
		if !r.IsMember(user) {
			continue
		}
		st.TotalRides++
		day := rideDay(r)
		if day.After(today) {
			st.UpcomingRides++
			continue
		}
		if day.Before(from) {
			continue
		}
		st.RidesInWindow++
		if r.CreatorEmail == user {
			st.RidesCreated++
		}
		for _, other := range r.UserIDs {
			if other != user {
				riders[other]++
			}
		}
		if dest := strings.TrimSpace(r.Destination.Description); dest != "" {
			places[dest]++
		}
	}

	st.TopCoRiders = make([]CoRider, 0, len(riders))
	for email, n := range riders {
		st.TopCoRiders = append(st.TopCoRiders, CoRider{Email: email, Count: n})
	}
	slices.SortFunc(st.TopCoRiders, func(a, b CoRider) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Email, b.Email))
	})
	st.TopCoRiders = st.TopCoRiders[:min(topN, len(st.TopCoRiders))]

	st.TopDestinations = make([]Destination, 0, len(places))
	for desc, n := range places {
		st.TopDestinations = append(st.TopDestinations, Destination{Description: desc, Count: n})
	}
	slices.SortFunc(st.TopDestinations, func(a, b Destination) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Description, b.Description))
	})
	st.TopDestinations = st.TopDestinations[:min(topN, len(st.TopDestinations))]
	return st
}

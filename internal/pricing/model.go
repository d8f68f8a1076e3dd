package pricing

// Point is a latitude/longitude pair.
type Point struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (p Point) lat() float64 { return *p.Latitude }
func (p Point) lng() float64 { return *p.Longitude }

// EstimateRequest is the body for POST /price-estimate.
type EstimateRequest struct {
	Origin      Point  `json:"origin"`
	Destination Point  `json:"destination"`
	ProductType string `json:"product_type"`
}

// RouteRequest is the body for POST /route-info.
type RouteRequest struct {
	Origin      Point `json:"origin"`
	Destination Point `json:"destination"`
}

// Estimate is a fare quote from the rideshare provider.
type Estimate struct {
	Estimate          float64            `json:"estimate"`
	LowEstimate       float64            `json:"low_estimate"`
	HighEstimate      float64            `json:"high_estimate"`
	FormattedEstimate string             `json:"formatted_estimate"`
	FormattedRange    string             `json:"formatted_range"`
	CurrencyCode      string             `json:"currency_code"`
	DisplayName       string             `json:"display_name"`
	Duration          int                `json:"duration"`
	Distance          float64            `json:"distance"`
	SurgeMultiplier   float64            `json:"surge_multiplier"`
	Source            string             `json:"source"`
	Route             *Result[RouteInfo] `json:"route,omitempty"`
}

// Leg is one leg of a computed route.
type Leg struct {
	Duration       string `json:"duration"`
	DistanceMeters int    `json:"distance_meters"`
	StartLocation  any    `json:"start_location"`
	EndLocation    any    `json:"end_location"`
}

// RouteInfo is a driving route from the directions provider.
type RouteInfo struct {
	DistanceMeters    int     `json:"distance_meters"`
	DistanceMiles     float64 `json:"distance_miles"`
	FormattedDistance string  `json:"formatted_distance"`
	DurationSeconds   int     `json:"duration_seconds"`
	DurationMinutes   float64 `json:"duration_minutes"`
	FormattedDuration string  `json:"formatted_duration"`
	Polyline          string  `json:"polyline"`
	Legs              []Leg   `json:"legs"`
	Source            string  `json:"source"`
}

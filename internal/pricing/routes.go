package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

const (
	metersToMiles = 0.000621371
	routesMask    = "routes.duration,routes.distanceMeters,routes.polyline,routes.legs"
)

// RoutesClient calls the Google Routes computeRoutes endpoint. One attempt
// per call.
type RoutesClient struct {
	key  string
	url  string
	http *http.Client
	log  *zap.Logger
}

// NewRoutesClient builds a client for the computeRoutes URL.
func NewRoutesClient(key, url string) *RoutesClient {
	return &RoutesClient{
		key:  key,
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  logger.Named("routes"),
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

func newWaypoint(p Point) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: p.lat(), Longitude: p.lng()}
	return w
}

type routesRequest struct {
	Origin            waypoint `json:"origin"`
	Destination       waypoint `json:"destination"`
	TravelMode        string   `json:"travelMode"`
	PolylineQuality   string   `json:"polylineQuality"`
	RoutingPreference string   `json:"routingPreference"`
}

type routesResponse struct {
	Routes []struct {
		Duration       string `json:"duration"`
		DistanceMeters int    `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
		Legs []struct {
			Duration       string `json:"duration"`
			DistanceMeters int    `json:"distanceMeters"`
			StartLocation  any    `json:"startLocation"`
			EndLocation    any    `json:"endLocation"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route computes the driving route between two points.
func (c *RoutesClient) Route(ctx context.Context, origin, dest Point) Result[RouteInfo] {
	if c.key == "" {
		return Unavailable[RouteInfo]("Route information is not configured")
	}

	payload, err := json.Marshal(routesRequest{
		Origin:            newWaypoint(origin),
		Destination:       newWaypoint(dest),
		TravelMode:        "DRIVE",
		PolylineQuality:   "OVERVIEW",
		RoutingPreference: "TRAFFIC_AWARE",
	})
	if err != nil {
		return Unavailable[RouteInfo]("Route information is unavailable")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Unavailable[RouteInfo]("Route information is unavailable")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.key)
	req.Header.Set("X-Goog-FieldMask", routesMask)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("route request failed", zap.Error(err))
		return Unavailable[RouteInfo]("Route information is unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("route request rejected", zap.Int("status", resp.StatusCode))
		return Unavailable[RouteInfo](fmt.Sprintf("Route service returned status %d", resp.StatusCode))
	}

	var body routesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn("route response undecodable", zap.Error(err))
		return Unavailable[RouteInfo]("Route service returned an unreadable response")
	}
	if len(body.Routes) == 0 {
		return Unavailable[RouteInfo]("No route found between these points")
	}

	r := body.Routes[0]
	secs := parseSeconds(r.Duration)
	miles := float64(r.DistanceMeters) * metersToMiles
	info := RouteInfo{
		DistanceMeters:    r.DistanceMeters,
		DistanceMiles:     miles,
		FormattedDistance: fmt.Sprintf("%.1f miles", miles),
		DurationSeconds:   secs,
		DurationMinutes:   float64(secs) / 60,
		FormattedDuration: FormatDuration(float64(secs) / 60),
		Polyline:          r.Polyline.EncodedPolyline,
		Legs:              make([]Leg, 0, len(r.Legs)),
		Source:            "google_routes_api",
	}
	for _, l := range r.Legs {
		info.Legs = append(info.Legs, Leg{
			Duration:       l.Duration,
			DistanceMeters: l.DistanceMeters,
			StartLocation:  l.StartLocation,
			EndLocation:    l.EndLocation,
		})
	}
	return Available(info)
}

// parseSeconds reads the protobuf Duration form "1234s"; anything else is 0.
func parseSeconds(d string) int {
	if !strings.HasSuffix(d, "s") {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(d, "s"), 64)
	if err != nil {
		return 0
	}
	return int(n)
}

// FormatDuration renders minutes as "42 min", "2 hr" or "1 hr 5 min".
func FormatDuration(minutes float64) string {
	total := int(minutes)
	if total < 60 {
		return fmt.Sprintf("%d min", total)
	}
	hours, mins := total/60, total%60
	if mins == 0 {
		return fmt.Sprintf("%d hr", hours)
	}
	return fmt.Sprintf("%d hr %d min", hours, mins)
}

// Package places proxies Google Places autocomplete and details lookups.
package places

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"campus-mobility/internal/apperr"
	"campus-mobility/pkg/logger"
)

const minQueryLength = 2

// Suggestion is one autocomplete prediction.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Location is a resolved coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Details describes a single place.
type Details struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    *Location `json:"location"`
}

// Service queries the Places API. A nil client means no key is configured.
type Service struct {
	client *maps.Client
	log    *zap.Logger
}

// NewService builds a places service. Without an API key every lookup
// reports the provider as unavailable. opts are passed to the maps client.
func NewService(apiKey string, opts ...maps.ClientOption) (*Service, error) {
	s := &Service{log: logger.Named("places")}
	if apiKey == "" {
		return s, nil
	}
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	s.client = c
	return s, nil
}

var errNotConfigured = apperr.ErrUpstreamUnavailable.WithMessage("place search is not configured")

// Autocomplete suggests US establishments and addresses for query. Queries
// shorter than two characters return no suggestions without a provider call.
func (s *Service) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return []Suggestion{}, nil
	}
	if s.client == nil {
		return nil, errNotConfigured
	}

	resp, err := s.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:      query,
		Types:      maps.AutocompletePlaceType("establishment|geocode"),
		Components: map[maps.Component][]string{maps.ComponentCountry: {"us"}},
	})
	if err != nil {
		s.log.Warn("autocomplete failed", zap.Error(err))
		return nil, apperr.Upstream("place search is unavailable", err)
	}

	out := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Suggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

// Details resolves a place id to its name, address and coordinates.
func (s *Service) Details(ctx context.Context, placeID string) (*Details, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, apperr.Validation("place_id is required")
	}
	if s.client == nil {
		return nil, errNotConfigured
	}

	res, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskGeometry,
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
		},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.ErrNotFound.WithMessage("place not found")
		}
		s.log.Warn("place details failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, apperr.Upstream("place details are unavailable", err)
	}

	d := &Details{Name: res.Name, Description: res.FormattedAddress}
	if loc := res.Geometry.Location; loc.Lat != 0 || loc.Lng != 0 {
		d.Location = &Location{Latitude: loc.Lat, Longitude: loc.Lng}
	}
	return d, nil
}

// isNotFound matches the status the maps client folds into its error text.
func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NOT_FOUND") || strings.Contains(msg, "ZERO_RESULTS") ||
		strings.Contains(msg, "INVALID_REQUEST")
}

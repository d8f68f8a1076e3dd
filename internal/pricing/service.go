package pricing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"campus-mobility/internal/apperr"
	"campus-mobility/pkg/validation"
)

// Provider names reported to the unavailable hook.
const (
	ProviderUber   = "uber"
	ProviderRoutes = "google_routes"
)

// PriceProvider quotes a fare.
type PriceProvider interface {
	Estimate(ctx context.Context, origin, dest Point, product string) Result[Estimate]
}

// RouteProvider computes a route.
type RouteProvider interface {
	Route(ctx context.Context, origin, dest Point) Result[RouteInfo]
}

// Service composes the pricing and routing providers.
type Service struct {
	prices PriceProvider
	routes RouteProvider

	// OnUnavailable, when set, is called for every provider that did not answer.
	OnUnavailable func(provider string)
}

// NewService wires both providers.
func NewService(prices PriceProvider, routes RouteProvider) *Service {
	return &Service{prices: prices, routes: routes}
}

func checkPoints(points ...Point) error {
	for _, p := range points {
		if p.Latitude == nil || p.Longitude == nil || !validation.ValidateCoordinates(p.lat(), p.lng()) {
			return apperr.Validation("origin and destination need valid latitude and longitude")
		}
	}
	return nil
}

func (s *Service) miss(provider string, ok bool) {
	if !ok && s.OnUnavailable != nil {
		s.OnUnavailable(provider)
	}
}

// EstimatePrice quotes the fare and, when the routes provider answers,
// attaches the route. Both providers are called concurrently.
func (s *Service) EstimatePrice(ctx context.Context, req EstimateRequest) (Result[Estimate], error) {
	if err := checkPoints(req.Origin, req.Destination); err != nil {
		return Result[Estimate]{}, err
	}

	var (
		price Result[Estimate]
		route Result[RouteInfo]
		g     errgroup.Group
	)
	g.Go(func() error {
		price = s.prices.Estimate(ctx, req.Origin, req.Destination, req.ProductType)
		return nil
	})
	g.Go(func() error {
		route = s.routes.Route(ctx, req.Origin, req.Destination)
		return nil
	})
	_ = g.Wait()

	s.miss(ProviderUber, price.OK())
	s.miss(ProviderRoutes, route.OK())

	est, ok := price.Get()
	if !ok {
		return price, nil
	}
	if route.OK() {
		est.Route = &route
	}
	return Available(est), nil
}

// GetRouteInfo returns the driving route between two points.
func (s *Service) GetRouteInfo(ctx context.Context, req RouteRequest) (Result[RouteInfo], error) {
	if err := checkPoints(req.Origin, req.Destination); err != nil {
		return Result[RouteInfo]{}, err
	}
	route := s.routes.Route(ctx, req.Origin, req.Destination)
	s.miss(ProviderRoutes, route.OK())
	return route, nil
}

package rides

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/events"
	"campus-mobility/internal/universities"
	"campus-mobility/pkg/kafka"
	"campus-mobility/pkg/logger"
	"campus-mobility/pkg/validation"
)

const (
	minParticipants = 2
	maxParticipants = 8
)

// CommunityLookup returns the communities whose rides a user may see.
type CommunityLookup interface {
	CommunitiesFor(ctx context.Context, email string) ([]string, error)
}

// RelatedDeleter removes chat and Q&A rows for a ride.
type RelatedDeleter interface {
	DeleteForRide(ctx context.Context, rideID string) error
}

// Policy holds the ride lifecycle choices.
type Policy struct {
	CreatorLeave           string
	CascadeDelete          bool
	BlockDeleteWithRiders  bool
	DefaultMaxParticipants int
}

// Service contains ride request and membership logic.
type Service struct {
	store       Store
	communities CommunityLookup
	related     RelatedDeleter
	events      *events.Emitter
	policy      Policy
	log         *zap.Logger
	now         func() time.Time
}

// NewService creates a ride service. related and emitter may be nil.
func NewService(store Store, communities CommunityLookup, related RelatedDeleter, emitter *events.Emitter, policy Policy) *Service {
	switch policy.CreatorLeave {
	case LeaveDelete, LeaveTransfer:
	default:
		policy.CreatorLeave = LeaveDisallow
	}
	if policy.DefaultMaxParticipants < minParticipants || policy.DefaultMaxParticipants > maxParticipants {
		policy.DefaultMaxParticipants = 4
	}
	return &Service{
		store:       store,
		communities: communities,
		related:     related,
		events:      emitter,
		policy:      policy,
		log:         logger.Named("rides"),
		now:         time.Now,
	}
}

func (s *Service) emit(ctx context.Context, topic, actor string, r *Ride) {
	ev := events.RideEvent{RideID: r.ID, Actor: actor, OccurredAt: s.now().UTC()}
	if topic != kafka.TopicRideDeleted {
		ev.Participants = len(r.UserIDs)
		ev.Status = r.Status
		ev.Communities = r.Communities
	}
	s.events.Emit(ctx, topic, ev)
}

func cleanPlace(p Place, field string) (Place, error) {
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return p, apperr.Validation(field + " is required")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return p, apperr.Validation(field + " needs both latitude and longitude")
	}
	if p.Latitude != nil && !validation.ValidateCoordinates(*p.Latitude, *p.Longitude) {
		return p, apperr.Validation(field + " coordinates are out of range")
	}
	return p, nil
}

// Create validates and stores a ride with the creator as its first member.
func (s *Service) Create(ctx context.Context, creator string, req CreateRequest) (*Ride, error) {
	origin, err := cleanPlace(req.Origin, "origin")
	if err != nil {
		return nil, err
	}
	dest, err := cleanPlace(req.Destination, "destination")
	if err != nil {
		return nil, err
	}
	communities := universities.NormalizeAll(req.Communities)
	if len(communities) == 0 {
		return nil, apperr.Validation("at least one community is required")
	}
	if !validation.ValidateDate(req.DepartureDate) {
		return nil, apperr.Validation("departure_date must be YYYY-MM-DD")
	}
	if req.EarliestTime == nil || req.LatestTime == nil || !validation.ValidateTimeWindow(*req.EarliestTime, *req.LatestTime) {
		return nil, apperr.Validation("earliest_time and latest_time must be minutes in 0..1439 with earliest <= latest")
	}
	capacity := s.policy.DefaultMaxParticipants
	if req.MaxParticipants != nil {
		capacity = *req.MaxParticipants
	}
	if capacity < minParticipants || capacity > maxParticipants {
		return nil, apperr.Validation("max_participants must be between 2 and 8")
	}

	r := &Ride{
		ID:              uuid.New().String(),
		Origin:          origin,
		Destination:     dest,
		DepartureDate:   req.DepartureDate,
		EarliestTime:    *req.EarliestTime,
		LatestTime:      *req.LatestTime,
		Communities:     communities,
		CreatorEmail:    creator,
		MaxParticipants: capacity,
		UserIDs:         []string{creator},
		Status:          StatusActive,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.emit(ctx, kafka.TopicRideCreated, creator, r)
	return r, nil
}

// List returns rides visible to the user, in posting order.
func (s *Service) List(ctx context.Context, email string) ([]*Ride, error) {
	communities, err := s.communities.CommunitiesFor(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.ListForCommunities(ctx, communities)
}

// Get fetches one ride.
func (s *Service) Get(ctx context.Context, id string) (*Ride, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrRideNotFound
	}
	return s.store.Get(ctx, id)
}

// MyRides lists rides the user belongs to.
func (s *Service) MyRides(ctx context.Context, email string) ([]*Ride, error) {
	return s.store.ListForMember(ctx, email)
}

// Join adds the user to the ride's roster.
func (s *Service) Join(ctx context.Context, id, email string) (*Ride, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := classifyJoin(r, email); err != nil {
		return nil, err
	}

	updated, err := s.store.AddParticipant(ctx, id, email)
	if errors.Is(err, ErrNotApplied) {
		// lost a race; report what the ride looks like now
		r, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := classifyJoin(r, email); err != nil {
			return nil, err
		}
		return nil, apperr.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	s.emit(ctx, kafka.TopicRideJoined, email, updated)
	return updated, nil
}

func classifyJoin(r *Ride, email string) error {
	switch {
	case r.IsMember(email):
		return apperr.ErrAlreadyMember
	case r.IsFull():
		return apperr.ErrRideFull
	}
	return nil
}

// Leave removes the user from the ride. A creator leaving follows the configured policy.
func (s *Service) Leave(ctx context.Context, id, email string) (*LeaveResult, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsMember(email) {
		return nil, apperr.ErrNotMember
	}

	if r.CreatorEmail == email {
		return s.creatorLeave(ctx, r)
	}

	updated, err := s.store.RemoveParticipant(ctx, id, email)
	if errors.Is(err, ErrNotApplied) {
		if _, err := s.store.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	s.emit(ctx, kafka.TopicRideLeft, email, updated)
	return &LeaveResult{Message: "Left ride", Ride: updated}, nil
}

func (s *Service) creatorLeave(ctx context.Context, r *Ride) (*LeaveResult, error) {
	switch s.policy.CreatorLeave {
	case LeaveDelete:
		if err := s.remove(ctx, r); err != nil {
			return nil, err
		}
		return &LeaveResult{Message: "Ride deleted because its creator left", Deleted: true}, nil

	case LeaveTransfer:
		if len(r.UserIDs) <= 1 {
			if err := s.remove(ctx, r); err != nil {
				return nil, err
			}
			return &LeaveResult{Message: "Ride deleted because no members remain", Deleted: true}, nil
		}
		updated, err := s.store.TransferOwnership(ctx, r.ID, r.CreatorEmail)
		if errors.Is(err, ErrNotApplied) {
			return nil, apperr.ErrConflict.WithMessage("ride changed while leaving, try again")
		}
		if err != nil {
			return nil, err
		}
		s.emit(ctx, kafka.TopicRideLeft, r.CreatorEmail, updated)
		return &LeaveResult{Message: "Left ride; ownership transferred to " + updated.CreatorEmail, Ride: updated}, nil

	default:
		return nil, apperr.Forbidden("the ride creator cannot leave; delete the ride instead")
	}
}

// Delete removes a ride. Only the creator may delete it.
func (s *Service) Delete(ctx context.Context, id, requester string) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.CreatorEmail != requester {
		return apperr.Forbidden("only the ride creator can delete this ride")
	}
	if s.policy.BlockDeleteWithRiders && len(r.UserIDs) > 1 {
		return apperr.ErrConflict.WithMessage("cannot delete a ride other riders have joined")
	}
	return s.remove(ctx, r)
}

// remove deletes r on behalf of its creator and cascades when configured.
func (s *Service) remove(ctx context.Context, r *Ride) error {
	err := s.store.Delete(ctx, r.ID, r.CreatorEmail)
	if errors.Is(err, ErrNotApplied) {
		cur, err := s.store.Get(ctx, r.ID)
		if err != nil {
			return err
		}
		if cur.CreatorEmail != r.CreatorEmail {
			return apperr.Forbidden("only the ride creator can delete this ride")
		}
		return apperr.ErrConflict
	}
	if err != nil {
		return err
	}

	if s.policy.CascadeDelete && s.related != nil {
		if err := s.related.DeleteForRide(ctx, r.ID); err != nil {
			// the ride is gone; leftover rows read as ride_deleted
			logger.Warn(ctx, "cascade delete of ride chat failed", zap.String("ride_id", r.ID), zap.Error(err))
		}
	}
	s.emit(ctx, kafka.TopicRideDeleted, r.CreatorEmail, r)
	logger.Info(ctx, "ride deleted", zap.String("ride_id", r.ID))
	return nil
}

// RemoveUser detaches email from every ride before account deletion. Owned
// rides are deleted when deleteOwned is set, otherwise handed to the next member.
func (s *Service) RemoveUser(ctx context.Context, email string, deleteOwned bool) error {
	list, err := s.store.ListForMember(ctx, email)
	if err != nil {
		return err
	}
	for _, r := range list {
		switch {
		case r.CreatorEmail != email:
			if _, err := s.store.RemoveParticipant(ctx, r.ID, email); err != nil && !errors.Is(err, ErrNotApplied) {
				return err
			}
		case deleteOwned || len(r.UserIDs) <= 1:
			if err := s.remove(ctx, r); err != nil && !errors.Is(err, apperr.ErrRideNotFound) {
				return err
			}
		default:
			if _, err := s.store.TransferOwnership(ctx, r.ID, email); err != nil && !errors.Is(err, ErrNotApplied) {
				return err
			}
		}
	}
	return nil
}

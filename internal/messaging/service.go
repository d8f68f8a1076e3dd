package messaging

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/rides"
	"campus-mobility/internal/users"
	"campus-mobility/pkg/logger"
)

// RideReader resolves rides and their rosters.
type RideReader interface {
	Get(ctx context.Context, id string) (*rides.Ride, error)
	MyRides(ctx context.Context, email string) ([]*rides.Ride, error)
}

// Directory resolves display details and community membership of users.
type Directory interface {
	Profiles(ctx context.Context, emails []string) (map[string]users.Profile, error)
	CommunitiesFor(ctx context.Context, email string) ([]string, error)
}

// Notifier pushes new feed entries to live subscribers. member is asked for
// every subscriber right before the write.
type Notifier interface {
	Publish(entry MessageView, member func(email string) bool)
}

// Service implements group chat and the private question channel.
type Service struct {
	store  Store
	rides  RideReader
	people Directory
	notify Notifier
	strip  *bluemonday.Policy
	now    func() time.Time
}

// NewService wires the messaging service. notify may be nil.
func NewService(store Store, rides RideReader, people Directory, notify Notifier) *Service {
	return &Service{
		store:  store,
		rides:  rides,
		people: people,
		notify: notify,
		strip:  bluemonday.StrictPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) clean(field, v string) (string, error) {
	v = strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(v)))
	switch n := utf8.RuneCountInString(v); {
	case n == 0:
		return "", apperr.Validation(field + " is required")
	case n > MaxLength:
		return "", apperr.Validation(fmt.Sprintf("%s must be at most %d characters", field, MaxLength))
	}
	return v, nil
}

func (s *Service) memberRide(ctx context.Context, rideID, email string) (*rides.Ride, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !r.IsMember(email) {
		return nil, apperr.ErrNotMember
	}
	return r, nil
}

func (s *Service) question(ctx context.Context, id string) (*Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrQuestionNotFound
	}
	return s.store.GetQuestion(ctx, id)
}

// profiles never fails the request; unknown senders fall back to their
// email prefix.
func (s *Service) profiles(ctx context.Context, emails []string) map[string]users.Profile {
	slices.Sort(emails)
	p, err := s.people.Profiles(ctx, slices.Compact(emails))
	if err != nil {
		logger.Warn(ctx, "profile lookup failed", zap.Error(err))
		return map[string]users.Profile{}
	}
	return p
}

func displayName(p map[string]users.Profile, email string) string {
	if prof, ok := p[email]; ok && prof.Name != "" {
		return prof.Name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func view(m *Message, p map[string]users.Profile) MessageView {
	return MessageView{
		Message:              *m,
		SenderName:           displayName(p, m.SenderEmail),
		SenderProfilePicture: p[m.SenderEmail].ProfilePicture,
	}
}

func (s *Service) push(ctx context.Context, r *rides.Ride, m *Message) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(view(m, s.profiles(ctx, []string{m.SenderEmail})), r.IsMember)
}

func (s *Service) entry(rideID, sender, content, kind, questionID string) *Message {
	return &Message{
		ID:          uuid.New().String(),
		RideID:      rideID,
		SenderEmail: sender,
		Content:     content,
		Type:        kind,
		QuestionID:  questionID,
		CreatedAt:   s.now(),
	}
}

// SendMessage appends a member's text to the ride feed.
func (s *Service) SendMessage(ctx context.Context, rideID, sender, content string) (*Receipt, error) {
	r, err := s.memberRide(ctx, rideID, sender)
	if err != nil {
		return nil, err
	}
	text, err := s.clean("content", content)
	if err != nil {
		return nil, err
	}
	m := s.entry(r.ID, sender, text, TypeText, "")
	if err := s.store.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	s.push(ctx, r, m)
	return &Receipt{Message: "Message sent successfully", MessageID: m.ID}, nil
}

// AskQuestion lets a non-member ask the ride's members something.
func (s *Service) AskQuestion(ctx context.Context, rideID, asker, text string) (*Receipt, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.IsMember(asker) {
		return nil, apperr.ErrAlreadyMember.WithMessage("you are already a member of this ride, use the group chat instead")
	}
	text, err = s.clean("question", text)
	if err != nil {
		return nil, err
	}
	q := &Question{
		ID:         uuid.New().String(),
		RideID:     r.ID,
		AskerEmail: asker,
		Question:   text,
		CreatedAt:  s.now(),
	}
	m := s.entry(r.ID, asker, text, TypeQuestion, q.ID)
	if err := s.store.AddQuestion(ctx, q, m); err != nil {
		return nil, err
	}
	s.push(ctx, r, m)
	return &Receipt{Message: "Question sent to ride members", QuestionID: q.ID}, nil
}

// RespondToQuestion answers a question privately to its asker. The answer
// also lands in the member feed; outsiders other than the asker never see it.
func (s *Service) RespondToQuestion(ctx context.Context, questionID, responder, text string) (*Receipt, error) {
	q, err := s.question(ctx, questionID)
	if err != nil {
		return nil, err
	}
	r, err := s.memberRide(ctx, q.RideID, responder)
	if err != nil {
		return nil, err
	}
	text, err = s.clean("response", text)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		ID:             uuid.New().String(),
		QuestionID:     q.ID,
		RideID:         q.RideID,
		ResponderEmail: responder,
		AskerEmail:     q.AskerEmail,
		Response:       text,
		CreatedAt:      s.now(),
	}
	m := s.entry(r.ID, responder, text, TypeResponse, q.ID)
	if err := s.store.AddResponse(ctx, resp, m); err != nil {
		return nil, err
	}
	s.push(ctx, r, m)
	return &Receipt{
		Message:    "Response sent privately to the asker and visible to all ride members",
		ResponseID: resp.ID,
	}, nil
}

// GetMessages returns the feed, oldest first. Only members may read it.
func (s *Service) GetMessages(ctx context.Context, rideID, caller string) (*Feed, error) {
	r, err := s.memberRide(ctx, rideID, caller)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	senders := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.SenderEmail)
	}
	p := s.profiles(ctx, senders)

	feed := &Feed{RideID: r.ID, Messages: make([]MessageView, 0, len(msgs)), ParticipantCount: len(r.UserIDs)}
	for _, m := range msgs {
		feed.Messages = append(feed.Messages, view(m, p))
	}
	return feed, nil
}

func (s *Service) decorate(ctx context.Context, qs []*Question, byRide map[string]*rides.Ride) ([]QuestionView, error) {
	ids := make([]string, 0, len(qs))
	askers := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
		askers = append(askers, q.AskerEmail)
	}
	counts, err := s.store.CountResponses(ctx, ids)
	if err != nil {
		return nil, err
	}
	p := s.profiles(ctx, askers)

	out := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		v := QuestionView{
			Question:        *q,
			AskerName:       displayName(p, q.AskerEmail),
			ResponseCount:   counts[q.ID],
			RideOrigin:      "Deleted Ride",
			RideDestination: "Deleted Ride",
		}
		if r := byRide[q.RideID]; r != nil {
			v.RideOrigin = r.Origin.Description
			v.RideDestination = r.Destination.Description
			v.DepartureDate = r.DepartureDate
		}
		out = append(out, v)
	}
	return out, nil
}

// GetQuestions lists a ride's questions. Members see all of them, anyone
// else only their own.
func (s *Service) GetQuestions(ctx context.Context, rideID, caller string) ([]QuestionView, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	qs, err := s.store.ListQuestions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if !r.IsMember(caller) {
		qs = slices.DeleteFunc(qs, func(q *Question) bool { return q.AskerEmail != caller })
	}
	return s.decorate(ctx, qs, map[string]*rides.Ride{r.ID: r})
}

// GetResponses lists the answers to a question for its asker or any current
// member of the ride.
func (s *Service) GetResponses(ctx context.Context, questionID, caller string) ([]ResponseView, error) {
	q, err := s.question(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.AskerEmail != caller {
		r, err := s.rides.Get(ctx, q.RideID)
		switch {
		case errors.Is(err, apperr.ErrRideNotFound):
			return nil, apperr.Forbidden("only the asker can view responses to this question")
		case err != nil:
			return nil, err
		case !r.IsMember(caller):
			return nil, apperr.Forbidden("only the asker or ride members can view responses")
		}
	}
	list, err := s.store.ListResponses(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	responders := make([]string, 0, len(list))
	for _, resp := range list {
		responders = append(responders, resp.ResponderEmail)
	}
	p := s.profiles(ctx, responders)

	out := make([]ResponseView, 0, len(list))
	for _, resp := range list {
		out = append(out, ResponseView{Response: *resp, ResponderName: displayName(p, resp.ResponderEmail)})
	}
	return out, nil
}

// ChatInfo reports what the caller can do with a ride's chat.
func (s *Service) ChatInfo(ctx context.Context, rideID, caller string) (*ChatInfo, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	member := r.IsMember(caller)
	info := &ChatInfo{IsMember: member, CanSendMessages: member, CanAskQuestions: !member}
	if member {
		st, err := s.store.FeedStats(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		info.MessageCount = st.Count
	}
	if info.QuestionCount, err = s.store.CountQuestions(ctx, r.ID); err != nil {
		return nil, err
	}
	return info, nil
}

// MyQuestions lists the caller's questions, newest first, with whether the
// ride can still be joined.
func (s *Service) MyQuestions(ctx context.Context, caller string) ([]AskedQuestion, error) {
	qs, err := s.store.ListQuestionsByAsker(ctx, caller)
	if err != nil {
		return nil, err
	}
	byRide := make(map[string]*rides.Ride)
	for _, q := range qs {
		if _, seen := byRide[q.RideID]; seen {
			continue
		}
		r, err := s.rides.Get(ctx, q.RideID)
		if err != nil && !errors.Is(err, apperr.ErrRideNotFound) {
			return nil, err
		}
		byRide[q.RideID] = r
	}
	views, err := s.decorate(ctx, qs, byRide)
	if err != nil {
		return nil, err
	}

	communities, err := s.people.CommunitiesFor(ctx, caller)
	if err != nil {
		logger.Warn(ctx, "community lookup failed", zap.Error(err))
		communities = nil
	}

	out := make([]AskedQuestion, 0, len(views))
	for _, v := range views {
		out = append(out, annotate(v, byRide[v.RideID], caller, communities))
	}
	return out, nil
}

func annotate(v QuestionView, r *rides.Ride, caller string, communities []string) AskedQuestion {
	aq := AskedQuestion{QuestionView: v, UserCanAccess: true}
	if r == nil {
		aq.RideDeleted = true
		aq.UserCanAccess = false
		aq.UnavailableReason = "Ride post was deleted"
		return aq
	}
	aq.RideStatus = r.Status
	aq.RideCommunities = r.Communities
	if r.IsMember(caller) {
		return aq
	}

	shared := slices.ContainsFunc(r.Communities, func(c string) bool { return slices.Contains(communities, c) })
	switch {
	case len(communities) > 0 && len(r.Communities) > 0 && !shared:
		aq.UserCanAccess = false
		aq.UnavailableReason = "Ride restricted to " + strings.Join(r.Communities, ", ")
	case r.Status == rides.StatusFull:
		aq.UserCanAccess = false
		aq.UnavailableReason = "Ride is full"
	case r.Status != rides.StatusActive:
		aq.UserCanAccess = false
		aq.UnavailableReason = "Ride status is " + r.Status
	}
	return aq
}

// MyRideChats lists the chats of every ride the caller belongs to, most
// recently active first. Rides without messages sort last.
func (s *Service) MyRideChats(ctx context.Context, caller string) ([]RideChat, error) {
	list, err := s.rides.MyRides(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := make([]RideChat, 0, len(list))
	for _, r := range list {
		st, err := s.store.FeedStats(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RideChat{
			RideID:          r.ID,
			RideOrigin:      r.Origin.Description,
			RideDestination: r.Destination.Description,
			DepartureDate:   r.DepartureDate,
			MessageCount:    st.Count,
			LastMessageTime: st.LastAt,
		})
	}
	slices.SortStableFunc(out, func(a, b RideChat) int {
		switch {
		case a.LastMessageTime == nil && b.LastMessageTime == nil:
			return 0
		case a.LastMessageTime == nil:
			return 1
		case b.LastMessageTime == nil:
			return -1
		}
		return b.LastMessageTime.Compare(*a.LastMessageTime)
	})
	return out, nil
}

// CanSubscribe checks that caller may follow a ride's live feed.
func (s *Service) CanSubscribe(ctx context.Context, rideID, caller string) error {
	_, err := s.memberRide(ctx, rideID, caller)
	return err
}

package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/rides"
	"campus-mobility/internal/rides/ridestest"
	"campus-mobility/internal/users"
)

const (
	alice = "alice@pomona.edu"
	bob   = "bob@pomona.edu"
	carol = "carol@hmc.edu"
	dave  = "dave@andrew.cmu.edu"
)

type fakeDirectory struct {
	profiles    map[string]users.Profile
	communities map[string][]string
}

func (d fakeDirectory) Profiles(_ context.Context, emails []string) (map[string]users.Profile, error) {
	out := map[string]users.Profile{}
	for _, e := range emails {
		if p, ok := d.profiles[e]; ok {
			out[e] = p
		}
	}
	return out, nil
}

func (d fakeDirectory) CommunitiesFor(_ context.Context, email string) ([]string, error) {
	return d.communities[email], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []MessageView
}

func (n *recordingNotifier) Publish(e MessageView, _ func(string) bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, e)
}

type fixture struct {
	svc    *Service
	store  *memStore
	rides  *ridestest.MemStore
	ridesv *rides.Service
	notify *recordingNotifier
	ride   *rides.Ride
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		rides:  ridestest.NewMemStore(),
		notify: &recordingNotifier{},
		clock:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	f.ridesv = rides.NewService(f.rides, nil, f.store, nil, rides.Policy{CascadeDelete: true})
	dir := fakeDirectory{
		profiles: map[string]users.Profile{
			alice: {Email: alice, Name: "Alice Chen", ProfilePicture: "data:image/png;base64,AAAA"},
			bob:   {Email: bob, Name: "Bob"},
		},
		communities: map[string][]string{
			carol: {"Harvey Mudd College", "Claremont Colleges", "Open to all"},
			dave:  {"Carnegie Mellon University", "Open to all"},
		},
	}
	f.svc = NewService(f.store, f.ridesv, dir, f.notify)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.ride = f.putRide(alice, []string{alice, bob}, []string{"Claremont Colleges"})
	return f
}

func (f *fixture) putRide(creator string, members, communities []string) *rides.Ride {
	r := &rides.Ride{
		ID:              uuid.New().String(),
		Origin:          rides.Place{Description: "Pomona College"},
		Destination:     rides.Place{Description: "LAX"},
		DepartureDate:   "2026-11-20",
		EarliestTime:    540,
		LatestTime:      660,
		Communities:     communities,
		CreatorEmail:    creator,
		MaxParticipants: 4,
		UserIDs:         members,
		Status:          rides.StatusActive,
	}
	f.rides.Put(r)
	return r
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.SendMessage(ctx, f.ride.ID, bob, "  <b>leaving</b> at 9  ")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	feed, err := f.svc.GetMessages(ctx, f.ride.ID, alice)
	require.NoError(t, err)
	require.Len(t, feed.Messages, 1)
	assert.Equal(t, "leaving at 9", feed.Messages[0].Content)
	assert.Equal(t, TypeText, feed.Messages[0].Type)
	assert.Equal(t, "Bob", feed.Messages[0].SenderName)
	assert.Equal(t, 2, feed.ParticipantCount)

	require.Len(t, f.notify.entries, 1)
	assert.Equal(t, f.ride.ID, f.notify.entries[0].RideID)
}

func TestSendMessageRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SendMessage(ctx, f.ride.ID, carol, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotMember)

	_, err = f.svc.SendMessage(ctx, uuid.New().String(), alice, "hi")
	assert.ErrorIs(t, err, apperr.ErrRideNotFound)

	_, err = f.svc.SendMessage(ctx, f.ride.ID, alice, "<script></script>   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SendMessage(ctx, f.ride.ID, alice, strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SendMessage(ctx, f.ride.ID, alice, strings.Repeat("é", MaxLength))
	assert.NoError(t, err)
}

func TestGetMessagesOrderAndAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.SendMessage(ctx, f.ride.ID, alice, text)
		require.NoError(t, err)
	}
	feed, err := f.svc.GetMessages(ctx, f.ride.ID, bob)
	require.NoError(t, err)
	var got []string
	for _, m := range feed.Messages {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
	assert.Equal(t, "Alice Chen", feed.Messages[0].SenderName)
	assert.NotEmpty(t, feed.Messages[0].SenderProfilePicture)

	_, err = f.svc.GetMessages(ctx, f.ride.ID, carol)
	assert.ErrorIs(t, err, apperr.ErrNotMember)
}

func TestAskQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AskQuestion(ctx, f.ride.ID, bob, "room for luggage?")
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember)

	_, err = f.svc.AskQuestion(ctx, uuid.New().String(), carol, "hello?")
	assert.ErrorIs(t, err, apperr.ErrRideNotFound)

	res, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "room for luggage?")
	require.NoError(t, err)
	require.NotEmpty(t, res.QuestionID)

	feed, err := f.svc.GetMessages(ctx, f.ride.ID, alice)
	require.NoError(t, err)
	require.Len(t, feed.Messages, 1)
	entry := feed.Messages[0]
	assert.Equal(t, TypeQuestion, entry.Type)
	assert.Equal(t, res.QuestionID, entry.QuestionID)
	// carol has no profile
	assert.Equal(t, "carol", entry.SenderName)
}

func TestRespondToQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	asked, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "room for luggage?")
	require.NoError(t, err)

	_, err = f.svc.RespondToQuestion(ctx, "not-a-uuid", alice, "yes")
	assert.ErrorIs(t, err, apperr.ErrQuestionNotFound)
	_, err = f.svc.RespondToQuestion(ctx, uuid.New().String(), alice, "yes")
	assert.ErrorIs(t, err, apperr.ErrQuestionNotFound)
	_, err = f.svc.RespondToQuestion(ctx, asked.QuestionID, dave, "yes")
	assert.ErrorIs(t, err, apperr.ErrNotMember)

	res, err := f.svc.RespondToQuestion(ctx, asked.QuestionID, bob, "one bag each")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ResponseID)

	q, err := f.store.GetQuestion(ctx, asked.QuestionID)
	require.NoError(t, err)
	assert.True(t, q.IsAnswered)

	responses, err := f.store.ListResponses(ctx, asked.QuestionID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, carol, responses[0].AskerEmail)

	for _, member := range []string{bob, alice} {
		feed, err := f.svc.GetMessages(ctx, f.ride.ID, member)
		require.NoError(t, err, member)
		require.Len(t, feed.Messages, 2)
		assert.Equal(t, TypeResponse, feed.Messages[1].Type)
		assert.Equal(t, "one bag each", feed.Messages[1].Content)
		assert.Equal(t, asked.QuestionID, feed.Messages[1].QuestionID)
	}

	_, err = f.svc.GetMessages(ctx, f.ride.ID, carol)
	assert.ErrorIs(t, err, apperr.ErrNotMember)

	require.NotEmpty(t, f.notify.entries)
	assert.Equal(t, TypeResponse, f.notify.entries[len(f.notify.entries)-1].Type)
}

func TestRespondAfterRideDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ridesv = rides.NewService(f.rides, nil, nil, nil, rides.Policy{})
	f.svc.rides = f.ridesv

	asked, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "still going?")
	require.NoError(t, err)
	require.NoError(t, f.ridesv.Delete(ctx, f.ride.ID, alice))

	_, err = f.svc.RespondToQuestion(ctx, asked.QuestionID, alice, "no")
	assert.ErrorIs(t, err, apperr.ErrRideNotFound)
}

func TestGetQuestionsVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "from carol")
	require.NoError(t, err)
	asked, err := f.svc.AskQuestion(ctx, f.ride.ID, dave, "from dave")
	require.NoError(t, err)
	_, err = f.svc.RespondToQuestion(ctx, asked.QuestionID, alice, "sure")
	require.NoError(t, err)

	all, err := f.svc.GetQuestions(ctx, f.ride.ID, alice)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "from carol", all[0].Question.Question)
	assert.Equal(t, 0, all[0].ResponseCount)
	assert.Equal(t, 1, all[1].ResponseCount)
	assert.Equal(t, "LAX", all[1].RideDestination)

	own, err := f.svc.GetQuestions(ctx, f.ride.ID, carol)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, carol, own[0].AskerEmail)

	none, err := f.svc.GetQuestions(ctx, f.ride.ID, "erin@pomona.edu")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetResponsesAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	asked, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "pets ok?")
	require.NoError(t, err)
	_, err = f.svc.RespondToQuestion(ctx, asked.QuestionID, alice, "small ones")
	require.NoError(t, err)

	for _, who := range []string{carol, alice, bob} {
		list, err := f.svc.GetResponses(ctx, asked.QuestionID, who)
		require.NoError(t, err, who)
		require.Len(t, list, 1, who)
		assert.Equal(t, "Alice Chen", list[0].ResponderName)
		assert.Equal(t, "small ones", list[0].Response.Response)
	}

	_, err = f.svc.GetResponses(ctx, asked.QuestionID, dave)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.GetResponses(ctx, uuid.New().String(), carol)
	assert.ErrorIs(t, err, apperr.ErrQuestionNotFound)
}

func TestChatInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SendMessage(ctx, f.ride.ID, alice, "hi")
	require.NoError(t, err)
	_, err = f.svc.AskQuestion(ctx, f.ride.ID, carol, "q?")
	require.NoError(t, err)

	member, err := f.svc.ChatInfo(ctx, f.ride.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, &ChatInfo{IsMember: true, MessageCount: 2, QuestionCount: 1, CanSendMessages: true}, member)

	outsider, err := f.svc.ChatInfo(ctx, f.ride.ID, dave)
	require.NoError(t, err)
	assert.Equal(t, &ChatInfo{QuestionCount: 1, CanAskQuestions: true}, outsider)
}

func TestMyQuestionsAnnotations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	full := f.putRide(bob, []string{bob, "x@pomona.edu"}, []string{"Claremont Colleges"})
	full.MaxParticipants = 2
	full.Status = rides.StatusFull
	f.rides.Put(full)
	gone := f.putRide(bob, []string{bob}, []string{"Claremont Colleges"})

	_, err := f.svc.AskQuestion(ctx, f.ride.ID, dave, "open ride")
	require.NoError(t, err)
	_, err = f.svc.AskQuestion(ctx, full.ID, carol, "full ride")
	require.NoError(t, err)
	_, err = f.svc.AskQuestion(ctx, gone.ID, carol, "deleted ride")
	require.NoError(t, err)
	_, err = f.svc.AskQuestion(ctx, f.ride.ID, carol, "accessible ride")
	require.NoError(t, err)
	require.NoError(t, f.ridesv.Delete(ctx, gone.ID, bob))

	mine, err := f.svc.MyQuestions(ctx, carol)
	require.NoError(t, err)
	require.Len(t, mine, 2, "questions on the deleted ride went with the cascade")
	assert.Equal(t, "accessible ride", mine[0].Question.Question)
	assert.True(t, mine[0].UserCanAccess)
	assert.Equal(t, "full ride", mine[1].Question.Question)
	assert.False(t, mine[1].UserCanAccess)
	assert.Equal(t, "Ride is full", mine[1].UnavailableReason)

	restricted, err := f.svc.MyQuestions(ctx, dave)
	require.NoError(t, err)
	require.Len(t, restricted, 1)
	assert.False(t, restricted[0].UserCanAccess)
	assert.Equal(t, "Ride restricted to Claremont Colleges", restricted[0].UnavailableReason)
}

func TestMyQuestionsDeletedRide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ridesv = rides.NewService(f.rides, nil, nil, nil, rides.Policy{})
	f.svc.rides = f.ridesv

	_, err := f.svc.AskQuestion(ctx, f.ride.ID, carol, "still on?")
	require.NoError(t, err)
	require.NoError(t, f.ridesv.Delete(ctx, f.ride.ID, alice))

	mine, err := f.svc.MyQuestions(ctx, carol)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].RideDeleted)
	assert.False(t, mine[0].UserCanAccess)
	assert.Equal(t, "Ride post was deleted", mine[0].UnavailableReason)
	assert.Equal(t, "Deleted Ride", mine[0].RideOrigin)
}

func TestMyRideChatsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	quiet := f.putRide(alice, []string{alice}, []string{"Claremont Colleges"})
	busy := f.putRide(carol, []string{carol, alice}, []string{"Claremont Colleges"})
	f.putRide(carol, []string{carol}, []string{"Claremont Colleges"})

	_, err := f.svc.SendMessage(ctx, f.ride.ID, alice, "first")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, busy.ID, carol, "later")
	require.NoError(t, err)

	chats, err := f.svc.MyRideChats(ctx, alice)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, busy.ID, chats[0].RideID)
	assert.Equal(t, f.ride.ID, chats[1].RideID)
	assert.Equal(t, quiet.ID, chats[2].RideID)
	assert.Nil(t, chats[2].LastMessageTime)
	assert.Equal(t, 1, chats[0].MessageCount)
}

func TestCascadeDeleteClearsChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SendMessage(ctx, f.ride.ID, alice, "hi")
	require.NoError(t, err)
	_, err = f.svc.AskQuestion(ctx, f.ride.ID, carol, "q?")
	require.NoError(t, err)

	require.NoError(t, f.ridesv.Delete(ctx, f.ride.ID, alice))

	st, err := f.store.FeedStats(ctx, f.ride.ID)
	require.NoError(t, err)
	assert.Zero(t, st.Count)
	n, err := f.store.CountQuestions(ctx, f.ride.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package universities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-mobility/internal/apperr"
	rredis "campus-mobility/pkg/redis"
)

type fakeAI struct {
	university string
	nearby     string
	err        error
	calls      int
}

func (f *fakeAI) Complete(_ context.Context, _, user string, _ float32, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(user, "nearby universities") {
		return f.nearby, nil
	}
	return f.university, nil
}

const chapman = `Sure! Here you go:
{"valid": true, "university_name": "Chapman University", "short_name": "Chapman",
 "city": "Orange", "state": "CA", "country": "USA", "university_type": "private"}`

const chapmanNearby = `[
 {"name": "California State University, Fullerton", "short_name": "CSUF", "city": "Fullerton", "distance_miles": 6},
 {"name": "University of California, Irvine", "short_name": "UCI", "city": "Irvine", "distance_miles": 12},
 {"name": "University of California, Los Angeles", "short_name": "UCLA", "city": "Los Angeles", "distance_miles": 35}
]`

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Pomona College":                    "Pomona",
		"  HMC ":                            "Harvey Mudd",
		"claremont colleges":                "5C",
		"University of Southern California": "USC",
		"open to all":                       OpenToAll,
		"Harvey Mudd College, Claremont":    "Harvey Mudd",
		"chapman university":                "Chapman University",
		"UCSD":                              "UCSD",
	}
	for in, want := range cases {
		got, ok := Normalize(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := Normalize("unknown")
	assert.False(t, ok)
	_, ok = Normalize("   ")
	assert.False(t, ok)
}

func TestNormalizeAllDedupes(t *testing.T) {
	got := NormalizeAll([]string{"Pomona", "pomona college", "unknown", "CMC", "Claremont McKenna"})
	assert.Equal(t, []string{"Pomona", "CMC"}, got)
}

func TestLegacyCommunities(t *testing.T) {
	assert.Equal(t, []string{"Pomona", "Harvey Mudd", "Scripps", "Pitzer", "CMC", "5C"}, LegacyCommunities("Scripps College"))
	assert.Equal(t, []string{"CMU", "University of Pittsburgh", "Duquesne University", "Pittsburgh area"},
		LegacyCommunities("Carnegie Mellon University"))
	assert.Equal(t, []string{OpenToAll}, LegacyCommunities("Somewhere Else"))

	// callers may not mutate the shared list
	c := LegacyCommunities("Pomona College")
	c[0] = "x"
	assert.Equal(t, "Pomona", LegacyCommunities("Pomona College")[0])
}

func TestDetectRejectsNonEdu(t *testing.T) {
	d := NewDetector(nil, nil)
	_, err := d.Detect(context.Background(), "amy@gmail.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidDomain)
}

func TestDetectLegacyBeforeAI(t *testing.T) {
	ai := &fakeAI{university: chapman}
	d := NewDetector(ai, nil)

	info, err := d.Detect(context.Background(), "amy@hmc.edu")
	require.NoError(t, err)
	assert.Equal(t, "Harvey Mudd College", info.UniversityName)
	assert.Equal(t, "Harvey", info.ShortName)
	assert.True(t, info.Legacy)
	assert.Equal(t, 0, ai.calls)
}

func TestDetectUnknownWithoutAI(t *testing.T) {
	_, err := NewDetector(nil, nil).Detect(context.Background(), "amy@chapman.edu")
	assert.ErrorIs(t, err, apperr.ErrInvalidDomain)
}

func TestDetectViaAIFiltersDistantNearby(t *testing.T) {
	d := NewDetector(&fakeAI{university: chapman, nearby: chapmanNearby}, nil)

	info, err := d.Detect(context.Background(), "amy@chapman.edu")
	require.NoError(t, err)
	assert.Equal(t, "Chapman University", info.UniversityName)
	require.Len(t, info.NearbyUniversities, 2)
	assert.Equal(t, "CSUF", info.NearbyUniversities[0].ShortName)
}

func TestDetectAIRejects(t *testing.T) {
	d := NewDetector(&fakeAI{university: `{"valid": false, "error": "Domain not recognized as a valid university"}`}, nil)
	_, err := d.Detect(context.Background(), "amy@notreal.edu")
	assert.True(t, IsInvalidDomain(err))
}

func TestDetectAIIncomplete(t *testing.T) {
	d := NewDetector(&fakeAI{university: `{"valid": true, "university_name": "X"}`}, nil)
	_, err := d.Detect(context.Background(), "amy@x.edu")
	assert.True(t, IsInvalidDomain(err))
}

func TestDetectAIDown(t *testing.T) {
	d := NewDetector(&fakeAI{err: errors.New("timeout")}, nil)
	_, err := d.Detect(context.Background(), "amy@chapman.edu")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestDetectUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := rredis.NewClient(context.Background(), mr.Addr(), "", 1)
	require.NoError(t, err)

	ai := &fakeAI{university: chapman, nearby: chapmanNearby}
	d := NewDetector(ai, cache)
	ctx := context.Background()

	_, err = d.Detect(ctx, "amy@chapman.edu")
	require.NoError(t, err)
	assert.Equal(t, 2, ai.calls)

	info, err := d.Detect(ctx, "bob@chapman.edu")
	require.NoError(t, err)
	assert.Equal(t, "Chapman University", info.UniversityName)
	assert.Equal(t, 2, ai.calls)

	ttl, err := cache.TTL(ctx, "university:chapman.edu")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, ttl)

	d.Forget(ctx, "amy@chapman.edu")
	_, err = d.Detect(ctx, "amy@chapman.edu")
	require.NoError(t, err)
	assert.Equal(t, 4, ai.calls)
}

func TestCommunityOptions(t *testing.T) {
	t.Run("ai info", func(t *testing.T) {
		info := &Info{
			Valid: true, UniversityName: "Chapman University", ShortName: "Chapman", City: "Orange", State: "CA",
			NearbyUniversities: []Nearby{{ShortName: "CSUF"}, {ShortName: "unknown"}, {ShortName: "UCI"}},
		}
		opts := CommunityOptions(info, "Chapman University")
		assert.Equal(t, SourceAI, opts.Source)
		assert.Equal(t, []string{"Chapman", "CSUF", "UCI"}, opts.Communities)
		assert.Equal(t, "Orange", opts.UserUniversity.City)
	})

	t.Run("legacy", func(t *testing.T) {
		opts := CommunityOptions(&Info{Valid: true, UniversityName: "Pomona College", Legacy: true}, "Pomona College")
		assert.Equal(t, SourceLegacy, opts.Source)
		assert.Contains(t, opts.Communities, "5C")
		assert.Equal(t, "Pomona", opts.UserUniversity.ShortName)
		assert.NotNil(t, opts.NearbyUniversities)
	})

	t.Run("nothing stored", func(t *testing.T) {
		opts := CommunityOptions(nil, "")
		assert.Equal(t, []string{OpenToAll}, opts.Communities)
	})
}

func TestChatClientAgainstCompatibleServer(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"valid\":false}"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient("gsk_test", srv.URL, "")
	require.NotNil(t, c)
	out, err := c.Complete(context.Background(), "sys", "user", 0.1, 100)
	require.NoError(t, err)
	assert.Equal(t, `{"valid":false}`, out)
	assert.Equal(t, "llama3-8b-8192", gotModel)
}

func TestNewChatClientWithoutKey(t *testing.T) {
	assert.Nil(t, NewChatClient("", "", ""))
}

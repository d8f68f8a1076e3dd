package universities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-mobility/internal/apperr"
	"campus-mobility/pkg/logger"
	"campus-mobility/pkg/validation"
)

const (
	defaultCacheTTL   = 7 * 24 * time.Hour
	maxNearbyDistance = 15.0
)

var (
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
	jsonArray  = regexp.MustCompile(`(?s)\[.*\]`)
)

// Completer runs one chat completion and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Cache stores detected university info between requests.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Detector recognizes universities from email domains.
type Detector struct {
	ai    Completer
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewDetector builds a Detector. ai and cache may be nil; without ai only
// the hardcoded domains are accepted.
func NewDetector(ai Completer, cache Cache) *Detector {
	return &Detector{ai: ai, cache: cache, ttl: defaultCacheTTL, log: logger.Named("universities")}
}

func cacheKey(domain string) string { return "university:" + domain }

// Detect resolves the university behind email. The hardcoded list wins over
// the AI lookup; anything unrecognized is ErrInvalidDomain.
func (d *Detector) Detect(ctx context.Context, email string) (*Info, error) {
	domain := validation.EmailDomain(email)
	if !validation.IsEduDomain(domain) {
		return nil, apperr.ErrInvalidDomain.WithMessage("only .edu email addresses are allowed")
	}

	if college, ok := LegacyCollege(domain); ok {
		return &Info{
			Valid:          true,
			UniversityName: college,
			ShortName:      strings.SplitN(college, " ", 2)[0],
			Legacy:         true,
		}, nil
	}

	if d.ai == nil {
		return nil, apperr.ErrInvalidDomain
	}

	if d.cache != nil {
		var cached Info
		if err := d.cache.GetJSON(ctx, cacheKey(domain), &cached); err == nil && cached.Valid {
			return &cached, nil
		}
	}

	info, err := d.queryUniversity(ctx, domain)
	if err != nil {
		return nil, err
	}
	info.NearbyUniversities = d.Nearby(ctx, info.UniversityName, info.City, info.State)

	if d.cache != nil {
		if err := d.cache.SetJSON(ctx, cacheKey(domain), info, d.ttl); err != nil {
			d.log.Warn("cache university info", zap.String("domain", domain), zap.Error(err))
		}
	}
	return info, nil
}

// Forget drops the cached entry for email's domain.
func (d *Detector) Forget(ctx context.Context, email string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(ctx, cacheKey(validation.EmailDomain(email))); err != nil {
		d.log.Warn("drop cached university info", zap.Error(err))
	}
}

const universitySystemPrompt = "You are an expert on universities and educational institutions worldwide. " +
	"Provide accurate, factual information about universities based on their email domains."

const universityPrompt = `Analyze the email domain "%s" and provide detailed information about the university.

Respond with a JSON object containing:
{
  "valid": boolean (true if this is a valid university domain),
  "university_name": "Full official name of the university",
  "short_name": "Common abbreviation or short name",
  "city": "City where university is located",
  "state": "State/Province where university is located",
  "country": "Country where university is located",
  "university_type": "public" or "private",
  "student_population": approximate number of students (integer),
  "founded_year": year university was founded (integer),
  "notable_programs": ["list", "of", "notable", "programs"],
  "coordinates": {"latitude": decimal, "longitude": decimal}
}

If the domain is not a valid university domain, return:
{"valid": false, "error": "Domain not recognized as a valid university"}

Only respond with valid JSON, no additional text.`

func (d *Detector) queryUniversity(ctx context.Context, domain string) (*Info, error) {
	content, err := d.ai.Complete(ctx, universitySystemPrompt, fmt.Sprintf(universityPrompt, domain), 0.1, 1000)
	if err != nil {
		d.log.Error("university lookup failed", zap.String("domain", domain), zap.Error(err))
		return nil, apperr.Upstream("university detection service temporarily unavailable", err)
	}
	if m := jsonObject.FindString(content); m != "" {
		content = m
	}

	var info Info
	if err := json.Unmarshal([]byte(content), &info); err != nil {
		d.log.Warn("university lookup returned bad json", zap.String("domain", domain), zap.Error(err))
		return nil, apperr.Upstream("invalid response format from AI service", err)
	}
	if !info.Valid {
		msg := info.Error
		if msg == "" {
			msg = "domain not recognized as a valid university"
		}
		return nil, apperr.ErrInvalidDomain.WithMessage(msg)
	}
	if info.UniversityName == "" || info.ShortName == "" || info.City == "" || info.State == "" || info.Country == "" {
		return nil, apperr.ErrInvalidDomain.WithMessage("incomplete university information received")
	}
	info.Error = ""
	return &info, nil
}

const nearbySystemPrompt = "You are an expert on university geography and student travel patterns. " +
	"Provide practical suggestions for nearby universities where students might share rides."

const nearbyPrompt = `Given that a user is from %s in %s, %s, suggest 3-6 nearby universities that students might want to share rides with.

Constraints:
- Only include universities within 10 miles of %s, %s
- Prioritize universities within 5 miles first
- Include community colleges and smaller institutions if they are nearby
- If fewer than 3 universities are within 10 miles, you may include up to 2 within 15 miles

Respond with a JSON array sorted by distance (closest first):
[{"name": "Full university name", "short_name": "Common abbreviation", "city": "City name",
  "distance_miles": integer (15 or less), "relationship": "Why students might share rides"}]

Only respond with a valid JSON array, no additional text.`

// Nearby asks the AI for campuses close to the named one, keeping those
// within 15 miles. Failures yield an empty list.
func (d *Detector) Nearby(ctx context.Context, name, city, state string) []Nearby {
	if d.ai == nil || name == "" {
		return []Nearby{}
	}
	if city == "" {
		city = "Unknown"
	}
	if state == "" {
		state = "Unknown"
	}
	prompt := fmt.Sprintf(nearbyPrompt, name, city, state, city, state)
	content, err := d.ai.Complete(ctx, nearbySystemPrompt, prompt, 0.3, 800)
	if err != nil {
		d.log.Warn("nearby universities lookup failed", zap.String("university", name), zap.Error(err))
		return []Nearby{}
	}
	if m := jsonArray.FindString(content); m != "" {
		content = m
	}

	var all []Nearby
	if err := json.Unmarshal([]byte(content), &all); err != nil {
		d.log.Warn("nearby universities returned bad json", zap.Error(err))
		return []Nearby{}
	}
	out := make([]Nearby, 0, len(all))
	for _, n := range all {
		if n.DistanceMiles > maxNearbyDistance {
			d.log.Debug("dropping distant university", zap.String("name", n.Name), zap.Float64("miles", n.DistanceMiles))
			continue
		}
		out = append(out, n)
	}
	return out
}

// CommunityOptions derives the ride communities for a user. Stored AI info
// yields the user's own short name plus nearby campuses; otherwise the
// legacy list for college.
func CommunityOptions(info *Info, college string) Options {
	if info != nil && !info.Legacy && info.UniversityName != "" {
		names := make([]string, 0, len(info.NearbyUniversities)+1)
		names = append(names, info.ShortName)
		for _, n := range info.NearbyUniversities {
			names = append(names, n.ShortName)
		}
		nearby := info.NearbyUniversities
		if nearby == nil {
			nearby = []Nearby{}
		}
		return Options{
			Communities: NormalizeAll(names),
			UserUniversity: UserUniversity{
				Name:      info.UniversityName,
				ShortName: info.ShortName,
				City:      info.City,
				State:     info.State,
			},
			NearbyUniversities: nearby,
			Source:             SourceAI,
		}
	}

	short := ""
	if college != "" {
		short = strings.SplitN(college, " ", 2)[0]
	}
	return Options{
		Communities:        LegacyCommunities(college),
		UserUniversity:     UserUniversity{Name: college, ShortName: short, City: "Unknown", State: "Unknown"},
		NearbyUniversities: []Nearby{},
		Source:             SourceLegacy,
	}
}

// IsInvalidDomain reports whether err rejects the email's domain.
func IsInvalidDomain(err error) bool {
	return errors.Is(err, apperr.ErrInvalidDomain)
}

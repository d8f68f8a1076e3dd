package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/universities"
	"campus-mobility/pkg/jwt"
	"campus-mobility/pkg/logger"
	"campus-mobility/pkg/mailer"
	"campus-mobility/pkg/validation"
)

const (
	maxBioLength     = 500
	maxNameLength    = 100
	maxFieldLength   = 100
	maxPictureBytes  = 2 << 20
	forgotPasswordOK = "If an account exists for this email, a password reset code has been sent."
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// Detector resolves universities from email addresses.
type Detector interface {
	Detect(ctx context.Context, email string) (*universities.Info, error)
	Forget(ctx context.Context, email string)
	Nearby(ctx context.Context, name, city, state string) []universities.Nearby
}

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// RideCleaner detaches a user from rides before the account disappears.
type RideCleaner interface {
	RemoveUser(ctx context.Context, email string, deleteOwned bool) error
}

// Options tune account behaviour.
type Options struct {
	CodeExpiry             time.Duration
	DeleteOwnedWithAccount bool
}

// Service contains identity, session and profile logic.
type Service struct {
	store    Store
	tokens   *jwt.Service
	detector Detector
	mail     Mailer
	rides    RideCleaner
	opts     Options
	strip    *bluemonday.Policy
	log      *zap.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewService wires the user service.
func NewService(store Store, tokens *jwt.Service, detector Detector, mail Mailer, opts Options) *Service {
	if opts.CodeExpiry <= 0 {
		opts.CodeExpiry = time.Hour
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		detector: detector,
		mail:     mail,
		opts:     opts,
		strip:    bluemonday.StrictPolicy(),
		log:      logger.Named("users"),
		now:      time.Now,
		newCode:  sixDigitCode,
	}
}

// SetRideCleaner breaks the construction cycle between users and rides.
func (s *Service) SetRideCleaner(rc RideCleaner) { s.rides = rc }

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return string(h), nil
}

func matches(hashed, secret string) bool {
	return hashed != "" && bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}

// issueCode returns a fresh code, its hash, and its expiry.
func (s *Service) issueCode() (code, hashed string, expires time.Time, err error) {
	code, err = s.newCode()
	if err != nil {
		return "", "", time.Time{}, apperr.Internal(err)
	}
	hashed, err = hash(code)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return code, hashed, s.now().Add(s.opts.CodeExpiry), nil
}

// deliver sends msg and never fails the caller; the console provider is the last resort.
func (s *Service) deliver(ctx context.Context, msg mailer.Message) {
	if s.mail == nil {
		return
	}
	provider, err := s.mail.Send(ctx, msg)
	if err != nil {
		logger.Error(ctx, "email delivery failed", zap.String("to", msg.To), zap.Error(err))
		return
	}
	logger.Debug(ctx, "email delivered", zap.String("provider", provider), zap.String("to", msg.To))
}

func normalizeEmail(raw string) (string, error) {
	email := validation.NormalizeEmail(raw)
	if !validation.ValidateEmail(email) {
		return "", apperr.Validation("invalid email address")
	}
	return email, nil
}

func checkPassword(pw string) error {
	if !validation.ValidatePassword(pw) {
		return apperr.Validation("password must be between 6 and 100 characters")
	}
	return nil
}

// Signup creates (or re-issues the code for) an unverified account.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	info, err := s.detector.Detect(ctx, email)
	if err != nil {
		return nil, err
	}
	if claimed := strings.TrimSpace(req.College); claimed != "" && !strings.EqualFold(claimed, info.UniversityName) {
		logger.Info(ctx, "signup college differs from email domain, using detected",
			zap.String("email", email), zap.String("claimed", claimed), zap.String("detected", info.UniversityName))
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil && existing.Verified {
		return nil, apperr.ErrAlreadyExists
	}

	pwHash, err := hash(req.Password)
	if err != nil {
		return nil, err
	}
	code, codeHash, expires, err := s.issueCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing != nil {
		existing.PasswordHash = pwHash
		existing.College = info.UniversityName
		existing.UniversityInfo = info
		existing.VerificationCodeHash = codeHash
		existing.VerificationExpiresAt = &expires
		existing.UpdatedAt = now
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, err
		}
	} else {
		u := &User{
			ID:                    uuid.New().String(),
			Email:                 email,
			PasswordHash:          pwHash,
			College:               info.UniversityName,
			UniversityInfo:        info,
			VerificationCodeHash:  codeHash,
			VerificationExpiresAt: &expires,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.store.Create(ctx, u); err != nil {
			return nil, err
		}
	}

	s.deliver(ctx, mailer.VerificationEmail(email, code))
	logger.Info(ctx, "signup pending verification", zap.String("email", email), zap.String("college", info.UniversityName))

	return &SignupResponse{
		Message: "Account created. Check your email for a verification code.",
		Email:   email,
		College: info.UniversityName,
	}, nil
}

// VerifyEmail consumes the verification code and opens a session.
func (s *Service) VerifyEmail(ctx context.Context, req VerifyRequest) (*AuthResponse, error) {
	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, apperr.Validation("email already verified")
	}
	if u.VerificationExpiresAt == nil || s.now().After(*u.VerificationExpiresAt) {
		return nil, apperr.ErrCodeExpired
	}
	if !matches(u.VerificationCodeHash, strings.TrimSpace(req.Code)) {
		return nil, apperr.ErrCodeMismatch
	}

	u.Verified = true
	u.VerificationCodeHash = ""
	u.VerificationExpiresAt = nil
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials and returns a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if errors.Is(err, apperr.ErrUserNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !matches(u.PasswordHash, req.Password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if !u.Verified {
		return nil, apperr.ErrEmailNotVerified
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*AuthResponse, error) {
	token, err := s.tokens.Generate(u.ID, u.Email, u.College)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{Token: token, User: u}, nil
}

// ResendVerification issues a fresh verification code.
func (s *Service) ResendVerification(ctx context.Context, req EmailRequest) (*MessageResponse, error) {
	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, apperr.Validation("email already verified")
	}
	code, codeHash, expires, err := s.issueCode()
	if err != nil {
		return nil, err
	}
	u.VerificationCodeHash = codeHash
	u.VerificationExpiresAt = &expires
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	s.deliver(ctx, mailer.VerificationEmail(u.Email, code))
	return &MessageResponse{Message: "Verification code sent."}, nil
}

// ForgotPassword mails a reset code when the account exists. The answer is
// the same either way.
func (s *Service) ForgotPassword(ctx context.Context, req EmailRequest) (*MessageResponse, error) {
	resp := &MessageResponse{Message: forgotPasswordOK}

	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, apperr.ErrUserNotFound) {
			logger.Error(ctx, "forgot password lookup", zap.Error(err))
		}
		return resp, nil
	}

	code, codeHash, expires, err := s.issueCode()
	if err != nil {
		logger.Error(ctx, "forgot password code", zap.Error(err))
		return resp, nil
	}
	u.ResetCodeHash = codeHash
	u.ResetExpiresAt = &expires
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		logger.Error(ctx, "forgot password store", zap.Error(err))
		return resp, nil
	}
	s.deliver(ctx, mailer.PasswordResetEmail(u.Email, code))
	return resp, nil
}

// ResetPassword replaces the password when the reset code checks out.
func (s *Service) ResetPassword(ctx context.Context, req ResetRequest) (*MessageResponse, error) {
	if err := checkPassword(req.NewPassword); err != nil {
		return nil, err
	}
	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if errors.Is(err, apperr.ErrUserNotFound) {
		return nil, apperr.ErrCodeMismatch
	}
	if err != nil {
		return nil, err
	}
	if u.ResetExpiresAt == nil || s.now().After(*u.ResetExpiresAt) {
		return nil, apperr.ErrCodeExpired
	}
	if !matches(u.ResetCodeHash, strings.TrimSpace(req.Code)) {
		return nil, apperr.ErrCodeMismatch
	}

	pwHash, err := hash(req.NewPassword)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = pwHash
	u.ResetCodeHash = ""
	u.ResetExpiresAt = nil
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return &MessageResponse{Message: "Password has been reset."}, nil
}

// GetProfile returns the caller's account.
func (s *Service) GetProfile(ctx context.Context, email string) (*User, error) {
	return s.store.GetByEmail(ctx, email)
}

func (s *Service) cleanField(name, v string, max int) (string, error) {
	v = strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(v)))
	if utf8.RuneCountInString(v) > max {
		return "", apperr.Validation(fmt.Sprintf("%s must be at most %d characters", name, max))
	}
	return v, nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Service) UpdateProfile(ctx context.Context, email string, upd ProfileUpdate) (*User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name string
		in   *string
		out  *string
		max  int
	}{
		{"first_name", upd.FirstName, &u.FirstName, maxNameLength},
		{"last_name", upd.LastName, &u.LastName, maxNameLength},
		{"year", upd.Year, &u.Year, maxFieldLength},
		{"major", upd.Major, &u.Major, maxFieldLength},
		{"bio", upd.Bio, &u.Bio, maxBioLength},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		v, err := s.cleanField(f.name, *f.in, f.max)
		if err != nil {
			return nil, err
		}
		*f.out = v
	}

	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePicture stores a base64 image data URL.
func (s *Service) UpdatePicture(ctx context.Context, email, dataURL string) (*User, error) {
	if err := checkPicture(dataURL); err != nil {
		return nil, err
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.ProfilePicture = dataURL
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkPicture accepts data:image/<type>;base64,<payload> up to maxPictureBytes decoded.
func checkPicture(dataURL string) error {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return apperr.Validation("profile picture must be a base64 data URL")
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !strings.HasPrefix(mediaType, "image/") {
		return apperr.Validation("profile picture must be an image")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxPictureBytes+2 {
		return apperr.Validation("profile picture must be at most 2 MB")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return apperr.Validation("profile picture is not valid base64")
	}
	if len(raw) > maxPictureBytes {
		return apperr.Validation("profile picture must be at most 2 MB")
	}
	return nil
}

// DeleteAccount removes the user after detaching them from rides.
func (s *Service) DeleteAccount(ctx context.Context, email, password string) (*MessageResponse, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !matches(u.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if s.rides != nil {
		if err := s.rides.RemoveUser(ctx, email, s.opts.DeleteOwnedWithAccount); err != nil {
			return nil, err
		}
	}
	if err := s.store.Delete(ctx, email); err != nil {
		return nil, err
	}
	logger.Info(ctx, "account deleted", zap.String("email", email))
	return &MessageResponse{Message: "Account deleted."}, nil
}

// CommunityOptions lists the communities the user can post rides to.
func (s *Service) CommunityOptions(ctx context.Context, email string) (*universities.Options, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	opts := universities.CommunityOptions(u.UniversityInfo, u.College)
	return &opts, nil
}

// CommunitiesFor is the set of communities whose rides the user may see.
func (s *Service) CommunitiesFor(ctx context.Context, email string) ([]string, error) {
	opts, err := s.CommunityOptions(ctx, email)
	if err != nil {
		return nil, err
	}
	out := opts.Communities
	for _, c := range out {
		if c == universities.OpenToAll {
			return out, nil
		}
	}
	return append(out, universities.OpenToAll), nil
}

// NearbyResponse is returned by GET /nearby-universities/{name}.
type NearbyResponse struct {
	University         string                `json:"university"`
	NearbyUniversities []universities.Nearby `json:"nearby_universities"`
	Source             string                `json:"source"`
}

// NearbyUniversities looks up campuses near the named one.
func (s *Service) NearbyUniversities(ctx context.Context, name string) (*NearbyResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("university name is required")
	}
	return &NearbyResponse{
		University:         name,
		NearbyUniversities: s.detector.Nearby(ctx, name, "", ""),
		Source:             universities.SourceAI,
	}, nil
}

// RefreshResponse is returned by POST /refresh-university-info.
type RefreshResponse struct {
	Message        string             `json:"message"`
	UniversityInfo *universities.Info `json:"university_info"`
}

// RefreshUniversityInfo re-runs detection for the caller, bypassing the cache.
func (s *Service) RefreshUniversityInfo(ctx context.Context, email string) (*RefreshResponse, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	s.detector.Forget(ctx, email)
	info, err := s.detector.Detect(ctx, email)
	if err != nil {
		return nil, err
	}
	u.UniversityInfo = info
	u.College = info.UniversityName
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return &RefreshResponse{Message: "University information refreshed successfully", UniversityInfo: info}, nil
}

// Profiles resolves public profiles for a set of emails. Unknown emails are
// absent from the map.
func (s *Service) Profiles(ctx context.Context, emails []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	list, err := s.store.ListByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.Email] = u.PublicProfile()
	}
	return out, nil
}

package users

import (
	"time"

	"campus-mobility/internal/universities"
)

// User is a student account. Email is the stable identifier used across rides and chat.
type User struct {
	ID             string             `json:"id"`
	Email          string             `json:"email"`
	College        string             `json:"college"`
	UniversityInfo *universities.Info `json:"university_info,omitempty"`
	Verified       bool               `json:"verified"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	Year           string             `json:"year"`
	Major          string             `json:"major"`
	Bio            string             `json:"bio"`
	ProfilePicture string             `json:"profile_picture,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	PasswordHash          string     `json:"-"`
	VerificationCodeHash  string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetCodeHash         string     `json:"-"`
	ResetExpiresAt        *time.Time `json:"-"`
}

// DisplayName is what other riders see.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Profile is the public slice of a user shown next to chat entries and rosters.
type Profile struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// PublicProfile projects u for other users.
func (u *User) PublicProfile() Profile {
	return Profile{
		Email:          u.Email,
		Name:           u.DisplayName(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// SignupRequest is the body for POST /signup. College is what the client
// picked and is advisory only; the account always takes the university
// detected from the email domain.
type SignupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	College  string `json:"college"`
}

// SignupResponse acknowledges a pending account.
type SignupResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	College string `json:"college"`
}

// VerifyRequest is the body for POST /verify-email.
type VerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// EmailRequest is the body for /resend-verification and /forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetRequest is the body for POST /reset-password.
type ResetRequest struct {
	Email       string `json:"email" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ProfileUpdate carries the editable profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Year      *string `json:"year"`
	Major     *string `json:"major"`
	Bio       *string `json:"bio"`
}

// PictureRequest is the body for POST /profile/picture.
type PictureRequest struct {
	ProfilePicture string `json:"profile_picture" validate:"required"`
}

// DeleteAccountRequest is the body for DELETE /delete-account.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on verify / login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

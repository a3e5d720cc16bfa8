package auth

import (
	"time"

	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/domain/user"
)

// LoginInput represents the request body for user authentication.
type LoginInput struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

// RegisterInput represents the request body for creating a user and account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	UserID    int64  `json:"user_id"`
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// MeResponse describes the caller.
type MeResponse struct {
	UserID    int64        `json:"user_id"`
	Username  string       `json:"username"`
	Email     string       `json:"email,omitempty"`
	AccountID int64        `json:"account_id"`
	Balance   money.Amount `json:"balance" swaggertype:"string" example:"100.00"`
	Currency  string       `json:"currency"`
	LastLogin *time.Time   `json:"last_login,omitempty"`
}

// ProfileInput replaces the caller's contact details. Omitted fields are
// cleared.
type ProfileInput struct {
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	FullName string `json:"full_name" validate:"max=128"`
	Phone    string `json:"phone" validate:"max=32"`
	Address  string `json:"address" validate:"max=255"`
}

// ProfileResponse is the caller's editable profile.
type ProfileResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ChangePasswordInput carries the current and the new password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required,max=72"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// ActivityEntry is one line of the caller's security activity.
type ActivityEntry struct {
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActivityQuery bounds the activity listing.
type ActivityQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func toProfileResponse(u *user.User) ProfileResponse {
	return ProfileResponse{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Address:  u.Address,
	}
}

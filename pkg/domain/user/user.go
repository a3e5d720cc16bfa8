package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/amirasaad/securebank/pkg/utils"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the
	// repository.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserUnauthorized is returned when credentials do not match.
	ErrUserUnauthorized = errors.New("user unauthorized")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUser is returned when registration or profile input is
	// malformed.
	ErrInvalidUser = errors.New("invalid user")
	// ErrWrongPassword is returned when a password change does not present
	// the current password.
	ErrWrongPassword = errors.New("current password is incorrect")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{5,32}$`)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72

	maxFullNameLength = 128
	maxAddressLength  = 255
)

// User represents the credential record behind an account.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	FullName  string     `json:"full_name,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	Password  string     `json:"-"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// NewUser creates a new User with a hashed password and current timestamps.
func NewUser(username, email, password string, cost int) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-32 letters, digits or _.-", ErrInvalidUser)
	}
	if email != "" && !utils.IsEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidUser)
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	return &User{
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidatePassword enforces the password length bounds.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d bytes", ErrInvalidUser, minPasswordLength, maxPasswordLength)
	}
	return nil
}

// Profile holds the contact details a user may edit. The username is fixed.
type Profile struct {
	Email    string
	FullName string
	Phone    string
	Address  string
}

// Normalize trims p and checks every field. Empty fields are allowed and
// clear the stored value.
func (p Profile) Normalize() (Profile, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)

	if p.Email != "" && !utils.IsEmail(p.Email) {
		return p, fmt.Errorf("%w: malformed email", ErrInvalidUser)
	}
	if len(p.FullName) > maxFullNameLength {
		return p, fmt.Errorf("%w: full name exceeds %d bytes", ErrInvalidUser, maxFullNameLength)
	}
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		return p, fmt.Errorf("%w: malformed phone number", ErrInvalidUser)
	}
	if len(p.Address) > maxAddressLength {
		return p, fmt.Errorf("%w: address exceeds %d bytes", ErrInvalidUser, maxAddressLength)
	}
	return p, nil
}

// Profile returns the editable part of u.
func (u *User) Profile() Profile {
	return Profile{Email: u.Email, FullName: u.FullName, Phone: u.Phone, Address: u.Address}
}

// ApplyProfile copies a normalized profile onto u.
func (u *User) ApplyProfile(p Profile) {
	u.Email = p.Email
	u.FullName = p.FullName
	u.Phone = p.Phone
	u.Address = p.Address
}

package user

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/security"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrPlainPassword = errors.New("password must be stored as a hash")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the public view of a user returned by the auth endpoints.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New builds a user ready to be stored. passwordHash must already be hashed.
func New(name, email, passwordHash string) (User, error) {
	now := time.Now().UTC()

	u := User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.CheckStorable(); err != nil {
		return User{}, err
	}
	return u, nil
}

// CheckStorable guards the store: a user is only persisted with a name, an
// address and a hashed password.
func (u User) CheckStorable() error {
	if u.Name == "" || u.Email == "" {
		return errors.New("user name and email are required")
	}
	if !security.IsHash(u.PasswordHash) {
		return ErrPlainPassword
	}
	return nil
}

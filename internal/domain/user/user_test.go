package user

import (
	"strings"
	"testing"

	"github.com/geocoder89/storefront/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestNewRequiresHashedPassword(t *testing.T) {
	_, err := New("Ada", "ada@example.com", "plaintext")
	assert.ErrorIs(t, err, ErrPlainPassword)

	hash, err := security.NewHasher().Hash("plaintext")
	require.NoError(t, err)

	u, err := New("  Ada ", " ADA@example.com", hash)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, hash, u.PasswordHash)
	assert.Equal(t, Identity{ID: u.ID, Name: "Ada", Email: "ada@example.com"}, u.Identity())
}

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name       string
		req        RegisterRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"},
		},
		{
			name:       "missing_everything",
			req:        RegisterRequest{},
			wantFields: []string{"name", "email", "password"},
		},
		{
			name:       "short_password",
			req:        RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "abc"},
			wantFields: []string{"password"},
		},
		{
			name:       "long_password",
			req:        RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: strings.Repeat("x", 73)},
			wantFields: []string{"password"},
		},
		{
			name:       "bad_email",
			req:        RegisterRequest{Name: "Ada", Email: "ada-at-example", Password: "secret"},
			wantFields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := tt.req.Validate()

			got := make([]string, 0, len(fe))
			for _, e := range fe {
				got = append(got, e.Field)
			}

			if len(tt.wantFields) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.wantFields, got)
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	assert.Len(t, LoginRequest{}.Validate(), 2)
	assert.Empty(t, LoginRequest{Email: "a@b.co", Password: "x"}.Validate())
}

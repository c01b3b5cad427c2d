package user

import "github.com/geocoder89/storefront/internal/validation"

const MinPasswordLength = 6

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() validation.FieldErrors {
	var fe validation.FieldErrors

	fe.Required("name", r.Name)
	fe.MaxLen("name", r.Name, 100)
	fe.Email("email", NormalizeEmail(r.Email))
	if fe.Required("password", r.Password) {
		fe.MinLen("password", r.Password, MinPasswordLength)
		// bcrypt ignores input past 72 bytes
		if len(r.Password) > 72 {
			fe.Add("password", "max", "72")
		}
	}

	return fe
}

func (r LoginRequest) Validate() validation.FieldErrors {
	var fe validation.FieldErrors

	fe.Required("email", r.Email)
	fe.Required("password", r.Password)

	return fe
}

package migrate

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
)

var validate = validator.New()

// minimumPasswordLength matches the policy enforced at registration in the
// prior system, so migrated credentials round-trip.
const minimumPasswordLength = 8

// Request carries the raw form fields of a user migration request.
type Request struct {
	UserID          string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// Validate checks every field and returns the parsed user id. All failures
// are AuthorisationError values carrying a message safe to surface.
func (r Request) Validate() (uuid.UUID, error) {
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil, auth.NewAuthorisationError("invalid user id: %s", err)
	}
	if err := ValidateEmail(r.Email); err != nil {
		return uuid.Nil, err
	}
	if err := ValidateUsername(r.Username); err != nil {
		return uuid.Nil, err
	}
	if err := ValidatePassword(r.Password, r.ConfirmPassword); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// ValidateEmail checks the email address syntactically.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return auth.NewAuthorisationError("email error: %q is not a valid email address", email)
	}
	return nil
}

// ValidateUsername rejects empty or whitespace-only user names.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return auth.NewAuthorisationError("invalid username provided")
	}
	return nil
}

// ValidatePassword enforces the minimum length and confirmation equality.
func ValidatePassword(password, confirmPassword string) error {
	if len(password) < minimumPasswordLength {
		return auth.NewAuthorisationError(
			"the password must be at least %d characters long", minimumPasswordLength)
	}
	if password != confirmPassword {
		return auth.NewAuthorisationError("the provided passwords do not match")
	}
	return nil
}

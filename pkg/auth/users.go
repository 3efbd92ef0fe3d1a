package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore reads and writes user records in the authorisation store.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over the given database handle.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// UserByID fetches a user by their id. Returns NotFoundError when no such
// user exists.
func (s *UserStore) UserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	var user User
	var rawID string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, email, name FROM users WHERE user_id = ?",
		userID.String(),
	).Scan(&rawID, &user.Email, &user.Name)
	if err == sql.ErrNoRows {
		return User{}, NewNotFoundError("no user with id %q", userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	user.UserID, err = uuid.Parse(rawID)
	if err != nil {
		return User{}, fmt.Errorf("corrupt user id %q: %w", rawID, err)
	}
	return user, nil
}

// CreateUser inserts a new user row.
func (s *UserStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users(user_id, email, name) VALUES (?, ?, ?)",
		user.UserID.String(), user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// SetPassword stores the bcrypt hash of the user's password, replacing any
// existing credential row.
func (s *UserStore) SetPassword(ctx context.Context, user User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO user_credentials(user_id, password) VALUES (?, ?) "+
			"ON CONFLICT(user_id) DO UPDATE SET password = excluded.password",
		user.UserID.String(), hashed)
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// CheckPassword verifies a candidate password against the stored hash.
func (s *UserStore) CheckPassword(ctx context.Context, user User, password string) error {
	var hashed []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT password FROM user_credentials WHERE user_id = ?",
		user.UserID.String()).Scan(&hashed)
	if err == sql.ErrNoRows {
		return NewNotFoundError("no credentials for user %q", user.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hashed, []byte(password)); err != nil {
		return NewForbiddenAccess("wrong password")
	}
	return nil
}

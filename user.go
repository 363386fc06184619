package valutatrade

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// User is a registered account. The password is only ever kept hashed.
type User struct {
	ID             int       `json:"user_id" validate:"gt=0"`
	Username       string    `json:"username" validate:"required"`
	HashedPassword string    `json:"hashed_password" validate:"required,hexadecimal"`
	Salt           string    `json:"salt" validate:"required,hexadecimal"`
	RegisteredAt   time.Time `json:"registration_date"`
}

// NewUser returns a user with a freshly salted password hash.
func NewUser(id int, username, password string, at time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	u := &User{ID: id, Username: username, RegisteredAt: at}
	if err := u.setPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyPassword returns true if password matches the stored hash.
func (u *User) VerifyPassword(password string) bool {
	salt, err := hex.DecodeString(u.Salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(u.HashedPassword)
	if err != nil {
		return false
	}
	got := hashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// ChangePassword replaces the password. A new salt is drawn every time.
func (u *User) ChangePassword(password string) error {
	return u.setPassword(password)
}

func (u *User) setPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPassword)
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("could not generate salt: %w", err)
	}
	u.Salt = hex.EncodeToString(salt)
	u.HashedPassword = hex.EncodeToString(hashPassword(password, salt))
	return nil
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

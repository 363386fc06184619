package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/valutatrade"
	"go.uber.org/zap"
)

// DefaultPasswordMinLength is the default minimum password length.
const DefaultPasswordMinLength = 4

// Auth registers and authenticates users.
type Auth struct {
	users      *Users
	portfolios *Portfolios
	sessions   *Sessions
	minLength  int
	log        *zap.Logger
	now        func() time.Time
}

// NewAuth returns an authentication service over the given stores.
func NewAuth(users *Users, portfolios *Portfolios, sessions *Sessions, minLength int, log *zap.Logger) *Auth {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{
		users:      users,
		portfolios: portfolios,
		sessions:   sessions,
		minLength:  minLength,
		log:        log,
		now:        time.Now,
	}
}

// SetClock replaces the clock used to timestamp registrations and logins.
func (a *Auth) SetClock(now func() time.Time) { a.now = now }

func (a *Auth) checkPassword(password string) error {
	if len([]rune(password)) < a.minLength {
		return fmt.Errorf("%w: must be at least %d characters", valutatrade.ErrInvalidPassword, a.minLength)
	}
	return nil
}

// Register creates a user and its empty portfolio.
func (a *Auth) Register(username, password string) (*valutatrade.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if err := a.checkPassword(password); err != nil {
		return nil, err
	}
	u, err := a.users.Create(username, password, a.now())
	if err != nil {
		return nil, err
	}
	if err := a.portfolios.Save(valutatrade.NewPortfolio(u.ID)); err != nil {
		return nil, err
	}
	a.log.Info("user registered", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login checks the credentials and stores the new session.
func (a *Auth) Login(username, password string) (valutatrade.Session, error) {
	u, err := a.users.ByName(username)
	if err != nil {
		return valutatrade.Session{}, err
	}
	if !u.VerifyPassword(password) {
		a.log.Warn("login failed", zap.String("username", u.Username))
		return valutatrade.Session{}, fmt.Errorf("%w for %q", valutatrade.ErrInvalidPassword, u.Username)
	}
	sess := valutatrade.Session{UserID: u.ID, Username: u.Username, LoggedInAt: a.now()}
	if err := a.sessions.Save(sess); err != nil {
		return valutatrade.Session{}, err
	}
	a.log.Info("user logged in", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return sess, nil
}

// Logout forgets the current session.
func (a *Auth) Logout() error {
	return a.sessions.Clear()
}

// Current returns the current session, or ErrNotLoggedIn.
//
// A session whose user no longer exists is not valid.
func (a *Auth) Current() (valutatrade.Session, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		return valutatrade.Session{}, err
	}
	if err := sess.Require(); err != nil {
		return valutatrade.Session{}, err
	}
	if _, err := a.users.ByID(sess.UserID); err != nil {
		if errors.Is(err, valutatrade.ErrUserNotFound) {
			return valutatrade.Session{}, valutatrade.ErrNotLoggedIn
		}
		return valutatrade.Session{}, err
	}
	return sess, nil
}

// ChangePassword rotates the password of the session user.
func (a *Auth) ChangePassword(sess valutatrade.Session, oldPassword, newPassword string) error {
	if err := sess.Require(); err != nil {
		return err
	}
	u, err := a.users.ByID(sess.UserID)
	if err != nil {
		return err
	}
	if !u.VerifyPassword(oldPassword) {
		return fmt.Errorf("%w for %q", valutatrade.ErrInvalidPassword, u.Username)
	}
	if err := a.checkPassword(newPassword); err != nil {
		return err
	}
	if err := u.ChangePassword(newPassword); err != nil {
		return err
	}
	if err := a.users.Update(u); err != nil {
		return err
	}
	a.log.Info("password changed", zap.Int("user_id", u.ID))
	return nil
}

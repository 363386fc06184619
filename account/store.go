// Package account stores users, their portfolios and the current session.
//
// Each store is a JSON file read on every access and replaced atomically on
// every write.
package account

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Users stores the registered users as a JSON array.
type Users struct {
	path string
	mu   sync.Mutex
}

// NewUsers returns the user store at path.
func NewUsers(path string) *Users { return &Users{path: path} }

// All returns the registered users in id order.
func (s *Users) All() ([]*valutatrade.User, error) {
	var users []*valutatrade.User
	if _, err := valutatrade.LoadJSON(s.path, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u == nil {
			return nil, fmt.Errorf("%w: %q: null user", valutatrade.ErrPersistence, s.path)
		}
		if err := validate.Struct(u); err != nil {
			return nil, fmt.Errorf("%w: %q: invalid user %q: %w", valutatrade.ErrPersistence, s.path, u.Username, err)
		}
	}
	slices.SortFunc(users, func(a, b *valutatrade.User) int { return a.ID - b.ID })
	return users, nil
}

// ByName returns the user called username, ignoring case.
func (s *Users) ByName(username string) (*valutatrade.User, error) {
	users, err := s.All()
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", valutatrade.ErrUserNotFound, username)
}

// ByID returns the user with id.
func (s *Users) ByID(id int) (*valutatrade.User, error) {
	users, err := s.All()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", valutatrade.ErrUserNotFound, id)
}

// Create registers a new user with the next free id.
func (s *Users) Create(username, password string, at time.Time) (*valutatrade.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.All()
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	id := 1
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return nil, fmt.Errorf("%w: %q", valutatrade.ErrUsernameTaken, username)
		}
		id = max(id, u.ID+1)
	}
	u, err := valutatrade.NewUser(id, username, password, at)
	if err != nil {
		return nil, err
	}
	if err := valutatrade.SaveJSON(s.path, append(users, u)); err != nil {
		return nil, err
	}
	return u, nil
}

// Update replaces the stored user with the same id.
func (s *Users) Update(user *valutatrade.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.All()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(u *valutatrade.User) bool { return u.ID == user.ID })
	if i < 0 {
		return fmt.Errorf("%w: id %d", valutatrade.ErrUserNotFound, user.ID)
	}
	users[i] = user
	return valutatrade.SaveJSON(s.path, users)
}

// Portfolios stores every portfolio in a JSON object keyed by user id.
type Portfolios struct {
	path string
	mu   sync.Mutex
}

// NewPortfolios returns the portfolio store at path.
func NewPortfolios(path string) *Portfolios { return &Portfolios{path: path} }

func (s *Portfolios) all() (map[string]*valutatrade.Portfolio, error) {
	all := make(map[string]*valutatrade.Portfolio)
	if _, err := valutatrade.LoadJSON(s.path, &all); err != nil {
		return nil, err
	}
	for key, p := range all {
		if p == nil || key != strconv.Itoa(p.UserID()) {
			return nil, fmt.Errorf("%w: %q: portfolio key %q does not match its user", valutatrade.ErrPersistence, s.path, key)
		}
	}
	return all, nil
}

// Load returns the portfolio of userID. A user without a stored portfolio
// has an empty one.
func (s *Portfolios) Load(userID int) (*valutatrade.Portfolio, error) {
	all, err := s.all()
	if err != nil {
		return nil, err
	}
	if p, ok := all[strconv.Itoa(userID)]; ok {
		return p, nil
	}
	return valutatrade.NewPortfolio(userID), nil
}

// Save stores p, replacing the previous portfolio of the same user.
// The whole file is replaced in a single write.
func (s *Portfolios) Save(p *valutatrade.Portfolio) error {
	if p.UserID() <= 0 {
		return errors.New("cannot save a portfolio without user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.all()
	if err != nil {
		return err
	}
	all[strconv.Itoa(p.UserID())] = p
	return valutatrade.SaveJSON(s.path, all)
}

// Sessions stores the current session in a JSON file, so that successive
// invocations share a login.
type Sessions struct {
	path string
}

// NewSessions returns the session store at path.
func NewSessions(path string) *Sessions { return &Sessions{path: path} }

// Load returns the stored session, the zero session if nobody is logged in.
func (s *Sessions) Load() (valutatrade.Session, error) {
	var sess valutatrade.Session
	if _, err := valutatrade.LoadJSON(s.path, &sess); err != nil {
		return valutatrade.Session{}, err
	}
	return sess, nil
}

// Save stores sess.
func (s *Sessions) Save(sess valutatrade.Session) error {
	return valutatrade.SaveJSON(s.path, sess)
}

// Clear forgets the stored session.
func (s *Sessions) Clear() error {
	return valutatrade.SaveJSON(s.path, valutatrade.Session{})
}

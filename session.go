package valutatrade

import "time"

// Session identifies the logged-in user. The zero value means nobody is logged in.
type Session struct {
	UserID     int       `json:"user_id"`
	Username   string    `json:"username"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// LoggedIn returns true if the session carries a user.
func (s Session) LoggedIn() bool { return s.UserID > 0 }

// Require returns ErrNotLoggedIn unless the session carries a user.
func (s Session) Require() error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}
